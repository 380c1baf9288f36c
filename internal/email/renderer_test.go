package email

import (
	"context"
	"testing"

	"github.com/bettersystems/crm-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRenderer_MarkdownToHTML(t *testing.T) {
	r := NewRenderer("Better Systems", "https://example.com")

	out, err := r.MarkdownToHTML("# Release\n\n- **fast** sync\n- fixes")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Release</h1>")
	assert.Contains(t, out, "<strong>fast</strong>")
	assert.Contains(t, out, "<li>")
}

func TestRenderer_StripsScripts(t *testing.T) {
	r := NewRenderer("Better Systems", "")

	out, err := r.MarkdownToHTML("hello <script>alert(1)</script> [x](javascript:alert(1))")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "javascript:")
}

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer("Better Systems", "https://example.com")

	htmlBody, textBody, err := r.Render(Content{
		Heading:  "Project update",
		Greeting: "Hi <Ann>,",
		Markdown: "Work is **done**.",
		Lines:    []string{"Reply to this email with questions."},
	})
	require.NoError(t, err)

	assert.Contains(t, htmlBody, "<h2")
	assert.Contains(t, htmlBody, "Hi &lt;Ann&gt;,")
	assert.Contains(t, htmlBody, "<strong>done</strong>")
	assert.Contains(t, htmlBody, "https://example.com")
	assert.Contains(t, textBody, "Work is **done**.")
	assert.Contains(t, textBody, "Reply to this email with questions.")
}

func TestNewSMTPMailer_NilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, NewSMTPMailer(&config.EmailConfig{}, zap.NewNop()))

	m := NewSMTPMailer(&config.EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 465, FromAddress: "a@example.com"}, zap.NewNop())
	require.NotNil(t, m)
	assert.True(t, m.dialer.SSL)
}

func TestSMTPMailer_RequiresRecipient(t *testing.T) {
	m := NewSMTPMailer(&config.EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, FromAddress: "a@example.com"}, zap.NewNop())
	err := m.Send(context.Background(), Message{Subject: "x"})
	assert.Error(t, err)
}
