package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer turns markdown into sanitized HTML and wraps it in the email layout
type Renderer struct {
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	layout    *template.Template
	brandName string
	publicURL string
}

// NewRenderer creates a renderer; brandName and publicURL appear in the footer
func NewRenderer(brandName, publicURL string) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &Renderer{
		md:        md,
		policy:    bluemonday.UGCPolicy(),
		layout:    template.Must(template.New("layout").Parse(layoutTemplate)),
		brandName: brandName,
		publicURL: publicURL,
	}
}

// MarkdownToHTML converts markdown and strips anything outside the UGC policy
func (r *Renderer) MarkdownToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// Content is the variable part of an email
type Content struct {
	Heading  string
	Greeting string
	// Markdown is rendered and sanitized into the body
	Markdown string
	// Lines are plain paragraphs appended after the markdown body
	Lines []string
}

type layoutData struct {
	Heading   string
	Greeting  string
	Body      template.HTML
	Lines     []string
	BrandName string
	PublicURL string
}

// Render produces the HTML and plain-text alternatives for content
func (r *Renderer) Render(c Content) (htmlBody, textBody string, err error) {
	body, err := r.MarkdownToHTML(c.Markdown)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	err = r.layout.Execute(&buf, layoutData{
		Heading:  c.Heading,
		Greeting: c.Greeting,
		// body has been through bluemonday
		Body:      template.HTML(body),
		Lines:     c.Lines,
		BrandName: r.brandName,
		PublicURL: r.publicURL,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to render email layout: %w", err)
	}

	var text strings.Builder
	if c.Greeting != "" {
		text.WriteString(c.Greeting + "\n\n")
	}
	if c.Markdown != "" {
		text.WriteString(strings.TrimSpace(c.Markdown) + "\n\n")
	}
	for _, line := range c.Lines {
		text.WriteString(line + "\n")
	}
	text.WriteString("\n-- \n" + r.brandName)
	if r.publicURL != "" {
		text.WriteString("\n" + r.publicURL)
	}

	return buf.String(), text.String(), nil
}

const layoutTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #1f2937; max-width: 600px; margin: 0 auto; padding: 24px;">
{{- if .Heading}}
<h2 style="margin-top: 0;">{{.Heading}}</h2>
{{- end}}
{{- if .Greeting}}
<p>{{.Greeting}}</p>
{{- end}}
<div>{{.Body}}</div>
{{- range .Lines}}
<p>{{.}}</p>
{{- end}}
<hr style="border: none; border-top: 1px solid #e5e7eb; margin: 24px 0;">
<p style="font-size: 12px; color: #6b7280;">{{.BrandName}}{{if .PublicURL}} &middot; <a href="{{.PublicURL}}">{{.PublicURL}}</a>{{end}}</p>
</body>
</html>
`
