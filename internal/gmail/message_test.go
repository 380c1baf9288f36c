package gmail

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gm "google.golang.org/api/gmail/v1"
)

func enc(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func TestParseMessage(t *testing.T) {
	msg := &gm.Message{
		Id:           "18c1",
		InternalDate: 1700000000000,
		Payload: &gm.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gm.MessagePartHeader{
				{Name: "From", Value: `"Jane Doe" <jane@client.com>`},
				{Name: "To", Value: "ops@bettersystems.ai, Bob <bob@client.com>"},
				{Name: "Subject", Value: "Kickoff"},
				{Name: "Date", Value: "Mon, 2 Jan 2006 15:04:05 -0700"},
				{Name: "Message-ID", Value: "<abc@mail>"},
			},
			Parts: []*gm.MessagePart{
				{MimeType: "text/plain", Body: &gm.MessagePartBody{Data: enc("hello")}},
				{MimeType: "text/html", Body: &gm.MessagePartBody{Data: enc("<p>hello</p>")}},
			},
		},
	}

	m := ParseMessage(msg)

	assert.Equal(t, "18c1", m.ID)
	assert.Equal(t, "<abc@mail>", m.MessageID)
	assert.Equal(t, `"Jane Doe" <jane@client.com>`, m.From)
	assert.Len(t, m.To, 2)
	assert.Empty(t, m.Cc)
	assert.Equal(t, "Kickoff", m.Subject)
	assert.Equal(t, time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC), m.Date)
	require.NotNil(t, m.Text)
	require.NotNil(t, m.HTML)
	assert.Equal(t, "hello", *m.Text)
	assert.Equal(t, "<p>hello</p>", *m.HTML)
}

func TestParseMessage_FallsBackToInternalDate(t *testing.T) {
	m := ParseMessage(&gm.Message{Id: "x", InternalDate: 1700000000000, Payload: &gm.MessagePart{}})
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), m.Date)
	assert.Nil(t, m.HTML)
}

func TestDecodeBase64URL_Unpadded(t *testing.T) {
	s, ok := decodeBase64URL(base64.RawURLEncoding.EncodeToString([]byte("hi?>")))
	assert.True(t, ok)
	assert.Equal(t, "hi?>", s)
}

func TestParseAddress(t *testing.T) {
	a := ParseAddress(`"Jane Q Doe" <Jane@Client.com>`)
	assert.Equal(t, "Jane@Client.com", a.Email)
	assert.Equal(t, "Jane", a.FirstName)
	assert.Equal(t, "Q Doe", a.LastName)

	b := ParseAddress("ops@client.com")
	assert.Equal(t, "ops@client.com", b.Email)
	assert.Equal(t, "ops", b.FirstName)
	assert.Equal(t, "ops", b.Name)
}

func TestSplitAddressList(t *testing.T) {
	assert.Empty(t, SplitAddressList(""))
	assert.Equal(t, []string{"<a@x.com>", "<b@y.com>"}, SplitAddressList("a@x.com, b@y.com"))
}
