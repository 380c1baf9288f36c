package gmail

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	gm "google.golang.org/api/gmail/v1"
)

// Message is the subset of a Gmail message stored in the email log
type Message struct {
	ID        string
	MessageID string
	From      string
	To        []string
	Cc        []string
	Subject   string
	Date      time.Time
	HTML      *string
	Text      *string
}

// ParseMessage extracts headers and text/html bodies from a full-format message
func ParseMessage(msg *gm.Message) *Message {
	out := &Message{ID: msg.Id}
	if msg.Payload == nil {
		out.Date = time.UnixMilli(msg.InternalDate).UTC()
		return out
	}

	headers := headerMap(msg.Payload.Headers)
	out.MessageID = headers["message-id"]
	out.From = headers["from"]
	out.To = SplitAddressList(headers["to"])
	out.Cc = SplitAddressList(headers["cc"])
	out.Subject = headers["subject"]

	if d, err := mail.ParseDate(headers["date"]); err == nil {
		out.Date = d.UTC()
	} else {
		out.Date = time.UnixMilli(msg.InternalDate).UTC()
	}

	collectBodies(msg.Payload, out)
	return out
}

func headerMap(headers []*gm.MessagePartHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		key := strings.ToLower(h.Name)
		if _, seen := m[key]; !seen {
			m[key] = h.Value
		}
	}
	return m
}

// collectBodies walks the MIME tree; the last text/plain and text/html parts win
func collectBodies(part *gm.MessagePart, out *Message) {
	if part.Body != nil && part.Body.Data != "" {
		if content, ok := decodeBase64URL(part.Body.Data); ok {
			switch part.MimeType {
			case "text/html":
				out.HTML = &content
			case "text/plain":
				out.Text = &content
			}
		}
	}
	for _, child := range part.Parts {
		collectBodies(child, out)
	}
}

func decodeBase64URL(data string) (string, bool) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return "", false
		}
	}
	return string(b), true
}

// SplitAddressList splits a To/Cc header into trimmed non-empty entries
func SplitAddressList(header string) []string {
	if strings.TrimSpace(header) == "" {
		return []string{}
	}
	if addrs, err := mail.ParseAddressList(header); err == nil {
		out := make([]string, 0, len(addrs))
		for _, a := range addrs {
			out = append(out, a.String())
		}
		return out
	}
	var out []string
	for _, part := range strings.Split(header, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Address is a parsed mailbox with a best-effort first/last name split
type Address struct {
	Name      string
	Email     string
	FirstName string
	LastName  string
}

// ParseAddress parses `"Jane Doe" <jane@x.com>` or a bare address. When no display
// name is present the local part of the address becomes the first name.
func ParseAddress(header string) Address {
	header = strings.TrimSpace(header)
	var a Address
	if parsed, err := mail.ParseAddress(header); err == nil {
		a.Name = strings.TrimSpace(parsed.Name)
		a.Email = parsed.Address
	} else {
		a.Email = strings.Trim(header, "<> ")
	}

	parts := strings.Fields(a.Name)
	switch {
	case len(parts) >= 2:
		a.FirstName = parts[0]
		a.LastName = strings.Join(parts[1:], " ")
	case len(parts) == 1:
		a.FirstName = parts[0]
	default:
		a.FirstName, _, _ = strings.Cut(a.Email, "@")
	}
	if a.Name == "" {
		a.Name = a.FirstName
	}
	return a
}
