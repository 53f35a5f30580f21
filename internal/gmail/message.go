package gmail

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

// Placeholders substituted for missing message fields. Messages are
// never rejected for incomplete headers or bodies.
const (
	NoSubject     = "(No Subject)"
	UnknownSender = "(Unknown Sender)"
	EmptyBody     = "(Empty Body)"
)

// MIME types looked up during body extraction.
const (
	mimeTextPlain = "text/plain"
	mimeTextHTML  = "text/html"
)

// Parsed is a normalized view of a Gmail message.
type Parsed struct {
	Subject    string
	Sender     string
	ReceivedAt time.Time
	PlainText  string
	// HTML is nil when the message carries no decodable text/html part.
	HTML *string
}

// Parse normalizes a full Gmail message. Header names are matched
// case-insensitively; missing Subject/From fall back to placeholders,
// an unparseable Date falls back to now, and the body defaults are
// "(Empty Body)" for plain text and nil for HTML.
func Parse(msg *gmail.Message) Parsed {
	p := Parsed{
		Subject:    Header(msg, "Subject"),
		Sender:     Header(msg, "From"),
		ReceivedAt: receivedAt(msg),
		PlainText:  ExtractBody(msg, mimeTextPlain),
	}
	if p.Subject == "" {
		p.Subject = NoSubject
	}
	if p.Sender == "" {
		p.Sender = UnknownSender
	}
	if p.PlainText == "" {
		p.PlainText = EmptyBody
	}
	if html := ExtractBody(msg, mimeTextHTML); html != "" {
		p.HTML = &html
	}
	return p
}

// Header returns the value of the named header, matched
// case-insensitively, or "" when absent.
func Header(msg *gmail.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// receivedAt parses the Date header (RFC 5322); an absent or
// unparseable value yields the current instant rather than a failure.
func receivedAt(msg *gmail.Message) time.Time {
	raw := Header(msg, "Date")
	if raw != "" {
		if t, err := mail.ParseDate(raw); err == nil {
			return t
		}
	}
	return time.Now()
}

// ExtractBody walks the MIME part tree depth-first and returns the
// decoded content of the first leaf with the target MIME type, or ""
// when no such part exists or its data cannot be decoded.
func ExtractBody(msg *gmail.Message, mimeType string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}

	var data string
	walkParts(msg.Payload, func(part *gmail.MessagePart) {
		if data == "" && part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
			data = part.Body.Data
		}
	})
	if data == "" {
		return ""
	}

	// Gmail body data is RFC 4648 base64url, usually unpadded; try the
	// padded variant too for providers that deviate.
	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// walkParts visits part and every descendant, depth-first.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}
