package filter

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mikey/content-safety/internal/core"
)

// maxPartDepth bounds multipart nesting
const maxPartDepth = 5

var wordDecoder = new(mime.WordDecoder)

// ParseMessage reads an RFC 5322 message into an Email. The body is the
// text/plain content, falling back to the text of text/html parts.
func ParseMessage(r io.Reader) (*core.Email, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse message: %v", core.ErrInvalidInput, err)
	}

	var plain, html strings.Builder
	if err := collectText(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body, &plain, &html, 0); err != nil {
		return nil, fmt.Errorf("failed to extract text content: %w", err)
	}

	body := plain.String()
	if strings.TrimSpace(body) == "" {
		body = html.String()
	}

	email := &core.Email{
		Subject:   decodeEncodedHeader(msg.Header.Get("Subject")),
		Body:      strings.TrimSpace(body),
		Sender:    addressOf(msg.Header.Get("From")),
		Recipient: addressOf(msg.Header.Get("To")),
		Headers:   make(map[string][]string, len(msg.Header)),
	}
	for key, values := range msg.Header {
		email.Headers[key] = values
	}
	return email, nil
}

func collectText(contentType, encoding string, body io.Reader, plain, html *strings.Builder, depth int) error {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || contentType == "" {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" || depth >= maxPartDepth {
			return nil
		}
		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				// Keep what was collected from the readable parts
				return nil
			}
			if err := collectText(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part, plain, html, depth+1); err != nil {
				return err
			}
		}
	}

	switch mediaType {
	case "text/plain":
		text, err := readDecoded(body, encoding)
		if err != nil {
			return err
		}
		plain.WriteString(text)
		plain.WriteString("\n")
	case "text/html":
		text, err := readDecoded(body, encoding)
		if err != nil {
			return err
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
		if err != nil {
			return nil
		}
		html.WriteString(strings.Join(strings.Fields(doc.Text()), " "))
		html.WriteString("\n")
	}
	return nil
}

func readDecoded(r io.Reader, encoding string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeEncodedHeader decodes RFC 2047 encoded words, returning the input on failure
func decodeEncodedHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// addressOf returns the bare address of a header like `"Name" <a@b.c>`
func addressOf(value string) string {
	if value == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(value); err == nil {
		return addr.Address
	}
	if list, err := mail.ParseAddressList(value); err == nil && len(list) > 0 {
		return list[0].Address
	}
	return strings.Trim(strings.TrimSpace(value), "<>")
}
