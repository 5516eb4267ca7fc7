// Package extract parses raw email bytes and yields the plain-text and HTML
// bodies needed to compose a forward.
package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/k3a/html2text"
)

// Bodies holds the decoded message content for a simple-mode forward.
type Bodies struct {
	Text string
	HTML string
}

// FromRaw parses raw message bytes into a MIME tree and extracts the bodies.
//
// For a multipart message the first top-level part is taken as the plain-text
// alternative and the second as the HTML alternative. A flat message fills
// both fields with its whole body. Transfer encodings are decoded by the MIME
// reader; charsets are converted per the part's declaration, falling back to
// a byte-wise Latin-1 decode when the charset is unknown.
//
// An unparseable MIME structure is an error for the whole invocation; no
// partial body is ever substituted.
func FromRaw(raw []byte) (*Bodies, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	unknownCharset := err != nil

	mr := entity.MultipartReader()
	if mr == nil {
		content, err := entityText(entity, unknownCharset)
		if err != nil {
			return nil, err
		}
		return &Bodies{Text: content, HTML: content}, nil
	}

	var parts []string
	for len(parts) < 2 {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		partUnknownCharset := false
		if err != nil {
			if !message.IsUnknownCharset(err) {
				return nil, fmt.Errorf("failed to read part %d: %w", len(parts), err)
			}
			partUnknownCharset = true
		}
		content, err := entityText(part, partUnknownCharset)
		if err != nil {
			return nil, err
		}
		parts = append(parts, content)
	}

	bodies := &Bodies{}
	switch len(parts) {
	case 0:
		// multipart container with no parts forwards as empty
	case 1:
		bodies.Text = parts[0]
		bodies.HTML = parts[0]
	default:
		bodies.Text = parts[0]
		bodies.HTML = parts[1]
	}

	if bodies.Text == "" && bodies.HTML != "" {
		bodies.Text = html2text.HTML2Text(bodies.HTML)
	}

	return bodies, nil
}

// entityText reads a fully decoded part body. When the declared charset was
// not recognized the body bytes are untouched, so they are decoded as
// Latin-1, which maps every byte to a rune and cannot fail.
func entityText(e *message.Entity, unknownCharset bool) (string, error) {
	b, err := io.ReadAll(e.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	if unknownCharset {
		return decodeLatin1(b), nil
	}
	return string(b), nil
}

// decodeLatin1 interprets bytes as ISO-8859-1, where each byte is the
// identical Unicode code point.
func decodeLatin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
