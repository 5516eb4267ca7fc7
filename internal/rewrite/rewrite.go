// Package rewrite reconstructs a deliverable raw message for forwarding by
// splicing a rewritten header block onto the original body.
package rewrite

import (
	"fmt"
	"net/mail"
	"strings"
)

// crlf separates header lines; a double crlf separates headers from body.
const crlf = "\r\n"

// placeholderBody is substituted when the original message has no body.
const placeholderBody = "No message!"

// MissingHeaderError reports a required header line that could not be found
// in the original message. A raw email without it is presumed malformed for
// the relay's purposes.
type MissingHeaderError struct {
	Name string
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("original message is missing required header %q", e.Name)
}

// Request carries everything needed to rewrite one raw message.
type Request struct {
	// Raw is the original message, header block included.
	Raw []byte
	// ForwardFrom is the configured verified sender address.
	ForwardFrom string
	// OriginalFrom is the canonical original sender, used for Reply-To.
	OriginalFrom string
	// OriginalTo is the address the message was originally delivered to.
	OriginalTo string
	// Subject is the original subject.
	Subject string
}

// Rewrite builds the outbound raw message. The new header block contains, in
// order: From (original display name on the forward address), Reply-To,
// X-Original-To, To, CC (only when the original has one), Subject, and the
// original Content-Type, Content-Transfer-Encoding and MIME-Version lines
// carried over verbatim, folded continuations included. The original header
// segment is discarded; the remaining body segments are rejoined unchanged.
func Rewrite(req Request) ([]byte, error) {
	headers, body := splitMessage(string(req.Raw))

	fields := parseFields(headers)

	contentType, ok := fields.verbatim("Content-Type")
	if !ok {
		return nil, &MissingHeaderError{Name: "Content-Type"}
	}
	transferEncoding, ok := fields.verbatim("Content-Transfer-Encoding")
	if !ok {
		return nil, &MissingHeaderError{Name: "Content-Transfer-Encoding"}
	}
	mimeVersion, ok := fields.verbatim("MIME-Version")
	if !ok {
		return nil, &MissingHeaderError{Name: "MIME-Version"}
	}

	var b strings.Builder
	fromAddr := mail.Address{
		Name:    displayName(fields, req.OriginalFrom),
		Address: req.ForwardFrom,
	}
	fmt.Fprintf(&b, "From: %s%s", fromAddr.String(), crlf)
	fmt.Fprintf(&b, "Reply-To: %s%s", req.OriginalFrom, crlf)
	fmt.Fprintf(&b, "X-Original-To: %s%s", req.OriginalTo, crlf)
	fmt.Fprintf(&b, "To: %s%s", req.OriginalTo, crlf)
	if cc, ok := fields.value("CC"); ok {
		fmt.Fprintf(&b, "CC: %s%s", cc, crlf)
	}
	fmt.Fprintf(&b, "Subject: %s%s", req.Subject, crlf)
	b.WriteString(contentType + crlf)
	b.WriteString(transferEncoding + crlf)
	b.WriteString(mimeVersion + crlf)

	b.WriteString(crlf)
	if body == "" {
		b.WriteString(placeholderBody + crlf)
	} else {
		b.WriteString(body)
	}

	return []byte(b.String()), nil
}

// splitMessage separates the header segment from the body on the first blank
// line. A message without a blank line is all headers.
func splitMessage(raw string) (headers, body string) {
	if i := strings.Index(raw, crlf+crlf); i >= 0 {
		return raw[:i], raw[i+len(crlf+crlf):]
	}
	// Tolerate bare-LF input from upstream systems that normalized newlines.
	if i := strings.Index(raw, "\n\n"); i >= 0 {
		return raw[:i], raw[i+2:]
	}
	return raw, ""
}

// field is one header with its verbatim lines (first line plus folded
// continuations) preserved byte for byte.
type field struct {
	name  string
	lines []string
}

type fieldList []field

// parseFields walks the header segment line by line, attaching folded
// continuation lines (leading space or tab) to the preceding field.
func parseFields(headers string) fieldList {
	var fields fieldList
	for _, line := range strings.Split(headers, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if len(fields) > 0 {
				last := &fields[len(fields)-1]
				last.lines = append(last.lines, line)
			}
			continue
		}
		name, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields = append(fields, field{name: name, lines: []string{line}})
	}
	return fields
}

// verbatim returns the full original lines of the named header, folds
// preserved, joined with CRLF.
func (l fieldList) verbatim(name string) (string, bool) {
	for _, f := range l {
		if strings.EqualFold(f.name, name) {
			return strings.Join(f.lines, crlf), true
		}
	}
	return "", false
}

// value returns the unfolded value of the named header.
func (l fieldList) value(name string) (string, bool) {
	for _, f := range l {
		if strings.EqualFold(f.name, name) {
			joined := f.lines[0]
			_, v, _ := strings.Cut(joined, ":")
			v = strings.TrimSpace(v)
			for _, cont := range f.lines[1:] {
				v += " " + strings.TrimSpace(cont)
			}
			return v, true
		}
	}
	return "", false
}

// displayName derives the display name for the rewritten From header from
// the original From header, falling back to the original sender address.
func displayName(fields fieldList, originalFrom string) string {
	if v, ok := fields.value("From"); ok {
		if addr, err := mail.ParseAddress(v); err == nil {
			if addr.Name != "" {
				return addr.Name
			}
			return addr.Address
		}
	}
	return originalFrom
}
