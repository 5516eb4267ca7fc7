// Package email defines the outbound message model used throughout the forwarder.
package email

// Message represents one outbound forward request, fully addressed and ready
// to hand to a delivery provider.
type Message struct {
	From     string
	To       []string
	ReplyTo  []string
	Cc       []string
	Subject  string
	TextBody string
	HtmlBody string

	// Raw holds a complete reconstructed RFC 5322 message for raw-mode
	// forwards. When set, providers send it as-is and ignore the structured
	// body fields.
	Raw []byte
}

// IsRaw reports whether the message must be delivered as a raw blob.
func (m *Message) IsRaw() bool {
	return len(m.Raw) > 0
}
