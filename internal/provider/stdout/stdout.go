// Package stdout implements a Provider that prints mail to standard output.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/mailbound/ses-forwarder/internal/email"
)

// Provider prints messages to stdout in a human-readable format. It is the
// delivery backend for local development runs.
type Provider struct {
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send prints the message and returns a generated message id.
func (p *Provider) Send(_ context.Context, msg *email.Message) (string, error) {
	var b strings.Builder

	b.WriteString("========================================\n")

	if msg.IsRaw() {
		b.Write(msg.Raw)
		b.WriteString("\n")
	} else {
		b.WriteString(fmt.Sprintf("From: %s\n", msg.From))
		b.WriteString(fmt.Sprintf("To: %s\n", strings.Join(msg.To, ", ")))
		if len(msg.ReplyTo) > 0 {
			b.WriteString(fmt.Sprintf("Reply-To: %s\n", strings.Join(msg.ReplyTo, ", ")))
		}
		if len(msg.Cc) > 0 {
			b.WriteString(fmt.Sprintf("Cc: %s\n", strings.Join(msg.Cc, ", ")))
		}
		b.WriteString(fmt.Sprintf("Subject: %s\n", msg.Subject))
		b.WriteString("Body:\n")

		body := msg.TextBody
		if body == "" {
			body = msg.HtmlBody
		}
		b.WriteString(body + "\n")
	}

	b.WriteString("========================================\n")

	if _, err := fmt.Fprint(p.writer, b.String()); err != nil {
		return "", fmt.Errorf("failed to write message: %w", err)
	}

	return uuid.NewString(), nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}
