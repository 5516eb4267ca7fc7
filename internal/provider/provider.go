// Package provider defines the interface for mail-transfer backends.
package provider

import (
	"context"

	"github.com/mailbound/ses-forwarder/internal/email"
)

// Provider is the interface that mail-transfer backends must implement.
// Each provider performs the single outbound send attempt for a forwarded
// message; retry policy belongs to the invoking framework, not the provider.
type Provider interface {
	// Send delivers a message and returns the provider's message id.
	Send(ctx context.Context, msg *email.Message) (string, error)

	// Name returns the human-readable name of this provider.
	Name() string
}
