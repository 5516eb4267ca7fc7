// Package pipeline implements the forwarding decision pipeline: classify the
// inbound notification, filter the sender, build the outbound message, and
// perform the single send attempt.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mailbound/ses-forwarder/internal/blacklist"
	"github.com/mailbound/ses-forwarder/internal/classify"
	"github.com/mailbound/ses-forwarder/internal/config"
	"github.com/mailbound/ses-forwarder/internal/email"
	"github.com/mailbound/ses-forwarder/internal/event"
	"github.com/mailbound/ses-forwarder/internal/extract"
	"github.com/mailbound/ses-forwarder/internal/provider"
	"github.com/mailbound/ses-forwarder/internal/rewrite"
)

// Outcome is the terminal state of one pipeline run.
type Outcome int

const (
	// OutcomeForwarded means the message was handed to the provider.
	OutcomeForwarded Outcome = iota
	// OutcomeSkippedSpamOrVirus means an upstream verdict blocked the forward.
	OutcomeSkippedSpamOrVirus
	// OutcomeSkippedBlacklisted means the sender matched a blacklist rule.
	OutcomeSkippedBlacklisted
)

// Result describes how a notification was handled. Hard failures are
// returned as errors instead, so the invoking framework's retry policy can
// apply to them and only to them.
type Result struct {
	Outcome Outcome
	// MessageID is the provider's id for the outbound message, set only when
	// Outcome is OutcomeForwarded.
	MessageID string
	// MatchedRule is the blacklist rule that matched, set only when Outcome
	// is OutcomeSkippedBlacklisted.
	MatchedRule string
	// FailedCheck names the rejecting verdict, set only when Outcome is
	// OutcomeSkippedSpamOrVirus.
	FailedCheck string
}

// Response is the normalized handler response. Skips report 200 so the
// invoking framework never retries a deliberate no-op.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Response renders the result for the invoking framework.
func (r Result) Response() Response {
	switch r.Outcome {
	case OutcomeSkippedSpamOrVirus:
		return Response{StatusCode: 200, Body: fmt.Sprintf("message skipped: %s check failed", r.FailedCheck)}
	case OutcomeSkippedBlacklisted:
		return Response{StatusCode: 200, Body: fmt.Sprintf("message skipped: sender matched blacklist rule %q", r.MatchedRule)}
	default:
		return Response{StatusCode: 200, Body: r.MessageID}
	}
}

// RawFetcher retrieves raw emails the receipt rule stored out of band.
type RawFetcher interface {
	RawEmail(ctx context.Context, bucket, key string) ([]byte, error)
}

// Pipeline processes one notification per invocation. It holds no state
// across invocations and is safe to share between concurrent, unrelated
// notifications.
type Pipeline struct {
	cfg   *config.Config
	prov  provider.Provider
	store RawFetcher
	log   *slog.Logger
}

// New creates a Pipeline. store may be nil when no S3 bucket is configured;
// notifications without inline content then fail as malformed. The logger is
// required: observability is injected, never global.
func New(cfg *config.Config, prov provider.Provider, store RawFetcher, log *slog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, prov: prov, store: store, log: log}
}

// Process runs the decision pipeline for one notification and transitions to
// exactly one terminal state: forwarded, skipped, or failed (the error).
func (p *Pipeline) Process(ctx context.Context, n *event.Notification) (Result, error) {
	if err := n.Validate(); err != nil {
		return Result{}, err
	}

	verdict, err := classify.Classify(n.Receipt.SpamVerdict.Status, n.Receipt.VirusVerdict.Status)
	if err != nil {
		return Result{}, err
	}
	if verdict.Rejected {
		p.log.Warn("skipping message: verdict failed",
			"check", verdict.FailedCheck,
			"message_id", n.Mail.MessageID,
		)
		return Result{Outcome: OutcomeSkippedSpamOrVirus, FailedCheck: verdict.FailedCheck}, nil
	}

	sender := n.OriginalSender()
	if rule, matched := blacklist.Match(sender, p.cfg.Forward.Blacklist); matched {
		p.log.Info("skipping message: sender blacklisted",
			"sender", sender,
			"rule", rule,
			"message_id", n.Mail.MessageID,
		)
		return Result{Outcome: OutcomeSkippedBlacklisted, MatchedRule: rule}, nil
	}

	raw, err := p.rawContent(ctx, n)
	if err != nil {
		return Result{}, err
	}

	var msg *email.Message
	switch p.cfg.Forward.Mode {
	case config.ModeRaw:
		msg, err = p.buildRawMessage(n, raw, sender)
	default:
		msg, err = p.buildSimpleMessage(n, raw, sender)
	}
	if err != nil {
		return Result{}, err
	}

	id, err := p.prov.Send(ctx, msg)
	if err != nil {
		return Result{}, err
	}

	p.log.Info("message forwarded",
		"message_id", n.Mail.MessageID,
		"outbound_id", id,
		"to", p.cfg.Forward.ToEmail,
		"mode", p.cfg.Forward.Mode,
	)
	return Result{Outcome: OutcomeForwarded, MessageID: id}, nil
}

// Handle adapts Process to the event payload shape the invoking framework
// delivers, returning the normalized response.
func (p *Pipeline) Handle(ctx context.Context, evt event.SimpleEmailEvent) (Response, error) {
	n, err := evt.First()
	if err != nil {
		return Response{}, err
	}
	result, err := p.Process(ctx, n)
	if err != nil {
		return Response{}, err
	}
	return result.Response(), nil
}

// rawContent resolves the full raw email: inline when the notification
// carries it, otherwise fetched from the stored object named by the receipt
// action. A notification with neither cannot be forwarded.
func (p *Pipeline) rawContent(ctx context.Context, n *event.Notification) ([]byte, error) {
	if n.Content != "" {
		return []byte(n.Content), nil
	}
	if bucket, key, ok := n.StoredObject(); ok && p.store != nil {
		return p.store.RawEmail(ctx, bucket, key)
	}
	return nil, &event.MalformedInputError{Field: "content"}
}

// buildSimpleMessage composes a forward from the extracted bodies.
func (p *Pipeline) buildSimpleMessage(n *event.Notification, raw []byte, sender string) (*email.Message, error) {
	bodies, err := extract.FromRaw(raw)
	if err != nil {
		return nil, err
	}

	return &email.Message{
		From:     p.cfg.Forward.FromEmail,
		To:       []string{p.cfg.Forward.ToEmail},
		ReplyTo:  []string{sender},
		Cc:       n.Mail.CommonHeaders.Cc,
		Subject:  p.cfg.Forward.SubjectPrefix + n.Mail.CommonHeaders.Subject,
		TextBody: bodies.Text,
		HtmlBody: bodies.HTML,
	}, nil
}

// buildRawMessage reconstructs the original message with a rewritten header
// block. The envelope still targets the configured recipient; the rewritten
// To header keeps the original destination visible.
func (p *Pipeline) buildRawMessage(n *event.Notification, raw []byte, sender string) (*email.Message, error) {
	out, err := rewrite.Rewrite(rewrite.Request{
		Raw:          raw,
		ForwardFrom:  p.cfg.Forward.FromEmail,
		OriginalFrom: sender,
		OriginalTo:   originalDestination(n),
		Subject:      n.Mail.CommonHeaders.Subject,
	})
	if err != nil {
		return nil, err
	}

	return &email.Message{
		From: p.cfg.Forward.FromEmail,
		To:   []string{p.cfg.Forward.ToEmail},
		Raw:  out,
	}, nil
}

// originalDestination returns the address the message was originally sent to.
func originalDestination(n *event.Notification) string {
	if len(n.Mail.Destination) > 0 {
		return n.Mail.Destination[0]
	}
	if to := n.Mail.CommonHeaders.To; len(to) > 0 {
		return to[0]
	}
	return ""
}
