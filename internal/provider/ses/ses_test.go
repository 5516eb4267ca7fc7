package ses

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/mailbound/ses-forwarder/internal/email"
)

// mockSESClient implements SendEmailAPI for testing.
type mockSESClient struct {
	sendFn    func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.sendFn != nil {
		return m.sendFn(ctx, params, optFns...)
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

func TestName(t *testing.T) {
	t.Parallel()
	p := NewWithClient(&mockSESClient{})
	if got := p.Name(); got != "ses" {
		t.Errorf("Name(): got %q, want %q", got, "ses")
	}
}

func TestSend_SimpleMessage(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient(mock)

	msg := &email.Message{
		From:     "relay@relay.example",
		To:       []string{"me@example.net"},
		ReplyTo:  []string{"user@example.com"},
		Subject:  "Test Subject",
		TextBody: "Hello, World!",
	}

	id, err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "test-message-id" {
		t.Errorf("message id: got %q, want %q", id, "test-message-id")
	}

	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want 1", mock.callCount)
	}

	input := mock.lastInput
	if input.Content.Simple == nil {
		t.Fatal("expected simple email content, got nil")
	}
	if got := *input.FromEmailAddress; got != "relay@relay.example" {
		t.Errorf("FromEmailAddress: got %q, want %q", got, "relay@relay.example")
	}
	if got := *input.Content.Simple.Subject.Data; got != "Test Subject" {
		t.Errorf("Subject: got %q, want %q", got, "Test Subject")
	}
	if got := *input.Content.Simple.Body.Text.Data; got != "Hello, World!" {
		t.Errorf("TextBody: got %q, want %q", got, "Hello, World!")
	}
	if input.Content.Simple.Body.Html != nil {
		t.Error("expected no HTML body")
	}
	if len(input.ReplyToAddresses) != 1 || input.ReplyToAddresses[0] != "user@example.com" {
		t.Errorf("ReplyToAddresses: got %v, want [user@example.com]", input.ReplyToAddresses)
	}
}

func TestSend_HtmlAndCc(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient(mock)

	msg := &email.Message{
		From:     "relay@relay.example",
		To:       []string{"me@example.net"},
		Cc:       []string{"copy@example.com"},
		Subject:  "HTML Test",
		TextBody: "Plain text fallback",
		HtmlBody: "<h1>Hello</h1>",
	}

	if _, err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := mock.lastInput
	if got := *input.Content.Simple.Body.Html.Data; got != "<h1>Hello</h1>" {
		t.Errorf("HtmlBody: got %q, want %q", got, "<h1>Hello</h1>")
	}
	if got := *input.Content.Simple.Body.Html.Charset; got != "UTF-8" {
		t.Errorf("HTML charset: got %q, want %q", got, "UTF-8")
	}
	if len(input.Destination.CcAddresses) != 1 {
		t.Errorf("CcAddresses: got %d, want 1", len(input.Destination.CcAddresses))
	}
}

func TestSend_RawMessage(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{}
	p := NewWithClient(mock)

	raw := "From: \"User\" <relay@relay.example>\r\n" +
		"To: alias@relay.example\r\n" +
		"Subject: Raw\r\n" +
		"\r\n" +
		"body\r\n"
	msg := &email.Message{
		From: "relay@relay.example",
		To:   []string{"me@example.net"},
		Raw:  []byte(raw),
	}

	if _, err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := mock.lastInput
	if input.Content.Raw == nil {
		t.Fatal("expected raw email content, got nil")
	}
	if input.Content.Simple != nil {
		t.Error("expected no simple content when sending raw")
	}
	if got := string(input.Content.Raw.Data); got != raw {
		t.Errorf("raw data altered:\ngot  %q\nwant %q", got, raw)
	}
	if got := input.Destination.ToAddresses; len(got) != 1 || got[0] != "me@example.net" {
		t.Errorf("ToAddresses: got %v, want [me@example.net]", got)
	}
}

func TestSend_NoRetryOnError(t *testing.T) {
	t.Parallel()

	mock := &mockSESClient{
		sendFn: func(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	p := NewWithClient(mock)

	msg := &email.Message{
		From:     "relay@relay.example",
		To:       []string{"me@example.net"},
		Subject:  "Fail Test",
		TextBody: "Hello",
	}

	_, err := p.Send(context.Background(), msg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "throttled") {
		t.Errorf("error should carry the upstream cause: got %q", err.Error())
	}
	if mock.callCount != 1 {
		t.Errorf("call count: got %d, want exactly 1 (no local retries)", mock.callCount)
	}
}

func TestBuildSimpleInput_EmptyBodies(t *testing.T) {
	t.Parallel()

	msg := &email.Message{
		From:    "relay@relay.example",
		To:      []string{"me@example.net"},
		Subject: "Empty",
	}

	input := buildSimpleInput(msg)
	if input.Content.Simple.Body.Text != nil {
		t.Error("expected nil text body")
	}
	if input.Content.Simple.Body.Html != nil {
		t.Error("expected nil HTML body")
	}
}
