package stdout

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mailbound/ses-forwarder/internal/email"
)

func TestName(t *testing.T) {
	t.Parallel()
	if got := New().Name(); got != "stdout" {
		t.Errorf("Name(): got %q, want %q", got, "stdout")
	}
}

func TestSend_SimpleMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:     "relay@relay.example",
		To:       []string{"me@example.net"},
		ReplyTo:  []string{"user@example.com"},
		Cc:       []string{"copy@example.com"},
		Subject:  "Hello",
		TextBody: "body text",
	}

	id, err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Error("expected a generated message id")
	}

	out := buf.String()
	for _, want := range []string{
		"From: relay@relay.example",
		"To: me@example.net",
		"Reply-To: user@example.com",
		"Cc: copy@example.com",
		"Subject: Hello",
		"body text",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSend_RawMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From: "relay@relay.example",
		To:   []string{"me@example.net"},
		Raw:  []byte("From: x\r\n\r\nraw body\r\n"),
	}

	if _, err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "raw body") {
		t.Errorf("output missing raw body:\n%s", buf.String())
	}
}

func TestSend_UniqueMessageIDs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)
	msg := &email.Message{From: "a@b.c", To: []string{"d@e.f"}, TextBody: "x"}

	id1, _ := p.Send(context.Background(), msg)
	id2, _ := p.Send(context.Background(), msg)
	if id1 == id2 {
		t.Errorf("expected unique ids, got %q twice", id1)
	}
}
