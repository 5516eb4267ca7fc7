// Package event defines the typed inbound SES notification payload and the
// validation that turns missing fields into structured errors instead of
// panics downstream.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// MalformedInputError reports an inbound payload that is missing a field the
// pipeline requires. It is a hard failure for the invocation; the invoking
// framework's own retry policy applies.
type MalformedInputError struct {
	Field string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed notification: missing %s", e.Field)
}

// SimpleEmailEvent is the outer structure of an event delivered by a SES
// receipt rule with a Lambda action.
type SimpleEmailEvent struct {
	Records []Record `json:"Records"`
}

// Record is one event record; SES delivers exactly one per invocation.
type Record struct {
	EventVersion string       `json:"eventVersion"`
	EventSource  string       `json:"eventSource"`
	SES          Notification `json:"ses"`
}

// Notification is the parsed representation of one mail-receipt event.
type Notification struct {
	Mail    Mail    `json:"mail"`
	Receipt Receipt `json:"receipt"`
	// Content is the full raw email (header + body). SES includes it inline
	// for SNS-delivered notifications; for S3 actions it must be fetched via
	// the receipt action's bucket and key.
	Content string `json:"content"`
}

// Mail describes the received message.
type Mail struct {
	Timestamp     time.Time     `json:"timestamp"`
	Source        string        `json:"source"`
	MessageID     string        `json:"messageId"`
	Destination   []string      `json:"destination"`
	CommonHeaders CommonHeaders `json:"commonHeaders"`
}

// CommonHeaders carries the standard headers SES extracts from the message.
type CommonHeaders struct {
	From       []string `json:"from"`
	To         []string `json:"to"`
	Cc         []string `json:"cc"`
	ReturnPath string   `json:"returnPath"`
	MessageID  string   `json:"messageId"`
	Date       string   `json:"date"`
	Subject    string   `json:"subject"`
}

// Receipt carries the upstream scanning verdicts and the receipt rule action.
type Receipt struct {
	Timestamp    time.Time `json:"timestamp"`
	Recipients   []string  `json:"recipients"`
	SpamVerdict  Verdict   `json:"spamVerdict"`
	VirusVerdict Verdict   `json:"virusVerdict"`
	SPFVerdict   Verdict   `json:"spfVerdict"`
	DKIMVerdict  Verdict   `json:"dkimVerdict"`
	DMARCVerdict Verdict   `json:"dmarcVerdict"`
	Action       Action    `json:"action"`
}

// Verdict is one upstream check result. Status is one of PASS, FAIL, GRAY,
// PROCESSING_FAILED, or an unrecognized value.
type Verdict struct {
	Status string `json:"status"`
}

// Action describes what the receipt rule did with the message. For S3
// actions, BucketName and ObjectKey locate the stored raw email.
type Action struct {
	Type       string `json:"type"`
	BucketName string `json:"bucketName"`
	ObjectKey  string `json:"objectKey"`
}

// Decode parses an event payload and validates the fields the pipeline
// depends on.
func Decode(payload []byte) (*Notification, error) {
	var evt SimpleEmailEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return evt.First()
}

// First returns the single notification carried by the event, validated.
func (e *SimpleEmailEvent) First() (*Notification, error) {
	if len(e.Records) == 0 {
		return nil, &MalformedInputError{Field: "Records"}
	}
	n := &e.Records[0].SES
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Validate checks every field the pipeline treats as present. A notification
// that fails validation must never be defaulted and forwarded.
func (n *Notification) Validate() error {
	if n.Mail.Source == "" && len(n.Mail.CommonHeaders.From) == 0 {
		return &MalformedInputError{Field: "mail.source"}
	}
	if n.Mail.MessageID == "" {
		return &MalformedInputError{Field: "mail.messageId"}
	}
	if n.Receipt.SpamVerdict.Status == "" {
		return &MalformedInputError{Field: "receipt.spamVerdict.status"}
	}
	if n.Receipt.VirusVerdict.Status == "" {
		return &MalformedInputError{Field: "receipt.virusVerdict.status"}
	}
	return nil
}

// OriginalSender returns the canonical original sender address: the
// Return-Path header when present, else the first From header, else the
// envelope source. Blacklist matching and Reply-To derivation both use this
// accessor so they cannot disagree.
func (n *Notification) OriginalSender() string {
	if rp := n.Mail.CommonHeaders.ReturnPath; rp != "" {
		return rp
	}
	if from := n.Mail.CommonHeaders.From; len(from) > 0 {
		return from[0]
	}
	return n.Mail.Source
}

// StoredObject returns the S3 location of the raw email if the receipt rule
// stored it, and whether such a location exists.
func (n *Notification) StoredObject() (bucket, key string, ok bool) {
	a := n.Receipt.Action
	if a.BucketName == "" || a.ObjectKey == "" {
		return "", "", false
	}
	return a.BucketName, a.ObjectKey, true
}
