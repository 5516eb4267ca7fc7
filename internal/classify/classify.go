// Package classify decides whether a notification's upstream scanning
// verdicts block forwarding.
package classify

import "fmt"

// Verdict statuses attached by the upstream mail-receiving service.
const (
	StatusPass             = "PASS"
	StatusFail             = "FAIL"
	StatusGray             = "GRAY"
	StatusProcessingFailed = "PROCESSING_FAILED"
)

// Check names reported when a verdict rejects the message.
const (
	CheckSpam  = "spam"
	CheckVirus = "virus"
)

// Result is the classification outcome for one notification.
type Result struct {
	// Rejected is true when a verdict blocks forwarding.
	Rejected bool
	// FailedCheck names the check that caused the rejection.
	FailedCheck string
}

// Classify inspects the spam and virus verdict statuses. Only the exact
// status "FAIL" rejects; GRAY, PROCESSING_FAILED and unrecognized statuses
// pass. For a personal relay a false negative is preferred over losing
// legitimate mail, so ambiguous verdicts are non-blocking.
// A missing status is a hard input error, never a pass.
func Classify(spamStatus, virusStatus string) (Result, error) {
	if spamStatus == "" {
		return Result{}, fmt.Errorf("missing spam verdict status")
	}
	if virusStatus == "" {
		return Result{}, fmt.Errorf("missing virus verdict status")
	}

	if spamStatus == StatusFail {
		return Result{Rejected: true, FailedCheck: CheckSpam}, nil
	}
	if virusStatus == StatusFail {
		return Result{Rejected: true, FailedCheck: CheckVirus}, nil
	}
	return Result{}, nil
}
