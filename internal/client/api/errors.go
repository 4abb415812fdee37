package api

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error taxonomy for the voting workflow. Local guard violations are
// reported synchronously and never reach the network; server-reported
// failures are classified into these values so the presentation layer
// can pick a message without parsing raw text.
var (
	// ErrUnauthenticated: no stored credential, or the server rejected it.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredential: the OTP was wrong or expired.
	ErrInvalidCredential = errors.New("invalid phone number or OTP")
	// ErrPreconditionFailed: a local guard was violated before any network call.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrSubmissionInProgress: a vote submission is already in flight.
	ErrSubmissionInProgress = errors.New("vote submission already in progress")
	// ErrAlreadyVoted: the server confirmed a duplicate vote for this election.
	ErrAlreadyVoted = errors.New("already voted in this election")
	// ErrNotFound: the requested record does not exist (a valid outcome,
	// distinct from a transport error).
	ErrNotFound = errors.New("not found")
)

// TransportError wraps network and timeout failures, keeping the
// operation name for the caller's message.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError carries the backend's field-level error map, as
// returned by registration and uploads.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// serverError is the structured rejection envelope the backend uses.
type serverError struct {
	Code    string `json:"code"`
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e serverError) text() string {
	for _, s := range []string{e.Detail, e.Error, e.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}

// classifyVoteError maps a vote-submission rejection onto the taxonomy.
// The structured code is authoritative; the detail-substring fallback
// covers backends that still signal duplicates in prose.
func classifyVoteError(status int, se serverError) error {
	if se.Code == "already_voted" {
		return ErrAlreadyVoted
	}
	if strings.Contains(strings.ToLower(se.text()), "already voted") {
		return ErrAlreadyVoted
	}
	return statusError(status, se)
}

func statusError(status int, se serverError) error {
	msg := se.text()
	if msg == "" {
		msg = fmt.Sprintf("server returned %d", status)
	}
	return fmt.Errorf("%s", msg)
}
