// Package verify drives the identity-verification workflow: document
// upload, selfie upload, then status polling until the server reports a
// terminal outcome. It is an explicit state machine decoupled from any
// rendering layer; scheduling of repeated polls belongs to the caller.
package verify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ZenonWrites/BlockchainEvoting/internal/client/api"
	"github.com/ZenonWrites/BlockchainEvoting/internal/client/capture"
	"github.com/ZenonWrites/BlockchainEvoting/internal/shared/models"
)

// State of the verification workflow. Verified and Failed are terminal;
// the only recovery from Failed is a fresh attempt starting with a new
// document upload.
type State string

const (
	StateNotStarted        State = "not_started"
	StateDocumentUploading State = "document_uploading"
	StateDocumentUploaded  State = "document_uploaded"
	StateSelfieUploading   State = "selfie_uploading"
	StatePolling           State = "polling"
	StateVerified          State = "verified"
	StateFailed            State = "failed"
)

// ErrAttemptSuperseded means a response arrived for an attempt that has
// since been replaced; the result was discarded, not applied.
var ErrAttemptSuperseded = errors.New("verification attempt superseded")

// Backend is the slice of the API the orchestrator needs.
type Backend interface {
	UploadDocument(ctx context.Context, path string) (string, models.ExtractedFields, error)
	UploadSelfie(ctx context.Context, path string) (string, error)
	VerificationStatus(ctx context.Context) (models.VerificationRecord, error)
}

// Orchestrator sequences one verification attempt. Operations that
// require a prior state reject instead of reordering.
type Orchestrator struct {
	mu      sync.Mutex
	backend Backend

	state          State
	attempt        string
	verificationID string
	extracted      models.ExtractedFields
	record         models.VerificationRecord
}

func New(backend Backend) *Orchestrator {
	return &Orchestrator{backend: backend, state: StateNotStarted, attempt: uuid.NewString()}
}

// UploadDocument starts (or restarts) a verification attempt. Allowed
// from NotStarted, from a failed upload (retry), and from Failed
// (restart with a fresh attempt token). The returned extracted-fields
// preview is for user confirmation; it does not gate voting.
func (o *Orchestrator) UploadDocument(ctx context.Context, art capture.Artifact) (models.ExtractedFields, error) {
	o.mu.Lock()
	if art.Kind != capture.KindDocument {
		o.mu.Unlock()
		return models.ExtractedFields{}, fmt.Errorf("%w: artifact kind %q, want document", api.ErrPreconditionFailed, art.Kind)
	}
	switch o.state {
	case StateNotStarted, StateDocumentUploading:
		// fresh attempt or retry of a failed upload
	case StateFailed:
		o.restartLocked()
	default:
		st := o.state
		o.mu.Unlock()
		return models.ExtractedFields{}, fmt.Errorf("%w: cannot upload document in state %s", api.ErrPreconditionFailed, st)
	}
	o.state = StateDocumentUploading
	attempt := o.attempt
	o.mu.Unlock()

	id, extracted, err := o.backend.UploadDocument(ctx, art.Path)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempt != attempt {
		return models.ExtractedFields{}, ErrAttemptSuperseded
	}
	if err != nil {
		// stay in the failed-upload substate; the user re-triggers
		return models.ExtractedFields{}, err
	}
	o.state = StateDocumentUploaded
	o.verificationID = id
	o.extracted = extracted
	return extracted, nil
}

// UploadSelfie requires the document upload of the current attempt to
// have succeeded. On success the workflow enters Polling.
func (o *Orchestrator) UploadSelfie(ctx context.Context, art capture.Artifact) error {
	o.mu.Lock()
	if art.Kind != capture.KindSelfie {
		o.mu.Unlock()
		return fmt.Errorf("%w: artifact kind %q, want selfie", api.ErrPreconditionFailed, art.Kind)
	}
	switch o.state {
	case StateDocumentUploaded, StateSelfieUploading:
	default:
		st := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w: cannot upload selfie in state %s", api.ErrPreconditionFailed, st)
	}
	o.state = StateSelfieUploading
	attempt := o.attempt
	o.mu.Unlock()

	id, err := o.backend.UploadSelfie(ctx, art.Path)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempt != attempt {
		return ErrAttemptSuperseded
	}
	if err != nil {
		return err
	}
	if id != "" {
		o.verificationID = id
	}
	o.state = StatePolling
	return nil
}

// PollStatus issues one status read. Safe to call repeatedly: an
// unchanged processing status produces no state change, and terminal
// states answer from the cached record without a network call. A
// response belonging to a superseded attempt is discarded.
func (o *Orchestrator) PollStatus(ctx context.Context) (models.VerificationRecord, error) {
	o.mu.Lock()
	switch o.state {
	case StateVerified, StateFailed:
		rec := o.record
		o.mu.Unlock()
		return rec, nil
	case StatePolling:
	default:
		st := o.state
		o.mu.Unlock()
		return models.VerificationRecord{}, fmt.Errorf("%w: cannot poll in state %s", api.ErrPreconditionFailed, st)
	}
	attempt := o.attempt
	o.mu.Unlock()

	rec, err := o.backend.VerificationStatus(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempt != attempt {
		return models.VerificationRecord{}, ErrAttemptSuperseded
	}
	if err != nil {
		return models.VerificationRecord{}, err
	}
	o.record = rec
	switch {
	case rec.Status == models.VerificationVerified && rec.FaceMatch:
		o.state = StateVerified
	case rec.Status == models.VerificationFailed,
		rec.Status == models.VerificationVerified && !rec.FaceMatch:
		o.state = StateFailed
	}
	return rec, nil
}

// IsEligibleToVote is the gate downstream voting checks: true iff the
// current state is exactly Verified.
func (o *Orchestrator) IsEligibleToVote() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateVerified
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// ExtractedFields returns the OCR preview from the document upload.
func (o *Orchestrator) ExtractedFields() models.ExtractedFields {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.extracted
}

// Record returns the last verification record read from the server.
func (o *Orchestrator) Record() models.VerificationRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.record
}

// Reset abandons the current attempt. In-flight responses for the old
// attempt will be discarded, never resurrected into the new one.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.restartLocked()
}

func (o *Orchestrator) restartLocked() {
	o.state = StateNotStarted
	o.attempt = uuid.NewString()
	o.verificationID = ""
	o.extracted = models.ExtractedFields{}
	o.record = models.VerificationRecord{}
}
