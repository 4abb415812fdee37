// Package voting lists elections and candidates, tracks the user's
// current selection, and submits exactly one vote per election behind
// the authentication and eligibility gates.
package voting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ZenonWrites/BlockchainEvoting/internal/client/api"
	"github.com/ZenonWrites/BlockchainEvoting/internal/client/session"
	"github.com/ZenonWrites/BlockchainEvoting/internal/shared/models"
)

// Backend is the slice of the API the orchestrator needs.
type Backend interface {
	ListElections(ctx context.Context) ([]models.Election, error)
	ListCandidates(ctx context.Context, electionID int64) ([]models.Candidate, error)
	CastVote(ctx context.Context, electionID, candidateID int64) (models.Vote, error)
}

// EligibilityGate reports whether identity verification has reached its
// Verified terminal state. Voting is locked until it is true.
type EligibilityGate interface {
	IsEligibleToVote() bool
}

// GateFunc adapts a plain predicate into an EligibilityGate.
type GateFunc func() bool

func (f GateFunc) IsEligibleToVote() bool { return f() }

// Orchestrator guards the cast-vote workflow. Exactly one submission is
// in flight at a time; a second CastVote while one is pending is
// rejected locally without touching the network.
type Orchestrator struct {
	backend  Backend
	gate     EligibilityGate
	sessions *session.Store

	mu        sync.Mutex
	election  *models.Election
	candidate *models.Candidate
	inFlight  bool
	voteCast  bool
}

func New(backend Backend, gate EligibilityGate, sessions *session.Store) *Orchestrator {
	return &Orchestrator{backend: backend, gate: gate, sessions: sessions}
}

// ListElections is read-only and idempotent; an empty list is valid.
func (o *Orchestrator) ListElections(ctx context.Context) ([]models.Election, error) {
	return o.backend.ListElections(ctx)
}

// ListCandidates is read-only and idempotent; an empty list is valid.
func (o *Orchestrator) ListCandidates(ctx context.Context, electionID int64) ([]models.Candidate, error) {
	return o.backend.ListCandidates(ctx, electionID)
}

// SelectElection makes the election current and clears any candidate
// selection: a candidate choice is only ever valid for the election it
// was listed under. Selecting a new election also re-arms CastVote.
func (o *Orchestrator) SelectElection(e models.Election) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.election == nil || o.election.ID != e.ID {
		o.candidate = nil
		o.voteCast = false
	}
	o.election = &e
}

// SelectCandidate records the choice. The candidate must belong to the
// currently selected election; mismatches fail locally.
func (o *Orchestrator) SelectCandidate(c models.Candidate) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.election == nil {
		return fmt.Errorf("%w: no election selected", api.ErrPreconditionFailed)
	}
	if c.ElectionID != o.election.ID {
		return fmt.Errorf("%w: candidate %d belongs to election %d, not %d",
			api.ErrPreconditionFailed, c.ID, c.ElectionID, o.election.ID)
	}
	o.candidate = &c
	return nil
}

// Selection returns the current election and candidate, either of which
// may be nil.
func (o *Orchestrator) Selection() (*models.Election, *models.Candidate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.election, o.candidate
}

// VoteCast reports whether a vote for the current election succeeded.
func (o *Orchestrator) VoteCast() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.voteCast
}

// CastVote submits the selected vote. Preconditions are checked locally
// first — stored credential, eligibility gate, candidate selected — so
// a violation never produces ambiguous server state. The server's
// duplicate rejection (ErrAlreadyVoted) is authoritative and is
// surfaced distinctly from other failures, which remain retryable.
func (o *Orchestrator) CastVote(ctx context.Context) (models.Vote, error) {
	if _, err := o.sessions.Credential(); err != nil {
		return models.Vote{}, errors.Join(api.ErrUnauthenticated, err)
	}
	if !o.gate.IsEligibleToVote() {
		return models.Vote{}, fmt.Errorf("%w: identity not verified", api.ErrPreconditionFailed)
	}

	o.mu.Lock()
	if o.election == nil || o.candidate == nil {
		o.mu.Unlock()
		return models.Vote{}, fmt.Errorf("%w: no candidate selected", api.ErrPreconditionFailed)
	}
	if o.voteCast {
		o.mu.Unlock()
		return models.Vote{}, api.ErrAlreadyVoted
	}
	if o.inFlight {
		o.mu.Unlock()
		return models.Vote{}, api.ErrSubmissionInProgress
	}
	o.inFlight = true
	electionID, candidateID := o.election.ID, o.candidate.ID
	o.mu.Unlock()

	vote, err := o.backend.CastVote(ctx, electionID, candidateID)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight = false
	if err != nil {
		if errors.Is(err, api.ErrAlreadyVoted) {
			o.voteCast = true
		}
		return models.Vote{}, err
	}
	o.voteCast = true
	return vote, nil
}
