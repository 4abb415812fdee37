package voting

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ZenonWrites/BlockchainEvoting/internal/client/api"
	"github.com/ZenonWrites/BlockchainEvoting/internal/client/session"
	"github.com/ZenonWrites/BlockchainEvoting/internal/shared/models"
)

type fakeBackend struct {
	mu        sync.Mutex
	castCalls int
	castErr   error

	// release, when set, blocks CastVote until closed; entered is
	// signaled once a blocked call is in flight
	release chan struct{}
	entered chan struct{}
}

func (b *fakeBackend) ListElections(_ context.Context) ([]models.Election, error) {
	return []models.Election{{ID: 1, Name: "General Election 2026"}}, nil
}

func (b *fakeBackend) ListCandidates(_ context.Context, electionID int64) ([]models.Candidate, error) {
	return []models.Candidate{{ID: 10, ElectionID: electionID, UserName: "asha_rao"}}, nil
}

func (b *fakeBackend) CastVote(_ context.Context, electionID, candidateID int64) (models.Vote, error) {
	b.mu.Lock()
	b.castCalls++
	err := b.castErr
	release := b.release
	entered := b.entered
	b.mu.Unlock()
	if release != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-release
	}
	if err != nil {
		return models.Vote{}, err
	}
	return models.Vote{ID: 7, ElectionID: electionID, CandidateID: candidateID}, nil
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.castCalls
}

func authedStore(t *testing.T) *session.Store {
	t.Helper()
	store := session.NewStore(filepath.Join(t.TempDir(), "token"))
	if err := store.SetCredential("tok-123"); err != nil {
		t.Fatal(err)
	}
	return store
}

func eligible() EligibilityGate   { return GateFunc(func() bool { return true }) }
func ineligible() EligibilityGate { return GateFunc(func() bool { return false }) }

var (
	election  = models.Election{ID: 1, Name: "General Election 2026"}
	candidate = models.Candidate{ID: 10, ElectionID: 1, UserName: "asha_rao"}
)

func TestCastVoteHappyPath(t *testing.T) {
	backend := &fakeBackend{}
	o := New(backend, eligible(), authedStore(t))
	o.SelectElection(election)
	if err := o.SelectCandidate(candidate); err != nil {
		t.Fatal(err)
	}
	vote, err := o.CastVote(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if vote.ElectionID != 1 || vote.CandidateID != 10 {
		t.Fatalf("vote = %+v", vote)
	}
	if !o.VoteCast() {
		t.Fatal("VoteCast should report true")
	}

	// the second attempt for the same election is rejected locally
	if _, err := o.CastVote(context.Background()); !errors.Is(err, api.ErrAlreadyVoted) {
		t.Fatalf("err = %v, want ErrAlreadyVoted", err)
	}
	if backend.calls() != 1 {
		t.Fatalf("cast hit the network %d times", backend.calls())
	}
}

func TestCastVoteWithoutCredentialFailsFast(t *testing.T) {
	backend := &fakeBackend{}
	store := session.NewStore(filepath.Join(t.TempDir(), "token"))
	o := New(backend, eligible(), store)
	o.SelectElection(election)
	if err := o.SelectCandidate(candidate); err != nil {
		t.Fatal(err)
	}
	_, err := o.CastVote(context.Background())
	if !errors.Is(err, api.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
	if backend.calls() != 0 {
		t.Fatal("no network call without a credential")
	}
}

func TestCastVoteRequiresEligibility(t *testing.T) {
	backend := &fakeBackend{}
	o := New(backend, ineligible(), authedStore(t))
	o.SelectElection(election)
	if err := o.SelectCandidate(candidate); err != nil {
		t.Fatal(err)
	}
	if _, err := o.CastVote(context.Background()); !errors.Is(err, api.ErrPreconditionFailed) {
		t.Fatalf("err = %v, want ErrPreconditionFailed", err)
	}
	if backend.calls() != 0 {
		t.Fatal("ineligible voter must not reach the network")
	}
}

func TestCandidateMustMatchElection(t *testing.T) {
	o := New(&fakeBackend{}, eligible(), authedStore(t))

	// no election yet
	if err := o.SelectCandidate(candidate); !errors.Is(err, api.ErrPreconditionFailed) {
		t.Fatalf("err = %v", err)
	}
	o.SelectElection(election)
	other := models.Candidate{ID: 99, ElectionID: 2}
	if err := o.SelectCandidate(other); !errors.Is(err, api.ErrPreconditionFailed) {
		t.Fatalf("err = %v", err)
	}
	if err := o.SelectCandidate(candidate); err != nil {
		t.Fatal(err)
	}
}

func TestElectionChangeClearsCandidate(t *testing.T) {
	o := New(&fakeBackend{}, eligible(), authedStore(t))
	o.SelectElection(election)
	if err := o.SelectCandidate(candidate); err != nil {
		t.Fatal(err)
	}
	o.SelectElection(models.Election{ID: 2, Name: "By-election"})
	if _, c := o.Selection(); c != nil {
		t.Fatalf("candidate = %+v, should be cleared on election change", c)
	}
	if _, err := o.CastVote(context.Background()); !errors.Is(err, api.ErrPreconditionFailed) {
		t.Fatalf("err = %v, want no-candidate precondition", err)
	}
}

func TestElectionChangeReArmsCastVote(t *testing.T) {
	backend := &fakeBackend{}
	o := New(backend, eligible(), authedStore(t))
	o.SelectElection(election)
	if err := o.SelectCandidate(candidate); err != nil {
		t.Fatal(err)
	}
	if _, err := o.CastVote(context.Background()); err != nil {
		t.Fatal(err)
	}

	second := models.Election{ID: 2, Name: "By-election"}
	o.SelectElection(second)
	if o.VoteCast() {
		t.Fatal("voteCast must reset for a different election")
	}
	if err := o.SelectCandidate(models.Candidate{ID: 20, ElectionID: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := o.CastVote(context.Background()); err != nil {
		t.Fatal(err)
	}
	if backend.calls() != 2 {
		t.Fatalf("cast calls = %d", backend.calls())
	}
}

func TestConcurrentCastIsSingleFlight(t *testing.T) {
	backend := &fakeBackend{release: make(chan struct{}), entered: make(chan struct{})}
	o := New(backend, eligible(), authedStore(t))
	o.SelectElection(election)
	if err := o.SelectCandidate(candidate); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := o.CastVote(context.Background())
		done <- err
	}()
	<-backend.entered

	// second submission while the first is in flight
	if _, err := o.CastVote(context.Background()); !errors.Is(err, api.ErrSubmissionInProgress) {
		t.Fatalf("err = %v, want ErrSubmissionInProgress", err)
	}

	close(backend.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if backend.calls() != 1 {
		t.Fatalf("cast calls = %d, want exactly one", backend.calls())
	}
	if !o.VoteCast() {
		t.Fatal("first submission should have recorded the vote")
	}
}

func TestServerDuplicateLatchesVoteCast(t *testing.T) {
	backend := &fakeBackend{castErr: api.ErrAlreadyVoted}
	o := New(backend, eligible(), authedStore(t))
	o.SelectElection(election)
	if err := o.SelectCandidate(candidate); err != nil {
		t.Fatal(err)
	}
	if _, err := o.CastVote(context.Background()); !errors.Is(err, api.ErrAlreadyVoted) {
		t.Fatalf("err = %v", err)
	}
	// the server verdict latches locally: no further network attempts
	if _, err := o.CastVote(context.Background()); !errors.Is(err, api.ErrAlreadyVoted) {
		t.Fatalf("err = %v", err)
	}
	if backend.calls() != 1 {
		t.Fatalf("cast calls = %d", backend.calls())
	}
}

func TestTransientFailureIsRetryable(t *testing.T) {
	backend := &fakeBackend{castErr: &api.TransportError{Op: "cast vote", Err: errors.New("connection refused")}}
	o := New(backend, eligible(), authedStore(t))
	o.SelectElection(election)
	if err := o.SelectCandidate(candidate); err != nil {
		t.Fatal(err)
	}
	var te *api.TransportError
	if _, err := o.CastVote(context.Background()); !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if o.VoteCast() {
		t.Fatal("transient failure must not latch voteCast")
	}
	backend.mu.Lock()
	backend.castErr = nil
	backend.mu.Unlock()
	if _, err := o.CastVote(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if backend.calls() != 2 {
		t.Fatalf("cast calls = %d", backend.calls())
	}
}
