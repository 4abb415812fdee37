package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ZenonWrites/BlockchainEvoting/internal/server/models"
	"github.com/ZenonWrites/BlockchainEvoting/internal/server/repository"
	shared "github.com/ZenonWrites/BlockchainEvoting/internal/shared/models"
)

func newRepo(t *testing.T, dsn string) *Repository {
	t.Helper()
	repo, err := New(dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func form(username, phone, voterID, adhaar string) shared.RegistrationForm {
	return shared.RegistrationForm{
		Username:      username,
		Email:         username + "@example.com",
		PhoneNumber:   phone,
		VoterID:       voterID,
		AdhaarNumber:  adhaar,
		Address:       "12 Lake Road",
		WalletAddress: "0xabc123",
	}
}

func TestUniqueUserConstraintsNameTheField(t *testing.T) {
	repo := newRepo(t, "file:repo_unique?mode=memory&cache=shared")
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, form("asha", "+15550100", "VOT123", "AD123")); err != nil {
		t.Fatal(err)
	}
	_, err := repo.CreateUser(ctx, form("other", "+15550100", "VOT124", "AD124"))
	var conflict *repository.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if conflict.Field != "phone_number" {
		t.Fatalf("field = %q", conflict.Field)
	}

	_, err = repo.CreateUser(ctx, form("other", "+15550101", "VOT123", "AD124"))
	if !errors.As(err, &conflict) || conflict.Field != "voter_id" {
		t.Fatalf("err = %v", err)
	}
}

func TestVoteConstraintAndResults(t *testing.T) {
	repo := newRepo(t, "file:repo_votes?mode=memory&cache=shared")
	ctx := context.Background()
	if err := repo.SeedDemoData(ctx); err != nil {
		t.Fatal(err)
	}
	a, err := repo.CreateUser(ctx, form("asha", "+15550100", "VOT123", "AD123"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := repo.CreateUser(ctx, form("vikram", "+15550101", "VOT124", "AD124"))
	if err != nil {
		t.Fatal(err)
	}
	candidates, err := repo.ListCandidates(ctx, 1)
	if err != nil || len(candidates) < 2 {
		t.Fatalf("candidates: %v", err)
	}

	if _, _, err := repo.Results(ctx, 1); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("results before any vote: %v", err)
	}

	if _, err := repo.CreateVote(ctx, a.ID, 1, candidates[0].ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateVote(ctx, b.ID, 1, candidates[0].ID); err != nil {
		t.Fatal(err)
	}
	// one voter, one election, one vote
	if _, err := repo.CreateVote(ctx, a.ID, 1, candidates[1].ID); !errors.Is(err, repository.ErrDuplicateVote) {
		t.Fatalf("err = %v, want ErrDuplicateVote", err)
	}

	winner, total, err := repo.Results(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if winner != candidates[0].UserName || total != 2 {
		t.Fatalf("winner = %q, total = %d", winner, total)
	}

	// already_voted shows up on the profile
	profile, err := repo.GetUserByID(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !profile.AlreadyVoted {
		t.Fatal("profile should reflect the cast vote")
	}
}

func TestLatestVerificationWins(t *testing.T) {
	repo := newRepo(t, "file:repo_verif?mode=memory&cache=shared")
	ctx := context.Background()
	user, err := repo.CreateUser(ctx, form("asha", "+15550100", "VOT123", "AD123"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := repo.LatestVerificationByUser(ctx, user.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	first, err := repo.CreateVerification(ctx, verification(user.ID, shared.VerificationFailed))
	if err != nil {
		t.Fatal(err)
	}
	second, err := repo.CreateVerification(ctx, verification(user.ID, shared.VerificationProcessing))
	if err != nil {
		t.Fatal(err)
	}
	got, err := repo.LatestVerificationByUser(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != second.ID {
		t.Fatalf("latest = %s, want %s (not the earlier %s)", got.ID, second.ID, first.ID)
	}

	got.Status = shared.VerificationVerified
	if err := repo.UpdateVerification(ctx, got); err != nil {
		t.Fatal(err)
	}
	got, err = repo.LatestVerificationByUser(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != shared.VerificationVerified {
		t.Fatalf("status = %s after update", got.Status)
	}

	profile, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !profile.IsVerified {
		t.Fatal("verified attempt should mark the profile verified")
	}
}

func verification(userID int64, status shared.VerificationStatus) models.Verification {
	return models.Verification{
		UserID:       userID,
		Status:       status,
		DocumentType: "aadhaar_card",
		FullName:     "Asha Rao",
		DateOfBirth:  "1990-01-01",
		ProcessAfter: time.Now().UTC(),
	}
}
