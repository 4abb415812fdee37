package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ZenonWrites/BlockchainEvoting/internal/client/session"
	"github.com/ZenonWrites/BlockchainEvoting/internal/shared/models"
)

func newClient(t *testing.T, handler http.Handler, token string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := session.NewStore(filepath.Join(t.TempDir(), "token"))
	if token != "" {
		if err := store.SetCredential(token); err != nil {
			t.Fatal(err)
		}
	}
	return New(srv.URL, store, srv.Client()), srv
}

func registrationFixture() models.RegistrationForm {
	return models.RegistrationForm{
		Username:      "asha",
		Email:         "asha@example.com",
		PhoneNumber:   "+15550100",
		VoterID:       "VOT123",
		AdhaarNumber:  "1234-5678-9012",
		Address:       "12 Lake Road",
		WalletAddress: "0xabc123",
	}
}

func TestLoginAndTokenScheme(t *testing.T) {
	var gotAuthz string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/phone-login/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok-abc"}`))
	})
	mux.HandleFunc("GET /api/auth/user/", func(w http.ResponseWriter, r *http.Request) {
		gotAuthz = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1,"phone_number":"+15550100"}`))
	})
	c, _ := newClient(t, mux, "tok-abc")

	tok, err := c.Login(context.Background(), "+15550100", "424242")
	if err != nil || tok != "tok-abc" {
		t.Fatalf("login = %q, %v", tok, err)
	}
	user, err := c.FetchAuthenticatedUser(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if user.PhoneNumber != "+15550100" {
		t.Fatalf("user = %+v", user)
	}
	if gotAuthz != "Token tok-abc" {
		t.Fatalf("Authorization = %q, want Knox token scheme", gotAuthz)
	}
}

func TestLoginRejectionIsInvalidCredential(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid phone number or OTP."}`))
	}), "")
	_, err := c.Login(context.Background(), "+15550100", "000000")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
}

func TestLoginTransportErrorIsNotInvalidCredential(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on
	store := session.NewStore(filepath.Join(t.TempDir(), "token"))
	c := New(srv.URL, store, nil)

	_, err := c.Login(context.Background(), "+15550100", "424242")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if errors.Is(err, ErrInvalidCredential) {
		t.Fatal("a network failure must not read as a rejected OTP")
	}
}

func TestAuthenticatedCallsFailFastWithoutCredential(t *testing.T) {
	var hits atomic.Int64
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}), "")
	ctx := context.Background()

	if _, err := c.FetchAuthenticatedUser(ctx); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v", err)
	}
	if _, _, err := c.UploadDocument(ctx, "id.jpg"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v", err)
	}
	if _, err := c.CastVote(ctx, 1, 10); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("server hit %d times without a credential", hits.Load())
	}
}

func TestServer401IsUnauthenticated(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), "stale-token")
	if _, err := c.FetchAuthenticatedUser(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestValidationErrorFieldMap(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"phone_number":["A user with this value already exists."],"email":["Enter a valid email address."]}`))
	}), "")
	_, err := c.Register(context.Background(), registrationFixture())
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(ve.Fields["phone_number"]) != 1 || len(ve.Fields["email"]) != 1 {
		t.Fatalf("fields = %+v", ve.Fields)
	}
}

func TestCastVoteDuplicateByCode(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":"already_voted","detail":"You have already voted in this election."}`))
	}), "tok")
	if _, err := c.CastVote(context.Background(), 1, 10); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("err = %v, want ErrAlreadyVoted", err)
	}
}

func TestCastVoteDuplicateBySubstringFallback(t *testing.T) {
	// older backends answer without the structured code
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"You have already voted in this election."}`))
	}), "tok")
	if _, err := c.CastVote(context.Background(), 1, 10); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("err = %v, want ErrAlreadyVoted", err)
	}
}

func TestCastVoteOtherRejectionIsNotAlreadyVoted(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"Identity verification is required before voting."}`))
	}), "tok")
	_, err := c.CastVote(context.Background(), 1, 10)
	if err == nil || errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("err = %v, must not classify as duplicate", err)
	}
}

func TestListEnvelopesAndResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/elections/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"id":1,"name":"General Election 2026"}]}`))
	})
	mux.HandleFunc("GET /api/candidates/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("election") != "1" {
			t.Errorf("election query = %q", r.URL.Query().Get("election"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"id":10,"election":1,"user_name":"asha_rao"}]}`))
	})
	mux.HandleFunc("GET /api/voting-results/1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"election":{"name":"General Election 2026"},"winner":{"user":{"username":"asha_rao"}},"total_votes":42}`))
	})
	c, _ := newClient(t, mux, "")
	ctx := context.Background()

	elections, err := c.ListElections(ctx)
	if err != nil || len(elections) != 1 || elections[0].Name != "General Election 2026" {
		t.Fatalf("elections = %+v, %v", elections, err)
	}
	candidates, err := c.ListCandidates(ctx, 1)
	if err != nil || len(candidates) != 1 || candidates[0].UserName != "asha_rao" {
		t.Fatalf("candidates = %+v, %v", candidates, err)
	}
	result, err := c.VotingResults(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if result.Winner != "asha_rao" || result.TotalVotes != 42 {
		t.Fatalf("result = %+v", result)
	}
}

func TestVotingResultsMissingIsNotFound(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), "")
	if _, err := c.VotingResults(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUploadDocumentMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aadhaar.jpg")
	if err := os.WriteFile(path, []byte("fake image bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("id_document"); err != nil {
			t.Errorf("missing id_document part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","verification_id":"ver-1","extracted_data":{"document_type":"aadhaar_card","document_number":"AB12","full_name":"Asha Rao","date_of_birth":"1990-01-01"}}`))
	}), "tok")

	id, extracted, err := c.UploadDocument(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if id != "ver-1" || extracted.DocumentType != "aadhaar_card" {
		t.Fatalf("id = %q, extracted = %+v", id, extracted)
	}
}
