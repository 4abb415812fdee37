// Package httpapi exposes the voting backend over the same wire
// contract the mobile clients speak: Django-style trailing-slash paths,
// the Knox "Token" auth scheme, and "results" list envelopes.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ZenonWrites/BlockchainEvoting/internal/server/service"
)

type Router struct {
	services *service.Services
	logger   *slog.Logger
}

func NewRouter(services *service.Services, logger *slog.Logger) http.Handler {
	r := &Router{services: services, logger: logger}
	mux := chi.NewRouter()
	mux.Use(r.requestLog)

	mux.Get("/health", r.handleHealth)
	mux.Post("/api/request-otp/", r.handleRequestOTP)
	mux.Post("/api/auth/phone-login/", r.handlePhoneLogin)
	mux.Post("/main/register/", r.handleRegister)
	mux.Get("/api/elections/", r.handleListElections)
	mux.Get("/api/candidates/", r.handleListCandidates)
	mux.Get("/api/voting-results/{id}/", r.handleVotingResults)

	mux.Group(func(pr chi.Router) {
		pr.Use(r.authMiddleware)
		pr.Get("/api/auth/user/", r.handleAuthenticatedUser)
		pr.Post("/api/verification/upload-id/", r.handleUploadDocument)
		pr.Post("/api/verification/upload-selfie/", r.handleUploadSelfie)
		pr.Get("/api/verification/status/", r.handleVerificationStatus)
		pr.Post("/api/votes/", r.handleCastVote)
	})

	return mux
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail emits the DRF-style {"detail": ...} rejection envelope.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
