package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ZenonWrites/BlockchainEvoting/internal/server/repository"
	"github.com/ZenonWrites/BlockchainEvoting/internal/server/service"
)

func (r *Router) handleListElections(w http.ResponseWriter, req *http.Request) {
	elections, err := r.services.Elections.List(req.Context())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": elections})
}

func (r *Router) handleListCandidates(w http.ResponseWriter, req *http.Request) {
	electionID, err := strconv.ParseInt(req.URL.Query().Get("election"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "election query parameter required")
		return
	}
	candidates, err := r.services.Elections.Candidates(req.Context(), electionID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": candidates})
}

type castVoteRequest struct {
	Election    int64 `json:"election"`
	CandidateID int64 `json:"candidate_id"`
}

func (r *Router) handleCastVote(w http.ResponseWriter, req *http.Request) {
	var body castVoteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json")
		return
	}
	vote, err := r.services.Votes.Cast(req.Context(), getUserID(req.Context()), body.Election, body.CandidateID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateVote):
			writeJSON(w, http.StatusConflict, map[string]string{
				"code":   "already_voted",
				"detail": "You have already voted in this election.",
			})
		case errors.Is(err, service.ErrNotEligible):
			writeDetail(w, http.StatusForbidden, "Identity verification is required before voting.")
		case errors.Is(err, service.ErrCandidateInvalid):
			writeDetail(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrNotFound):
			writeDetail(w, http.StatusNotFound, "Election or candidate not found.")
		default:
			writeDetail(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, vote)
}

func (r *Router) handleVotingResults(w http.ResponseWriter, req *http.Request) {
	electionID, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid election id")
		return
	}
	result, err := r.services.Results.ForElection(req.Context(), electionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "No results for this election.")
			return
		}
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"election":    map[string]string{"name": result.ElectionName},
		"winner":      map[string]any{"user": map[string]string{"username": result.Winner}},
		"total_votes": result.TotalVotes,
	})
}
