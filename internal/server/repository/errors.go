package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateVote indicates the UNIQUE(voter, election) constraint
	// fired: this voter already has a vote in this election.
	ErrDuplicateVote = errors.New("duplicate vote")
)

// ConflictError reports which column's uniqueness was violated, so the
// API layer can answer with a field-level error.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string { return "duplicate value for " + e.Field }
