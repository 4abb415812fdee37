package models

import "time"

// UserProfile mirrors the backend's authenticated-user payload.
type UserProfile struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phone_number"`
	VoterID       string `json:"voter_id"`
	AdhaarNumber  string `json:"adhaar_number"`
	Address       string `json:"address"`
	WalletAddress string `json:"wallet_address"`
	IsVerified    bool   `json:"is_verified"`
	AlreadyVoted  bool   `json:"already_voted"`
}

// RegistrationForm carries the fields posted to /main/register/.
// The wallet private key never leaves the device; only the address is sent.
type RegistrationForm struct {
	Username      string
	Email         string
	PhoneNumber   string
	VoterID       string
	AdhaarNumber  string
	Address       string
	WalletAddress string
}

// VerificationStatus is the server-held state of an identity check.
// Processing is the only non-terminal status.
type VerificationStatus string

const (
	VerificationProcessing VerificationStatus = "processing"
	VerificationVerified   VerificationStatus = "verified"
	VerificationFailed     VerificationStatus = "failed"
)

// Terminal reports whether the status can no longer change server-side.
func (s VerificationStatus) Terminal() bool {
	return s == VerificationVerified || s == VerificationFailed
}

// ExtractedFields is the OCR preview returned on document upload.
type ExtractedFields struct {
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	FullName       string `json:"full_name"`
	DateOfBirth    string `json:"date_of_birth"`
}

// VerificationRecord is the client-readable view of a verification request.
type VerificationRecord struct {
	ID             string             `json:"verification_id"`
	Status         VerificationStatus `json:"status"`
	DocumentType   string             `json:"document_type"`
	DocumentNumber string             `json:"document_number"`
	FullName       string             `json:"full_name"`
	DateOfBirth    string             `json:"date_of_birth"`
	FaceMatch      bool               `json:"face_match"`
}

type Election struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type Candidate struct {
	ID         int64  `json:"id"`
	ElectionID int64  `json:"election"`
	UserName   string `json:"user_name"`
	PartyName  string `json:"party_name,omitempty"`
	Manifesto  string `json:"manifesto,omitempty"`
}

type Vote struct {
	ID          int64     `json:"id"`
	ElectionID  int64     `json:"election"`
	CandidateID int64     `json:"candidate_id"`
	VoterID     int64     `json:"voter"`
	CastAt      time.Time `json:"cast_at"`
}

// ElectionResult is the aggregate tally for one election.
type ElectionResult struct {
	ElectionName string `json:"election_name"`
	Winner       string `json:"winner"`
	TotalVotes   int64  `json:"total_votes"`
}
