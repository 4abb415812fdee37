// Package models holds the dev server's internal records. Wire shapes
// live in internal/shared/models.
package models

import (
	"time"

	shared "github.com/ZenonWrites/BlockchainEvoting/internal/shared/models"
)

// OTP is a one-time code at rest: only the argon2 hash is stored.
type OTP struct {
	PhoneNumber string
	CodeHash    string
	CreatedAt   time.Time
}

// Verification is one identity-verification attempt. Outcome is the
// terminal status the fake face-matcher decided on; it is applied to
// Status once ProcessAfter has passed, simulating processing latency.
type Verification struct {
	ID             string
	UserID         int64
	Status         shared.VerificationStatus
	DocumentType   string
	DocumentNumber string
	FullName       string
	DateOfBirth    string
	FaceMatch      bool
	Outcome        shared.VerificationStatus
	ProcessAfter   time.Time
	CreatedAt      time.Time
}

// Record converts to the client-readable wire shape.
func (v Verification) Record() shared.VerificationRecord {
	return shared.VerificationRecord{
		ID:             v.ID,
		Status:         v.Status,
		DocumentType:   v.DocumentType,
		DocumentNumber: v.DocumentNumber,
		FullName:       v.FullName,
		DateOfBirth:    v.DateOfBirth,
		FaceMatch:      v.FaceMatch,
	}
}
