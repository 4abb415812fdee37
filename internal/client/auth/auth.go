// Package auth implements the phone/OTP login flow as an explicit
// state machine: Anonymous → OTPPending → Authenticated. Every step is
// user-triggered; nothing retries automatically.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ZenonWrites/BlockchainEvoting/internal/client/api"
	"github.com/ZenonWrites/BlockchainEvoting/internal/client/session"
	"github.com/ZenonWrites/BlockchainEvoting/internal/shared/models"
)

type State string

const (
	StateAnonymous     State = "anonymous"
	StateOTPPending    State = "otp_pending"
	StateAuthenticated State = "authenticated"
)

// Backend is the slice of the API the flow needs.
type Backend interface {
	RequestOTP(ctx context.Context, phoneNumber string) (string, error)
	Login(ctx context.Context, phoneNumber, otp string) (string, error)
	FetchAuthenticatedUser(ctx context.Context) (models.UserProfile, error)
}

// Flow drives OTP request and verification and owns the transition into
// an authenticated session.
type Flow struct {
	backend  Backend
	sessions *session.Store

	mu    sync.Mutex
	state State
	phone string
}

func New(backend Backend, sessions *session.Store) *Flow {
	return &Flow{backend: backend, sessions: sessions, state: StateAnonymous}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Phone returns the number an OTP was requested for; it is preserved
// across failed verification attempts.
func (f *Flow) Phone() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phone
}

// RequestOTP triggers out-of-band SMS delivery and enters (or
// re-enters) OTPPending. It never authenticates by itself. The returned
// string is the dev-mode OTP echo, empty in production.
func (f *Flow) RequestOTP(ctx context.Context, phoneNumber string) (string, error) {
	if phoneNumber == "" {
		return "", fmt.Errorf("%w: phone number required", api.ErrPreconditionFailed)
	}
	echo, err := f.backend.RequestOTP(ctx, phoneNumber)
	if err != nil {
		// the caller must not transition to OTP entry
		return "", err
	}
	f.mu.Lock()
	f.state = StateOTPPending
	f.phone = phoneNumber
	f.mu.Unlock()
	return echo, nil
}

// VerifyOTPAndLogin exchanges the OTP for a credential. The credential
// is persisted to the session store before success is reported, so a
// crash between the two leaves the user unauthenticated rather than
// falsely authenticated. An invalid OTP returns ErrInvalidCredential,
// leaves the store untouched, and stays in OTPPending.
func (f *Flow) VerifyOTPAndLogin(ctx context.Context, otp string) error {
	f.mu.Lock()
	if f.state != StateOTPPending {
		f.mu.Unlock()
		return fmt.Errorf("%w: request an OTP first", api.ErrPreconditionFailed)
	}
	phone := f.phone
	f.mu.Unlock()

	if otp == "" {
		return fmt.Errorf("%w: OTP required", api.ErrPreconditionFailed)
	}
	credential, err := f.backend.Login(ctx, phone, otp)
	if err != nil {
		return err
	}
	// persist first, report success second
	if err := f.sessions.SetCredential(credential); err != nil {
		return err
	}
	f.mu.Lock()
	f.state = StateAuthenticated
	f.mu.Unlock()
	return nil
}

// FetchAuthenticatedUser confirms the stored credential is valid. With
// no credential it fails fast with ErrUnauthenticated, without a call.
func (f *Flow) FetchAuthenticatedUser(ctx context.Context) (models.UserProfile, error) {
	return f.backend.FetchAuthenticatedUser(ctx)
}

// Logout destroys the credential and returns to Anonymous. It is also
// the forced path when the server reports the credential invalidated
// mid-flow.
func (f *Flow) Logout() error {
	err := f.sessions.Clear()
	f.mu.Lock()
	f.state = StateAnonymous
	f.phone = ""
	f.mu.Unlock()
	return err
}

// ResumePending restores OTP-entry state for a phone number that
// already received an OTP, the path taken when the process restarts
// between request and verification. It makes no network call and never
// authenticates by itself.
func (f *Flow) ResumePending(phoneNumber string) error {
	if phoneNumber == "" {
		return fmt.Errorf("%w: phone number required", api.ErrPreconditionFailed)
	}
	f.mu.Lock()
	f.state = StateOTPPending
	f.phone = phoneNumber
	f.mu.Unlock()
	return nil
}

// Resume restores Authenticated state from a persisted credential, the
// path taken on process restart.
func (f *Flow) Resume() bool {
	if _, err := f.sessions.Credential(); err != nil {
		return false
	}
	f.mu.Lock()
	f.state = StateAuthenticated
	f.mu.Unlock()
	return true
}

// IsUnauthenticated reports whether err means the session credential is
// missing or was invalidated server-side, forcing a return to Anonymous.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, api.ErrUnauthenticated)
}
