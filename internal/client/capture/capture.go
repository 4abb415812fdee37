// Package capture acquires the two identity artifacts (ID document and
// selfie). Device camera and gallery pickers are UI plumbing; the core
// consumes them through the Source interface and ships a file-based
// implementation for gallery-style picks and tests.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Kind distinguishes the two artifacts a verification attempt needs.
type Kind string

const (
	KindDocument Kind = "document"
	KindSelfie   Kind = "selfie"
)

// ErrCanceled means the user backed out of the capture. No partial
// artifact is recorded.
var ErrCanceled = errors.New("capture canceled")

// Artifact is a captured image, owned by the caller until it is handed
// to the verification orchestrator for upload. It is never persisted
// beyond the current verification attempt.
type Artifact struct {
	Kind       Kind
	Path       string
	CapturedAt time.Time
}

// Source is a user-cancelable, fallible acquisition capability.
type Source interface {
	Acquire(ctx context.Context, kind Kind) (Artifact, error)
}

// FileSource acquires artifacts from an existing file on disk, the way
// a gallery pick hands over a local URI.
type FileSource struct {
	Path string
}

func (s FileSource) Acquire(ctx context.Context, kind Kind) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, ErrCanceled
	}
	info, err := os.Stat(s.Path)
	if err != nil {
		return Artifact{}, fmt.Errorf("artifact not readable: %w", err)
	}
	if info.IsDir() {
		return Artifact{}, fmt.Errorf("artifact %s is a directory", s.Path)
	}
	return Artifact{Kind: kind, Path: s.Path, CapturedAt: time.Now()}, nil
}
