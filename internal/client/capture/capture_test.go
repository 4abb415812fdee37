package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSourceAcquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.jpg")
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0600); err != nil {
		t.Fatal(err)
	}
	art, err := FileSource{Path: path}.Acquire(context.Background(), KindDocument)
	if err != nil {
		t.Fatal(err)
	}
	if art.Kind != KindDocument || art.Path != path || art.CapturedAt.IsZero() {
		t.Fatalf("bad artifact: %+v", art)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "nope.jpg")}.Acquire(context.Background(), KindSelfie)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFileSourceCanceled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.jpg")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	art, err := FileSource{Path: path}.Acquire(ctx, KindDocument)
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("want ErrCanceled, got %v", err)
	}
	if art != (Artifact{}) {
		t.Fatalf("cancellation must leave no partial artifact: %+v", art)
	}
}
