// Package storage persists session files behind a single backend contract.
// Two implementations exist: a local filesystem backend and a Google Cloud
// Storage backend. Components above this package never branch on which
// implementation is active.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// MetadataFile is the reserved per-session metadata object. It is never
// returned by List and is not reachable through the file API.
const MetadataFile = ".meta.json"

// Sentinel errors
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidPath = errors.New("invalid path")
)

// Backend is the session-prefixed blob contract. All paths are relative to
// the session prefix and must pass ValidatePath before use; implementations
// re-check defensively. A Put is atomic: it either fully succeeds or leaves
// no partial file visible.
type Backend interface {
	// Init materializes an empty prefix for a new session.
	Init(ctx context.Context, sessionID string) error
	Put(ctx context.Context, sessionID, relPath string, content []byte) error
	Open(ctx context.Context, sessionID, relPath string) (io.ReadCloser, error)
	Exists(ctx context.Context, sessionID, relPath string) (bool, error)
	// List returns relative paths under the prefix, excluding MetadataFile.
	List(ctx context.Context, sessionID string) ([]string, error)
	Delete(ctx context.Context, sessionID, relPath string) error
	// DeleteSession removes the prefix and everything under it.
	DeleteSession(ctx context.Context, sessionID string) error
	// Workdir yields a local directory view of the prefix for one execution.
	Workdir(ctx context.Context, sessionID string) (*Workdir, error)
	Close() error
}

// Workdir is a local directory bound to a session prefix. Sync publishes
// files written under Dir back to the backend; Close releases any staging
// resources. For the local backend Dir is the session directory itself and
// Sync is a no-op.
type Workdir struct {
	Dir   string
	Sync  func(ctx context.Context) error
	Close func() error
}

// ValidatePath rejects anything that could escape a session prefix: absolute
// paths, backslashes, empty paths, and any ".." segment.
func ValidatePath(relPath string) error {
	if relPath == "" {
		return ErrInvalidPath
	}
	if strings.HasPrefix(relPath, "/") || strings.Contains(relPath, "\\") {
		return ErrInvalidPath
	}
	cleaned := path.Clean(relPath)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || cleaned == "." {
		return ErrInvalidPath
	}
	for _, seg := range strings.Split(cleaned, "/") {
		if seg == ".." || seg == "" {
			return ErrInvalidPath
		}
	}
	return nil
}

// ValidateUserPath is ValidatePath plus rejection of the reserved metadata
// name, so user file operations can never shadow or corrupt it.
func ValidateUserPath(relPath string) error {
	if err := ValidatePath(relPath); err != nil {
		return err
	}
	if path.Base(path.Clean(relPath)) == MetadataFile {
		return ErrInvalidPath
	}
	return nil
}

// retryOnce runs fn and retries a single time after a short pause. Object
// store hiccups are common enough that one retry removes most 5xx noise;
// anything persistent still surfaces to the caller.
func retryOnce(fn func() error) error {
	err := fn()
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidPath) || errors.Is(err, context.Canceled) {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return fn()
}
