package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local stores session files under root/<session_id>/. Every resolved path
// is verified to remain inside the root before any read or write.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	return &Local{root: abs}, nil
}

func (l *Local) sessionDir(sessionID string) string {
	return filepath.Join(l.root, sessionID)
}

// resolve joins the session dir with relPath and confirms the result stays
// inside the root.
func (l *Local) resolve(sessionID, relPath string) (string, error) {
	if err := ValidatePath(relPath); err != nil {
		return "", err
	}
	full := filepath.Join(l.sessionDir(sessionID), filepath.FromSlash(relPath))
	if full != l.root && !strings.HasPrefix(full, l.root+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return full, nil
}

func (l *Local) Init(ctx context.Context, sessionID string) error {
	if err := os.MkdirAll(l.sessionDir(sessionID), 0o755); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	return nil
}

func (l *Local) Put(ctx context.Context, sessionID, relPath string, content []byte) error {
	dest, err := l.resolve(sessionID, relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating parent dir: %w", err)
	}

	// Write to a temp file in the same directory, then rename. Readers either
	// see the old content or the new one, never a partial write.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".put-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (l *Local) Open(ctx context.Context, sessionID, relPath string) (io.ReadCloser, error) {
	src, err := l.resolve(sessionID, relPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}
	return f, nil
}

func (l *Local) Exists(ctx context.Context, sessionID, relPath string) (bool, error) {
	src, err := l.resolve(sessionID, relPath)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}
	return !info.IsDir(), nil
}

func (l *Local) List(ctx context.Context, sessionID string) ([]string, error) {
	dir := l.sessionDir(sessionID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat session dir: %w", err)
	}

	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == MetadataFile {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking session dir: %w", err)
	}
	return files, nil
}

func (l *Local) Delete(ctx context.Context, sessionID, relPath string) error {
	dest, err := l.resolve(sessionID, relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}

func (l *Local) DeleteSession(ctx context.Context, sessionID string) error {
	if err := os.RemoveAll(l.sessionDir(sessionID)); err != nil {
		return fmt.Errorf("removing session dir: %w", err)
	}
	return nil
}

// Workdir exposes the session directory itself; nothing to stage or sync.
func (l *Local) Workdir(ctx context.Context, sessionID string) (*Workdir, error) {
	dir := l.sessionDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session dir: %w", err)
	}
	return &Workdir{
		Dir:   dir,
		Sync:  func(context.Context) error { return nil },
		Close: func() error { return nil },
	}, nil
}

func (l *Local) Close() error { return nil }
