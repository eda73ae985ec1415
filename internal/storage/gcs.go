package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCS stores session files as <session_id>/<rel_path> object keys. The
// "directory" is simulated by the key prefix; listing enumerates keys under
// it. Executions run against a staged temp dir (see Workdir).
type GCS struct {
	client *gcs.Client
	bucket string
}

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) object(sessionID, relPath string) *gcs.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(sessionID + "/" + relPath)
}

// Init writes nothing: an object-store prefix exists only through its
// objects, and the registry writes the metadata object right after.
func (g *GCS) Init(ctx context.Context, sessionID string) error { return nil }

func (g *GCS) Put(ctx context.Context, sessionID, relPath string, content []byte) error {
	if err := ValidatePath(relPath); err != nil {
		return err
	}
	return retryOnce(func() error {
		w := g.object(sessionID, relPath).NewWriter(ctx)
		if _, err := w.Write(content); err != nil {
			w.Close()
			return fmt.Errorf("writing object: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("closing object writer: %w", err)
		}
		return nil
	})
}

func (g *GCS) Open(ctx context.Context, sessionID, relPath string) (io.ReadCloser, error) {
	if err := ValidatePath(relPath); err != nil {
		return nil, err
	}
	var r io.ReadCloser
	err := retryOnce(func() error {
		reader, err := g.object(sessionID, relPath).NewReader(ctx)
		if err != nil {
			if errors.Is(err, gcs.ErrObjectNotExist) {
				return ErrNotFound
			}
			return fmt.Errorf("opening object: %w", err)
		}
		r = reader
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (g *GCS) Exists(ctx context.Context, sessionID, relPath string) (bool, error) {
	if err := ValidatePath(relPath); err != nil {
		return false, err
	}
	_, err := g.object(sessionID, relPath).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("object attrs: %w", err)
	}
	return true, nil
}

func (g *GCS) List(ctx context.Context, sessionID string) ([]string, error) {
	var files []string
	err := retryOnce(func() error {
		files = files[:0]
		prefix := sessionID + "/"
		it := g.client.Bucket(g.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
		for {
			attrs, err := it.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return fmt.Errorf("listing objects: %w", err)
			}
			rel := strings.TrimPrefix(attrs.Name, prefix)
			if rel == "" || rel == MetadataFile || strings.HasSuffix(rel, "/") {
				continue
			}
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (g *GCS) Delete(ctx context.Context, sessionID, relPath string) error {
	if err := ValidatePath(relPath); err != nil {
		return err
	}
	err := g.object(sessionID, relPath).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting object: %w", err)
	}
	return nil
}

func (g *GCS) DeleteSession(ctx context.Context, sessionID string) error {
	return retryOnce(func() error {
		prefix := sessionID + "/"
		it := g.client.Bucket(g.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
		for {
			attrs, err := it.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return fmt.Errorf("listing objects: %w", err)
			}
			if err := g.client.Bucket(g.bucket).Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
				return fmt.Errorf("deleting object %s: %w", attrs.Name, err)
			}
		}
	})
}

// Workdir stages the session's objects into a temp dir. Sync walks the dir
// and uploads every regular file back under the prefix; the reserved
// metadata name is skipped in both directions so executed code cannot
// clobber it.
func (g *GCS) Workdir(ctx context.Context, sessionID string) (*Workdir, error) {
	dir, err := os.MkdirTemp("", "codeexec-"+sessionID+"-")
	if err != nil {
		return nil, fmt.Errorf("creating staging dir: %w", err)
	}

	files, err := g.List(ctx, sessionID)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	for _, rel := range files {
		if err := g.stageFile(ctx, sessionID, rel, dir); err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
	}

	return &Workdir{
		Dir:   dir,
		Sync:  func(ctx context.Context) error { return g.syncBack(ctx, sessionID, dir) },
		Close: func() error { return os.RemoveAll(dir) },
	}, nil
}

func (g *GCS) stageFile(ctx context.Context, sessionID, rel, dir string) error {
	r, err := g.Open(ctx, sessionID, rel)
	if err != nil {
		return err
	}
	defer r.Close()

	dest := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating staging subdir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating staged file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("staging %s: %w", rel, err)
	}
	return f.Close()
}

func (g *GCS) syncBack(ctx context.Context, sessionID, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
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
		if filepath.Base(rel) == MetadataFile {
			return nil
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading staged file %s: %w", rel, err)
		}
		return g.Put(ctx, sessionID, rel, content)
	})
}

func (g *GCS) Close() error {
	return g.client.Close()
}
