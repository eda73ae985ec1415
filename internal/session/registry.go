// Package session owns session identity and lookup: creating a session,
// resolving it, deleting it, and listing its user-visible files. Durability
// of files belongs to the storage backend; this package only decides what a
// session is.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/p-arndt/codeexec/internal/config"
	"github.com/p-arndt/codeexec/internal/storage"
	"github.com/p-arndt/codeexec/internal/store"
)

// sessionIDPattern matches the ids we generate (uuid) and nothing that could
// double as a path escape. Checked before an id reaches any file path.
var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// ValidateSessionID rejects identifiers that are not safe path segments.
func ValidateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type SessionStore interface {
	CreateSession(sess *store.Session) error
	GetSession(id string) (*store.Session, error)
	ListSessions() ([]*store.Session, error)
	DeleteSession(id string) error
}

type Info struct {
	SessionID string    `json:"session_id"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
	Files     []string  `json:"files"`
}

// metadata mirrors the index row into the reserved .meta.json object so a
// storage prefix is self-describing.
type metadata struct {
	SessionID string    `json:"session_id"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

type Registry struct {
	cfg     *config.Config
	store   SessionStore
	backend storage.Backend
}

func NewRegistry(cfg *config.Config, st SessionStore, backend storage.Backend) *Registry {
	return &Registry{cfg: cfg, store: st, backend: backend}
}

func (r *Registry) Create(ctx context.Context, language string) (*Info, error) {
	if language == "" {
		language = "python"
	}
	if !r.cfg.LanguageAllowed(language) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	if err := r.backend.Init(ctx, id); err != nil {
		return nil, fmt.Errorf("init session prefix: %w", err)
	}

	meta, err := json.Marshal(metadata{SessionID: id, Language: language, CreatedAt: now})
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := r.backend.Put(ctx, id, storage.MetadataFile, meta); err != nil {
		r.backend.DeleteSession(ctx, id)
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	if err := r.store.CreateSession(&store.Session{
		ID:            id,
		Language:      language,
		StoragePrefix: id,
		CreatedAt:     now,
	}); err != nil {
		r.backend.DeleteSession(ctx, id)
		return nil, fmt.Errorf("index session: %w", err)
	}

	return &Info{SessionID: id, Language: language, CreatedAt: now, Files: []string{}}, nil
}

func (r *Registry) Get(ctx context.Context, id string) (*Info, error) {
	sess, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	files, err := r.ListFiles(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Info{
		SessionID: sess.ID,
		Language:  sess.Language,
		CreatedAt: sess.CreatedAt,
		Files:     files,
	}, nil
}

func (r *Registry) List(ctx context.Context) ([]Info, error) {
	sessions, err := r.store.ListSessions()
	if err != nil {
		return nil, err
	}
	result := make([]Info, len(sessions))
	for i, s := range sessions {
		result[i] = Info{
			SessionID: s.ID,
			Language:  s.Language,
			CreatedAt: s.CreatedAt,
			Files:     []string{},
		}
	}
	return result, nil
}

// Delete removes the storage prefix and the index row. It is idempotent:
// deleting an absent session succeeds. Malformed identifiers still fail with
// ErrNotFound since they can never address a session.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := ValidateSessionID(id); err != nil {
		return err
	}
	if err := r.backend.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session prefix: %w", err)
	}
	if err := r.store.DeleteSession(id); err != nil {
		return fmt.Errorf("delete session index: %w", err)
	}
	return nil
}

func (r *Registry) ListFiles(ctx context.Context, id string) ([]string, error) {
	if _, err := r.lookup(id); err != nil {
		return nil, err
	}
	files, err := r.backend.List(ctx, id)
	if err != nil {
		// An indexed session whose prefix holds nothing yet lists as empty.
		if errors.Is(err, storage.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list session files: %w", err)
	}
	if files == nil {
		files = []string{}
	}
	return files, nil
}

// lookup validates the id and resolves the index row.
func (r *Registry) lookup(id string) (*store.Session, error) {
	if err := ValidateSessionID(id); err != nil {
		return nil, err
	}
	sess, err := r.store.GetSession(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}
