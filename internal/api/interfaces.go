package api

import (
	"context"

	"github.com/p-arndt/codeexec/internal/engine"
	"github.com/p-arndt/codeexec/internal/session"
)

// SessionService is the session lifecycle surface the handlers need.
type SessionService interface {
	Create(ctx context.Context, language string) (*session.Info, error)
	Get(ctx context.Context, id string) (*session.Info, error)
	List(ctx context.Context) ([]session.Info, error)
	Delete(ctx context.Context, id string) error
}

// ExecService runs code inside an existing session.
type ExecService interface {
	Execute(ctx context.Context, sessionID, code, stdin, language string) (*engine.Record, error)
}
