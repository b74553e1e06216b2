// Package api maps transport-neutral requests onto the todo and profile
// services and renders JSON responses with permissive CORS headers.
package api

import (
	"context"

	"github.com/dmitrijs2005/gophtodo/internal/server/auth"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
	"github.com/dmitrijs2005/gophtodo/internal/server/services"
)

// Request is an already-authenticated, already-parsed inbound request.
// Identity is nil for anonymous callers.
type Request struct {
	Method   string
	Path     string
	Query    map[string]string
	Body     []byte
	Identity *auth.Identity
}

// Response is the envelope handed back to the transport adapter.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

type TodoService interface {
	List(ctx context.Context, limit int, cursor string) (*services.ListPage, error)
	Get(ctx context.Context, id string) (*models.Todo, error)
	Create(ctx context.Context, in services.CreateInput) (*models.Todo, error)
	Update(ctx context.Context, id string, patch models.Patch) (*models.Todo, error)
	Delete(ctx context.Context, id string) error
}

type ProfileService interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Save(ctx context.Context, userID string, in services.ProfileInput) (*models.Profile, error)
}
