// Package todos provides the Todo store adapters: PostgreSQL, DynamoDB, S3
// and an in-memory implementation for tests and local runs.
package todos

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/server/cursor"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
)

// Repository is the uniform single-item contract over a backing store.
//
// UpdateFields and Delete are conditional on the item existing and return
// common.ErrorNotFound otherwise; neither may create a record.
type Repository interface {
	Get(ctx context.Context, id string) (*models.Todo, error)
	// List returns up to limit items after the given position and the position
	// of the next page, nil when the listing is exhausted.
	List(ctx context.Context, limit int, after cursor.Key) ([]*models.Todo, cursor.Key, error)
	// Put is an unconditional upsert, used only on creation.
	Put(ctx context.Context, todo *models.Todo) error
	UpdateFields(ctx context.Context, id string, patch models.Patch, updatedAt time.Time) (*models.Todo, error)
	Delete(ctx context.Context, id string) error
}
