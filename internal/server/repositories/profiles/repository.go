// Package profiles stores the per-identity user profile.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/gophtodo/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the user has no profile yet.
	Get(ctx context.Context, userID string) (*models.Profile, error)
	// Upsert writes displayName, bio and updatedAt. CreatedAt of an existing
	// profile is kept; the stored profile is returned.
	Upsert(ctx context.Context, p *models.Profile) (*models.Profile, error)
}
