package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/profiles"
)

// ProfileInput is a validated profile write. Missing fields become "".
type ProfileInput struct {
	DisplayName string
	Bio         string
}

// ProfileService reads and upserts the caller's profile.
type ProfileService struct {
	repo   profiles.Repository
	logger logging.Logger
	now    func() time.Time
}

func NewProfileService(repo profiles.Repository, logger logging.Logger) *ProfileService {
	return &ProfileService{repo: repo, logger: logger.With("module", "profiles"), now: time.Now}
}

// Get returns common.ErrorNotFound when the user has not saved a profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, common.ErrorUnauthorized
	}
	return s.repo.Get(ctx, userID)
}

func (s *ProfileService) Save(ctx context.Context, userID string, in ProfileInput) (*models.Profile, error) {
	if userID == "" {
		return nil, common.ErrorUnauthorized
	}
	now := s.now().UTC()
	p, err := s.repo.Upsert(ctx, &models.Profile{
		UserID:      userID,
		DisplayName: in.DisplayName,
		Bio:         in.Bio,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "profile saved", "user_id", userID)
	return p, nil
}

// DecodeProfile reads displayName and bio; null or missing values are
// treated as empty strings.
func DecodeProfile(body map[string]json.RawMessage) (ProfileInput, error) {
	var in ProfileInput
	fields := []struct {
		name string
		dst  *string
	}{
		{"displayName", &in.DisplayName},
		{"bio", &in.Bio},
	}
	for _, f := range fields {
		raw, ok := body[f.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return ProfileInput{}, common.NewValidationError(f.name + " must be a string")
		}
	}
	return in, nil
}
