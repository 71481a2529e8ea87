package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
)

// GetProfile returns the profile document for uid.
// Returns ErrProfileNotFound if no document exists.
func (s *Store) GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	if uid == "" {
		return nil, clienterrors.Validation("user id is required")
	}

	profile, err := s.Profiles.Get(ctx, uid)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// UpsertProfile overwrites the whole profile document for uid.
func (s *Store) UpsertProfile(ctx context.Context, uid string, profile *domain.UserProfile) error {
	if uid == "" {
		return clienterrors.Validation("user id is required")
	}
	if profile == nil {
		return clienterrors.Validation("profile is required")
	}
	if profile.Points < 0 {
		return clienterrors.Validation("points must not be negative")
	}

	if err := s.Profiles.Put(ctx, uid, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
