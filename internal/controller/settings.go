package controller

import (
	"context"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	"github.com/trashtalkapp/trashtalk-client/internal/leagueapi"
)

// SettingsState is the chore-management snapshot.
type SettingsState struct {
	Status
	LeagueID string
	Chores   []domain.Chore
}

func (s SettingsState) withStatus(st Status) SettingsState {
	s.Status = st
	return s
}

// Settings manages the league's chore catalog. Every successful mutation is
// followed by LoadChores; a failed one is not.
type Settings struct {
	base[SettingsState]
	reloads sequence
}

// NewSettings creates a Settings controller.
func NewSettings(deps Deps, opts ...Option) *Settings {
	return &Settings{base: newBase[SettingsState]("settings", deps, opts)}
}

// LoadChores resolves the user's league and fetches its chores. Without a
// league the chore list is published empty.
func (c *Settings) LoadChores(ctx context.Context) error {
	return c.run(ctx, "load chores", c.reload)
}

// AddChore creates a chore in the loaded league. Does nothing until
// LoadChores has found a league.
func (c *Settings) AddChore(ctx context.Context, name, description string, points int) error {
	leagueID := c.State().LeagueID
	if leagueID == "" {
		c.logger.Debug("add chore without a league, skipping")
		return nil
	}

	return c.run(ctx, "add chore", func(ctx context.Context, uid string) error {
		_, err := c.deps.API.CreateChore(ctx, leagueapi.CreateChoreRequest{
			UserUID:     uid,
			LeagueID:    leagueID,
			Name:        name,
			Description: description,
			Points:      points,
		})
		if err != nil {
			return err
		}
		return c.reload(ctx, uid)
	})
}

// UpdateChore sends only the non-nil fields of patch.
func (c *Settings) UpdateChore(ctx context.Context, choreID string, patch domain.ChorePatch) error {
	return c.run(ctx, "update chore", func(ctx context.Context, uid string) error {
		if err := c.deps.API.EditChore(ctx, uid, choreID, patch); err != nil {
			return err
		}
		return c.reload(ctx, uid)
	})
}

// DeleteChore removes a chore from the catalog.
func (c *Settings) DeleteChore(ctx context.Context, choreID string) error {
	return c.run(ctx, "delete chore", func(ctx context.Context, uid string) error {
		if err := c.deps.API.DeleteChore(ctx, uid, choreID); err != nil {
			return err
		}
		return c.reload(ctx, uid)
	})
}

func (c *Settings) reload(ctx context.Context, uid string) error {
	n := c.reloads.next()

	profile, err := c.deps.Profiles.GetProfile(ctx, uid)
	if err != nil {
		return err
	}

	var chores []domain.Chore
	if profile.HasLeague() {
		chores, err = c.deps.API.ListChores(ctx, profile.LeagueID, uid)
		if err != nil {
			return err
		}
	}

	c.commit(&c.reloads, n, func(s SettingsState) SettingsState {
		s.LeagueID = profile.LeagueID
		s.Chores = owned(chores)
		return s
	})
	return nil
}
