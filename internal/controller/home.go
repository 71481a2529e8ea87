package controller

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	"github.com/trashtalkapp/trashtalk-client/internal/leagueapi"
)

// HomeState is the dashboard snapshot. A nil Profile means not loaded yet.
type HomeState struct {
	Status
	Profile       *domain.UserProfile
	Leaderboard   []domain.LeaderboardEntry
	Chores        []domain.Chore
	SearchResults []domain.League
}

func (s HomeState) withStatus(st Status) HomeState {
	s.Status = st
	return s
}

// Home owns the dashboard: the "no league yet" view with league search, and
// the in-league view with leaderboard and chores.
type Home struct {
	base[HomeState]
	reloads  sequence
	searches sequence
}

// NewHome creates a Home controller.
func NewHome(deps Deps, opts ...Option) *Home {
	return &Home{base: newBase[HomeState]("home", deps, opts)}
}

// LoadData fetches the profile and, for league members, the leaderboard and
// chores. Without a league both lists are published empty.
func (h *Home) LoadData(ctx context.Context) error {
	return h.run(ctx, "load data", h.reload)
}

// JoinLeague joins leagueID, points the profile at it and reloads.
func (h *Home) JoinLeague(ctx context.Context, leagueID string) error {
	return h.run(ctx, "join league", func(ctx context.Context, uid string) error {
		if err := h.deps.API.JoinLeague(ctx, uid, leagueID); err != nil {
			return err
		}
		if err := h.assignLeague(ctx, uid, leagueID); err != nil {
			return err
		}
		return h.reload(ctx, uid)
	})
}

// CreateLeague creates a league, moves the profile into it and reloads.
func (h *Home) CreateLeague(ctx context.Context, name, description string) error {
	return h.run(ctx, "create league", func(ctx context.Context, uid string) error {
		leagueID, err := h.deps.API.CreateLeague(ctx, uid, name, description)
		if err != nil {
			return err
		}
		if err := h.assignLeague(ctx, uid, leagueID); err != nil {
			return err
		}
		return h.reload(ctx, uid)
	})
}

// LeaveLeague leaves the current league, clears it from the profile and
// reloads. A user without a league has nothing to leave.
func (h *Home) LeaveLeague(ctx context.Context) error {
	return h.run(ctx, "leave league", func(ctx context.Context, uid string) error {
		profile, err := loadProfile(ctx, h.deps.Profiles, uid, h.State().Profile)
		if err != nil {
			return err
		}
		if !profile.HasLeague() {
			return nil
		}
		if err := h.deps.API.LeaveLeague(ctx, uid, profile.LeagueID); err != nil {
			return err
		}
		if err := h.deps.Profiles.UpsertProfile(ctx, uid, profile.WithLeague("")); err != nil {
			return err
		}
		return h.reload(ctx, uid)
	})
}

// CompleteChore submits a completion, with proof when attachment is non-nil,
// then reloads. It needs a loaded profile with a league and does nothing
// otherwise. On failure nothing is reloaded.
func (h *Home) CompleteChore(ctx context.Context, chore domain.Chore, comments string, attachment *domain.Attachment) error {
	profile := h.State().Profile
	if !profile.HasLeague() {
		h.logger.Debug("complete chore without a league, skipping")
		return nil
	}

	return h.run(ctx, "complete chore", func(ctx context.Context, uid string) error {
		_, err := h.deps.API.CompleteChore(ctx, leagueapi.CompleteChoreRequest{
			UserUID:    uid,
			LeagueID:   profile.LeagueID,
			ChoreID:    chore.ID,
			Comments:   comments,
			Attachment: attachment,
		})
		if err != nil {
			return err
		}
		return h.reload(ctx, uid)
	})
}

// SearchLeagues replaces SearchResults with the leagues matching query.
// A blank query clears the results without a request.
func (h *Home) SearchLeagues(ctx context.Context, query string) error {
	return h.run(ctx, "search leagues", func(ctx context.Context, _ string) error {
		n := h.searches.next()
		query = strings.TrimSpace(query)
		if query == "" {
			h.commit(&h.searches, n, func(s HomeState) HomeState {
				s.SearchResults = []domain.League{}
				return s
			})
			return nil
		}

		leagues, err := h.deps.API.SearchLeagues(ctx, query)
		if err != nil {
			return err
		}
		h.commit(&h.searches, n, func(s HomeState) HomeState {
			s.SearchResults = owned(leagues)
			return s
		})
		return nil
	})
}

// assignLeague writes the profile back with a new league. The snapshot's
// profile is used when loaded, otherwise the stored document.
func (h *Home) assignLeague(ctx context.Context, uid, leagueID string) error {
	profile, err := loadProfile(ctx, h.deps.Profiles, uid, h.State().Profile)
	if err != nil {
		return err
	}
	return h.deps.Profiles.UpsertProfile(ctx, uid, profile.WithLeague(leagueID))
}

func (h *Home) reload(ctx context.Context, uid string) error {
	n := h.reloads.next()

	profile, err := h.deps.Profiles.GetProfile(ctx, uid)
	if err != nil {
		return err
	}

	if !profile.HasLeague() {
		h.commit(&h.reloads, n, func(s HomeState) HomeState {
			s.Profile = cloneProfile(profile)
			s.Leaderboard = []domain.LeaderboardEntry{}
			s.Chores = []domain.Chore{}
			return s
		})
		return nil
	}

	var (
		board  []domain.LeaderboardEntry
		chores []domain.Chore
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := h.deps.API.GetLeaderboard(gctx, profile.LeagueID, uid)
		if err != nil {
			return err
		}
		board = h.withDisplayNames(gctx, entries)
		return nil
	})
	g.Go(func() error {
		var err error
		chores, err = h.deps.API.ListChores(gctx, profile.LeagueID, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	h.commit(&h.reloads, n, func(s HomeState) HomeState {
		s.Profile = cloneProfile(profile)
		s.Leaderboard = board
		s.Chores = owned(chores)
		return s
	})
	return nil
}

// withDisplayNames fills missing leaderboard names from the profile store.
// Lookups that fail leave the name empty.
func (h *Home) withDisplayNames(ctx context.Context, entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	out := owned(entries)
	for i := range out {
		if out[i].DisplayName != "" {
			continue
		}
		p, err := h.deps.Profiles.GetProfile(ctx, out[i].UserUID)
		if err != nil {
			h.logger.Warn("leaderboard name lookup failed",
				slog.String("user_uid", out[i].UserUID),
				slog.String("error", err.Error()))
			continue
		}
		out[i].DisplayName = p.DisplayName
	}
	return out
}
