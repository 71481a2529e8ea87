package controller

import (
	"context"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
)

// TimelineState is one member's completion history.
type TimelineState struct {
	Status
	TargetUID   string
	LeagueID    string
	Completions []domain.Completion
}

func (s TimelineState) withStatus(st Status) TimelineState {
	s.Status = st
	return s
}

// Timeline loads a league member's completions in the requester's league.
type Timeline struct {
	base[TimelineState]
	reloads sequence
}

// NewTimeline creates a Timeline controller.
func NewTimeline(deps Deps, opts ...Option) *Timeline {
	return &Timeline{base: newBase[TimelineState]("timeline", deps, opts)}
}

// LoadTimeline shows targetUID's completions. The snapshot follows the most
// recent target: switching targets drops the previous member's list at once.
// A requester without a league gets an empty list and no request is made.
func (t *Timeline) LoadTimeline(ctx context.Context, targetUID string) error {
	return t.run(ctx, "load timeline", func(ctx context.Context, uid string) error {
		n := t.reloads.next()
		t.cell.Update(func(s TimelineState) TimelineState {
			if s.TargetUID != targetUID {
				s.TargetUID = targetUID
				s.Completions = []domain.Completion{}
			}
			return s
		})

		profile, err := t.deps.Profiles.GetProfile(ctx, uid)
		if err != nil {
			return err
		}

		var completions []domain.Completion
		if profile.HasLeague() {
			completions, err = t.deps.API.GetUserCompletions(ctx, profile.LeagueID, targetUID, uid)
			if err != nil {
				return err
			}
		}

		t.commit(&t.reloads, n, func(s TimelineState) TimelineState {
			s.TargetUID = targetUID
			s.LeagueID = profile.LeagueID
			s.Completions = owned(completions)
			return s
		})
		return nil
	})
}

// ProofImageURL returns the tokenized image URL for a completion with proof.
// ok is false without proof, without a loaded league or without a signed-in
// requester.
func (t *Timeline) ProofImageURL(ctx context.Context, c domain.Completion) (string, bool) {
	filename, ok := c.ProofFile()
	if !ok {
		return "", false
	}
	leagueID := t.State().LeagueID
	if leagueID == "" {
		return "", false
	}
	uid, ok := t.deps.Identity.CurrentUserID(ctx)
	if !ok {
		return "", false
	}
	return t.deps.API.ProofImageURL(leagueID, uid, filename), true
}
