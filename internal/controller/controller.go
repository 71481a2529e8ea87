// Package controller holds the view-state controllers. Each controller owns one
// immutable snapshot, exposes blocking action methods that mutate remote state
// and then reload, and publishes every new snapshot to subscribers.
//
// Actions are not coordinated with each other. Two concurrent reloads both
// publish and the last one to finish wins, unless WithStaleGuard is set.
package controller

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
	"github.com/trashtalkapp/trashtalk-client/internal/leagueapi"
	"github.com/trashtalkapp/trashtalk-client/internal/logger"
	"github.com/trashtalkapp/trashtalk-client/internal/state"
)

// Identity reports the signed-in user.
type Identity interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// ProfileStore reads and overwrites whole profile documents.
// GetProfile fails with a NOT_FOUND error when no document exists.
type ProfileStore interface {
	GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error)
	UpsertProfile(ctx context.Context, uid string, profile *domain.UserProfile) error
}

// LeagueAPI is the remote league/chore service. *leagueapi.Client satisfies it.
type LeagueAPI interface {
	CreateLeague(ctx context.Context, userUID, name, description string) (string, error)
	SearchLeagues(ctx context.Context, query string) ([]domain.League, error)
	JoinLeague(ctx context.Context, userUID, leagueID string) error
	LeaveLeague(ctx context.Context, userUID, leagueID string) error
	ListChores(ctx context.Context, leagueID, userUID string) ([]domain.Chore, error)
	CreateChore(ctx context.Context, req leagueapi.CreateChoreRequest) (string, error)
	EditChore(ctx context.Context, userUID, choreID string, patch domain.ChorePatch) error
	DeleteChore(ctx context.Context, userUID, choreID string) error
	CompleteChore(ctx context.Context, req leagueapi.CompleteChoreRequest) (string, error)
	GetLeaderboard(ctx context.Context, leagueID, userUID string) ([]domain.LeaderboardEntry, error)
	GetUserCompletions(ctx context.Context, leagueID, targetUID, requesterUID string) ([]domain.Completion, error)
	ProofImageURL(leagueID, requesterUID, filename string) string
}

var _ LeagueAPI = (*leagueapi.Client)(nil)

// Deps are the collaborators every controller is built from.
type Deps struct {
	Identity Identity
	Profiles ProfileStore
	API      LeagueAPI
	Logger   *slog.Logger
}

// Option tunes a controller.
type Option func(*options)

type options struct {
	staleGuard bool
}

// WithStaleGuard makes each reload discard its result when a newer reload of
// the same kind started after it. Without it the last reload to finish wins.
func WithStaleGuard() Option {
	return func(o *options) { o.staleGuard = true }
}

// Status is embedded in every snapshot.
type Status struct {
	// IsLoading is true while at least one action is in flight.
	IsLoading bool
	// Error is the message of the latest failure, "" when none.
	Error string

	inFlight int
}

func (s Status) status() Status { return s }

func (s Status) begin() Status {
	s.inFlight++
	s.IsLoading = true
	s.Error = ""
	return s
}

func (s Status) settle(errMsg string) Status {
	s.inFlight = max(0, s.inFlight-1)
	s.IsLoading = s.inFlight > 0
	if errMsg != "" {
		s.Error = errMsg
	}
	return s
}

type snapshot[S any] interface {
	status() Status
	withStatus(Status) S
}

// sequence numbers reloads for the stale guard.
type sequence struct {
	n atomic.Uint64
}

func (q *sequence) next() uint64 { return q.n.Add(1) }

func (q *sequence) latest(n uint64) bool { return q.n.Load() == n }

// base is the snapshot holder and action runner shared by all controllers.
type base[S snapshot[S]] struct {
	name       string
	cell       *state.Cell[S]
	deps       Deps
	staleGuard bool
	logger     *slog.Logger
}

func newBase[S snapshot[S]](name string, deps Deps, opts []Option) base[S] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.OrDiscard(deps.Logger).With(slog.String("controller", name))
	var zero S
	return base[S]{
		name:       name,
		cell:       state.NewCell(name, zero, log),
		deps:       deps,
		staleGuard: o.staleGuard,
		logger:     log,
	}
}

// State returns the current snapshot.
func (b *base[S]) State() S {
	return b.cell.Get()
}

// Subscribe streams snapshots, starting with the current one. Slow readers
// only see the newest. Call cancel when done.
func (b *base[S]) Subscribe() (<-chan S, func()) {
	return b.cell.Subscribe()
}

// ClearError drops the error message from the snapshot.
func (b *base[S]) ClearError() {
	b.cell.Update(func(s S) S {
		st := s.status()
		st.Error = ""
		return s.withStatus(st)
	})
}

// Close ends every subscription.
func (b *base[S]) Close() {
	b.cell.Close()
}

// run executes one action for the signed-in user. Without a user it does
// nothing. Otherwise it marks the action in flight, clears the error, runs fn
// and on every exit path releases the in-flight mark and records any failure.
func (b *base[S]) run(ctx context.Context, op string, fn func(ctx context.Context, uid string) error) (err error) {
	uid, ok := b.deps.Identity.CurrentUserID(ctx)
	if !ok {
		b.logger.Debug("no signed-in user, skipping", slog.String("op", op))
		return nil
	}

	b.cell.Update(func(s S) S { return s.withStatus(s.status().begin()) })
	defer func() {
		msg := clienterrors.Message(err)
		b.cell.Update(func(s S) S { return s.withStatus(s.status().settle(msg)) })
	}()

	if err = fn(ctx, uid); err != nil {
		b.logger.Error("action failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
	}
	return err
}

// commit publishes fn's snapshot unless the stale guard is on and a newer
// reload from seq has started since n.
func (b *base[S]) commit(seq *sequence, n uint64, fn func(S) S) bool {
	_, ok := b.cell.Modify(func(s S) (S, bool) {
		if b.staleGuard && !seq.latest(n) {
			return s, false
		}
		return fn(s), true
	})
	if !ok {
		b.logger.Debug("discarded overtaken reload", slog.Uint64("seq", n))
	}
	return ok
}

// loadProfile returns the profile from snapshot when present, else from the store.
func loadProfile(ctx context.Context, profiles ProfileStore, uid string, cached *domain.UserProfile) (*domain.UserProfile, error) {
	if cached != nil {
		return cached, nil
	}
	return profiles.GetProfile(ctx, uid)
}

func cloneProfile(p *domain.UserProfile) *domain.UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// owned copies a list for a snapshot. Snapshots never hold nil lists.
func owned[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}
