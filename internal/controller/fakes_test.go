package controller

import (
	"context"
	"slices"
	"sync"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
	"github.com/trashtalkapp/trashtalk-client/internal/leagueapi"
	"github.com/trashtalkapp/trashtalk-client/internal/prooftoken"
)

type fakeIdentity struct {
	uid string
}

func (f fakeIdentity) CurrentUserID(context.Context) (string, bool) {
	return f.uid, f.uid != ""
}

type upsert struct {
	UID     string
	Profile domain.UserProfile
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]domain.UserProfile
	upserts  []upsert
	getErr   error
	gets     int
}

func newFakeProfiles(profiles map[string]domain.UserProfile) *fakeProfiles {
	if profiles == nil {
		profiles = map[string]domain.UserProfile{}
	}
	return &fakeProfiles{profiles: profiles}
}

func (f *fakeProfiles) GetProfile(_ context.Context, uid string) (*domain.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[uid]
	if !ok {
		return nil, clienterrors.NotFound("profile not found")
	}
	return &p, nil
}

func (f *fakeProfiles) UpsertProfile(_ context.Context, uid string, p *domain.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[uid] = *p
	f.upserts = append(f.upserts, upsert{UID: uid, Profile: *p})
	return nil
}

func (f *fakeProfiles) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

func (f *fakeProfiles) upsertCalls() []upsert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.upserts)
}

// fakeAPI records calls by endpoint name. Behavior is configured through the
// exported fields before use; hooks run on every call when set.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string
	errs  map[string]error

	leaderboard []domain.LeaderboardEntry
	chores      []domain.Chore
	completions []domain.Completion
	leagues     []domain.League
	newLeagueID string

	edits     []domain.ChorePatch
	completed []leagueapi.CompleteChoreRequest
	created   []leagueapi.CreateChoreRequest

	leaderboardHook func(call int) ([]domain.LeaderboardEntry, error)
	completeHook    func(req leagueapi.CompleteChoreRequest)
	leaderboardN    int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{errs: map[string]error{}, newLeagueID: "L-new"}
}

func (f *fakeAPI) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakeAPI) fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = err
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeAPI) CreateLeague(_ context.Context, _, _, _ string) (string, error) {
	if err := f.record("create_league"); err != nil {
		return "", err
	}
	return f.newLeagueID, nil
}

func (f *fakeAPI) SearchLeagues(_ context.Context, _ string) ([]domain.League, error) {
	if err := f.record("search_leagues"); err != nil {
		return nil, err
	}
	return f.leagues, nil
}

func (f *fakeAPI) JoinLeague(context.Context, string, string) error {
	return f.record("join_league")
}

func (f *fakeAPI) LeaveLeague(context.Context, string, string) error {
	return f.record("leave_league")
}

func (f *fakeAPI) ListChores(context.Context, string, string) ([]domain.Chore, error) {
	if err := f.record("list_chores"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.chores), nil
}

func (f *fakeAPI) CreateChore(_ context.Context, req leagueapi.CreateChoreRequest) (string, error) {
	if err := f.record("create_chore"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	f.chores = append(f.chores, domain.Chore{ID: "C-new", Name: req.Name, Points: req.Points})
	return "C-new", nil
}

func (f *fakeAPI) EditChore(_ context.Context, _, _ string, patch domain.ChorePatch) error {
	if err := f.record("edit_chore"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, patch)
	return nil
}

func (f *fakeAPI) DeleteChore(context.Context, string, string) error {
	return f.record("delete_chore")
}

func (f *fakeAPI) CompleteChore(_ context.Context, req leagueapi.CompleteChoreRequest) (string, error) {
	if f.completeHook != nil {
		f.completeHook(req)
	}
	if err := f.record("complete_chore"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, req)
	return "X" + req.ChoreID, nil
}

func (f *fakeAPI) GetLeaderboard(context.Context, string, string) ([]domain.LeaderboardEntry, error) {
	if err := f.record("league_leaderboard"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.leaderboardN++
	call := f.leaderboardN
	hook := f.leaderboardHook
	board := slices.Clone(f.leaderboard)
	f.mu.Unlock()

	if hook != nil {
		return hook(call)
	}
	return board, nil
}

func (f *fakeAPI) GetUserCompletions(context.Context, string, string, string) ([]domain.Completion, error) {
	if err := f.record("user_completed_chores"); err != nil {
		return nil, err
	}
	return slices.Clone(f.completions), nil
}

func (f *fakeAPI) ProofImageURL(leagueID, requesterUID, filename string) string {
	return prooftoken.URLFor("http://api.test/", leagueID, requesterUID, filename)
}

func ptr[T any](v T) *T { return &v }
