package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trashtalkapp/trashtalk-client/internal/controller"
	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
	"github.com/trashtalkapp/trashtalk-client/internal/leagueapi"
	"github.com/trashtalkapp/trashtalk-client/internal/store"
)

func setupTestServer(t *testing.T) (*leagueapi.Client, *httptest.Server) {
	t.Helper()

	srv, err := New(context.Background(), Options{})
	require.NoError(t, err)
	ts := httptest.NewServer(srv)

	client, err := leagueapi.New(leagueapi.Options{BaseURL: ts.URL + DefaultPrefix, RPS: -1})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		ts.Close()
		assert.NoError(t, srv.Close())
	})
	return client, ts
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: 90, B: uint8(y * 30), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestServer_Health(t *testing.T) {
	_, ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_LeagueLifecycle(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()

	leagueID, err := client.CreateLeague(ctx, "U1", "Café Crew", "Flat 4 chores")
	require.NoError(t, err)
	require.NotEmpty(t, leagueID)

	found, err := client.SearchLeagues(ctx, "cafe")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, domain.League{ID: leagueID, Name: "Café Crew", Description: "Flat 4 chores"}, found[0])

	none, err := client.SearchLeagues(ctx, "zzzz")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	require.NoError(t, client.JoinLeague(ctx, "U2", leagueID))
	members, err := client.ListLeagueMembers(ctx, leagueID, "U1")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	require.NoError(t, client.LeaveLeague(ctx, "U2", leagueID))
	err = client.LeaveLeague(ctx, "U2", leagueID)
	require.Error(t, err)
	assert.True(t, clienterrors.Is(err, clienterrors.ErrRejected))
	assert.Equal(t, "Not a member of this league", clienterrors.Message(err))
}

func TestServer_JoinUnknownLeagueIsRejected(t *testing.T) {
	client, _ := setupTestServer(t)

	err := client.JoinLeague(context.Background(), "U1", "nope")

	require.Error(t, err)
	assert.True(t, clienterrors.Is(err, clienterrors.ErrRejected))
	assert.Equal(t, "League not found", clienterrors.Message(err))
}

func TestServer_ChoresAndCompletions(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()

	leagueID, err := client.CreateLeague(ctx, "U1", "Flat", "")
	require.NoError(t, err)
	require.NoError(t, client.JoinLeague(ctx, "U2", leagueID))

	dishes, err := client.CreateChore(ctx, leagueapi.CreateChoreRequest{
		UserUID: "U1", LeagueID: leagueID, Name: "Dishes", Description: "After dinner", Points: 5,
	})
	require.NoError(t, err)
	bins, err := client.CreateChore(ctx, leagueapi.CreateChoreRequest{
		UserUID: "U1", LeagueID: leagueID, Name: "Bins", Points: 3,
	})
	require.NoError(t, err)

	// Points-only edit leaves the other fields alone.
	require.NoError(t, client.EditChore(ctx, "U2", dishes, domain.ChorePatch{Points: ptr(10)}))
	chores, err := client.ListChores(ctx, leagueID, "U2")
	require.NoError(t, err)
	require.Len(t, chores, 2)
	assert.Equal(t, domain.Chore{ID: dishes, Name: "Dishes", Description: "After dinner", Points: 10, CreatorUID: "U1"}, chores[0])
	assert.Equal(t, bins, chores[1].ID)

	_, err = client.CompleteChore(ctx, leagueapi.CompleteChoreRequest{
		UserUID: "U2", LeagueID: leagueID, ChoreID: dishes, Comments: "sparkling",
		Attachment: &domain.Attachment{Filename: "sink.png", ContentType: "image/png", Data: testPNG(t)},
	})
	require.NoError(t, err)
	_, err = client.CompleteChore(ctx, leagueapi.CompleteChoreRequest{UserUID: "U1", LeagueID: leagueID, ChoreID: bins})
	require.NoError(t, err)

	board, err := client.GetLeaderboard(ctx, leagueID, "U1")
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "U2", board[0].UserUID)
	assert.Equal(t, 10, board[0].TotalPoints)
	assert.Equal(t, 1, board[0].CompletedCount)
	assert.Equal(t, "U1", board[1].UserUID)
	assert.Equal(t, 3, board[1].TotalPoints)

	// Editing the chore later does not rewrite earned points.
	require.NoError(t, client.EditChore(ctx, "U1", dishes, domain.ChorePatch{Points: ptr(1)}))

	history, err := client.GetUserCompletions(ctx, leagueID, "U2", "U1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	c := history[0]
	assert.Equal(t, "Dishes", c.ChoreName)
	assert.Equal(t, 10, c.PointsEarned)
	require.NotNil(t, c.Comments)
	assert.Equal(t, "sparkling", *c.Comments)
	_, ok := c.CompletedTime()
	assert.True(t, ok)

	filename, ok := c.ProofFile()
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(filename, ".png"))

	img, err := client.FetchProofImage(ctx, leagueID, "U1", filename)
	require.NoError(t, err)
	assert.Equal(t, testPNG(t), img)

	// A token minted for another league does not open this league's proof.
	_, err = client.FetchProofImage(ctx, "other-league", "U3", filename)
	require.Error(t, err)
	assert.True(t, clienterrors.Is(err, clienterrors.ErrForbidden))

	// A correctly minted token does not help someone outside the league.
	_, err = client.FetchProofImage(ctx, leagueID, "U3", filename)
	require.Error(t, err)
	assert.True(t, clienterrors.Is(err, clienterrors.ErrForbidden))

	// Nor a former member.
	require.NoError(t, client.LeaveLeague(ctx, "U2", leagueID))
	_, err = client.FetchProofImage(ctx, leagueID, "U2", filename)
	assert.True(t, clienterrors.Is(err, clienterrors.ErrForbidden))

	binsHistory, err := client.GetUserCompletions(ctx, leagueID, "U1", "U2")
	require.NoError(t, err)
	require.Len(t, binsHistory, 1)
	assert.Nil(t, binsHistory[0].Comments)
	assert.False(t, binsHistory[0].HasProof)
}

func TestServer_ProofImageContentType(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()

	leagueID, err := client.CreateLeague(ctx, "U1", "Flat", "")
	require.NoError(t, err)
	choreID, err := client.CreateChore(ctx, leagueapi.CreateChoreRequest{
		UserUID: "U1", LeagueID: leagueID, Name: "Dishes", Points: 5,
	})
	require.NoError(t, err)

	_, err = client.CompleteChore(ctx, leagueapi.CompleteChoreRequest{
		UserUID: "U1", LeagueID: leagueID, ChoreID: choreID,
		Attachment: &domain.Attachment{Filename: "sink.html", ContentType: "text/html", Data: testPNG(t)},
	})
	require.NoError(t, err)

	history, err := client.GetUserCompletions(ctx, leagueID, "U1", "U1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	filename, ok := history[0].ProofFile()
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(filename, ".png"))

	resp, err := http.Get(client.ProofImageURL(leagueID, "U1", filename))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	// Bytes that are not an image are refused.
	_, err = client.CompleteChore(ctx, leagueapi.CompleteChoreRequest{
		UserUID: "U1", LeagueID: leagueID, ChoreID: choreID,
		Attachment: &domain.Attachment{Filename: "x.png", ContentType: "image/png", Data: []byte("<html></html>")},
	})
	require.Error(t, err)

	history, err = client.GetUserCompletions(ctx, leagueID, "U1", "U1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

// lockedBuffer collects log output written from server goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServer_ProofUploadLogsPlaceholder(t *testing.T) {
	var logs lockedBuffer
	log := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	srv, err := New(context.Background(), Options{Logger: log})
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	client, err := leagueapi.New(leagueapi.Options{BaseURL: ts.URL + DefaultPrefix, RPS: -1})
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
		ts.Close()
		assert.NoError(t, srv.Close())
	})

	ctx := context.Background()
	leagueID, err := client.CreateLeague(ctx, "U1", "Flat", "")
	require.NoError(t, err)
	choreID, err := client.CreateChore(ctx, leagueapi.CreateChoreRequest{
		UserUID: "U1", LeagueID: leagueID, Name: "Dishes", Points: 5,
	})
	require.NoError(t, err)
	_, err = client.CompleteChore(ctx, leagueapi.CompleteChoreRequest{
		UserUID: "U1", LeagueID: leagueID, ChoreID: choreID,
		Attachment: &domain.Attachment{Filename: "sink.png", ContentType: "image/png", Data: testPNG(t)},
	})
	require.NoError(t, err)

	var entry map[string]any
	for line := range strings.Lines(logs.String()) {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		if m["msg"] == "proof image received" {
			entry = m
		}
	}
	require.NotNil(t, entry)
	assert.Equal(t, "png", entry["format"])
	assert.EqualValues(t, 8, entry["width"])
	assert.Len(t, entry["blurhash"], 28)
}

func TestServer_Rules(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()

	flat, err := client.CreateLeague(ctx, "U1", "Flat", "")
	require.NoError(t, err)
	other, err := client.CreateLeague(ctx, "U9", "Other", "")
	require.NoError(t, err)
	require.NoError(t, client.JoinLeague(ctx, "U2", flat))

	chore, err := client.CreateChore(ctx, leagueapi.CreateChoreRequest{UserUID: "U1", LeagueID: flat, Name: "Mop", Points: 2})
	require.NoError(t, err)
	foreign, err := client.CreateChore(ctx, leagueapi.CreateChoreRequest{UserUID: "U9", LeagueID: other, Name: "Sweep", Points: 2})
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		msg  string
	}{
		{"non-member adds chore", func() error {
			_, err := client.CreateChore(ctx, leagueapi.CreateChoreRequest{UserUID: "U3", LeagueID: flat, Name: "x"})
			return err
		}, "Not a member of this league"},
		{"only creator deletes", func() error {
			return client.DeleteChore(ctx, "U2", chore)
		}, "Only the creator can delete this chore"},
		{"chore from another league", func() error {
			_, err := client.CompleteChore(ctx, leagueapi.CompleteChoreRequest{UserUID: "U1", LeagueID: flat, ChoreID: foreign})
			return err
		}, "Chore not in league"},
		{"unknown chore", func() error {
			return client.EditChore(ctx, "U1", "missing", domain.ChorePatch{Name: ptr("x")})
		}, "Chore not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, clienterrors.Is(err, clienterrors.ErrRejected))
			assert.Equal(t, tt.msg, clienterrors.Message(err))
		})
	}

	require.NoError(t, client.DeleteChore(ctx, "U1", chore))
	chores, err := client.ListChores(ctx, flat, "U1")
	require.NoError(t, err)
	assert.Empty(t, chores)
}

func TestServer_NonMemberReadsAreForbidden(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()

	leagueID, err := client.CreateLeague(ctx, "U1", "Flat", "")
	require.NoError(t, err)

	_, err = client.GetLeaderboard(ctx, leagueID, "U3")
	assert.True(t, clienterrors.Is(err, clienterrors.ErrForbidden))
	_, err = client.ListChores(ctx, leagueID, "U3")
	assert.True(t, clienterrors.Is(err, clienterrors.ErrForbidden))
	_, err = client.GetUserCompletions(ctx, leagueID, "U1", "U3")
	assert.True(t, clienterrors.Is(err, clienterrors.ErrForbidden))
}

func TestServer_ValidationErrors(t *testing.T) {
	_, ts := setupTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"blank league name", http.MethodPost, "/create_league.php", `{"user_uid":"U1","name":"  "}`, http.StatusBadRequest},
		{"broken json", http.MethodPost, "/join_league.php", `{"user_uid":`, http.StatusBadRequest},
		{"negative points", http.MethodPost, "/create_chore.php", `{"user_uid":"U1","league_id":"L","name":"x","points":-1}`, http.StatusBadRequest},
		{"empty edit", http.MethodPost, "/edit_chore.php", `{"user_uid":"U1","chore_id":"C"}`, http.StatusBadRequest},
		{"missing scope", http.MethodGet, "/league_leaderboard.php?league_id=L", "", http.StatusBadRequest},
		{"malformed token", http.MethodGet, "/view_proof_image.php?f=a.png&u=U1&t=abc", "", http.StatusBadRequest},
		{"unknown proof", http.MethodGet, "/view_proof_image.php?f=a.png&u=U1&t=" + strings.Repeat("a", 64), "", http.StatusNotFound},
		{"unknown endpoint", http.MethodGet, "/nope.php", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+DefaultPrefix+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestServer_RateLimit(t *testing.T) {
	srv, err := New(context.Background(), Options{RPS: 0.001, Burst: 1})
	require.NoError(t, err)
	defer srv.Close()

	first := httptest.NewRecorder()
	srv.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	srv.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

// The controllers drive the dev server end to end: create a league, add a
// chore, complete it and see the points on the leaderboard.
func TestServer_ControllersEndToEnd(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()

	profiles, err := store.New("", nil)
	require.NoError(t, err)
	defer profiles.Close()
	require.NoError(t, profiles.UpsertProfile(ctx, "U1", domain.NewUserProfile("Sam", "sam@example.com")))

	deps := controller.Deps{Identity: staticIdentity("U1"), Profiles: profiles, API: client}
	home := controller.NewHome(deps)
	settings := controller.NewSettings(deps)
	timeline := controller.NewTimeline(deps)
	defer home.Close()
	defer settings.Close()
	defer timeline.Close()

	require.NoError(t, home.CreateLeague(ctx, "Flat", "Upstairs"))
	leagueID := home.State().Profile.LeagueID
	require.NotEmpty(t, leagueID)

	require.NoError(t, settings.LoadChores(ctx))
	assert.Equal(t, leagueID, settings.State().LeagueID)
	require.NoError(t, settings.AddChore(ctx, "Dishes", "", 5))
	require.Len(t, settings.State().Chores, 1)

	require.NoError(t, home.LoadData(ctx))
	st := home.State()
	require.Len(t, st.Chores, 1)
	require.NoError(t, home.CompleteChore(ctx, st.Chores[0], "done", nil))

	st = home.State()
	require.Len(t, st.Leaderboard, 1)
	assert.Equal(t, 5, st.Leaderboard[0].TotalPoints)
	assert.Equal(t, "Sam", st.Leaderboard[0].DisplayName)
	assert.Empty(t, st.Error)

	require.NoError(t, timeline.LoadTimeline(ctx, "U1"))
	require.Len(t, timeline.State().Completions, 1)
	assert.Equal(t, "Dishes", timeline.State().Completions[0].ChoreName)

	// A rejected mutation surfaces the server's message.
	require.Error(t, home.JoinLeague(ctx, "missing"))
	assert.Equal(t, "League not found", home.State().Error)
	assert.Len(t, home.State().Leaderboard, 1)
}

type staticIdentity string

func (s staticIdentity) CurrentUserID(context.Context) (string, bool) {
	return string(s), s != ""
}

func ptr[T any](v T) *T { return &v }
