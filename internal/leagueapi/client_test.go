package leagueapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
	"github.com/trashtalkapp/trashtalk-client/internal/prooftoken"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Options{
		BaseURL:    server.URL + "/trashtalk",
		HTTPClient: server.Client(),
		RPS:        -1,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client, server
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
	return m
}

func TestNew_NormalizesBaseURL(t *testing.T) {
	c, err := New(Options{BaseURL: "http://example.test/api"})
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/api/", c.BaseURL())

	c, err = New(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())

	_, err = New(Options{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestClient_CreateLeague(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response any
		wantID   string
		wantCode clienterrors.Code
		wantMsg  string
	}{
		{
			name:     "success",
			status:   http.StatusOK,
			response: map[string]any{"success": true, "league_id": "L1"},
			wantID:   "L1",
		},
		{
			name:     "rejected with server message",
			status:   http.StatusOK,
			response: map[string]any{"success": false, "error": "League name taken"},
			wantCode: clienterrors.CodeRejected,
			wantMsg:  "League name taken",
		},
		{
			name:     "rejected without message",
			status:   http.StatusOK,
			response: map[string]any{"success": false},
			wantCode: clienterrors.CodeRejected,
			wantMsg:  "create league failed",
		},
		{
			name:     "success without id",
			status:   http.StatusOK,
			response: map[string]any{"success": true},
			wantCode: clienterrors.CodeServer,
			wantMsg:  "missing league_id in response",
		},
		{
			name:     "server error body",
			status:   http.StatusBadRequest,
			response: map[string]any{"success": false, "error": "Missing fields"},
			wantCode: clienterrors.CodeServer,
			wantMsg:  "Missing fields",
		},
		{
			name:     "server error without body",
			status:   http.StatusBadGateway,
			wantCode: clienterrors.CodeServer,
			wantMsg:  "unexpected status 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/trashtalk/create_league.php", r.URL.Path)
				body := decodeBody(t, r)
				assert.Equal(t, "U1", body["user_uid"])
				assert.Equal(t, "Flat 4", body["name"])
				assert.Equal(t, "Upstairs", body["description"])

				if tt.response == nil {
					w.WriteHeader(tt.status)
					return
				}
				writeJSON(w, tt.status, tt.response)
			})

			id, err := client.CreateLeague(context.Background(), "U1", "Flat 4", "Upstairs")
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, clienterrors.CodeOf(err))
				assert.Equal(t, tt.wantMsg, clienterrors.Message(err))

				var apiErr *Error
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "create league", apiErr.Op)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestClient_ValidationSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	_, err := client.CreateLeague(ctx, "U1", "   ", "")
	assert.True(t, clienterrors.Is(err, clienterrors.ErrValidation))

	err = client.JoinLeague(ctx, "", "L1")
	assert.True(t, clienterrors.Is(err, clienterrors.ErrValidation))

	_, err = client.ListChores(ctx, "", "U1")
	assert.True(t, clienterrors.Is(err, clienterrors.ErrValidation))

	neg := -3
	err = client.EditChore(ctx, "U1", "C1", domain.ChorePatch{Points: &neg})
	assert.True(t, clienterrors.Is(err, clienterrors.ErrValidation))

	err = client.EditChore(ctx, "U1", "C1", domain.ChorePatch{})
	assert.True(t, clienterrors.Is(err, clienterrors.ErrValidation))

	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := New(Options{BaseURL: url, RPS: -1})
	require.NoError(t, err)

	err = client.JoinLeague(context.Background(), "U1", "L1")
	require.Error(t, err)
	assert.True(t, clienterrors.Is(err, clienterrors.ErrTransport))
	assert.True(t, strings.HasPrefix(clienterrors.Message(err), "request failed"))
}

func TestClient_MalformedResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>oops</html>")
	})

	_, err := client.ListChores(context.Background(), "L1", "U1")
	require.Error(t, err)
	assert.Equal(t, clienterrors.CodeServer, clienterrors.CodeOf(err))
}

func TestClient_SearchLeagues(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trashtalk/search_leagues.php", r.URL.Path)
		assert.Equal(t, "flat", r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, []domain.League{
			{ID: "L2", Name: "Flat 2"},
			{ID: "L1", Name: "Flat 1"},
		})
	})

	leagues, err := client.SearchLeagues(context.Background(), "flat")
	require.NoError(t, err)
	require.Len(t, leagues, 2)
	assert.Equal(t, "L2", leagues[0].ID, "server order is kept")
}

func TestClient_SearchLeagues_NullIsEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "null")
	})

	leagues, err := client.SearchLeagues(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, leagues)
	assert.Empty(t, leagues)
}

func TestClient_Membership(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, "U1", body["user_uid"])
		assert.Equal(t, "L1", body["league_id"])
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	require.NoError(t, client.JoinLeague(context.Background(), "U1", "L1"))
	require.NoError(t, client.LeaveLeague(context.Background(), "U1", "L1"))
	assert.Equal(t, []string{"/trashtalk/join_league.php", "/trashtalk/leave_league.php"}, paths)
}

func TestClient_GetLeaderboard_SortsDescendingWithStableTieBreak(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trashtalk/league_leaderboard.php", r.URL.Path)
		assert.Equal(t, "L1", r.URL.Query().Get("league_id"))
		assert.Equal(t, "U1", r.URL.Query().Get("user_uid"))
		_, _ = io.WriteString(w, `{"leaderboard":[
			{"user_uid":"c","total_points":10,"completed_count":1},
			{"user_uid":"a","total_points":30,"completed_count":3},
			{"user_uid":"b","total_points":10,"completed_count":2}
		]}`)
	})

	entries, err := client.GetLeaderboard(context.Background(), "L1", "U1")
	require.NoError(t, err)

	var order []string
	for _, e := range entries {
		order = append(order, e.UserUID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestClient_ListLeagueMembers(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"members":[{"user_uid":"U1","total_points":5,"completed_count":1}]}`)
	})

	members, err := client.ListLeagueMembers(context.Background(), "L1", "U1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, 5, members[0].TotalPoints)
}

func TestClient_ChoreCRUD(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/trashtalk/list_chores.php":
			_, _ = io.WriteString(w, `[{"id":"C1","name":"Dishes","description":"","points":5,"creator_uid":"U1"}]`)
		case "/trashtalk/create_chore.php":
			body := decodeBody(t, r)
			assert.Equal(t, "L1", body["league_id"])
			assert.Equal(t, float64(7), body["points"])
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "chore_id": "C2"})
		case "/trashtalk/delete_chore.php":
			body := decodeBody(t, r)
			assert.Equal(t, "C2", body["chore_id"])
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Not your chore"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	chores, err := client.ListChores(ctx, "L1", "U1")
	require.NoError(t, err)
	require.Len(t, chores, 1)
	assert.Equal(t, "U1", chores[0].CreatorUID)

	id, err := client.CreateChore(ctx, CreateChoreRequest{UserUID: "U1", LeagueID: "L1", Name: "Bins", Points: 7})
	require.NoError(t, err)
	assert.Equal(t, "C2", id)

	err = client.DeleteChore(ctx, "U1", "C2")
	assert.True(t, clienterrors.Is(err, clienterrors.ErrRejected))
	assert.Equal(t, "Not your chore", clienterrors.Message(err))
}

func TestClient_EditChore_PointsOnlyOmitsOtherFields(t *testing.T) {
	var body map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body = decodeBody(t, r)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	points := 12
	err := client.EditChore(context.Background(), "U1", "C1", domain.ChorePatch{Points: &points})
	require.NoError(t, err)

	assert.Equal(t, "U1", body["user_uid"])
	assert.Equal(t, "C1", body["chore_id"])
	assert.Equal(t, float64(12), body["points"])
	assert.NotContains(t, body, "name")
	assert.NotContains(t, body, "description")
}

func TestClient_EditChore_ZeroPointsIsSent(t *testing.T) {
	var body map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body = decodeBody(t, r)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	zero := 0
	empty := ""
	require.NoError(t, client.EditChore(context.Background(), "U1", "C1", domain.ChorePatch{Points: &zero, Description: &empty}))

	assert.Contains(t, body, "points")
	assert.Contains(t, body, "description")
	assert.NotContains(t, body, "name")
}

func TestClient_CompleteChore(t *testing.T) {
	tests := []struct {
		name       string
		attachment *domain.Attachment
	}{
		{"without proof", nil},
		{"with proof", &domain.Attachment{Filename: "sink.png", ContentType: "image/png", Data: []byte("png-bytes")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/trashtalk/complete_chore.php", r.URL.Path)
				require.NoError(t, r.ParseMultipartForm(1<<20))

				assert.Equal(t, "U1", r.FormValue("user_uid"))
				assert.Equal(t, "L1", r.FormValue("league_id"))
				assert.Equal(t, "C1", r.FormValue("chore_id"))
				assert.Equal(t, "sparkling", r.FormValue("comments"))

				file, header, err := r.FormFile("proof_image")
				if tt.attachment == nil {
					assert.ErrorIs(t, err, http.ErrMissingFile)
				} else {
					require.NoError(t, err)
					defer file.Close()
					data, _ := io.ReadAll(file)
					assert.Equal(t, tt.attachment.Data, data)
					assert.Equal(t, "sink.png", header.Filename)
					assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
				}

				writeJSON(w, http.StatusOK, map[string]any{"success": true, "completion_id": "X1"})
			})

			id, err := client.CompleteChore(context.Background(), CompleteChoreRequest{
				UserUID:    "U1",
				LeagueID:   "L1",
				ChoreID:    "C1",
				Comments:   "sparkling",
				Attachment: tt.attachment,
			})
			require.NoError(t, err)
			assert.Equal(t, "X1", id)
		})
	}
}

func TestClient_GetUserCompletions(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "L1", q.Get("league_id"))
		assert.Equal(t, "U2", q.Get("target_uid"))
		assert.Equal(t, "U1", q.Get("user_uid"))
		_, _ = io.WriteString(w, `{"completions":[{"completion_id":"X1","chore_id":"C1","chore_name":"Dishes",
			"points_earned":5,"completed_at":"2024-03-01 10:00:00","comments":null,"has_proof":true,"proof_filename":"p.jpg"}]}`)
	})

	completions, err := client.GetUserCompletions(context.Background(), "L1", "U2", "U1")
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Nil(t, completions[0].Comments)
	file, ok := completions[0].ProofFile()
	assert.True(t, ok)
	assert.Equal(t, "p.jpg", file)
}

func TestClient_ProofImage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trashtalk/view_proof_image.php", r.URL.Path)
		q := r.URL.Query()
		if !prooftoken.Verify("L1", q.Get("u"), q.Get("t")) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("image:" + q.Get("f")))
	})
	ctx := context.Background()

	u := client.ProofImageURL("L1", "U1", "p.jpg")
	assert.Contains(t, u, "/trashtalk/view_proof_image.php?")
	assert.Contains(t, u, "t="+prooftoken.Token("L1", "U1"))

	data, err := client.FetchProofImage(ctx, "L1", "U1", "p.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image:p.jpg", string(data))

	_, err = client.FetchProofImage(ctx, "L2", "U1", "p.jpg")
	assert.True(t, clienterrors.Is(err, clienterrors.ErrForbidden))
	assert.Equal(t, "unexpected status 403", clienterrors.Message(err))
}

func TestClient_OversizedBodyIsAnError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("0123456789"))
	})
	ctx := context.Background()

	client.maxBody = 10
	data, err := client.FetchProofImage(ctx, "L1", "U1", "p.jpg")
	require.NoError(t, err)
	assert.Len(t, data, 10)

	client.maxBody = 9
	data, err = client.FetchProofImage(ctx, "L1", "U1", "p.jpg")
	require.Error(t, err)
	assert.Nil(t, data)
	assert.True(t, clienterrors.Is(err, clienterrors.ErrServer))
	assert.Equal(t, "response exceeds 9 bytes", clienterrors.Message(err))
}

func TestClient_ContextCancelled(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.JoinLeague(ctx, "U1", "L1")
	assert.True(t, clienterrors.Is(err, clienterrors.ErrTransport))
}
