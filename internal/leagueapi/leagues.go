package leagueapi

import (
	"context"
	"net/url"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
)

// CreateLeague creates a league owned by userUID and returns its id.
func (c *Client) CreateLeague(ctx context.Context, userUID, name, description string) (string, error) {
	const op = "create league"

	req := createLeagueRequest{UserUID: userUID, Name: name, Description: description}
	if err := c.validator.Validate(req); err != nil {
		return "", wrapError(op, err)
	}

	var resp createLeagueResponse
	if err := c.postJSON(ctx, "create_league", req, &resp); err != nil {
		return "", wrapError(op, err)
	}
	if !resp.Success {
		return "", wrapError(op, rejected(op, resp.Error))
	}
	if resp.LeagueID == "" {
		return "", wrapError(op, clienterrors.Server("missing league_id in response"))
	}
	return resp.LeagueID, nil
}

// SearchLeagues returns leagues matching query in server relevance order.
// What an empty query returns is up to the server.
func (c *Client) SearchLeagues(ctx context.Context, query string) ([]domain.League, error) {
	var leagues []domain.League
	if err := c.getJSON(ctx, "search_leagues", url.Values{"q": {query}}, &leagues); err != nil {
		return nil, wrapError("search leagues", err)
	}
	return orEmpty(leagues), nil
}

// JoinLeague adds userUID to leagueID server-side. The caller owns updating the
// profile document.
func (c *Client) JoinLeague(ctx context.Context, userUID, leagueID string) error {
	return c.membership(ctx, "join league", "join_league", userUID, leagueID)
}

// LeaveLeague removes userUID from leagueID server-side.
func (c *Client) LeaveLeague(ctx context.Context, userUID, leagueID string) error {
	return c.membership(ctx, "leave league", "leave_league", userUID, leagueID)
}

func (c *Client) membership(ctx context.Context, op, endpoint, userUID, leagueID string) error {
	req := membershipRequest{UserUID: userUID, LeagueID: leagueID}
	if err := c.validator.Validate(req); err != nil {
		return wrapError(op, err)
	}

	var resp ackResponse
	if err := c.postJSON(ctx, endpoint, req, &resp); err != nil {
		return wrapError(op, err)
	}
	if !resp.Success {
		return wrapError(op, rejected(op, resp.Error))
	}
	return nil
}

// ListLeagueMembers returns the members of leagueID as seen by userUID.
func (c *Client) ListLeagueMembers(ctx context.Context, leagueID, userUID string) ([]domain.LeagueMember, error) {
	const op = "list league members"

	scope := leagueScope{LeagueID: leagueID, UserUID: userUID}
	if err := c.validator.Validate(scope); err != nil {
		return nil, wrapError(op, err)
	}

	var resp membersResponse
	if err := c.getJSON(ctx, "list_league_members", scope.values(), &resp); err != nil {
		return nil, wrapError(op, err)
	}
	return orEmpty(resp.Members), nil
}

// GetLeaderboard returns the league's standings, highest total first.
// Ties are ordered by user id.
func (c *Client) GetLeaderboard(ctx context.Context, leagueID, userUID string) ([]domain.LeaderboardEntry, error) {
	const op = "get leaderboard"

	scope := leagueScope{LeagueID: leagueID, UserUID: userUID}
	if err := c.validator.Validate(scope); err != nil {
		return nil, wrapError(op, err)
	}

	var resp leaderboardResponse
	if err := c.getJSON(ctx, "league_leaderboard", scope.values(), &resp); err != nil {
		return nil, wrapError(op, err)
	}
	entries := orEmpty(resp.Leaderboard)
	domain.SortLeaderboard(entries)
	return entries, nil
}

func (s leagueScope) values() url.Values {
	return url.Values{
		"league_id": {s.LeagueID},
		"user_uid":  {s.UserUID},
	}
}
