package leagueapi

import (
	"context"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
)

// ListChores returns the chore catalog of leagueID.
func (c *Client) ListChores(ctx context.Context, leagueID, userUID string) ([]domain.Chore, error) {
	const op = "list chores"

	scope := leagueScope{LeagueID: leagueID, UserUID: userUID}
	if err := c.validator.Validate(scope); err != nil {
		return nil, wrapError(op, err)
	}

	var chores []domain.Chore
	if err := c.getJSON(ctx, "list_chores", scope.values(), &chores); err != nil {
		return nil, wrapError(op, err)
	}
	return orEmpty(chores), nil
}

// CreateChore adds a chore and returns its id.
func (c *Client) CreateChore(ctx context.Context, req CreateChoreRequest) (string, error) {
	const op = "create chore"

	if err := c.validator.Validate(req); err != nil {
		return "", wrapError(op, err)
	}

	var resp createChoreResponse
	if err := c.postJSON(ctx, "create_chore", req, &resp); err != nil {
		return "", wrapError(op, err)
	}
	if !resp.Success {
		return "", wrapError(op, rejected(op, resp.Error))
	}
	if resp.ChoreID == "" {
		return "", wrapError(op, clienterrors.Server("missing chore_id in response"))
	}
	return resp.ChoreID, nil
}

// EditChore applies a partial update. Only the non-nil fields of patch are
// sent; the server leaves the rest untouched.
func (c *Client) EditChore(ctx context.Context, userUID, choreID string, patch domain.ChorePatch) error {
	const op = "edit chore"

	if patch.IsEmpty() {
		return wrapError(op, clienterrors.Validation("nothing to update"))
	}
	req := editChoreRequest{UserUID: userUID, ChoreID: choreID, ChorePatch: patch}
	if err := c.validator.Validate(req); err != nil {
		return wrapError(op, err)
	}

	var resp ackResponse
	if err := c.postJSON(ctx, "edit_chore", req, &resp); err != nil {
		return wrapError(op, err)
	}
	if !resp.Success {
		return wrapError(op, rejected(op, resp.Error))
	}
	return nil
}

// DeleteChore removes a chore from its league's catalog.
func (c *Client) DeleteChore(ctx context.Context, userUID, choreID string) error {
	const op = "delete chore"

	req := deleteChoreRequest{UserUID: userUID, ChoreID: choreID}
	if err := c.validator.Validate(req); err != nil {
		return wrapError(op, err)
	}

	var resp ackResponse
	if err := c.postJSON(ctx, "delete_chore", req, &resp); err != nil {
		return wrapError(op, err)
	}
	if !resp.Success {
		return wrapError(op, rejected(op, resp.Error))
	}
	return nil
}
