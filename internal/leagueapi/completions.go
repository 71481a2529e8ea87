package leagueapi

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
	"github.com/trashtalkapp/trashtalk-client/internal/prooftoken"
)

const defaultProofFilename = "proof.jpg"

// CompleteChore submits a completion as multipart form data and returns the
// completion id. The proof_image part is only present with an attachment.
func (c *Client) CompleteChore(ctx context.Context, req CompleteChoreRequest) (string, error) {
	const op = "complete chore"

	if err := c.validator.Validate(req); err != nil {
		return "", wrapError(op, err)
	}

	body, contentType, err := encodeCompletion(req)
	if err != nil {
		return "", wrapError(op, clienterrors.Wrap(err, clienterrors.CodeInternal, "encode request"))
	}

	data, err := c.doRequest(ctx, http.MethodPost, "complete_chore", nil, body, contentType)
	if err != nil {
		return "", wrapError(op, err)
	}

	var resp completionResponse
	if err := decode(data, &resp); err != nil {
		return "", wrapError(op, err)
	}
	if !resp.Success {
		return "", wrapError(op, rejected(op, resp.Error))
	}
	if resp.CompletionID == "" {
		return "", wrapError(op, clienterrors.Server("missing completion_id in response"))
	}
	return resp.CompletionID, nil
}

func encodeCompletion(req CompleteChoreRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"user_uid", req.UserUID},
		{"league_id", req.LeagueID},
		{"chore_id", req.ChoreID},
		{"comments", req.Comments},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if a := req.Attachment; a != nil {
		filename := a.Filename
		if filename == "" {
			filename = defaultProofFilename
		}
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="proof_image"; filename=%q`, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(a.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// GetUserCompletions returns targetUID's completion history, authorized by
// requesterUID's membership in leagueID.
func (c *Client) GetUserCompletions(ctx context.Context, leagueID, targetUID, requesterUID string) ([]domain.Completion, error) {
	const op = "get user completions"

	scope := completionsScope{LeagueID: leagueID, TargetUID: targetUID, UserUID: requesterUID}
	if err := c.validator.Validate(scope); err != nil {
		return nil, wrapError(op, err)
	}

	query := url.Values{
		"league_id":  {leagueID},
		"target_uid": {targetUID},
		"user_uid":   {requesterUID},
	}
	var resp completionsResponse
	if err := c.getJSON(ctx, "user_completed_chores", query, &resp); err != nil {
		return nil, wrapError(op, err)
	}
	return orEmpty(resp.Completions), nil
}

// ProofImageURL returns the tokenized URL for a proof image. It needs no
// network access and is suitable for handing to an image loader.
func (c *Client) ProofImageURL(leagueID, requesterUID, filename string) string {
	return prooftoken.URLFor(c.baseURL, leagueID, requesterUID, filename)
}

// FetchProofImage downloads a proof image. A token the server rejects comes
// back as a FORBIDDEN error.
func (c *Client) FetchProofImage(ctx context.Context, leagueID, requesterUID, filename string) ([]byte, error) {
	const op = "fetch proof image"

	scope := proofScope{LeagueID: leagueID, UserUID: requesterUID, Filename: strings.TrimSpace(filename)}
	if err := c.validator.Validate(scope); err != nil {
		return nil, wrapError(op, err)
	}

	query := url.Values{
		"f": {filename},
		"u": {requesterUID},
		"t": {prooftoken.Token(leagueID, requesterUID)},
	}
	data, err := c.doRequest(ctx, http.MethodGet, "view_proof_image", query, nil, "")
	if err != nil {
		return nil, wrapError(op, err)
	}
	return data, nil
}
