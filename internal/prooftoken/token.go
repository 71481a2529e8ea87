// Package prooftoken derives the capability token that lets a league member
// fetch proof images from a context that cannot attach session credentials.
//
// The token is hex(sha256(leagueID + requesterUID + Salt)). The view endpoint
// recomputes it from the image's owning league and the requester id it receives
// as a query parameter, and answers 403 on mismatch.
//
// Known weakness: the token is a function of (league, requester) only. It is
// not bound to a filename, a completion or an expiry, and the salt ships inside
// every client. Any member of a league can mint a token that opens every proof
// image in that league, forever. Closing this requires a server contract change,
// so the scheme is reproduced exactly here for compatibility.
package prooftoken

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"strings"
)

// Salt is the fixed shared salt the backend expects.
const Salt = "simple_salt"

// ViewEndpoint is the path of the proof image endpoint relative to the API base.
const ViewEndpoint = "view_proof_image.php"

// Token returns the access token for requesterUID reading leagueID's images.
// Inputs are concatenated with no separator in this exact order.
func Token(leagueID, requesterUID string) string {
	sum := sha256.Sum256([]byte(leagueID + requesterUID + Salt))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether token was minted for (leagueID, requesterUID).
func Verify(leagueID, requesterUID, token string) bool {
	want := Token(leagueID, requesterUID)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(token))) == 1
}

// ViewURL builds the tokenized URL for filename under baseURL.
func ViewURL(baseURL, filename, requesterUID, token string) string {
	q := url.Values{}
	q.Set("f", filename)
	q.Set("u", requesterUID)
	q.Set("t", token)

	base := baseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + ViewEndpoint + "?" + q.Encode()
}

// URLFor derives the token and builds the view URL in one step.
func URLFor(baseURL, leagueID, requesterUID, filename string) string {
	return ViewURL(baseURL, filename, requesterUID, Token(leagueID, requesterUID))
}
