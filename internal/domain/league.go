package domain

import (
	"cmp"
	"slices"
)

// League is a group of users sharing a chore catalog and a leaderboard.
type League struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LeaderboardEntry is one member's aggregated standing in a league.
// Totals are computed server-side; the client never derives them.
type LeaderboardEntry struct {
	UserUID        string `json:"user_uid"`
	TotalPoints    int    `json:"total_points"`
	CompletedCount int    `json:"completed_count"`
	DisplayName    string `json:"display_name,omitempty"`
}

// LeagueMember has the same shape as a leaderboard row.
type LeagueMember = LeaderboardEntry

// Name returns the display name, falling back to the user id.
func (e LeaderboardEntry) Name() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.UserUID
}

// SortLeaderboard orders entries by total points, highest first.
// Ties are broken by user id so the order is deterministic.
func SortLeaderboard(entries []LeaderboardEntry) {
	slices.SortStableFunc(entries, func(a, b LeaderboardEntry) int {
		if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
			return c
		}
		return cmp.Compare(a.UserUID, b.UserUID)
	})
}
