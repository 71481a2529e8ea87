// Package domain holds the entities shared by the API client, the profile
// store and the view-state controllers.
package domain

// UserProfile is the document kept in the profile store for each user.
// It is always written whole; there is no field-level update.
type UserProfile struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	LeagueID    string `json:"leagueID"` // empty when the user is in no league
	Points      int64  `json:"points"`
}

// NewUserProfile returns the profile created at sign-up: no league, zero points.
func NewUserProfile(displayName, email string) *UserProfile {
	return &UserProfile{
		DisplayName: displayName,
		Email:       email,
	}
}

// HasLeague reports whether the profile references a league.
func (p *UserProfile) HasLeague() bool {
	return p != nil && p.LeagueID != ""
}

// WithLeague returns a copy of the profile pointing at leagueID.
func (p UserProfile) WithLeague(leagueID string) *UserProfile {
	p.LeagueID = leagueID
	return &p
}
