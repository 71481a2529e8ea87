package domain

// Chore is a repeatable task worth a fixed number of points within one league.
// The league is implied by the query that returned it.
type Chore struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	CreatorUID  string `json:"creator_uid,omitempty"`
}

// ChorePatch is a partial chore update. Nil fields are left untouched
// server-side and must never be filled with defaults or prior values.
type ChorePatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Points      *int    `json:"points,omitempty" validate:"omitempty,gte=0"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ChorePatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Points == nil
}
