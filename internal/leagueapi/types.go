package leagueapi

import "github.com/trashtalkapp/trashtalk-client/internal/domain"

// CreateChoreRequest adds a chore to a league's catalog.
type CreateChoreRequest struct {
	UserUID     string `json:"user_uid" validate:"required"`
	LeagueID    string `json:"league_id" validate:"required"`
	Name        string `json:"name" validate:"notblank"`
	Description string `json:"description"`
	Points      int    `json:"points" validate:"gte=0"`
}

// CompleteChoreRequest records one completion. Attachment is optional.
type CompleteChoreRequest struct {
	UserUID    string             `json:"user_uid" validate:"required"`
	LeagueID   string             `json:"league_id" validate:"required"`
	ChoreID    string             `json:"chore_id" validate:"required"`
	Comments   string             `json:"comments"`
	Attachment *domain.Attachment `json:"-" validate:"-"`
}

type createLeagueRequest struct {
	UserUID     string `json:"user_uid" validate:"required"`
	Name        string `json:"name" validate:"notblank"`
	Description string `json:"description"`
}

type membershipRequest struct {
	UserUID  string `json:"user_uid" validate:"required"`
	LeagueID string `json:"league_id" validate:"required"`
}

// editChoreRequest flattens the patch; nil patch fields are omitted entirely.
type editChoreRequest struct {
	UserUID string `json:"user_uid" validate:"required"`
	ChoreID string `json:"chore_id" validate:"required"`
	domain.ChorePatch
}

type deleteChoreRequest struct {
	UserUID string `json:"user_uid" validate:"required"`
	ChoreID string `json:"chore_id" validate:"required"`
}

type leagueScope struct {
	LeagueID string `json:"league_id" validate:"required"`
	UserUID  string `json:"user_uid" validate:"required"`
}

type completionsScope struct {
	LeagueID  string `json:"league_id" validate:"required"`
	TargetUID string `json:"target_uid" validate:"required"`
	UserUID   string `json:"user_uid" validate:"required"`
}

type proofScope struct {
	LeagueID string `json:"league_id" validate:"required"`
	UserUID  string `json:"user_uid" validate:"required"`
	Filename string `json:"f" validate:"required"`
}

// Raw API response types (internal)

type ackResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type createLeagueResponse struct {
	ackResponse
	LeagueID string `json:"league_id"`
}

type createChoreResponse struct {
	ackResponse
	ChoreID string `json:"chore_id"`
}

type completionResponse struct {
	ackResponse
	CompletionID string `json:"completion_id"`
}

type membersResponse struct {
	Members []domain.LeagueMember `json:"members"`
}

type leaderboardResponse struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type completionsResponse struct {
	Completions []domain.Completion `json:"completions"`
}
