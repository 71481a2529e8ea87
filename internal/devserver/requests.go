package devserver

import (
	"net/http"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
)

type createLeagueBody struct {
	UserUID     string `json:"user_uid" validate:"required"`
	Name        string `json:"name" validate:"notblank,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type membershipBody struct {
	UserUID  string `json:"user_uid" validate:"required"`
	LeagueID string `json:"league_id" validate:"required"`
}

type createChoreBody struct {
	UserUID     string `json:"user_uid" validate:"required"`
	LeagueID    string `json:"league_id" validate:"required"`
	Name        string `json:"name" validate:"notblank,max=100"`
	Description string `json:"description" validate:"max=500"`
	Points      int    `json:"points" validate:"gte=0"`
}

type editChoreBody struct {
	UserUID string `json:"user_uid" validate:"required"`
	ChoreID string `json:"chore_id" validate:"required"`
	domain.ChorePatch
}

type choreRefBody struct {
	UserUID string `json:"user_uid" validate:"required"`
	ChoreID string `json:"chore_id" validate:"required"`
}

type completeChoreForm struct {
	UserUID  string `json:"user_uid" validate:"required"`
	LeagueID string `json:"league_id" validate:"required"`
	ChoreID  string `json:"chore_id" validate:"required"`
	Comments string `json:"comments" validate:"max=1000"`
}

type leagueScopeQuery struct {
	LeagueID string `json:"league_id" validate:"required"`
	UserUID  string `json:"user_uid" validate:"required"`
}

func leagueScopeFrom(r *http.Request) leagueScopeQuery {
	q := r.URL.Query()
	return leagueScopeQuery{LeagueID: q.Get("league_id"), UserUID: q.Get("user_uid")}
}

type completionsQuery struct {
	LeagueID  string `json:"league_id" validate:"required"`
	TargetUID string `json:"target_uid" validate:"required"`
	UserUID   string `json:"user_uid" validate:"required"`
}

type proofQuery struct {
	Filename string `json:"f" validate:"required"`
	UserUID  string `json:"u" validate:"required"`
	Token    string `json:"t" validate:"required,len=64,hexadecimal"`
}
