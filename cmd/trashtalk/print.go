package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/trashtalkapp/trashtalk-client/internal/controller"
	"github.com/trashtalkapp/trashtalk-client/internal/domain"
)

func printProfile(w io.Writer, uid string, p *domain.UserProfile) {
	fmt.Fprintf(w, "%s <%s>\n", p.DisplayName, p.Email)
	fmt.Fprintf(w, "  user:   %s\n", uid)
	if p.HasLeague() {
		fmt.Fprintf(w, "  league: %s\n", p.LeagueID)
	} else {
		fmt.Fprintln(w, "  league: none")
	}
}

func (a *app) printHome(st controller.HomeState) {
	if st.Profile == nil {
		return
	}
	if !st.Profile.HasLeague() {
		fmt.Fprintf(a.out, "Hi %s, you're not in a league yet.\n", st.Profile.DisplayName)
		fmt.Fprintln(a.out, "Find one with `trashtalk search <name>` or start one with `trashtalk create-league <name>`.")
		return
	}
	fmt.Fprintf(a.out, "League %s\n\n", st.Profile.LeagueID)
	a.printLeaderboard(st.Leaderboard)
	fmt.Fprintln(a.out)
	a.printChores(st.Chores)
}

func (a *app) printLeaderboard(entries []domain.LeaderboardEntry) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tMEMBER\tPOINTS\tDONE")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", i+1, e.Name(), e.TotalPoints, e.CompletedCount)
	}
	_ = tw.Flush()
}

func (a *app) printChores(chores []domain.Chore) {
	if len(chores) == 0 {
		fmt.Fprintln(a.out, "No chores yet. Add one with `trashtalk chores add <name> <points>`.")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCHORE\tPOINTS\tDESCRIPTION")
	for _, c := range chores {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ID, c.Name, c.Points, c.Description)
	}
	_ = tw.Flush()
}

func findChore(chores []domain.Chore, id string) (domain.Chore, bool) {
	for _, c := range chores {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Chore{}, false
}
