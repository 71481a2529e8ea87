package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/samber/do/v2"

	"github.com/trashtalkapp/trashtalk-client/internal/auth"
	"github.com/trashtalkapp/trashtalk-client/internal/controller"
	"github.com/trashtalkapp/trashtalk-client/internal/di/providers"
	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	"github.com/trashtalkapp/trashtalk-client/internal/proofimage"
)

var errNotSignedIn = errors.New("not signed in: run `trashtalk signin <email> <password>` first")

// app resolves services lazily so commands that never touch the network
// never build the API client.
type app struct {
	injector do.Injector
	out      io.Writer
}

func newApp(injector do.Injector, out io.Writer) *app {
	return &app{injector: injector, out: out}
}

func (a *app) identity() *auth.LocalProvider {
	return do.MustInvoke[*auth.LocalProvider](a.injector)
}

func (a *app) requireUser(ctx context.Context) (string, error) {
	uid, ok := a.identity().CurrentUserID(ctx)
	if !ok {
		return "", errNotSignedIn
	}
	return uid, nil
}

func (a *app) signUp(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("signup needs <email> <password> <display name>: %w", errUsage)
	}
	uid, err := a.identity().SignUp(ctx, args[0], args[1], strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed up and signed in as %s (%s)\n", args[0], uid)
	return nil
}

func (a *app) signIn(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("signin needs <email> <password>: %w", errUsage)
	}
	res := a.identity().SignIn(ctx, args[0], args[1])
	if !res.OK() {
		return res.Err()
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", args[0])
	return nil
}

func (a *app) signOut(ctx context.Context) error {
	if err := a.identity().SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) whoAmI(ctx context.Context) error {
	uid, err := a.requireUser(ctx)
	if err != nil {
		return err
	}
	profiles := do.MustInvoke[*providers.StoreHandle](a.injector)
	profile, err := profiles.GetProfile(ctx, uid)
	if err != nil {
		return err
	}
	printProfile(a.out, uid, profile)
	return nil
}

func (a *app) homeController(ctx context.Context) (*controller.Home, error) {
	if _, err := a.requireUser(ctx); err != nil {
		return nil, err
	}
	return do.MustInvoke[*controller.Home](a.injector), nil
}

func (a *app) home(ctx context.Context) error {
	home, err := a.homeController(ctx)
	if err != nil {
		return err
	}
	if err := home.LoadData(ctx); err != nil {
		return err
	}
	a.printHome(home.State())
	return nil
}

func (a *app) search(ctx context.Context, args []string) error {
	home, err := a.homeController(ctx)
	if err != nil {
		return err
	}
	if err := home.SearchLeagues(ctx, strings.Join(args, " ")); err != nil {
		return err
	}

	leagues := home.State().SearchResults
	if len(leagues) == 0 {
		fmt.Fprintln(a.out, "No leagues found.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, l := range leagues {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.ID, l.Name, l.Description)
	}
	return tw.Flush()
}

func (a *app) join(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("join needs <league id>: %w", errUsage)
	}
	home, err := a.homeController(ctx)
	if err != nil {
		return err
	}
	if err := home.JoinLeague(ctx, args[0]); err != nil {
		return err
	}
	a.printHome(home.State())
	return nil
}

func (a *app) createLeague(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("create-league needs <name>: %w", errUsage)
	}
	var description string
	if len(args) > 1 {
		description = strings.Join(args[1:], " ")
	}
	home, err := a.homeController(ctx)
	if err != nil {
		return err
	}
	if err := home.CreateLeague(ctx, args[0], description); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created league %s\n", home.State().Profile.LeagueID)
	a.printHome(home.State())
	return nil
}

func (a *app) leave(ctx context.Context) error {
	home, err := a.homeController(ctx)
	if err != nil {
		return err
	}
	if err := home.LeaveLeague(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Left league")
	return nil
}

func (a *app) complete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("complete", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	comment := fs.String("comment", "", "comment to attach")
	proofPath := fs.String("proof", "", "path to a proof image")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return fmt.Errorf("complete needs <chore id>: %w", errUsage)
	}
	choreID := fs.Arg(0)

	home, err := a.homeController(ctx)
	if err != nil {
		return err
	}
	if err := home.LoadData(ctx); err != nil {
		return err
	}
	st := home.State()
	if !st.Profile.HasLeague() {
		return errors.New("join a league before completing chores")
	}

	chore, ok := findChore(st.Chores, choreID)
	if !ok {
		return fmt.Errorf("chore %s is not in your league", choreID)
	}

	var attachment *domain.Attachment
	if *proofPath != "" {
		img, err := proofimage.Load(*proofPath)
		if err != nil {
			return err
		}
		attachment = &img.Attachment
		fmt.Fprintf(a.out, "Attaching %s (%dx%d, %s, placeholder %s)\n",
			img.Attachment.Filename, img.Width, img.Height, img.Format, img.BlurHash)
	}

	if err := home.CompleteChore(ctx, chore, *comment, attachment); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Completed %s (+%d)\n", chore.Name, chore.Points)
	a.printLeaderboard(home.State().Leaderboard)
	return nil
}

func (a *app) chores(ctx context.Context, args []string) error {
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}
	settings := do.MustInvoke[*controller.Settings](a.injector)
	if err := settings.LoadChores(ctx); err != nil {
		return err
	}
	if settings.State().LeagueID == "" {
		return errors.New("join a league before managing chores")
	}

	if len(args) == 0 {
		a.printChores(settings.State().Chores)
		return nil
	}

	sub, rest := args[0], args[1:]
	var err error
	switch sub {
	case "add":
		err = addChore(ctx, settings, rest)
	case "edit":
		err = editChore(ctx, settings, rest)
	case "delete":
		if len(rest) != 1 {
			return fmt.Errorf("chores delete needs <chore id>: %w", errUsage)
		}
		err = settings.DeleteChore(ctx, rest[0])
	default:
		return fmt.Errorf("unknown chores command %q: %w", sub, errUsage)
	}
	if err != nil {
		return err
	}
	a.printChores(settings.State().Chores)
	return nil
}

func addChore(ctx context.Context, settings *controller.Settings, args []string) error {
	fs := flag.NewFlagSet("chores add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	desc := fs.String("desc", "", "description")
	if err := fs.Parse(args); err != nil || fs.NArg() != 2 {
		return fmt.Errorf("chores add needs <name> <points>: %w", errUsage)
	}
	points, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("points must be a number: %w", errUsage)
	}
	return settings.AddChore(ctx, fs.Arg(0), *desc, points)
}

// editChore sends only the flags given on the command line, so "-points 0"
// and "no -points" stay different.
func editChore(ctx context.Context, settings *controller.Settings, args []string) error {
	fs := flag.NewFlagSet("chores edit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "new name")
	desc := fs.String("desc", "", "new description")
	points := fs.Int("points", 0, "new points")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return fmt.Errorf("chores edit needs <chore id>: %w", errUsage)
	}

	var patch domain.ChorePatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			patch.Name = name
		case "desc":
			patch.Description = desc
		case "points":
			patch.Points = points
		}
	})
	if patch.IsEmpty() {
		return fmt.Errorf("chores edit needs at least one of -name, -desc, -points: %w", errUsage)
	}
	return settings.UpdateChore(ctx, fs.Arg(0), patch)
}

func (a *app) timeline(ctx context.Context, args []string) error {
	uid, err := a.requireUser(ctx)
	if err != nil {
		return err
	}
	target := uid
	if len(args) > 0 {
		target = args[0]
	}

	timeline := do.MustInvoke[*controller.Timeline](a.injector)
	if err := timeline.LoadTimeline(ctx, target); err != nil {
		return err
	}

	st := timeline.State()
	if st.LeagueID == "" {
		fmt.Fprintln(a.out, "Not in a league.")
		return nil
	}
	if len(st.Completions) == 0 {
		fmt.Fprintln(a.out, "No completions yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tCHORE\tPOINTS\tCOMMENT\tPROOF")
	for _, c := range st.Completions {
		when := c.CompletedAt
		if t, ok := c.CompletedTime(); ok {
			when = t.Local().Format("Jan 2 15:04")
		}
		var comment string
		if c.Comments != nil {
			comment = *c.Comments
		}
		proof, _ := timeline.ProofImageURL(ctx, c)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", when, c.ChoreName, c.PointsEarned, comment, proof)
	}
	return tw.Flush()
}
