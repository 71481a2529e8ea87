// Package main is the trashtalk command-line client.
//
// Usage:
//
//	trashtalk [config flags] <command> [args]
//
// Run "trashtalk help" for the command list.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/trashtalkapp/trashtalk-client/internal/config"
	"github.com/trashtalkapp/trashtalk-client/internal/di"
	"github.com/trashtalkapp/trashtalk-client/internal/logger"
)

var errUsage = errors.New("usage")

func main() {
	cfg, args, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}

	injector := di.NewContainer(cfg)
	log := do.MustInvoke[*logger.Logger](injector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, newApp(injector, os.Stdout), args)
	stop()

	if shutdownErr := injector.Shutdown(); shutdownErr != nil {
		log.Debug("Shutdown", "report", shutdownErr)
	}

	switch {
	case errors.Is(err, errUsage):
		printUsage(os.Stderr)
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "signup":
		return a.signUp(ctx, rest)
	case "signin":
		return a.signIn(ctx, rest)
	case "signout":
		return a.signOut(ctx)
	case "whoami":
		return a.whoAmI(ctx)
	case "home":
		return a.home(ctx)
	case "search":
		return a.search(ctx, rest)
	case "join":
		return a.join(ctx, rest)
	case "create-league":
		return a.createLeague(ctx, rest)
	case "leave":
		return a.leave(ctx)
	case "complete":
		return a.complete(ctx, rest)
	case "chores":
		return a.chores(ctx, rest)
	case "timeline":
		return a.timeline(ctx, rest)
	case "help", "-h", "--help":
		printUsage(a.out)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: trashtalk [config flags] <command> [args]

Account:
  signup <email> <password> <display name>
  signin <email> <password>
  signout
  whoami

League:
  home                                 profile, leaderboard and chores
  search <query>                       find leagues to join
  join <league id>
  create-league <name> [description]
  leave

Chores:
  complete [-comment text] [-proof image] <chore id>
  chores                               list the league's chores
  chores add [-desc text] <name> <points>
  chores edit [-name n] [-desc d] [-points p] <chore id>
  chores delete <chore id>

History:
  timeline [user id]                   completions, defaults to you

Config flags (before the command): -api-url, -data-path, -log-level,
-stale-guard, -env-file. Run with -h for all of them.
`)
}
