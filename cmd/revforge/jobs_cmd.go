package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/revforge/revforge/cmd/revforge/cli"
	"github.com/revforge/revforge/internal/app"
)

// runJobsCommand handles `revforge jobs trigger <task>` and
// `revforge jobs stats` for operators.
func runJobsCommand(ctx context.Context, args []string) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}

	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		slog.Default().Error("init jobs cli", slog.Any("error", err))
		return 1
	}
	defer func() {
		_ = jobsCLI.Close()
	}()

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: revforge jobs [trigger <task>|stats]")
		return 2
	}

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: revforge jobs trigger <task>")
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "trigger: %v\n", err)
			return 1
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", args[1], info.ID, info.Queue)
		return 0
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "stats: %v\n", err)
			return 1
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown jobs subcommand %q\n", args[0])
		return 2
	}
}
