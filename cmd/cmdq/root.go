package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/cmdq"
	"github.com/xraph/cmdq/store/sqlite"
)

const defaultDBPath = "data/queue.sqlite"

var (
	dbPath  string
	verbose bool
	engine  *cmdq.Engine
)

var rootCmd = &cobra.Command{
	Use:   "cmdq",
	Short: "Persistent job queue for shell commands",
	Long: `cmdq is a persistent, single-node job queue. Jobs are shell commands
stored in an embedded SQLite database; workers claim and execute them
with bounded retries, exponential backoff, and a dead letter queue.

Priority is ascending: smaller values are more urgent (default 100).
run_at timestamps without a timezone designator are read as +05:30.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if engine != nil {
			return nil
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		s, err := sqlite.Open(cmd.Context(), dbPath, sqlite.WithLogger(logger))
		if err != nil {
			return err
		}
		// workerCount is parsed before pre-run fires, so the pool is
		// sized correctly when this bootstrap serves `worker start`.
		e, err := cmdq.New(
			cmdq.WithStore(s),
			cmdq.WithLogger(logger),
			cmdq.WithConcurrency(workerCount),
			cmdq.WithCronScheduler(),
		)
		if err != nil {
			return err
		}
		if err := e.Settings().Seed(cmd.Context()); err != nil {
			return err
		}
		engine = e
		return nil
	},
}

// Execute runs the CLI; any error exits with status 1.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath, "path to the SQLite database file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
