// Package cli implements the tasksync command, a terminal client of the
// task service built on the session and tasksync packages.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tasksync",
	Short: "Terminal client for the Sira Qemir task service",
	Long: `tasksync signs in to the task service and keeps a live copy of your
tasks. Set TASKS_SERVICE_URL and TASKS_API_KEY before use.`,
	SilenceUsage: true,
}

// Execute runs the root command; SIGINT and SIGTERM cancel its context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("session-file", "", "where tokens are kept (default $TASKS_SESSION_FILE or ~/.config/siraqemir/session.json)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log sync activity to stderr")
}
