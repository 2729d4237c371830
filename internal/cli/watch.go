package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the task list every time it changes, until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	return withTasks(cmd, func(e *env) error {
		out := cmd.OutOrStdout()
		// the initial load already queued a notification
		select {
		case <-e.syncer.Updates():
		default:
		}
		printTasks(out, e.syncer.Tasks())
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case <-e.syncer.Updates():
				if !e.syncer.Live() {
					return fmt.Errorf("change feed closed")
				}
				fmt.Fprintln(out)
				printTasks(out, e.syncer.Tasks())
			}
		}
	})
}
