package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"siraqemir/internal/models"
	"siraqemir/internal/tasksync"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your tasks, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Change a task; unset flags keep their current value",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Flip a task between pending and completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runToggle,
}

var rmCmd = &cobra.Command{
	Use:     "rm [id]",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

func init() {
	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringP("description", "d", "", "description, at most 500 characters")
		c.Flags().String("due", "", "due date, YYYY-MM-DD")
		c.Flags().StringP("priority", "p", "", "low, medium or high")
	}
	editCmd.Flags().StringP("title", "t", "", "new title")
	editCmd.Flags().StringP("status", "s", "", "pending or completed")

	rootCmd.AddCommand(listCmd, addCmd, editCmd, toggleCmd, rmCmd)
}

// withTasks runs fn with a signed-in, loaded syncer.
func withTasks(cmd *cobra.Command, fn func(e *env) error) (err error) {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.finish(&err)
	if err := e.requireUser(cmd.Context()); err != nil {
		return err
	}
	return fn(e)
}

func resultError(op string, res tasksync.Result) error {
	if res.Success {
		return nil
	}
	return fmt.Errorf("%s failed: %s", op, res.Message())
}

func findTask(e *env, id string) (models.Task, error) {
	for _, t := range e.syncer.Tasks() {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, fmt.Errorf("no task with id %s", id)
}

func runList(cmd *cobra.Command, _ []string) error {
	return withTasks(cmd, func(e *env) error {
		printTasks(cmd.OutOrStdout(), e.syncer.Tasks())
		return nil
	})
}

func runAdd(cmd *cobra.Command, args []string) error {
	in := models.TaskInput{Title: args[0]}
	in.Description, _ = cmd.Flags().GetString("description")
	in.DueDate, _ = cmd.Flags().GetString("due")
	in.Priority, _ = cmd.Flags().GetString("priority")

	return withTasks(cmd, func(e *env) error {
		res := e.syncer.Create(cmd.Context(), in)
		if err := resultError("add", res); err != nil {
			return err
		}
		printTask(cmd.OutOrStdout(), "Added", res.Task)
		return nil
	})
}

func runEdit(cmd *cobra.Command, args []string) error {
	return withTasks(cmd, func(e *env) error {
		current, err := findTask(e, args[0])
		if err != nil {
			return err
		}
		in := models.InputFromTask(current)
		flags := map[string]*string{
			"title":       &in.Title,
			"description": &in.Description,
			"due":         &in.DueDate,
			"priority":    &in.Priority,
			"status":      &in.Status,
		}
		for name, dst := range flags {
			if cmd.Flags().Changed(name) {
				*dst, _ = cmd.Flags().GetString(name)
			}
		}

		res := e.syncer.Update(cmd.Context(), current.ID, in)
		if err := resultError("edit", res); err != nil {
			return err
		}
		printTask(cmd.OutOrStdout(), "Updated", res.Task)
		return nil
	})
}

func runToggle(cmd *cobra.Command, args []string) error {
	return withTasks(cmd, func(e *env) error {
		current, err := findTask(e, args[0])
		if err != nil {
			return err
		}
		res := e.syncer.ToggleStatus(cmd.Context(), current)
		if err := resultError("toggle", res); err != nil {
			return err
		}
		printTask(cmd.OutOrStdout(), "Updated", res.Task)
		return nil
	})
}

func runRemove(cmd *cobra.Command, args []string) error {
	return withTasks(cmd, func(e *env) error {
		res := e.syncer.Delete(cmd.Context(), args[0])
		if err := resultError("rm", res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	})
}
