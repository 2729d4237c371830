package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"siraqemir/internal/models"
)

func printTasks(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tPRIORITY\tDUE\tTITLE")
	for _, t := range tasks {
		done := " "
		if t.Status == models.StatusCompleted {
			done = "x"
		}
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.String()
		}
		fmt.Fprintf(tw, "%s\t[%s]\t%s\t%s\t%s\n", t.ID, done, t.Priority, due, t.Title)
	}
	_ = tw.Flush()
}

func printTask(w io.Writer, prefix string, t *models.Task) {
	if t == nil {
		fmt.Fprintln(w, prefix)
		return
	}
	fmt.Fprintf(w, "%s %s %q (%s, %s)\n", prefix, t.ID, t.Title, t.Priority, t.Status)
}
