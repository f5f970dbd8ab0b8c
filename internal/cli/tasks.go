package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/procrastinator/internal/app"
	"github.com/example/procrastinator/internal/enrich"
	"github.com/example/procrastinator/internal/models"
	"github.com/example/procrastinator/internal/view"
)

func addCmd(e *env) *cobra.Command {
	var (
		category string
		priority string
		tags     []string
		due      string
		estimate time.Duration
	)
	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a task and wait for its excuses",
		Args:  cobra.MinimumNArgs(1),
		RunE: e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			d := models.Draft{
				Text:             strings.Join(args, " "),
				Category:         models.Category(category),
				Priority:         models.Priority(priority),
				Tags:             tags,
				EstimatedMinutes: int(estimate.Minutes()),
			}
			if due != "" {
				t, err := time.ParseInLocation("2006-01-02", due, time.Local)
				if err != nil {
					return fmt.Errorf("--due wants YYYY-MM-DD: %w", err)
				}
				d.DueDate = &t
			}
			id, err := a.Orchestrator.Submit(ctx, d)
			if err != nil {
				return err
			}
			a.Orchestrator.Wait()
			t, _ := a.Store.Get(id)
			printTask(cmd.OutOrStdout(), t, a.Pipeline.Attempt(id), time.Now())
			return nil
		}),
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "work, personal, study, health, finance, home or other")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag (repeatable, at most 5)")
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	cmd.Flags().DurationVar(&estimate, "estimate", 0, "estimated duration, e.g. 45m")
	return cmd
}

func filterFlags(cmd *cobra.Command) func() (view.Filter, error) {
	status := cmd.Flags().String("status", "", "filter by status")
	category := cmd.Flags().String("category", "", "filter by category")
	priority := cmd.Flags().String("priority", "", "filter by priority")
	tags := cmd.Flags().StringSlice("tag", nil, "require tag (repeatable)")
	return func() (view.Filter, error) {
		return view.ParseFilter(map[string][]string{
			"status":   {*status},
			"category": {*category},
			"priority": {*priority},
			"tag":      *tags,
		})
	}
}

func listCmd(e *env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally filtered",
	}
	filter := filterFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	cmd.RunE = e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
		f, err := filter()
		if err != nil {
			return err
		}
		list := view.Apply(a.Store.List().Tasks, f)
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), list)
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
			return nil
		}
		now := time.Now()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDUE\tTASK\tTAGS")
		for _, t := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				shortID(t.ID), t.Status, t.Priority, dueLabel(t, now), t.Text, strings.Join(t.Tags, ","))
		}
		return tw.Flush()
	})
	return cmd
}

func showCmd(e *env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task with its excuses and alternatives",
		Args:  cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			t, err := e.resolve(a, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), t)
			}
			printTask(cmd.OutOrStdout(), t, a.Pipeline.Attempt(t.ID), time.Now())
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func statusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a task to not_started, in_progress or done",
		Args:  cobra.ExactArgs(2),
		RunE: e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			t, err := e.resolve(a, args[0])
			if err != nil {
				return err
			}
			st, ok := models.ParseStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown status %q", args[1])
			}
			if err := a.Store.SetStatus(t.ID, st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", shortID(t.ID), st)
			return nil
		}),
	}
}

func doneCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task between done and not started",
		Args:  cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			t, err := e.resolve(a, args[0])
			if err != nil {
				return err
			}
			st, err := a.Store.ToggleCompleted(t.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", shortID(t.ID), st)
			return nil
		}),
	}
}

func rmCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			t, err := e.resolve(a, args[0])
			if err != nil {
				return err
			}
			if _, err := a.Orchestrator.Delete(t.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", t.Text)
			return nil
		}),
	}
}

func tagCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Add or remove task tags",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <id> <tag>",
		Short: "Add a tag",
		Args:  cobra.ExactArgs(2),
		RunE: e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			t, err := e.resolve(a, args[0])
			if err != nil {
				return err
			}
			if err := a.Store.AddTag(t.ID, args[1]); err != nil {
				return err
			}
			t, _ = a.Store.Get(t.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "tags: %s\n", strings.Join(t.Tags, ", "))
			return nil
		}),
	}, &cobra.Command{
		Use:   "rm <id> <tag>",
		Short: "Remove a tag",
		Args:  cobra.ExactArgs(2),
		RunE: e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			t, err := e.resolve(a, args[0])
			if err != nil {
				return err
			}
			if err := a.Store.RemoveTag(t.ID, args[1]); err != nil {
				return err
			}
			t, _ = a.Store.Get(t.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "tags: %s\n", strings.Join(t.Tags, ", "))
			return nil
		}),
	})
	return cmd
}

func regenCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "regen <id>",
		Short: "Generate fresh excuses in the current tone",
		Args:  cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			t, err := e.resolve(a, args[0])
			if err != nil {
				return err
			}
			if _, err := a.Orchestrator.Regenerate(ctx, t.ID); err != nil {
				return fmt.Errorf("regenerate %s: %w", shortID(t.ID), err)
			}
			t, _ = a.Store.Get(t.ID)
			printTask(cmd.OutOrStdout(), t, a.Pipeline.Attempt(t.ID), time.Now())
			return nil
		}),
	}
}

func postponeCmd(e *env) *cobra.Command {
	var by time.Duration
	cmd := &cobra.Command{
		Use:   "postpone <id>",
		Short: "Push the due date back",
		Args:  cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			t, err := e.resolve(a, args[0])
			if err != nil {
				return err
			}
			due, err := a.Store.Postpone(t.ID, by)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now due %s\n", shortID(t.ID), due.Local().Format("Mon 2 Jan 15:04"))
			return nil
		}),
	}
	cmd.Flags().DurationVar(&by, "by", 24*time.Hour, "how far to push the due date")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dueLabel(t models.Task, now time.Time) string {
	if t.DueDate == nil {
		return "-"
	}
	label := t.DueDate.Local().Format("2006-01-02")
	switch view.DueState(t, now) {
	case view.DueOverdue:
		label += " (overdue)"
	case view.DueToday:
		label += " (today)"
	}
	return label
}

func printTask(w io.Writer, t models.Task, at enrich.Attempt, now time.Time) {
	fmt.Fprintf(w, "%s  %s\n", shortID(t.ID), t.Text)
	fmt.Fprintf(w, "  status: %s  priority: %s", t.Status, t.Priority)
	if t.Category != "" {
		fmt.Fprintf(w, "  category: %s", t.Category)
	}
	fmt.Fprintln(w)
	if len(t.Tags) > 0 {
		fmt.Fprintf(w, "  tags: %s\n", strings.Join(t.Tags, ", "))
	}
	if t.DueDate != nil {
		fmt.Fprintf(w, "  due: %s\n", dueLabel(t, now))
	}
	if len(t.Subtasks) > 0 {
		fmt.Fprintf(w, "  subtasks: %d%% done\n", view.Progress(t))
	}
	if !t.Enriched() {
		switch at.State {
		case enrich.StateFailed:
			fmt.Fprintf(w, "  excuses unavailable: %s (try regen)\n", at.Message())
		case enrich.StateInFlight:
			fmt.Fprintln(w, "  thinking of excuses...")
		default:
			fmt.Fprintln(w, "  no excuses yet (try regen)")
		}
		return
	}
	fmt.Fprintf(w, "  level: %s\n  excuses:\n", t.Level)
	for i, x := range t.Excuses {
		fmt.Fprintf(w, "    %d. %s\n", i+1, x)
	}
	fmt.Fprintln(w, "  instead you could:")
	for i, x := range t.Alternatives {
		fmt.Fprintf(w, "    %d. %s\n", i+1, x)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
