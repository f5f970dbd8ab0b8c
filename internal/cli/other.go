package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/procrastinator/internal/api"
	"github.com/example/procrastinator/internal/app"
	"github.com/example/procrastinator/internal/config"
	"github.com/example/procrastinator/internal/importer"
	"github.com/example/procrastinator/internal/models"
	"github.com/example/procrastinator/internal/view"
)

func toneCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tone [name]",
		Short: "Show or change the narrative tone of generated excuses",
		Args:  cobra.MaximumNArgs(1),
		RunE: e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				tone, err := a.Prefs.SetTone(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "tone set to %s\n", tone)
				return nil
			}
			current := a.Prefs.Tone()
			for _, t := range models.Tones {
				mark := " "
				if t == current {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s\n", mark, t)
			}
			return nil
		}),
	}
}

func boardCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show tasks grouped by status",
	}
	filter := filterFlags(cmd)
	cmd.RunE = e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
		f, err := filter()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, col := range view.Board(view.Apply(a.Store.List().Tasks, f)) {
			fmt.Fprintf(out, "== %s (%d)\n", col.Status, len(col.Tasks))
			for _, t := range col.Tasks {
				fmt.Fprintf(out, "  %s  %s\n", shortID(t.ID), t.Text)
			}
		}
		return nil
	})
	return cmd
}

func importCmd(e *env) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create tasks from a text, markdown, CSV, HTML or PDF checklist",
		Args:  cobra.ExactArgs(1),
		RunE: e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			res, err := importer.FromFile(args[0])
			if err != nil {
				return err
			}
			for _, r := range res.Reasons {
				fmt.Fprintf(out, "skipped %s\n", r)
			}
			if dryRun {
				for _, d := range res.Drafts {
					fmt.Fprintf(out, "would add %q\n", d.Text)
				}
				return nil
			}
			ids, errs := a.Orchestrator.SubmitAll(ctx, res.Drafts)
			for _, err := range errs {
				fmt.Fprintf(out, "rejected %v\n", err)
			}
			a.Orchestrator.Wait()
			pending := 0
			for _, id := range ids {
				if t, ok := a.Store.Get(id); ok && view.Pending(t) {
					pending++
				}
			}
			fmt.Fprintf(out, "imported %d tasks (%d skipped, %d without excuses)\n", len(ids), res.Skipped+len(errs), pending)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse only, create nothing")
	return cmd
}

func serveCmd(e *env) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API on this data directory",
		RunE: e.run(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.Config.Addr()
			}
			logger := e.logger()
			srv := api.NewServer(api.Deps{
				Orchestrator: a.Orchestrator,
				Generator:    a.Generator,
				Logger:       logger,
				CORSOrigins:  a.Config.CORSOrigins,
			})
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)
			return api.Serve(ctx, addr, srv.Handler(), logger)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from PORT)")
	return cmd
}

func configCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.config()
			if err != nil {
				return err
			}
			c := *cfg
			c.LLM.OpenAIKey = mask(c.LLM.OpenAIKey)
			c.LLM.AnthropicKey = mask(c.LLM.AnthropicKey)
			c.LLM.GoogleKey = mask(c.LLM.GoogleKey)
			out, err := yaml.Marshal(c)
			if err != nil {
				return err
			}
			if c.File != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# from %s\n", c.File)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}, &cobra.Command{
		Use:   "init",
		Short: "Write a default config file into the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.config()
			if err != nil {
				return err
			}
			path := config.Path(cfg.DataDir)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})
	return cmd
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
