// Package cli is the procrastinate command line. Commands open the data directory
// directly and write the whole collection back on every change, so only one process
// (a command or `serve`) may use a data directory at a time. Use the HTTP API to
// change tasks while a server is running.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/procrastinator/internal/app"
	"github.com/example/procrastinator/internal/config"
	"github.com/example/procrastinator/internal/models"
)

type env struct {
	dataDir string
	verbose bool
	opts    []app.Option

	cfg *config.Config
	app *app.App
}

// config resolves settings once; --data-dir wins over everything else.
func (e *env) config() (*config.Config, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}
	cfg, err := config.LoadDir(e.dataDir)
	if err != nil {
		return nil, err
	}
	e.cfg = cfg
	return cfg, nil
}

func (e *env) logger() *log.Logger {
	if !e.verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "[procrastinate] ", log.LstdFlags|log.Lmicroseconds)
}

func (e *env) open(ctx context.Context) (*app.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, e.logger(), e.opts...)
	if err != nil {
		return nil, err
	}
	e.app = a
	return a, nil
}

type runFunc func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error

// run opens the app for one command and closes it afterwards, which waits for any
// enrichment the command started.
func (e *env) run(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := e.open(cmd.Context())
		if err != nil {
			return err
		}
		runErr := fn(cmd.Context(), a, cmd, args)
		return errors.Join(runErr, e.close())
	}
}

func (e *env) close() error {
	if e.app == nil {
		return nil
	}
	err := e.app.Close()
	e.app = nil
	return err
}

// resolve accepts a full id or an unambiguous prefix of one.
func (e *env) resolve(a *app.App, arg string) (models.Task, error) {
	if t, ok := a.Store.Get(arg); ok {
		return t, nil
	}
	var hits []models.Task
	for _, t := range a.Store.List().Tasks {
		if strings.HasPrefix(t.ID, arg) {
			hits = append(hits, t)
		}
	}
	switch len(hits) {
	case 0:
		return models.Task{}, fmt.Errorf("no task matches %q", arg)
	case 1:
		return hits[0], nil
	}
	return models.Task{}, fmt.Errorf("%q matches %d tasks, use more of the id", arg, len(hits))
}

// NewRootCmd builds the command tree. opts are passed to app.New; tests use them to
// swap storage and the generator.
func NewRootCmd(opts ...app.Option) *cobra.Command {
	e := &env{opts: opts}
	root := &cobra.Command{
		Use:           "procrastinate",
		Short:         "Track the tasks you are avoiding, with excuses to match",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&e.dataDir, "data-dir", "", "directory holding tasks.json and aiTone.json")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		addCmd(e),
		listCmd(e),
		showCmd(e),
		statusCmd(e),
		doneCmd(e),
		rmCmd(e),
		tagCmd(e),
		regenCmd(e),
		postponeCmd(e),
		toneCmd(e),
		boardCmd(e),
		importCmd(e),
		serveCmd(e),
		configCmd(e),
	)
	return root
}

// Execute runs the CLI with os.Args.
func Execute(version string) error {
	root := NewRootCmd()
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
