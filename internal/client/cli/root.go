package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/fittrack-backend/internal/client/api"
	"github.com/sandeepkv93/fittrack-backend/internal/client/session"
	"github.com/sandeepkv93/fittrack-backend/internal/tools/common"
	"github.com/sandeepkv93/fittrack-backend/internal/tools/ui"
)

const ciTimeout = time.Minute

type options struct {
	server   string
	dbPath   string
	ci       bool
	prompter Prompter
}

type Option func(*options)

func WithPrompter(p Prompter) Option {
	return func(o *options) { o.prompter = p }
}

func NewRootCommand(opts ...Option) *cobra.Command {
	o := &options{prompter: termPrompter{}}
	for _, opt := range opts {
		opt(o)
	}
	server := os.Getenv("FITTRACK_SERVER")
	if server == "" {
		server = "http://localhost:8080"
	}

	cmd := &cobra.Command{
		Use:           "fitctl",
		Short:         "Command line client for the fittrack API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&o.server, "server", server, "API base URL")
	cmd.PersistentFlags().StringVar(&o.dbPath, "db", session.DefaultPath(), "session cache file")
	cmd.PersistentFlags().BoolVar(&o.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newSignupCommand(o),
		newLoginCommand(o),
		newLogoutCommand(o),
		newWhoamiCommand(o),
		newStatusCommand(o),
		newPlansCommand(o),
		newExercisesCommand(o),
		newLogCommand(o),
		newLogsCommand(o),
	)
	return cmd
}

// execute opens the session cache, runs fn against a client and reports the
// outcome as a CI JSON line or through the terminal UI.
func (o *options) execute(cmd *cobra.Command, title string, fn func(context.Context, *api.Client) ([]string, error)) error {
	store, err := session.Open(o.dbPath)
	if err != nil {
		return o.report(cmd, title, nil, err)
	}
	defer func() { _ = store.Close() }()
	client := api.New(o.server, store)

	task := func(ctx context.Context) ([]string, error) { return fn(ctx, client) }
	if o.ci {
		ctx, cancel := context.WithTimeout(cmd.Context(), ciTimeout)
		defer cancel()
		details, err := task(ctx)
		return o.report(cmd, title, details, err)
	}
	_, err = ui.Run(title, task)
	return markShown(err)
}

func (o *options) report(cmd *cobra.Command, title string, details []string, err error) error {
	if o.ci {
		common.WriteCIResult(cmd.OutOrStdout(), err == nil, title, details, err)
		return markShown(err)
	}
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), ui.RenderResult(title, details, err))
	return markShown(err)
}

// shownError marks an error the command already rendered to the user.
type shownError struct{ err error }

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

func markShown(err error) error {
	if err == nil {
		return nil
	}
	return &shownError{err: err}
}

// Execute runs cmd and returns the process exit code. Failures cobra raises
// itself, such as unknown commands or bad flags, are printed to stderr.
func Execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	var shown *shownError
	if !errors.As(err, &shown) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
	}
	return 1
}
