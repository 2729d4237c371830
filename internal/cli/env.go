package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"siraqemir/internal/config"
	"siraqemir/internal/remote"
	"siraqemir/internal/session"
	"siraqemir/internal/tasksync"
)

var errSignedOut = errors.New("not signed in; run 'tasksync login' first")

// env is the client stack for one command invocation.
type env struct {
	client  *remote.Client
	session *session.Manager
	syncer  *tasksync.Syncer
	path    string
	unbind  func()
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	path, err := sessionPath(cmd)
	if err != nil {
		return nil, err
	}
	tokens, err := loadTokens(path)
	if err != nil {
		return nil, err
	}

	client := remote.New(cfg, remote.WithTokens(tokens))
	logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		logger.SetOutput(io.Discard)
	}
	e := &env{
		client:  client,
		session: session.NewManager(client, session.WithLogger(logger)),
		syncer:  tasksync.NewSyncer(client, tasksync.WithLogger(logger)),
		path:    path,
	}
	return e, nil
}

// restore resolves the saved session and, when signed in, loads the task list.
func (e *env) restore(ctx context.Context) error {
	e.unbind = session.Bind(ctx, e.session, e.syncer)
	if res := e.session.Restore(ctx); !res.Success {
		return fmt.Errorf("failed to restore session: %w", res.Err)
	}
	return nil
}

func (e *env) requireUser(ctx context.Context) error {
	if err := e.restore(ctx); err != nil {
		return err
	}
	if e.session.State().User == nil {
		return errSignedOut
	}
	if !e.syncer.Live() {
		return errors.New("could not open the change feed")
	}
	return nil
}

// close stops the feed and persists whatever tokens the client holds now.
func (e *env) close() error {
	if e.unbind != nil {
		e.unbind()
	}
	if err := saveTokens(e.path, e.client.Tokens()); err != nil {
		return fmt.Errorf("failed to save session to %s: %w", e.path, err)
	}
	return nil
}

// finish closes e and reports the close error unless *err is already set.
func (e *env) finish(err *error) {
	if cerr := e.close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
