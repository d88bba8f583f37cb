// Package cli implements docvaultctl, the operator tool for migrations, policy
// checks and version maintenance.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docvault/internal/app"
	"docvault/internal/config"
	"docvault/internal/database/migration"
	"docvault/internal/logger"
	"docvault/internal/model"
	"docvault/internal/versioning"
)

// Injected at build time using ldflags.
var (
	version = ""
	commit  = ""
)

// Backend is the part of the versioning engine the commands drive.
type Backend interface {
	Policy(ctx context.Context, orgID string, category model.Category) (model.VersioningPolicy, error)
	Versions(ctx context.Context, ref model.DocumentRef) ([]model.DocumentVersion, error)
	EnforceRetention(ctx context.Context, ref model.DocumentRef, maxVersions int) (versioning.RetentionReport, error)
}

// Session is one opened set of dependencies. Close is always called.
type Session struct {
	Backend Backend
	Migrate func(ctx context.Context) error
	Close   func() error
}

// RootOptions carries the streams and the session factory shared by all commands.
type RootOptions struct {
	Out    io.Writer
	ErrOut io.Writer
	Open   func(ctx context.Context, o *RootOptions) (*Session, error)
}

// NewRootCommand creates docvaultctl with the environment-backed session factory.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
		Open:   openSession,
	})
}

// NewRootCommandWithOptions creates docvaultctl and its nested children.
func NewRootCommandWithOptions(o *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "docvaultctl [command]",
		Version:       versionInfo(),
		Short:         "Operate a docvault deployment",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(o.Out)
	cmd.SetErr(o.ErrOut)

	cmd.AddCommand(NewMigrateCommand(o))
	cmd.AddCommand(NewPolicyCommand(o))
	cmd.AddCommand(NewVersionsCommand(o))
	return cmd
}

// Execute runs the root command until it finishes or the process is interrupted
// and returns the exit code.
func Execute(cmd *cobra.Command) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

func openSession(ctx context.Context, o *RootOptions) (*Session, error) {
	cfg := config.Load()
	log := logger.New(o.ErrOut, logger.Location(cfg.Log.Timezone), cfg.Log.Level)
	a, err := app.New(ctx, cfg, log, nil)
	if err != nil {
		return nil, err
	}
	return &Session{
		Backend: a.Engine,
		Migrate: func(ctx context.Context) error {
			return migration.EnsureMigrated(ctx, a.DB, log, cfg.Database.Host)
		},
		Close: a.Close,
	}, nil
}

// withSession opens a session, runs fn and closes the session.
func (o *RootOptions) withSession(ctx context.Context, fn func(s *Session) error) (err error) {
	s, err := o.Open(ctx, o)
	if err != nil {
		return err
	}
	defer func() {
		if s.Close != nil {
			err = errors.Join(err, s.Close())
		}
	}()
	return fn(s)
}

func (o *RootOptions) printJSON(v any) error {
	enc := json.NewEncoder(o.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
