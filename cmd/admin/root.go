package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/noah-isme/gema-quiz/internal/config"
	"github.com/noah-isme/gema-quiz/internal/database"
	"github.com/noah-isme/gema-quiz/internal/repository"
)

// cli carries the collaborators of every subcommand so tests can replace them.
type cli struct {
	openIdentities func(ctx context.Context) (repository.IdentityRepository, func(), error)
	readPassword   func(fd int) ([]byte, error)
	stdinFD        int
	logger         zerolog.Logger
}

func defaultCLI() *cli {
	return &cli{
		openIdentities: openConfiguredIdentities,
		readPassword:   term.ReadPassword,
		stdinFD:        int(os.Stdin.Fd()),
		logger:         zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}
}

func newRootCmd(app *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Quiz administration tasks",
		SilenceUsage:  true,
	}

	root.AddCommand(newAddUserCmd(app))
	root.AddCommand(newResetPasswordCmd(app))
	root.AddCommand(newTemplateCmd())
	return root
}

func openConfiguredIdentities(ctx context.Context) (repository.IdentityRepository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.OpenIdentityStore(ctx, database.IdentityStoreOptions{
		Driver:         cfg.DatabaseDriver,
		URL:            cfg.DatabaseURL,
		Database:       cfg.DatabaseName,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}
	cleanup := func() { _ = database.Close(db) }

	identities := repository.NewIdentityRepository(db, cfg.DatabaseCollection)
	if err := identities.Migrate(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return identities, cleanup, nil
}

// promptPassword asks for a password twice without echo.
func (app *cli) promptPassword(out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter password: ")
	first, err := app.readPassword(app.stdinFD)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}

	fmt.Fprint(out, "Confirm password: ")
	second, err := app.readPassword(app.stdinFD)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", errPasswordMismatch
	}
	if len(first) < minPasswordLength || len(first) > maxPasswordLength {
		return "", errPasswordLength
	}
	return string(first), nil
}
