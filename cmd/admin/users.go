package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-quiz/internal/models"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72
)

var (
	errPasswordMismatch = errors.New("passwords do not match")
	errPasswordLength   = fmt.Errorf("password must be %d to %d characters", minPasswordLength, maxPasswordLength)
)

func newAddUserCmd(app *cli) *cobra.Command {
	var (
		studentID string
		email     string
		admin     bool
	)

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create an account, or overwrite the one with the same student ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			studentID = strings.TrimSpace(studentID)
			email = strings.ToLower(strings.TrimSpace(email))
			if studentID == "" || email == "" {
				return errors.New("--student-id and --email are required")
			}

			password, err := app.promptPassword(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			identities, cleanup, err := app.openIdentities(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			role := models.RoleStudent
			if admin {
				role = models.RoleAdmin
			}
			identity := models.Identity{StudentID: studentID, Email: email, Role: role}
			if err := identity.SetPassword(password); err != nil {
				return err
			}
			if err := identities.Upsert(cmd.Context(), &identity); err != nil {
				return err
			}

			app.logger.Info().Str("student_id", studentID).Str("role", role).Msg("account saved")
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", studentID, role)
			return nil
		},
	}

	cmd.Flags().StringVar(&studentID, "student-id", "", "student identifier used to log in")
	cmd.Flags().StringVar(&email, "email", "", "e-mail address for password resets")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the administrator role")
	return cmd
}

func newResetPasswordCmd(app *cli) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Set a new password for the account with the given e-mail",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				return errors.New("--email is required")
			}

			password, err := app.promptPassword(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			identities, cleanup, err := app.openIdentities(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			hash, err := models.HashPassword(password)
			if err != nil {
				return err
			}
			if err := identities.UpdatePassword(cmd.Context(), email, hash); err != nil {
				return err
			}

			app.logger.Info().Str("email", email).Msg("password reset")
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "e-mail address of the account")
	return cmd
}
