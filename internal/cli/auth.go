package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"siraqemir/internal/session"
)

var registerCmd = &cobra.Command{
	Use:   "register [email] [password]",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCredentials(cmd, args, (*session.Manager).Register)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login [email] [password]",
	Short: "Sign in",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCredentials(cmd, args, (*session.Manager).Login)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)
}

func runCredentials(cmd *cobra.Command, args []string, op func(*session.Manager, context.Context, string, string) session.Result) (err error) {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.finish(&err)

	res := op(e.session, cmd.Context(), args[0], args[1])
	if !res.Success {
		return fmt.Errorf("%s failed: %s", cmd.Name(), res.Message())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", res.User.Email)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) (err error) {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.finish(&err)

	res := e.session.Logout(cmd.Context())
	if !res.Success {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", res.Message())
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) (err error) {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.finish(&err)

	res := e.session.Restore(cmd.Context())
	if !res.Success {
		return fmt.Errorf("failed to restore session: %w", res.Err)
	}
	if res.User == nil {
		return errSignedOut
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.User.Email)
	return nil
}
