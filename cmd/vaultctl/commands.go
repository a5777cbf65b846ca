package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server"
	"github.com/dmitrijs2005/filevault/internal/server/config"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.DatabaseDSN == config.MemoryDSN {
				fmt.Fprintln(cmd.OutOrStdout(), "in-memory database has no schema; nothing to do")
				return nil
			}
			st, err := openStorage(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer st.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newPurgeSessionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			st, err := openStorage(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer st.Close()

			us, err := server.NewUserService(cfg, st, newLogger(cmd, cfg))
			if err != nil {
				return err
			}
			n, err := us.PurgeSessions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired sessions\n", n)
			return nil
		},
	}
}

func newResetPasswordCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Set a new password using the account's recovery key",
		Long: `Prompts for the base64 recovery key (as exported by the RecoveryKey call)
and a new password, then rewraps the user's private key under it. The key
must match the account's stored public key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			key, err := p.secret("Recovery key")
			if err != nil {
				return err
			}
			password, err := p.secret("New password")
			if err != nil {
				return err
			}
			confirm, err := p.secret("Confirm password")
			if err != nil {
				return err
			}

			st, err := openStorage(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer st.Close()

			us, err := server.NewUserService(cfg, st, newLogger(cmd, cfg))
			if err != nil {
				return err
			}
			if err := us.ResetPassword(cmd.Context(), args[0], key, password, confirm); err != nil {
				return errors.New(common.PublicMessage(err, err.Error()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password for %s updated\n", args[0])
			return nil
		},
	}
}

// keygenSize is the entropy of each generated secret (64 hex characters).
const keygenSize = 32

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print fresh token_secret and password_pepper values",
		Long: `Prints a JSON fragment with random secrets for the server config file.
Changing token_secret invalidates every issued session token. Changing
password_pepper locks every existing account out, so set it once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := common.MakeRandHexString(keygenSize)
			if err != nil {
				return err
			}
			pepper, err := common.MakeRandHexString(keygenSize)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]string{
				"token_secret":    secret,
				"password_pepper": pepper,
			})
		},
	}
}
