package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mithrel/medchat/internal/keys"
)

func newConfigTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the API bearer token in the system keyring",
	}

	setCmd := &cobra.Command{
		Use:   "set [token]",
		Short: "Store the bearer token (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tok string
			if len(args) == 1 {
				tok = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}
				tok = line
			}
			tok = strings.TrimSpace(tok)
			if tok == "" {
				return errors.New("empty token")
			}
			if !keys.KeyringAvailable() {
				return errors.New("no system keyring available; set auth.token in the config instead")
			}
			if err := (&keys.KeyringStore{}).Put(keys.TokenID, tok); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Token stored in keyring.")
			if !strings.EqualFold(getApp(cmd).Cfg.GetString("auth.token_provider"), "keyring") {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Set auth.token_provider = \"keyring\" to use it.")
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the bearer token from the keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (&keys.KeyringStore{}).Delete(keys.TokenID); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Token removed.")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report where the active token comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			provider := strings.ToLower(app.Cfg.GetString("auth.token_provider"))
			if provider == "" {
				provider = "config"
			}
			state := "unset (auth disabled)"
			if strings.TrimSpace(app.Cfg.GetString(keys.TokenID)) != "" {
				state = "set"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "provider: %s\ntoken: %s\n", provider, state)
			return nil
		},
	}

	cmd.AddCommand(setCmd, clearCmd, statusCmd)
	return cmd
}
