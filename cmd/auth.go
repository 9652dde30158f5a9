package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/calslot/internal/google"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize calslot to read a Google Calendar",
		Long: `Authorize calslot to read a Google Calendar.

  1. Run "calslot auth url" and open the printed URL.
  2. Grant read access to your calendar and copy the code.
  3. Run "calslot auth save <code>".

The OAuth client is configured with GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
Use --account to manage several Google accounts.`,
	}
	cmd.AddCommand(newAuthURLCmd(), newAuthSaveCmd())
	return cmd
}

func newAuthURLCmd() *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the authorization URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Open the following URL for account %q and copy the authorization code:\n\n%s\n",
				account, google.GetAuthURL(account))
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Google account name")
	return cmd
}

func newAuthSaveCmd() *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "save <code>",
		Short: "Exchange an authorization code and store the token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			if err := cfg.TokenProvider().SaveToken(cmd.Context(), account, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved for account %q\n", account)
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Google account name")
	cmd.Flags().String("token-dir", "", "Directory holding Google OAuth tokens")
	return cmd
}
