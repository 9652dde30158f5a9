package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the calslot application
var rootCmd = &cobra.Command{
	Use:   "calslot",
	Short: "Finds free meeting slots in your calendar",
	Long: `calslot reads a Google Calendar or an iCalendar feed and finds free slots
of a given length on weekdays within working hours.

It can run as:
  - A one-shot CLI (slots, today, week, invitations)
  - An MCP (Model Context Protocol) server for AI assistants (serve)

Configuration is read from flags, CALSLOT_* environment variables and an
optional config.yaml in the user config directory or the working directory.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// configFile is the explicit config file given with --config.
var configFile string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calslot version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/calslot/config.yaml or ./config.yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSlotsCmd())
	rootCmd.AddCommand(newTodayCmd())
	rootCmd.AddCommand(newWeekCmd())
	rootCmd.AddCommand(newInvitationsCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "calslot version %s\n", version)
		},
	}
}
