// Package cmd implements the calslot command line: the MCP server (serve),
// one-shot calendar queries (slots, today, week, invitations), Google
// authorization (auth) and tool documentation (generate-docs).
//
// Configuration is layered with viper: flags override CALSLOT_* environment
// variables, which override the config file, which overrides the defaults.
package cmd
