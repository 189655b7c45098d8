/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "syncfm",
	Short: "Reconcile Navidrome playcounts with Last.fm",
	Long: `syncfm reconciles local Navidrome playcounts with a Last.fm profile.

It scans the Navidrome library for tracks with local plays, resolves each
one against the Last.fm catalog, and emits backdated scrobbles until the
remote playcount catches up with the local one, within configurable
per-track and per-run limits.

Every emitted scrobble is journaled locally; use 'syncfm history' to
inspect past runs.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
