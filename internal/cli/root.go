// Package cli implements the comicpress command-line interface.
//
// This package provides the commands that convert comic directories into
// e-reader books, list the supported devices and manage the prepared-page
// cache. The CLI is built using cobra and logs through charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - convert: Build a CBZ, EPUB, KEPUB or MOBI from a directory of pages
//   - devices: List device profiles, or pick one interactively
//   - cache: Manage the prepared-page cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging and --quiet
// (-q) to show warnings only. The logger is passed through context.Context.
//
// # Configuration
//
// Defaults for convert flags, the cache backend and extra device profiles
// are read from a TOML file (see package config). A .env file in the
// working directory is loaded first, so COMICPRESS_CONFIG can live there.
package cli

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/comicpress/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		verbose    bool
		quiet      bool
		configPath string
	)

	root := &cobra.Command{
		Use:           appName,
		Short:         "comicpress converts comic pages into e-reader books",
		Long:          `comicpress prepares comic and manga page images for an e-reader screen and packs them as CBZ, EPUB, KEPUB or MOBI.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.SetLogLevel(logLevel(verbose, quiet))
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return c.loadConfig(configPath)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/comicpress/config.toml)")

	// Register all subcommands
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.devicesCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// versionCommand prints build information.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printKeyValue(c.Out, "version", buildinfo.Version)
			printKeyValue(c.Out, "commit", buildinfo.Commit)
			printKeyValue(c.Out, "built", buildinfo.Date)
			return nil
		},
	}
}

// logLevel maps the verbosity flags to a level. --verbose wins.
func logLevel(verbose, quiet bool) log.Level {
	switch {
	case verbose:
		return LogDebug
	case quiet:
		return LogWarn
	}
	return LogInfo
}
