// Package cmd implements the icloud-cli command tree.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jfarrell/icloud-cli/internal/auth"
	"github.com/jfarrell/icloud-cli/internal/config"
	"github.com/jfarrell/icloud-cli/internal/output"
)

var (
	version string

	cfgPath    string
	formatFlag string
	verbose    bool

	cfg     *config.Config
	printer *output.Printer
	authMgr *auth.Manager
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "icloud",
	Short: "Access iCloud calendar, reminders, notes, and Find My from the terminal",
	Long: `icloud-cli - a command-line client for iCloud personal data.

Browse and edit calendar events, reminders, and notes, locate devices, and
run a background daemon that keeps a local JSON cache fresh so reads work
offline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		name := formatFlag
		if !cmd.Flags().Changed("format") && cfg.General.DefaultFormat != "" {
			name = cfg.General.DefaultFormat
		}
		format, err := output.ParseFormat(name)
		if err != nil {
			return err
		}
		printer = output.NewPrinter(format)
		authMgr = auth.NewManager(cfg)

		level := slog.LevelWarn
		if verbose || cfg.General.Verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		return nil
	},
}

// Execute runs the root command
func Execute() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.config/icloud-cli/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "", "output format: table, json, or plain")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "account", Title: "Account Commands:"},
		&cobra.Group{ID: "data", Title: "Data Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("sync")
	rootCmd.SetCompletionCommandGroupID("sync")
}
