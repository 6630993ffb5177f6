package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jfarrell/icloud-cli/internal/cache"
	"github.com/jfarrell/icloud-cli/internal/daemon"
	"github.com/jfarrell/icloud-cli/internal/sync"
	"github.com/jfarrell/icloud-cli/internal/tui/watch"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	Short:   "Run and control the background sync daemon",
	GroupID: "sync",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sync daemon in the foreground",
	Long: `Start the sync daemon. It runs a sync cycle immediately, then every
sync_interval_minutes, until interrupted. Only one daemon may run per
cache directory; a stale lock from a crashed daemon is reclaimed
automatically.

Run it under your service manager (systemd, launchd) for background use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.EnsureDirs(); err != nil {
			return err
		}

		interval := time.Duration(cfg.Sync.IntervalMinutes) * time.Minute
		if flagMin, _ := cmd.Flags().GetInt("interval"); flagMin > 0 {
			interval = time.Duration(flagMin) * time.Minute
		}

		log := daemonLogger()
		cycle := func(ctx context.Context) ([]sync.Outcome, error) {
			return runCycle(ctx, log)
		}

		d, err := daemon.New(cfg.Sync.CacheDir, interval, cycle, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		printer.Info("Daemon running (interval %s). Ctrl-C to stop.", interval)
		return d.Run(ctx)
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, pid, err := daemon.Stop(cfg.Sync.CacheDir)
		if err != nil {
			return err
		}
		switch result {
		case daemon.Stopped:
			printer.Success("Sent stop signal to daemon (pid %d)", pid)
		case daemon.NotRunning:
			printer.Info("Daemon is not running")
		case daemon.Stale:
			printer.Warning("Removed stale lock left by a dead daemon")
		case daemon.Corrupt:
			printer.Warning("Removed corrupt daemon lock file")
		}
		return nil
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and cache status",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := cache.New(cfg.Sync.CacheDir)
		interval := time.Duration(cfg.Sync.IntervalMinutes) * time.Minute
		st := daemon.GetStatus(store, interval)

		lastSync := st.LastSync
		if lastSync == "" {
			lastSync = "never"
		}
		pairs := [][2]string{
			{"Daemon", boolWord(st.Running, fmt.Sprintf("running (pid %d)", st.PID), "stopped")},
			{"Interval", interval.String()},
			{"Last sync", lastSync},
			{"Cache", st.CacheRoot},
		}
		return printer.Detail(pairs, st)
	},
}

var daemonWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of daemon and cache state",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := cache.New(cfg.Sync.CacheDir)
		refresh, _ := cmd.Flags().GetDuration("refresh")

		model := watch.NewModel(store, refresh)
		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		return nil
	},
}

// daemonLogger writes structured logs to a rotated file next to the cache.
func daemonLogger() *slog.Logger {
	w := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Sync.CacheDir, "daemon.log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     30, // days
	}
	return slog.New(slog.NewTextHandler(w, nil))
}

func init() {
	daemonStartCmd.Flags().Int("interval", 0, "sync interval in minutes (overrides config)")
	daemonWatchCmd.Flags().Duration("refresh", 2*time.Second, "refresh interval")

	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd, daemonWatchCmd)
	rootCmd.AddCommand(daemonCmd)
}
