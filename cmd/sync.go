package cmd

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jfarrell/icloud-cli/internal/cache"
	"github.com/jfarrell/icloud-cli/internal/services/calendar"
	"github.com/jfarrell/icloud-cli/internal/services/findmy"
	"github.com/jfarrell/icloud-cli/internal/services/notes"
	"github.com/jfarrell/icloud-cli/internal/services/reminders"
	"github.com/jfarrell/icloud-cli/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Run one sync cycle now",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		outcomes, err := runCycle(cmd.Context(), slog.Default())
		if err != nil {
			return err
		}
		return printOutcomes(outcomes)
	},
}

// buildAdapters assembles the domain adapters in their fixed sync order.
func buildAdapters(ctx context.Context) ([]sync.Adapter, error) {
	client, err := authMgr.Client(ctx)
	if err != nil {
		return nil, err
	}
	return []sync.Adapter{
		calendar.NewAdapter(calendar.New(client)),
		reminders.NewAdapter(reminders.New(client)),
		notes.NewAdapter(notes.New(authMgr.IMAPCredentials)),
		findmy.NewAdapter(findmy.New(client)),
	}, nil
}

func runCycle(ctx context.Context, log *slog.Logger) ([]sync.Outcome, error) {
	adapters, err := buildAdapters(ctx)
	if err != nil {
		return nil, err
	}

	store := cache.New(cfg.Sync.CacheDir)
	scfg := sync.DefaultConfig()
	scfg.Logger = log

	return sync.New(store, adapters, scfg).RunCycle(ctx)
}

func printOutcomes(outcomes []sync.Outcome) error {
	rows := make([][]string, 0, len(outcomes))
	type outcomeRow struct {
		Domain string `json:"domain"`
		Status string `json:"status"`
		Count  int    `json:"count"`
		Error  string `json:"error,omitempty"`
	}
	raw := make([]outcomeRow, 0, len(outcomes))

	for _, o := range outcomes {
		errText := ""
		if o.Err != nil {
			errText = o.Err.Error()
		}
		count := ""
		if o.Status == sync.StatusSynced {
			count = strconv.Itoa(o.Count)
		}
		rows = append(rows, []string{o.Domain, o.Status.String(), count, errText})
		raw = append(raw, outcomeRow{Domain: o.Domain, Status: o.Status.String(), Count: o.Count, Error: errText})
	}
	return printer.Table([]string{"DOMAIN", "STATUS", "ITEMS", "DETAIL"}, rows, raw)
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
