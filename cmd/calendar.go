package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfarrell/icloud-cli/internal/dateparse"
	"github.com/jfarrell/icloud-cli/internal/services/calendar"
)

var calendarCmd = &cobra.Command{
	Use:     "calendar",
	Aliases: []string{"cal"},
	Short:   "Manage calendar events",
	GroupID: "data",
}

var calendarListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events in a date window (default: next 7 days)",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authMgr.Client(cmd.Context())
		if err != nil {
			return err
		}
		svc := calendar.New(client)

		now := time.Now()
		from := now.Truncate(24 * time.Hour)
		to := from.AddDate(0, 0, 7)

		if s, _ := cmd.Flags().GetString("from"); s != "" {
			if from, err = dateparse.Parse(s); err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
		}
		if s, _ := cmd.Flags().GetString("to"); s != "" {
			if to, err = dateparse.Parse(s); err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
		}

		events, err := svc.ListEvents(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			printer.Info("No events between %s and %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
			return nil
		}

		rows := make([][]string, 0, len(events))
		for _, ev := range events {
			rows = append(rows, []string{ev.Title, ev.Start, ev.End, ev.Calendar, ev.Location})
		}
		return printer.Table([]string{"TITLE", "START", "END", "CALENDAR", "LOCATION"}, rows, events)
	},
}

var calendarShowCmd = &cobra.Command{
	Use:   "show <event-id>",
	Short: "Show one event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authMgr.Client(cmd.Context())
		if err != nil {
			return err
		}

		ev, err := calendar.New(client).GetEvent(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		pairs := [][2]string{
			{"Title", ev.Title},
			{"Start", ev.Start},
			{"End", ev.End},
			{"Calendar", ev.Calendar},
			{"Location", ev.Location},
			{"Description", ev.Description},
			{"URL", ev.URL},
			{"ID", ev.ID},
		}
		return printer.Detail(pairs, ev)
	},
}

var calendarAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authMgr.Client(cmd.Context())
		if err != nil {
			return err
		}

		startStr, _ := cmd.Flags().GetString("start")
		start, err := dateparse.Parse(startStr)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}

		end := start.Add(time.Hour)
		if s, _ := cmd.Flags().GetString("end"); s != "" {
			if end, err = dateparse.Parse(s); err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
		}
		if !end.After(start) {
			return fmt.Errorf("event end %s is not after start %s", end.Format("2006-01-02 15:04"), start.Format("2006-01-02 15:04"))
		}

		location, _ := cmd.Flags().GetString("location")
		description, _ := cmd.Flags().GetString("description")
		calName, _ := cmd.Flags().GetString("calendar")
		if calName == "" {
			calName = cfg.Calendar.DefaultCalendar
		}

		ev := calendar.NewEvent{
			Title:       args[0],
			Start:       start,
			End:         end,
			Location:    location,
			Description: description,
			Calendar:    calName,
		}
		if err := calendar.New(client).AddEvent(cmd.Context(), ev); err != nil {
			return err
		}
		printer.Success("Created event %q at %s", args[0], start.Format("2006-01-02 15:04"))
		return nil
	},
}

var calendarDeleteCmd = &cobra.Command{
	Use:   "delete <event-id>",
	Short: "Delete an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authMgr.Client(cmd.Context())
		if err != nil {
			return err
		}
		if err := calendar.New(client).DeleteEvent(cmd.Context(), args[0]); err != nil {
			return err
		}
		printer.Success("Deleted event %s", args[0])
		return nil
	},
}

func init() {
	calendarListCmd.Flags().String("from", "", "window start (natural language or YYYY-MM-DD)")
	calendarListCmd.Flags().String("to", "", "window end")

	calendarAddCmd.Flags().String("start", "", "event start (required)")
	calendarAddCmd.Flags().String("end", "", "event end (default: start + 1h)")
	calendarAddCmd.Flags().String("location", "", "event location")
	calendarAddCmd.Flags().String("description", "", "event description")
	calendarAddCmd.Flags().String("calendar", "", "target calendar")
	calendarAddCmd.MarkFlagRequired("start")

	calendarCmd.AddCommand(calendarListCmd, calendarShowCmd, calendarAddCmd, calendarDeleteCmd)
	rootCmd.AddCommand(calendarCmd)
}
