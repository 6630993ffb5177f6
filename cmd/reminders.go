package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfarrell/icloud-cli/internal/dateparse"
	"github.com/jfarrell/icloud-cli/internal/services/reminders"
)

var remindersCmd = &cobra.Command{
	Use:     "reminders",
	Aliases: []string{"rem"},
	Short:   "Manage reminders",
	GroupID: "data",
}

var remindersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reminders across lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authMgr.Client(cmd.Context())
		if err != nil {
			return err
		}

		listName, _ := cmd.Flags().GetString("list")
		showCompleted, _ := cmd.Flags().GetBool("completed")

		items, err := reminders.New(client).List(cmd.Context(), reminders.ListOptions{
			ListName:      listName,
			ShowCompleted: showCompleted,
		})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			printer.Info("No reminders")
			return nil
		}

		rows := make([][]string, 0, len(items))
		for _, r := range items {
			rows = append(rows, []string{r.Title, r.List, r.DueDate, r.Priority, boolWord(r.Completed, "yes", "")})
		}
		return printer.Table([]string{"TITLE", "LIST", "DUE", "PRIORITY", "DONE"}, rows, items)
	},
}

var remindersAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authMgr.Client(cmd.Context())
		if err != nil {
			return err
		}

		var due time.Time
		if s, _ := cmd.Flags().GetString("due"); s != "" {
			if due, err = dateparse.Parse(s); err != nil {
				return fmt.Errorf("invalid --due: %w", err)
			}
		}

		listName, _ := cmd.Flags().GetString("list")
		if listName == "" {
			listName = cfg.Reminders.DefaultList
		}
		description, _ := cmd.Flags().GetString("description")

		nr := reminders.NewReminder{
			Title:       args[0],
			Due:         due,
			ListName:    listName,
			Description: description,
		}
		if err := reminders.New(client).Add(cmd.Context(), nr); err != nil {
			return err
		}
		printer.Success("Created reminder %q", args[0])
		return nil
	},
}

var remindersCompleteCmd = &cobra.Command{
	Use:   "complete <reminder-id>",
	Short: "Mark a reminder as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authMgr.Client(cmd.Context())
		if err != nil {
			return err
		}
		if err := reminders.New(client).Complete(cmd.Context(), args[0]); err != nil {
			return err
		}
		printer.Success("Completed reminder %s", args[0])
		return nil
	},
}

var remindersDeleteCmd = &cobra.Command{
	Use:   "delete <reminder-id>",
	Short: "Delete a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authMgr.Client(cmd.Context())
		if err != nil {
			return err
		}
		if err := reminders.New(client).Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		printer.Success("Deleted reminder %s", args[0])
		return nil
	},
}

func init() {
	remindersListCmd.Flags().String("list", "", "filter by list name")
	remindersListCmd.Flags().Bool("completed", false, "include completed reminders")

	remindersAddCmd.Flags().String("due", "", "due date (natural language or YYYY-MM-DD)")
	remindersAddCmd.Flags().String("list", "", "target list")
	remindersAddCmd.Flags().String("description", "", "reminder notes")

	remindersCmd.AddCommand(remindersListCmd, remindersAddCmd, remindersCompleteCmd, remindersDeleteCmd)
	rootCmd.AddCommand(remindersCmd)
}
