package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jfarrell/icloud-cli/internal/output"
	"github.com/jfarrell/icloud-cli/internal/services/notes"
)

var notesCmd = &cobra.Command{
	Use:     "notes",
	Short:   "Manage notes (requires an app-specific password)",
	GroupID: "data",
}

var notesSetupCmd = &cobra.Command{
	Use:   "setup-imap",
	Short: "Store an app-specific password for notes access",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := authMgr.SetupIMAP(); err != nil {
			return err
		}
		printer.Success("Notes access configured")
		return nil
	},
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := notes.New(authMgr.IMAPCredentials).List(cmd.Context())
		if err != nil {
			return err
		}
		if len(items) == 0 {
			printer.Info("No notes")
			return nil
		}
		return printer.Table([]string{"ID", "SUBJECT", "DATE"}, noteRows(items), items)
	},
}

var notesShowCmd = &cobra.Command{
	Use:   "show <note-id>",
	Short: "Show a note with its body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := notes.New(authMgr.IMAPCredentials).Show(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		pairs := [][2]string{
			{"Subject", n.Subject},
			{"Date", n.Date},
			{"ID", n.ID},
		}
		if err := printer.Detail(pairs, n); err != nil {
			return err
		}
		if printer.Format() != output.FormatJSON && n.Body != "" {
			printer.Info("\n%s", n.Body)
		}
		return nil
	},
}

var notesAddCmd = &cobra.Command{
	Use:   "add <subject>",
	Short: "Create a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, _ := cmd.Flags().GetString("body")
		if err := notes.New(authMgr.IMAPCredentials).Add(cmd.Context(), args[0], body); err != nil {
			return err
		}
		printer.Success("Created note %q", args[0])
		return nil
	},
}

var notesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search notes by subject or body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := notes.New(authMgr.IMAPCredentials).Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(items) == 0 {
			printer.Info("No notes match %q", args[0])
			return nil
		}
		return printer.Table([]string{"ID", "SUBJECT", "DATE"}, noteRows(items), items)
	},
}

func noteRows(items []notes.Note) [][]string {
	rows := make([][]string, 0, len(items))
	for _, n := range items {
		rows = append(rows, []string{n.ID, n.Subject, n.Date})
	}
	return rows
}

func init() {
	notesAddCmd.Flags().String("body", "", "note body (HTML allowed)")

	notesCmd.AddCommand(notesSetupCmd, notesListCmd, notesShowCmd, notesAddCmd, notesSearchCmd)
	rootCmd.AddCommand(notesCmd)
}
