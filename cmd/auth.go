package cmd

import (
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:     "login [apple-id]",
	Short:   "Sign in to iCloud",
	GroupID: "account",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appleID := ""
		if len(args) > 0 {
			appleID = args[0]
		}
		if err := authMgr.Login(cmd.Context(), appleID); err != nil {
			return err
		}
		printer.Success("Logged in as %s", cfg.Auth.AppleID)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Sign out and remove stored credentials",
	GroupID: "account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := authMgr.Logout(); err != nil {
			return err
		}
		printer.Success("Logged out")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show login and session status",
	GroupID: "account",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := authMgr.Status(cmd.Context())
		if err != nil {
			return err
		}

		pairs := [][2]string{
			{"Apple ID", st.AppleID},
			{"Session", boolWord(st.SessionValid, "valid", "none")},
			{"Notes IMAP", boolWord(st.IMAPConfigured, "configured", "not configured")},
		}
		if st.AppleID == "" {
			pairs = [][2]string{{"Apple ID", "not logged in"}}
		}
		return printer.Detail(pairs, st)
	},
}

func boolWord(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
}
