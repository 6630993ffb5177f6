package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jfarrell/icloud-cli/internal/services/findmy"
)

var findmyCmd = &cobra.Command{
	Use:     "findmy",
	Aliases: []string{"fm"},
	Short:   "Locate and act on devices",
	GroupID: "data",
}

var findmyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List devices with battery and location",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authMgr.Client(cmd.Context())
		if err != nil {
			return err
		}

		devices, err := findmy.New(client).Devices(cmd.Context())
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			printer.Info("No devices on this account")
			return nil
		}

		rows := make([][]string, 0, len(devices))
		for _, d := range devices {
			rows = append(rows, []string{d.Name, d.Model, d.Battery, d.Status, d.Location})
		}
		return printer.Table([]string{"NAME", "MODEL", "BATTERY", "STATUS", "LOCATION"}, rows, devices)
	},
}

var findmyLocateCmd = &cobra.Command{
	Use:   "locate <device>",
	Short: "Show one device by name or id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authMgr.Client(cmd.Context())
		if err != nil {
			return err
		}

		d, err := findmy.New(client).Locate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		pairs := [][2]string{
			{"Name", d.Name},
			{"Model", d.Model},
			{"Battery", d.Battery},
			{"Status", d.Status},
			{"Location", d.Location},
			{"Accuracy", d.Accuracy},
			{"Map", d.MapsURL},
			{"ID", d.ID},
		}
		return printer.Detail(pairs, d)
	},
}

var findmyPlaySoundCmd = &cobra.Command{
	Use:   "play-sound <device>",
	Short: "Play the locate sound on a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authMgr.Client(cmd.Context())
		if err != nil {
			return err
		}
		d, err := findmy.New(client).PlaySound(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printer.Success("Playing sound on %s", d.Name)
		return nil
	},
}

var findmyLostModeCmd = &cobra.Command{
	Use:   "lost-mode <device>",
	Short: "Enable lost mode on a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authMgr.Client(cmd.Context())
		if err != nil {
			return err
		}

		phone, _ := cmd.Flags().GetString("phone")
		message, _ := cmd.Flags().GetString("message")

		d, err := findmy.New(client).LostMode(cmd.Context(), args[0], phone, message)
		if err != nil {
			return err
		}
		printer.Success("Lost mode enabled on %s", d.Name)
		return nil
	},
}

func init() {
	findmyLostModeCmd.Flags().String("phone", "", "callback number shown on the lock screen (required)")
	findmyLostModeCmd.Flags().String("message", "", "message shown on the lock screen")
	findmyLostModeCmd.MarkFlagRequired("phone")

	findmyCmd.AddCommand(findmyListCmd, findmyLocateCmd, findmyPlaySoundCmd, findmyLostModeCmd)
	rootCmd.AddCommand(findmyCmd)
}
