// Package cmd holds the auxiliary CLI subcommands.
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmtar/camgate/internal/devices"
)

// ListDevicesCmd prints the device table from a devices file without
// starting the server.
var ListDevicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices from the devices file",
	Long:  `Reads the devices TOML file and prints every known device with its capabilities, without opening any hardware.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("devices-file")

		infos, err := devices.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load devices file: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPATH\tFACING\tDISABLED\tFOCUS\tFLASH")
		for _, info := range devices.NewTableRegistry(infos).List() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%v\t%v\t%v\n",
				info.ID, info.Name, info.Path, info.Facing,
				info.Disabled, info.Caps.CanFocus, info.Caps.HasFlash)
		}
		return w.Flush()
	},
}

func init() {
	ListDevicesCmd.Flags().StringP("devices-file", "d", "devices.toml", "Path to the devices TOML file")
}
