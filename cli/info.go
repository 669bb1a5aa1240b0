package cli

import (
	"github.com/spf13/cobra"

	"github.com/desk-next/deskcli/display"
	"github.com/desk-next/deskcli/sysinfo"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show system and display information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		driver, err := display.NewX11()
		if err != nil {
			return err
		}

		info, err := sysinfo.Collect(driver)
		if err != nil {
			return err
		}

		printJson(info)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
