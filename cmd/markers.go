package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ornithopter83/selftrack/internal/ui"
)

var markersFlags configFlags

var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "Show the marker set the overlay draws",
	Long: `Show the marker set the overlay draws. With --markers the YAML file is loaded and
validated, otherwise the built-in set (head and both shoulders) is shown.

Example marker file:

  confidence: 0.6
  radius: 12
  markers:
    - index: 0
      name: head
      label: Head
      color: "#EF4444"
    - index: 15
      name: left_wrist
      label: LW
      color: "#F59E0B"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := markersFlags.load(cmd)
		if err != nil {
			return err
		}

		if cfg.MarkersFile != "" {
			ui.PrintSuccessf("%s is valid", cfg.MarkersFile)
		}
		fmt.Println(ui.MarkerTable(cfg.Markers))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(markersCmd)

	markersFlags.bindMarkers(markersCmd)
}
