package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/barysiuk/kitrow/internal/core"
	"github.com/barysiuk/kitrow/internal/core/platform"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List known platforms and those detected in the workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		ws, err := d.workspace()
		if err != nil {
			return err
		}
		reg, err := core.LoadPlatforms(ws)
		if err != nil {
			return err
		}

		detected := platform.IDs(reg.Detect(ws.Root))
		out := cmd.OutOrStdout()
		for _, p := range reg.All() {
			status := ""
			switch {
			case slices.Contains(detected, p.ID):
				status = "detected"
			case slices.Contains(d.settings.Platforms, p.ID):
				status = "default"
			}
			fmt.Fprintf(out, "%-10s %-16s %-12s %s\n", p.ID, p.Name, p.Dir, status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(platformsCmd)
}
