package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the kitrow config directory in this workspace",
	Long: `Create .kitrow/kitrow.yaml at the workspace root.

The workspace is named after the origin remote (@owner/repo) when it can be
parsed, otherwise after the root directory. Use --name to choose another.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		ws, err := d.workspace()
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		created, err := ws.Init(cmd.Context(), name)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !created {
			fmt.Fprintf(out, "Workspace %s is already initialized.\n", ws.Name())
			return nil
		}
		fmt.Fprintf(out, "Initialized workspace %s\n", ws.Name())
		fmt.Fprintf(out, "  Config: %s\n", ws.Rel(ws.ManifestPath()))
		return nil
	},
}

func init() {
	initCmd.Flags().String("name", "", "Workspace name (default: derived from the origin remote)")
	rootCmd.AddCommand(initCmd)
}
