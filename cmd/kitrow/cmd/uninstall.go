package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barysiuk/kitrow/internal/core"
	"github.com/barysiuk/kitrow/internal/tui"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall [name...]",
	Short: "Remove installed bundles",
	Long: `Remove bundles from the workspace: their installed files, lockfile and
index entries, and their manifest declarations. Files another bundle still
provides are kept.

Every bundle is attempted; if any of them fails, nothing is changed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		yes, _ := cmd.Flags().GetBool("yes")
		if len(args) == 0 && !all {
			return fmt.Errorf("specify bundle names or --all")
		}
		if len(args) > 0 && all {
			return fmt.Errorf("--all cannot be combined with bundle names")
		}

		d, err := newDeps()
		if err != nil {
			return err
		}
		ws, err := d.workspace()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if all && len(ws.Lockfile.Bundles) == 0 {
			fmt.Fprintln(out, "No bundles installed.")
			return nil
		}

		if !yes && interactive() {
			target := strings.Join(args, ", ")
			if all {
				target = plural(len(ws.Lockfile.Bundles), "bundle")
			}
			ok, err := tui.Confirm(os.Stdin, cmd.ErrOrStderr(), "Uninstall "+target+"?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}

		result, err := core.Uninstall(cmd.Context(), ws, args, core.UninstallOptions{All: all})
		if err != nil {
			return err
		}
		for _, b := range result.Bundles {
			fmt.Fprintf(out, "Removed: %s\n", b.Name)
			for _, f := range b.Files {
				fmt.Fprintf(out, "  %s\n", f)
			}
		}
		if all {
			fmt.Fprintf(out, "\nRemoved %s.\n", plural(len(result.Bundles), "bundle"))
		}
		return nil
	},
}

func init() {
	uninstallCmd.Flags().Bool("all", false, "Remove every installed bundle")
	uninstallCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(uninstallCmd)
}
