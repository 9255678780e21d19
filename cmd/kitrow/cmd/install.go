package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barysiuk/kitrow/internal/core"
	"github.com/barysiuk/kitrow/internal/tui"
)

var installCmd = &cobra.Command{
	Use:   "install [source...]",
	Short: "Install bundles into the workspace",
	Long: `Install bundles from git repositories, GitHub shorthand or local paths.

Sources can be:
  owner/repo                  GitHub shorthand
  github:owner/repo#v1.2      GitHub shorthand with a ref
  owner/repo#bundles/pdf      Subdirectory of a repository
  ./local/path                Local directory
  https://host/repo.git#ref   Full URL
  git@host:owner/repo.git     SSH clone URL
  file:///path/to/repo#main   Local git repository

New sources are added to .kitrow/kitrow.yaml. Without sources, every bundle
the manifest declares is installed again, along with the workspace's own
resources under .kitrow/.

Platforms are taken from --platform, else detected from the directories in
the workspace (.claude, .cursor, ...), else from the configured defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		ws, err := d.workspace()
		if err != nil {
			return err
		}

		platforms, _ := cmd.Flags().GetStringSlice("platform")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		frozen, _ := cmd.Flags().GetBool("frozen")
		update, _ := cmd.Flags().GetBool("update")
		yes, _ := cmd.Flags().GetBool("yes")
		allBundles, _ := cmd.Flags().GetBool("all-bundles")
		if frozen && update {
			return fmt.Errorf("--frozen and --update cannot be used together")
		}

		opts := core.InstallOptions{
			Sources:          args,
			WorkDir:          d.env.WorkDir,
			Platforms:        platforms,
			DefaultPlatforms: d.settings.Platforms,
			DryRun:           dryRun,
			Frozen:           frozen,
			Update:           update,
		}
		if !yes && !allBundles && interactive() {
			opts.Select = tui.BundleSelector(os.Stdin, cmd.ErrOrStderr())
		}

		result, err := core.Install(cmd.Context(), ws, d.cache, opts)
		if err != nil {
			return err
		}
		printInstallResult(cmd.OutOrStdout(), result)
		return nil
	},
}

func printInstallResult(w io.Writer, r *core.InstallResult) {
	if r.DryRun {
		fmt.Fprintln(w, "Dry run: no files were written.")
	}
	fmt.Fprintf(w, "Platforms: %s\n", strings.Join(r.Platforms, ", "))

	verb := "Installed"
	if r.DryRun {
		verb = "Would install"
	}
	for _, name := range r.Pruned {
		fmt.Fprintf(w, "Removed: %s (no longer declared)\n", name)
	}
	for _, plan := range r.Bundles {
		fmt.Fprintf(w, "%s: %s (%s)\n", verb, plan.Bundle, plural(len(plan.Files), "file"))
		for _, c := range plan.Copies {
			if c.Action == "" || c.Action == core.ActionUnchanged {
				continue
			}
			fmt.Fprintf(w, "  %-9s %s\n", c.Action, c.Target)
		}
		for _, p := range plan.Removed {
			fmt.Fprintf(w, "  %-9s %s\n", core.ActionRemove, p)
		}
	}
	if len(r.Bundles) == 0 {
		fmt.Fprintln(w, "Nothing to install.")
	}
}

func init() {
	installCmd.Flags().StringSliceP("platform", "p", nil, "Target platform (repeatable, e.g. -p claude -p cursor)")
	installCmd.Flags().Bool("dry-run", false, "Show what would be installed without writing anything")
	installCmd.Flags().Bool("frozen", false, "Fail if the lockfile or manifest would change")
	installCmd.Flags().Bool("update", false, "Re-resolve git refs instead of using locked commits")
	installCmd.Flags().BoolP("yes", "y", false, "Do not prompt; install every bundle a source provides")
	installCmd.Flags().Bool("all-bundles", false, "Install every bundle a source provides without asking")
	rootCmd.AddCommand(installCmd)
}
