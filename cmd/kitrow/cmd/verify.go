package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barysiuk/kitrow/internal/core"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check installed bundles against the lockfile",
	Long: `Recompute the hash of every locked bundle and check that the files the
index records are still installed. Git bundles are checked against the
cached checkout of their locked commit; nothing is fetched.`,
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
		results, err := core.Verify(ws, d.cache)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No bundles installed.")
			return nil
		}
		failed := 0
		for _, r := range results {
			fmt.Fprintf(out, "%-10s %s\n", r.Status, r.Name)
			for _, p := range r.MissingFiles {
				fmt.Fprintf(out, "  missing %s\n", p)
			}
			if r.Status == core.VerifyModified {
				fmt.Fprintf(out, "  expected %s\n  actual   %s\n", r.Expected, r.Actual)
			}
			if !r.OK() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%s failed verification", plural(failed, "bundle"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
