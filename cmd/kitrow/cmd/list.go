package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barysiuk/kitrow/internal/core"
	"github.com/barysiuk/kitrow/internal/format"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed bundles",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := formatterFor(cmd)
		if err != nil {
			return err
		}
		d, err := newDeps()
		if err != nil {
			return err
		}
		ws, err := d.workspace()
		if err != nil {
			return err
		}
		return f.FormatList(cmd.OutOrStdout(), core.ListBundles(ws))
	},
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show details of an installed bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := formatterFor(cmd)
		if err != nil {
			return err
		}
		d, err := newDeps()
		if err != nil {
			return err
		}
		ws, err := d.workspace()
		if err != nil {
			return err
		}
		info, err := core.ShowBundle(ws, d.cache, args[0])
		if err != nil {
			return err
		}
		return f.FormatBundle(cmd.OutOrStdout(), info)
	},
}

func formatterFor(cmd *cobra.Command) (core.BundleFormatter, error) {
	mode, _ := cmd.Flags().GetString("format")
	return format.New(mode, terminalWidth())
}

func addFormatFlag(cmd *cobra.Command, def string) {
	cmd.Flags().StringP("format", "f", def, fmt.Sprintf("Output format (%s)", strings.Join(format.Names, ", ")))
}

func init() {
	addFormatFlag(listCmd, format.Simple)
	addFormatFlag(showCmd, format.Simple)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}
