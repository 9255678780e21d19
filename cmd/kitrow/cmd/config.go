package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barysiuk/kitrow/internal/core"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change user settings",
	Long: `Show or change the settings in ~/.kitrow/config.json.

Keys:
  platforms   default platforms, comma-separated (e.g. claude,cursor)
  cache-dir   bundle cache location`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		printSettings(cmd.OutOrStdout(), d.config.ConfigPath(), d.settings)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		if _, err := d.config.Update(func(cfg *core.Config) error {
			return cfg.Settings.Set(args[0], args[1])
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Clear a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		if _, err := d.config.Update(func(cfg *core.Config) error {
			return cfg.Settings.Unset(args[0])
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", args[0])
		return nil
	},
}

var configOverrideRemove bool

var configOverrideCmd = &cobra.Command{
	Use:   "override <repo-url> [clone-url]",
	Short: "Fetch a repository through another URL",
	Long: `Fetch a repository through another URL, e.g. an SSH alias for a
private repository declared by its HTTPS URL. Use --remove to drop an
override.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if configOverrideRemove == (len(args) == 2) {
			return fmt.Errorf("give a clone URL, or --remove to drop the override")
		}
		d, err := newDeps()
		if err != nil {
			return err
		}
		cloneURL := ""
		if len(args) == 2 {
			cloneURL = args[1]
		}
		if _, err := d.config.Update(func(cfg *core.Config) error {
			cfg.Settings.SetCloneURL(args[0], cloneURL)
			return nil
		}); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if cloneURL == "" {
			fmt.Fprintf(out, "Removed override for %s\n", args[0])
		} else {
			fmt.Fprintf(out, "%s -> %s\n", args[0], cloneURL)
		}
		return nil
	},
}

func printSettings(out io.Writer, path string, s core.Settings) {
	fmt.Fprintf(out, "Config:     %s\n", path)
	fmt.Fprintf(out, "Platforms:  %s\n", orNone(strings.Join(s.Platforms, ", ")))
	fmt.Fprintf(out, "Cache dir:  %s\n", orNone(s.CacheDir))
	urls := s.OverrideURLs()
	if len(urls) == 0 {
		return
	}
	fmt.Fprintln(out, "Overrides:")
	for _, u := range urls {
		fmt.Fprintf(out, "  %s -> %s\n", u, s.CloneURLOverrides[u])
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func init() {
	configOverrideCmd.Flags().BoolVar(&configOverrideRemove, "remove", false, "Drop the override")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configOverrideCmd)
	rootCmd.AddCommand(configCmd)
}
