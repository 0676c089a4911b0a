package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/jvx/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the jvx configuration",
		Long: `Print the merged configuration: the built-in defaults with the user file
($XDG_CONFIG_HOME/jvx/config.yaml or --config-file) applied on top.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "default",
		Short: "Print the built-in default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(config.DefaultConfigYAML())
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "themes",
		Aliases: []string{"theme"},
		Short:   "List the available themes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Theme", "Default", "Key", "String", "Number"})
			for _, name := range a.cfg.ThemeNames() {
				tc := a.cfg.UI.Themes[name]
				def := ""
				if name == a.cfg.UI.Theme {
					def = "*"
				}
				t.AppendRow(table.Row{name, def, tc.KeyColor, tc.StringColor, tc.NumberColor})
			}
			t.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the user config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.global.configFile
			if path == "" {
				path = config.DefaultPath()
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	})
	return cmd
}
