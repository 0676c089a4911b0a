package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/jvx/pkg/settings"
)

type versionData struct {
	Name      string `json:"name" yaml:"name"`
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

func buildVersionData() versionData {
	info := settings.VersionInformation
	return versionData{
		Name:      settings.CliBinaryName,
		Version:   info.BuildVersion,
		Commit:    info.Commit,
		BuildTime: info.BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// versionString builds the one-line version used by --version and
// "jvx version".
func versionString() string {
	v := buildVersionData()
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", v.Name, v.Version, v.Commit, v.BuildTime, v.GoVersion)
}

func newVersionCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print jvx version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			switch output {
			case "", "text":
				_, err := fmt.Fprintln(w, versionString())
				return err
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(buildVersionData())
			case "yaml":
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(buildVersionData()); err != nil {
					return err
				}
				return enc.Close()
			}
			return usageErrorf("invalid output %q: valid values are text, json, yaml", output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text|json|yaml")
	return cmd
}
