package main

import (
	"io"
	"net/url"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geocoding-cli/internal/config"
	"github.com/sells-group/geocoding-cli/internal/credential"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return renderConfig(cmd.OutOrStdout(), cfg)
	},
}

// renderConfig writes c as YAML with secrets masked.
func renderConfig(w io.Writer, c *config.Config) error {
	out := *c
	out.Geocode.APIKey = credential.Mask(c.Geocode.APIKey)
	if u, err := url.Parse(c.Credential.DatabaseURL); err == nil && u.User != nil {
		out.Credential.DatabaseURL = u.Redacted()
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return eris.Wrap(err, "encode config")
	}
	return eris.Wrap(enc.Close(), "encode config")
}

func init() {
	rootCmd.AddCommand(configCmd)
}
