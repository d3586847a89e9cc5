package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/geocoding-cli/internal/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// testConfig returns defaults equivalent to config.Load with no file or env.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Geocode.Threads = 4
	c.Geocode.Unit = "mi"
	c.Geocode.TimeoutSecs = 5
	c.Geocode.Format = "csv"
	c.Credential.Driver = "sqlite"
	c.Credential.DatabaseURL = t.TempDir() + "/creds.db"
	c.Credential.Realm = "command_geocoding"
	c.Server.Port = 8080
	c.Log.Level = "info"
	c.Log.Format = "json"
	require.NoError(t, c.Validate())
	return c
}

// withConfig installs c as the package config for the duration of the test.
func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

// setFlag sets a flag on cmd and restores its default after the test.
func setFlag(t *testing.T, cmd *cobra.Command, name, value string) {
	t.Helper()
	f := cmd.Flags().Lookup(name)
	require.NotNil(t, f, "flag %q", name)
	require.NoError(t, cmd.Flags().Set(name, value))
	t.Cleanup(func() {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}
