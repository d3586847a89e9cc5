package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/geocoding-cli/pkg/geocode"
)

// Config holds the full application configuration.
type Config struct {
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Credential CredentialConfig `yaml:"credential" mapstructure:"credential"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// GeocodeConfig configures lookups and the enrichment stream.
type GeocodeConfig struct {
	APIKey      string   `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string   `yaml:"base_url" mapstructure:"base_url"`
	Threads     int      `yaml:"threads" mapstructure:"threads"`
	Window      int      `yaml:"window" mapstructure:"window"`
	NullValue   string   `yaml:"null_value" mapstructure:"null_value"`
	Unit        string   `yaml:"unit" mapstructure:"unit"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Fields      []string `yaml:"fields" mapstructure:"fields"`
	Format      string   `yaml:"format" mapstructure:"format"`
}

// CredentialConfig configures where the API key is looked up when it is not
// set directly.
type CredentialConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Realm       string `yaml:"realm" mapstructure:"realm"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOCODING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.base_url", geocode.DefaultBaseURL)
	v.SetDefault("geocode.threads", 8)
	v.SetDefault("geocode.window", 0)
	v.SetDefault("geocode.null_value", "")
	v.SetDefault("geocode.unit", string(geocode.Miles))
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("geocode.fields", []string{})
	v.SetDefault("geocode.format", "csv")
	v.SetDefault("credential.driver", "sqlite")
	v.SetDefault("credential.database_url", "geocoding.db")
	v.SetDefault("credential.realm", "command_geocoding")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if c.Geocode.Threads < 1 {
		return eris.Errorf("config: geocode.threads must be >= 1, got %d", c.Geocode.Threads)
	}
	if c.Geocode.Window < 0 {
		return eris.Errorf("config: geocode.window must be >= 0, got %d", c.Geocode.Window)
	}
	if _, err := geocode.ParseUnit(c.Geocode.Unit); err != nil {
		return eris.Wrap(err, "config: geocode.unit")
	}
	if c.Geocode.TimeoutSecs < 1 {
		return eris.Errorf("config: geocode.timeout_secs must be >= 1, got %d", c.Geocode.TimeoutSecs)
	}
	switch c.Credential.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: credential.driver must be sqlite or postgres, got %q", c.Credential.Driver)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// InitLogger initializes the global zap logger. Logs always go to stderr
// (or cfg.File), never stdout, which carries the record stream.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	zapCfg.OutputPaths = []string{"stderr"}
	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
