package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/openfroyo/sitefroyo/pkg/engine"
)

// Backends understood by the CLI.
const (
	BackendAWS   = "aws"
	BackendLocal = "local"
)

// Settings is the CLI configuration, read from .sitefroyo.yaml and
// SITEFROYO_* environment variables.
type Settings struct {
	Backend         string          `mapstructure:"backend"`
	ParameterPrefix string          `mapstructure:"parameter_prefix"`
	AWS             AWSSettings     `mapstructure:"aws"`
	State           StateSettings   `mapstructure:"state"`
	Policy          PolicySettings  `mapstructure:"policy"`
	Log             LogSettings     `mapstructure:"log"`
	Metrics         MetricsSettings `mapstructure:"metrics"`
	Tracing         TracingSettings `mapstructure:"tracing"`
	Probe           ProbeSettings   `mapstructure:"probe"`
}

// AWSSettings selects the AWS account and region.
type AWSSettings struct {
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// StateSettings locates the local SQLite database.
type StateSettings struct {
	Path string `mapstructure:"path"`
}

// PolicySettings lists extra Rego policy files and directories.
type PolicySettings struct {
	Paths []string `mapstructure:"paths"`
}

// LogSettings configures zerolog.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsSettings configures the Prometheus endpoint used by watch.
type MetricsSettings struct {
	Listen string `mapstructure:"listen"`
}

// TracingSettings configures the OpenTelemetry exporter.
type TracingSettings struct {
	Exporter string `mapstructure:"exporter"`
	Endpoint string `mapstructure:"endpoint"`
}

// ProbeSettings configures the live HTTP probe and DNS lookups.
type ProbeSettings struct {
	Timeout time.Duration `mapstructure:"timeout"`

	// DNSServers are the recursive resolvers asked for NS and TXT records,
	// as host or host:port. Empty means the built-in public resolvers.
	DNSServers []string `mapstructure:"dns_servers"`
}

// LoadSettings reads settings from cfgFile, or from .sitefroyo.yaml in the
// working directory and $HOME when cfgFile is empty.
func LoadSettings(cfgFile string) (*Settings, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".sitefroyo")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix("SITEFROYO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading settings: %w", err)
		}
		// No settings file; defaults and environment apply.
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}

	// AutomaticEnv does not split lists.
	if raw := os.Getenv("SITEFROYO_POLICY_PATHS"); raw != "" {
		s.Policy.Paths = filepath.SplitList(raw)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validating settings: %w", err)
	}

	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendAWS)
	v.SetDefault("parameter_prefix", engine.DefaultParameterPrefix)
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.profile", "")
	v.SetDefault("state.path", defaultStatePath())
	v.SetDefault("policy.paths", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("metrics.listen", "")
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("probe.timeout", time.Second)
	v.SetDefault("probe.dns_servers", []string{})
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sitefroyo/state.db"
	}
	return filepath.Join(home, ".sitefroyo", "state.db")
}

// Validate checks the settings for errors.
func (s *Settings) Validate() error {
	switch s.Backend {
	case BackendAWS, BackendLocal:
	default:
		return fmt.Errorf("invalid backend: %s (must be aws or local)", s.Backend)
	}

	if !strings.HasPrefix(s.ParameterPrefix, "/") {
		return fmt.Errorf("parameter_prefix must start with /: %q", s.ParameterPrefix)
	}

	if s.Backend == BackendLocal && s.State.Path == "" {
		return fmt.Errorf("state.path is required for the local backend")
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[s.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be trace, debug, info, warn, or error)", s.Log.Level)
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[s.Log.Format] {
		return fmt.Errorf("invalid log format: %s (must be console or json)", s.Log.Format)
	}

	switch s.Tracing.Exporter {
	case "none", "stdout":
	case "otlp":
		if s.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing.endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("invalid tracing exporter: %s (must be none, stdout, or otlp)", s.Tracing.Exporter)
	}

	if s.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}

	return nil
}
