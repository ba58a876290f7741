package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/ledgermap/pkg/constants"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "LEDGERMAP"

// Config holds the application configuration loaded from the config file,
// environment variables and .env files. Command flags override it.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Pipeline defaults
	PipelineFile string // YAML pipeline configuration
	IDMap        string // overrides the pipeline's idmap path
	OutputDir    string
	Workers      int
	MetricsFile  string

	// Source of these settings, empty when no file was found
	ConfigFileUsed string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (handled by cobra)
//  2. LEDGERMAP_* environment variables
//  3. .env files
//  4. Config file (./.ledgermap.yaml or ~/.ledgermap.yaml)
//  5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()
	return loadConfig(viper.New(), "")
}

// loadConfig builds the configuration from v. A non-empty file replaces the
// search of the standard locations.
func loadConfig(v *viper.Viper, file string) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("output", constants.DefaultOutputDir)
	v.SetDefault("log_level", "")
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName(".ledgermap")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		// A missing config file is not an error
		_ = v.ReadInConfig()
	}

	return &Config{
		Verbose:        v.GetBool("verbose"),
		Quiet:          v.GetBool("quiet"),
		NoColor:        v.GetBool("no_color"),
		PipelineFile:   v.GetString("config"),
		IDMap:          v.GetString("idmap"),
		OutputDir:      v.GetString("output"),
		Workers:        v.GetInt("workers"),
		MetricsFile:    v.GetString("metrics_file"),
		ConfigFileUsed: v.ConfigFileUsed(),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
		LogOutput:      v.GetString("log_output"),
	}, nil
}

// UpdateFromFlags updates config values from parsed command flags so that
// flag values take precedence over the config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local does not override variables set by .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}
