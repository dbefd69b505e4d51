package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"deps-triage/triage"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultProject = "default"
	DefaultSystem  = "NPM"
	DefaultPackage = "react"
	DefaultVersion = "18.2.0"

	BaseURL              = "https://api.deps.dev/v3"
	DefaultMaxConcurrent = 10

	DefaultPort            = "8080"
	DefaultSQLitePath      = "./data/app.db"
	DefaultConfigPath      = "triage.yaml"
	DefaultRefreshSchedule = "0 0 * * *"
)

type RefreshTarget struct {
	Project string `yaml:"project"`
	System  string `yaml:"system"`
	Package string `yaml:"package"`
	Version string `yaml:"version"`
}

type Config struct {
	Port            string            `yaml:"port"`
	SQLitePath      string            `yaml:"sqlite_path"`
	AllowedOrigins  []string          `yaml:"allowed_origins"`
	DepsDevURL      string            `yaml:"depsdev_url"`
	MaxConcurrent   int               `yaml:"max_concurrent"`
	RefreshSchedule string            `yaml:"refresh_schedule"`
	InitialRefresh  bool              `yaml:"initial_refresh"`
	DailyRefresh    bool              `yaml:"daily_refresh"`
	Refresh         RefreshTarget     `yaml:"refresh"`
	Thresholds      triage.Thresholds `yaml:"thresholds"`
}

// Load reads .env, then the YAML policy file, then environment overrides.
// A missing file at either step is not an error. Thresholds absent from the
// policy file keep their defaults; explicit zeros are kept.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{Thresholds: triage.DefaultThresholds()}
	path := DefaultConfigPath
	if p := os.Getenv("TRIAGE_CONFIG"); p != "" {
		path = p
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	envOverride(&cfg.Port, "PORT")
	envOverride(&cfg.SQLitePath, "SQLITE_PATH")
	envOverride(&cfg.DepsDevURL, "DEPSDEV_URL")
	envOverride(&cfg.RefreshSchedule, "REFRESH_SCHEDULE")
	envOverrideInt(&cfg.MaxConcurrent, "MAX_CONCURRENT")
	envOverrideBool(&cfg.InitialRefresh, "WITH_INITIAL_DATA_REFRESH")
	envOverrideBool(&cfg.DailyRefresh, "WITH_DAILY_DATA_REFRESH")
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.SQLitePath == "" {
		c.SQLitePath = DefaultSQLitePath
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if c.DepsDevURL == "" {
		c.DepsDevURL = BaseURL
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.RefreshSchedule == "" {
		c.RefreshSchedule = DefaultRefreshSchedule
	}
	if c.Refresh.Project == "" {
		c.Refresh.Project = DefaultProject
	}
	if c.Refresh.System == "" {
		c.Refresh.System = DefaultSystem
	}
	if c.Refresh.Package == "" {
		c.Refresh.Package = DefaultPackage
	}
	if c.Refresh.Version == "" {
		c.Refresh.Version = DefaultVersion
	}
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
