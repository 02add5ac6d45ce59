// Package config loads service settings from an optional YAML file and
// BUDGET_REPORT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. BUDGET_REPORT_SMTP_HOST.
const EnvPrefix = "BUDGET_REPORT"

type Config struct {
	GCP     GCPConfig     `mapstructure:"gcp"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
	Report  ReportConfig  `mapstructure:"report"`
	API     APIConfig     `mapstructure:"api"`
}

type GCPConfig struct {
	ProjectID string `mapstructure:"project_id"`
	DatasetID string `mapstructure:"dataset_id"`
}

// GeminiConfig switches the narrative from templates to Gemini when Enabled.
type GeminiConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type SMTPConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	From       string        `mapstructure:"from"`
	RequireTLS bool          `mapstructure:"require_tls"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// RedisConfig configures the per-recipient lock. Without it runs are not serialized.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ReportConfig struct {
	Subject       string        `mapstructure:"subject"`
	StageTimeout  time.Duration `mapstructure:"stage_timeout"`
	TopCategories int           `mapstructure:"top_categories"`
	Author        string        `mapstructure:"author"`
}

type APIConfig struct {
	Addr        string   `mapstructure:"addr"`
	Workers     int      `mapstructure:"workers"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.dataset_id", "finance")

	v.SetDefault("gemini.enabled", false)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.require_tls", false)
	v.SetDefault("smtp.timeout", "30s")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "reports")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "10m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("report.subject", "Seu relatório mensal!")
	v.SetDefault("report.stage_timeout", "0s")
	v.SetDefault("report.top_categories", 5)
	v.SetDefault("report.author", "budget-report")

	v.SetDefault("api.addr", ":8080")
	v.SetDefault("api.workers", 2)
	v.SetDefault("api.cors_origins", []string{})
}

// Load reads configFile (if non-empty) and the environment. A .env file in
// the working directory is loaded first when present; variables already set
// in the environment win over it.
func Load(configFile string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("Load: read .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("Load: read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("Load: parse config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	var errs []error
	if c.GCP.ProjectID == "" {
		errs = append(errs, errors.New("gcp.project_id is required"))
	}
	if c.GCP.DatasetID == "" {
		errs = append(errs, errors.New("gcp.dataset_id is required"))
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		errs = append(errs, errors.New("archive.bucket is required when archive is enabled"))
	}
	if c.Report.StageTimeout < 0 {
		errs = append(errs, errors.New("report.stage_timeout must not be negative"))
	}
	if c.Report.TopCategories <= 0 {
		errs = append(errs, errors.New("report.top_categories must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateDelivery checks the settings needed to send mail.
func (c *Config) ValidateDelivery() error {
	var errs []error
	if c.SMTP.Host == "" {
		errs = append(errs, errors.New("smtp.host is required"))
	}
	if c.SMTP.From == "" {
		errs = append(errs, errors.New("smtp.from is required"))
	}
	return errors.Join(errs...)
}
