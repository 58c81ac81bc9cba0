// Package config loads the pipeline and backend configuration document.
// The flat Postgres/Server sections are decoded with cleanenv exactly as
// the teacher does; the polymorphic reporters/repositories lists are
// decoded by hand with yaml.v3 because cleanenv cannot express a
// discriminated union of list items.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type Channel string

const (
	ChannelDev        Channel = "dev"
	ChannelTesting    Channel = "testing"
	ChannelProduction Channel = "production"
)

type Config struct {
	AppChannel Channel  `yml:"app_channel" default:"dev"`
	Postgres   Postgres `yml:"postgres"`
	Server     Server   `yml:"server" env-required:"true"`
	Redis      Redis    `yml:"redis"`
	Pipeline   Pipeline `yml:"-"`
}

type Postgres struct {
	Username        string        `env:"POSTGRES_USER" env-required:"true"`
	Password        string        `env:"POSTGRES_PASSWORD" env-required:"true"`
	Host            string        `yml:"host" env-required:"true"`
	Port            string        `env:"POSTGRES_PORT" env-required:"true"`
	Database        string        `env:"POSTGRES_DB" env-required:"true"`
	MaxOpenConns    int           `yml:"max_open_conns" default:"50"`
	MaxIdleConns    int           `yml:"max_idle_conns" default:"10"`
	ConnMaxLifetime time.Duration `yml:"conn_max_lifetime" default:"5m"`
	ConnMaxIdleTime time.Duration `yml:"conn_max_idle_time" default:"1m"`
}

type Server struct {
	Host    string        `yml:"host" default:"localhost"`
	Port    string        `yml:"port" default:"8080"`
	Timeout time.Duration `yml:"timeout" default:"5s"`
}

type Redis struct {
	Addr     string `yml:"addr" default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `yml:"db" default:"0"`
}

// Pipeline groups the options spec.md §6 attaches to a single run.
type Pipeline struct {
	CIBaseURL           string        `yaml:"ci_base_url"`
	ZeroCoverageEnabled bool          `yaml:"zero_coverage_enabled"`
	BeforeAfterRatio    float64       `yaml:"before_after_ratio"`
	Deadline            time.Duration `yaml:"deadline"`
	IngestConcurrency   int           `yaml:"ingest_concurrency"`
	ParseQueueSize      int           `yaml:"parse_queue_size"`
	WorkDir             string        `yaml:"work_dir"`
	Reporters           []ReporterConfig
	Repositories        []RepositoryConfig
}

// ReporterKind discriminates the polymorphic `reporters` list entries.
type ReporterKind string

const (
	ReporterKindPlatform    ReporterKind = "platform"
	ReporterKindEmail       ReporterKind = "email"
	ReporterKindBackend     ReporterKind = "backend"
	ReporterKindBuildError  ReporterKind = "build_error"
)

type ReporterConfig struct {
	Kind             ReporterKind `yaml:"kind"`
	Emails           []string     `yaml:"emails"`
	URL              string       `yaml:"url"`
	Credentials      string       `yaml:"credentials"`
	AnalyzersSkipped []string     `yaml:"analyzers_skipped"`
}

type CheckoutMode string

const (
	CheckoutRobust  CheckoutMode = "robust"
	CheckoutBatch   CheckoutMode = "batch"
	CheckoutDefault CheckoutMode = "default"
)

type RepositoryConfig struct {
	Slug              string       `yaml:"slug"`
	URL               string       `yaml:"url"`
	TryURL            string       `yaml:"try_url"`
	CheckoutMode      CheckoutMode `yaml:"checkout_mode"`
	SSHUser           string       `yaml:"ssh_user"`
	DecisionEnvPrefix string       `yaml:"decision_env_prefix"`
}

// rawDocument mirrors the on-disk YAML shape before the polymorphic lists
// are split out by kind.
type rawDocument struct {
	AppChannel   Channel            `yaml:"app_channel"`
	Postgres     yaml.Node          `yaml:"postgres"`
	Server       yaml.Node          `yaml:"server"`
	Redis        yaml.Node          `yaml:"redis"`
	Pipeline     struct {
		CIBaseURL           string        `yaml:"ci_base_url"`
		ZeroCoverageEnabled bool          `yaml:"zero_coverage_enabled"`
		BeforeAfterRatio    float64       `yaml:"before_after_ratio"`
		Deadline            time.Duration `yaml:"deadline"`
		IngestConcurrency   int           `yaml:"ingest_concurrency"`
		ParseQueueSize      int           `yaml:"parse_queue_size"`
		WorkDir             string        `yaml:"work_dir"`
	} `yaml:"pipeline"`
	Reporters    []ReporterConfig   `yaml:"reporters"`
	Repositories []RepositoryConfig `yaml:"repositories"`
}

// Load reads the configuration document at CONFIG_PATH (or path, if
// non-empty) combining cleanenv for the flat ambient sections and a
// manual yaml.v3 pass for the polymorphic pipeline sections.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		return nil, errors.New("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file does not exist: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	var doc rawDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("cannot decode pipeline section: %w", err)
	}

	cfg.Pipeline = Pipeline{
		CIBaseURL:           doc.Pipeline.CIBaseURL,
		ZeroCoverageEnabled: doc.Pipeline.ZeroCoverageEnabled,
		BeforeAfterRatio:    doc.Pipeline.BeforeAfterRatio,
		Deadline:            doc.Pipeline.Deadline,
		IngestConcurrency:   doc.Pipeline.IngestConcurrency,
		ParseQueueSize:      doc.Pipeline.ParseQueueSize,
		WorkDir:             doc.Pipeline.WorkDir,
		Reporters:           doc.Reporters,
		Repositories:        doc.Repositories,
	}
	if cfg.Pipeline.Deadline == 0 {
		cfg.Pipeline.Deadline = 2 * time.Hour
	}
	if cfg.Pipeline.IngestConcurrency == 0 {
		cfg.Pipeline.IngestConcurrency = 8
	}
	if cfg.Pipeline.ParseQueueSize == 0 {
		cfg.Pipeline.ParseQueueSize = 64
	}
	if cfg.Pipeline.WorkDir == "" {
		cfg.Pipeline.WorkDir = "/tmp/results"
	}

	return &cfg, nil
}

// MustLoad panics on error; used by command entrypoints that cannot
// usefully continue without a valid configuration.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
