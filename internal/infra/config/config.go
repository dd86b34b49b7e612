package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/datallboy/segfetch/internal/domain"
)

type Config struct {
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Probe    ProbeConfig    `mapstructure:"probe" yaml:"probe"`
	Retry    RetryConfig    `mapstructure:"retry" yaml:"retry"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`

	Port string `mapstructure:"port" yaml:"port"`
}

type SourceConfig struct {
	URL       string        `mapstructure:"url" yaml:"url"`
	Extension string        `mapstructure:"extension" yaml:"extension"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
}

type ProbeConfig struct {
	Method     string `mapstructure:"method" yaml:"method"`
	InitialLow int    `mapstructure:"initial_low" yaml:"initial_low"`
	Ceiling    int    `mapstructure:"ceiling" yaml:"ceiling"`
}

type RetryConfig struct {
	Attempts   int           `mapstructure:"attempts" yaml:"attempts"`
	Backoff    time.Duration `mapstructure:"backoff" yaml:"backoff"`
	MaxBackoff time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
}

type DownloadConfig struct {
	Start      int    `mapstructure:"start" yaml:"start"`
	Stop       int    `mapstructure:"stop" yaml:"stop"`
	Output     string `mapstructure:"output" yaml:"output"`
	OutDir     string `mapstructure:"out_dir" yaml:"out_dir"`
	MaxWorkers int    `mapstructure:"max_workers" yaml:"max_workers"`
	PadWidth   int    `mapstructure:"pad_width" yaml:"pad_width"`
	Balance    string `mapstructure:"balance" yaml:"balance"`
	Reassemble string `mapstructure:"reassemble" yaml:"reassemble"`
	Progress   bool   `mapstructure:"progress" yaml:"progress"`
}

type StoreConfig struct {
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

// Reassembly modes.
const (
	ReassembleConcat = "concat"
	ReassembleList   = "list"
	ReassembleNone   = "none"
)

// Load reads path (or ./config.yaml when present) on top of the defaults.
// A missing default config file is not an error: every setting has a
// default and can be overridden through SEGFETCH_* variables or flags.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Support Environment Variables
	v.SetEnvPrefix("SEGFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("source.url", "")
	v.SetDefault("source.extension", domain.DefaultExtension)
	v.SetDefault("source.timeout", 30*time.Second)
	v.SetDefault("source.user_agent", "")
	v.SetDefault("probe.method", "head")
	v.SetDefault("probe.initial_low", 1)
	v.SetDefault("probe.ceiling", 10000)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.backoff", 2*time.Second)
	v.SetDefault("retry.max_backoff", 30*time.Second)
	v.SetDefault("download.start", 0)
	v.SetDefault("download.stop", 0)
	v.SetDefault("download.output", "out.mp4")
	v.SetDefault("download.out_dir", "")
	v.SetDefault("download.max_workers", 30)
	v.SetDefault("download.pad_width", 4)
	v.SetDefault("download.balance", string(domain.BalanceRemainderLast))
	v.SetDefault("download.reassemble", ReassembleConcat)
	v.SetDefault("download.progress", true)
	v.SetDefault("store.sqlite_path", "segfetch.db")
	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)
}

// Validate fills defaults for unset values and rejects invalid ones. Call it
// again after overriding fields from flags.
func (c *Config) Validate() error {
	if c.Download.Start < 0 {
		return errors.New("download.start must not be negative")
	}

	if c.Download.Stop < 0 {
		return errors.New("download.stop must not be negative")
	}

	if c.Download.Stop > 0 && c.Download.Stop <= c.Download.Start {
		return fmt.Errorf("download.stop (%d) must be greater than download.start (%d)", c.Download.Stop, c.Download.Start)
	}

	if c.Download.MaxWorkers <= 0 {
		// Default to a sane value
		c.Download.MaxWorkers = 30
	}

	if c.Download.PadWidth <= 0 {
		c.Download.PadWidth = 4
	}

	if c.Download.Output == "" {
		c.Download.Output = "out.mp4"
	}

	switch domain.Balance(c.Download.Balance) {
	case domain.BalanceRemainderLast, domain.BalanceSpread:
	case "":
		c.Download.Balance = string(domain.BalanceRemainderLast)
	default:
		return fmt.Errorf("download.balance must be %q or %q, got %q",
			domain.BalanceRemainderLast, domain.BalanceSpread, c.Download.Balance)
	}

	switch c.Download.Reassemble {
	case ReassembleConcat, ReassembleList, ReassembleNone:
	default:
		return fmt.Errorf("download.reassemble must be concat, list or none, got %q", c.Download.Reassemble)
	}

	switch c.Probe.Method {
	case "head", "get":
	default:
		return fmt.Errorf("probe.method must be head or get, got %q", c.Probe.Method)
	}

	if c.Probe.InitialLow < 1 {
		return errors.New("probe.initial_low must be at least 1")
	}

	if c.Probe.Ceiling <= c.Probe.InitialLow {
		return fmt.Errorf("probe.ceiling (%d) must be greater than probe.initial_low (%d)", c.Probe.Ceiling, c.Probe.InitialLow)
	}

	if c.Retry.Attempts < 0 {
		return errors.New("retry.attempts must not be negative")
	}

	if c.Source.Extension == "" {
		c.Source.Extension = domain.DefaultExtension
	}

	return nil
}

// RunConfig builds the immutable run description from the loaded settings.
// The source URL must be set by now, either in the file or by the caller.
func (c *Config) RunConfig() (domain.RunConfig, error) {
	if c.Source.URL == "" {
		return domain.RunConfig{}, errors.New("source url is required")
	}

	tpl, err := domain.ParseTemplate(c.Source.URL, c.Source.Extension)
	if err != nil {
		return domain.RunConfig{}, err
	}

	outDir := c.Download.OutDir
	if outDir == "" {
		// Segments live next to the output
		outDir = filepath.Dir(c.Download.Output)
	}

	return domain.RunConfig{
		Template: tpl,
		Start:    c.Download.Start,
		Stop:     c.Download.Stop,
		OutDir:   outDir,
		Output:   c.Download.Output,
		Workers:  c.Download.MaxWorkers,
		Balance:  domain.Balance(c.Download.Balance),
	}, nil
}
