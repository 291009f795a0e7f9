package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"PriceArchiver/internal/logger"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Default values for optional configuration fields.
const (
	DefaultPeriod          = "1mo"
	DefaultInterval        = "1d"
	DefaultTimeout         = 30 * time.Second
	DefaultMaxAttempts     = 3
	DefaultRetryBackoff    = 2 * time.Second
	DefaultLogfileMaxLines = 500
	DefaultAlertStateFile  = "alert_state.json"
	DefaultSMTPTimeout     = 30 * time.Second
)

// Config holds all application configuration. It is built once by Load and
// never mutated afterwards.
type Config struct {
	Yahoo struct {
		Symbols      []string      `yaml:"Symbols"`
		Period       string        `yaml:"Period"`
		Interval     string        `yaml:"Interval"`
		Timeout      time.Duration `yaml:"Timeout"`
		MaxAttempts  int           `yaml:"MaxAttempts"`
		RetryBackoff time.Duration `yaml:"RetryBackoff"`
		Proxy        string        `yaml:"Proxy,omitempty"`
	} `yaml:"Yahoo"`
	Files struct {
		OutputCSV        string `yaml:"OutputCSV"`
		LogfileName      string `yaml:"LogfileName"`
		LogfileMaxLines  int    `yaml:"LogfileMaxLines"`
		LogfileMaxSizeMB int    `yaml:"LogfileMaxSizeMB"`
		LogfileVerbosity string `yaml:"LogfileVerbosity"`
		ConsoleVerbosity string `yaml:"ConsoleVerbosity"`
		AlertStateFile   string `yaml:"AlertStateFile"`
	} `yaml:"Files"`
	Email struct {
		EnableEmail   bool          `yaml:"EnableEmail"`
		SendEmailsTo  string        `yaml:"SendEmailsTo"`
		SMTPServer    string        `yaml:"SMTPServer"`
		SMTPPort      int           `yaml:"SMTPPort"`
		SMTPUsername  string        `yaml:"SMTPUsername"`
		SMTPPassword  string        `yaml:"SMTPPassword"`
		SubjectPrefix string        `yaml:"SubjectPrefix"`
		SMTPTimeout   time.Duration `yaml:"SMTPTimeout"`
	} `yaml:"Email"`
	Schedule struct {
		Cron string `yaml:"Cron,omitempty"`
	} `yaml:"Schedule"`
}

// ConfigError reports why a configuration document could not be used.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Problems lists every individual validation failure.
func (e *ConfigError) Problems() []error {
	return multierr.Errors(e.Err)
}

// Default returns a config holding only the defaults of optional fields.
// Required fields stay empty so that their absence is detected.
func Default() *Config {
	cfg := &Config{}
	cfg.Yahoo.Period = DefaultPeriod
	cfg.Yahoo.Interval = DefaultInterval
	cfg.Yahoo.Timeout = DefaultTimeout
	cfg.Yahoo.MaxAttempts = DefaultMaxAttempts
	cfg.Yahoo.RetryBackoff = DefaultRetryBackoff
	cfg.Files.LogfileMaxLines = DefaultLogfileMaxLines
	cfg.Files.AlertStateFile = DefaultAlertStateFile
	cfg.Email.SMTPTimeout = DefaultSMTPTimeout
	return cfg
}

// Load reads a YAML config file, applies defaults and environment overrides,
// and validates the result. Any failure is returned as a *ConfigError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("read config: %w", err)}
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(expandEnv(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("parse config: %w", err)}
	}

	cfg.applyEnv()
	cfg.resolvePaths(filepath.Dir(path))
	cfg.Yahoo.Symbols = dedupeSymbols(cfg.Yahoo.Symbols)

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv substitutes ${VAR} references. Bare $ is left alone so passwords survive.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		return []byte(os.Getenv(string(envRef.FindSubmatch(m)[1])))
	})
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Yahoo.Proxy = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Email.SMTPPassword = v
	}
}

// resolvePaths anchors relative file paths at the config file's directory.
func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.Files.OutputCSV, &c.Files.LogfileName, &c.Files.AlertStateFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

func dedupeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// FileVerbosity is the parsed log file threshold.
func (c *Config) FileVerbosity() logger.Verbosity {
	v, _ := logger.ParseVerbosity(c.Files.LogfileVerbosity)
	return v
}

// ConsoleVerbosity is the parsed console threshold.
func (c *Config) ConsoleVerbosity() logger.Verbosity {
	v, _ := logger.ParseVerbosity(c.Files.ConsoleVerbosity)
	return v
}

// Template returns the config written by WriteDefault.
func Template() *Config {
	cfg := Default()
	cfg.Yahoo.Symbols = []string{"AAPL", "MSFT", "GOOGL"}
	cfg.Files.OutputCSV = "yahoo_prices.csv"
	cfg.Files.LogfileName = "YahooFinance.log"
	cfg.Files.LogfileVerbosity = "detailed"
	cfg.Files.ConsoleVerbosity = "summary"
	cfg.Email.SendEmailsTo = "<Your email address here>"
	cfg.Email.SMTPServer = "smtp.gmail.com"
	cfg.Email.SMTPPort = 587
	cfg.Email.SMTPUsername = "<Your SMTP username here>"
	cfg.Email.SMTPPassword = "<Your SMTP password here>"
	cfg.Email.SubjectPrefix = "[PriceArchiver] "
	return cfg
}

// WriteDefault writes the template config to path. It refuses to overwrite.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}
	data, err := yaml.Marshal(Template())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
