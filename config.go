package advisory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of the advisory application.
type Config struct {
	Model               string         `yaml:"model"`
	MaxRetries          int            `yaml:"max_retries"`
	Timeout             time.Duration  `yaml:"timeout"`
	SmallDebtThreshold  int64          `yaml:"small_debt_threshold"`
	MinCashBufferMonths int            `yaml:"min_cash_buffer_months"`
	ComplianceMode      ComplianceMode `yaml:"compliance_mode"`
	Currency            string         `yaml:"currency"`
	LogLevel            string         `yaml:"log_level"`
	Listen              string         `yaml:"listen"`
	ProfilesDir         string         `yaml:"profiles_dir"`
	DatabaseURL         string         `yaml:"database_url"`
	KnowledgeDir        string         `yaml:"knowledge_dir"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Model:               "gemini-2.5-pro",
		MaxRetries:          DefaultMaxRetries,
		Timeout:             60 * time.Second,
		SmallDebtThreshold:  5000,
		MinCashBufferMonths: 3,
		ComplianceMode:      Educational,
		Currency:            "USD",
		LogLevel:            "info",
		Listen:              ":8080",
		ProfilesDir:         "profiles",
	}
}

// LoadConfig reads the YAML file at path over the defaults, then applies the ADVISORY_*
// environment variables. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %q: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("ADVISORY_MODEL", &c.Model)
	str("ADVISORY_CURRENCY", &c.Currency)
	str("ADVISORY_LOG_LEVEL", &c.LogLevel)
	str("ADVISORY_LISTEN", &c.Listen)
	str("ADVISORY_PROFILES_DIR", &c.ProfilesDir)
	str("ADVISORY_DATABASE_URL", &c.DatabaseURL)
	str("ADVISORY_KNOWLEDGE_DIR", &c.KnowledgeDir)
	if v, ok := lookup("ADVISORY_COMPLIANCE_MODE"); ok {
		c.ComplianceMode = ComplianceMode(v)
	}
	if v, ok := lookup("ADVISORY_MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ADVISORY_MAX_RETRIES: %w", err)
		}
		c.MaxRetries = n
	}
	if v, ok := lookup("ADVISORY_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ADVISORY_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %v", c.Timeout))
	}
	if c.SmallDebtThreshold <= 0 {
		errs = append(errs, fmt.Errorf("small_debt_threshold must be positive, got %d", c.SmallDebtThreshold))
	}
	if c.MinCashBufferMonths < 0 {
		errs = append(errs, fmt.Errorf("min_cash_buffer_months must not be negative, got %d", c.MinCashBufferMonths))
	}
	switch c.ComplianceMode {
	case Educational, Strict:
	default:
		errs = append(errs, fmt.Errorf("unknown compliance_mode %q", c.ComplianceMode))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Policy returns the business rules policy. Inputs built by Builder carry the same threshold
// in the client's currency.
func (c Config) Policy() Policy {
	return Policy{SmallDebtThreshold: M(c.SmallDebtThreshold, c.Currency)}
}

// Builder returns the PlanInputs builder.
func (c Config) Builder() Builder {
	return Builder{
		Currency: c.Currency,
		Constraints: Constraints{
			MinCashBufferMonths: c.MinCashBufferMonths,
			ComplianceMode:      c.ComplianceMode,
			SmallDebtThreshold:  M(c.SmallDebtThreshold, c.Currency),
		},
	}
}

// Pipeline returns a pipeline calling m with the configured retries and timeout.
func (c Config) Pipeline(m Model, log logrus.FieldLogger) *Pipeline {
	return &Pipeline{
		Model:      m,
		Validator:  NewValidator(c.Policy()),
		MaxRetries: c.MaxRetries,
		Timeout:    c.Timeout,
		Logger:     log,
	}
}

// NewLogger returns a logger at the configured level.
func (c Config) NewLogger(json bool) *logrus.Logger {
	log := logrus.New()
	if json {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
