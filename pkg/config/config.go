// Package config holds the engine configuration: YAML file loading, CLI
// flag overlay, and startup validation. Validation failures are ConfigErrors
// and fatal before any test runs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/remedyqa/remedy/pkg/types"
	"gopkg.in/yaml.v3"
)

// Framework names the test-artifact dialect healing mutations target.
// It selects the timing-statement template the applier inserts.
type Framework string

const (
	FrameworkYAML       Framework = "yaml"
	FrameworkPlaywright Framework = "playwright"
	FrameworkCypress    Framework = "cypress"
	FrameworkPuppeteer  Framework = "puppeteer"
)

// KnownFrameworks lists the accepted --framework values.
var KnownFrameworks = []Framework{
	FrameworkYAML,
	FrameworkPlaywright,
	FrameworkCypress,
	FrameworkPuppeteer,
}

// Valid reports whether f is a recognized framework name.
func (f Framework) Valid() bool {
	for _, k := range KnownFrameworks {
		if f == k {
			return true
		}
	}
	return false
}

// Duration wraps time.Duration so YAML configs can use human-readable
// values like "30s" or "2m". Plain integers decode as nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var n int64
	if err := node.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration value")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// TimeoutConfig sets the three independent timeout layers: per browser
// action, per oracle call, and per overall test attempt.
type TimeoutConfig struct {
	Action  Duration `yaml:"action"`
	Oracle  Duration `yaml:"oracle"`
	Attempt Duration `yaml:"attempt"`
}

// OracleConfig tunes the healing oracle client.
type OracleConfig struct {
	// MaxRetries caps re-requests after empty or malformed responses.
	MaxRetries int `yaml:"max_retries"`

	// BackoffBase is the delay before the first retry; subsequent
	// retries wait BackoffBase * attempt.
	BackoffBase Duration `yaml:"backoff_base"`

	// MaxOutputTokens is the initial response token ceiling. It is
	// halved on each retry to reduce truncation risk.
	MaxOutputTokens int `yaml:"max_output_tokens"`
}

// BrowserConfig configures the automation driver's browser sessions.
type BrowserConfig struct {
	Headless       bool `yaml:"headless"`
	ViewportWidth  int  `yaml:"viewport_width"`
	ViewportHeight int  `yaml:"viewport_height"`
}

// Config is the full engine configuration.
type Config struct {
	// Model is the vision-capable model consulted as the healing oracle.
	Model string `yaml:"model"`

	// BaseURL overrides the OpenAI-compatible API endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates oracle calls. Usually supplied via the
	// REMEDY_API_KEY or OPENAI_API_KEY environment variables.
	APIKey string `yaml:"api_key"`

	// Framework names the artifact dialect for healing mutations.
	Framework Framework `yaml:"framework"`

	// OutputDir receives reports and failure screenshots.
	OutputDir string `yaml:"output_dir"`

	// TestPattern is the glob used to discover tests in suite mode.
	TestPattern string `yaml:"test_pattern"`

	// HealingEnabled gates the whole healing path; --no-healing clears it.
	HealingEnabled bool `yaml:"healing_enabled"`

	// AutoApply lets the applier rewrite artifacts without human review.
	AutoApply bool `yaml:"auto_apply"`

	// ConfidenceThreshold is the minimum per-action confidence required
	// before a healing action may be auto-applied.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// MaxHealingAttempts bounds attempts per test, first run included.
	MaxHealingAttempts int `yaml:"max_healing_attempts"`

	// MaxLoopIterations caps agentic action loop turns per task.
	MaxLoopIterations int `yaml:"max_loop_iterations"`

	Browser  BrowserConfig `yaml:"browser"`
	Oracle   OracleConfig  `yaml:"oracle"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Model:               "gpt-4o",
		Framework:           FrameworkYAML,
		OutputDir:           ".remedy",
		TestPattern:         "**/*.test.yaml",
		HealingEnabled:      true,
		AutoApply:           false,
		ConfidenceThreshold: 0.7,
		MaxHealingAttempts:  3,
		MaxLoopIterations:   25,
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 720,
		},
		Oracle: OracleConfig{
			MaxRetries:      3,
			BackoffBase:     Duration(2 * time.Second),
			MaxOutputTokens: 4096,
		},
		Timeouts: TimeoutConfig{
			Action:  Duration(30 * time.Second),
			Oracle:  Duration(60 * time.Second),
			Attempt: Duration(5 * time.Minute),
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &types.ConfigError{Message: fmt.Sprintf("invalid YAML in %s: %v", path, err)}
	}

	return cfg, nil
}

// ResolveAPIKey returns the oracle credential, falling back to the
// REMEDY_API_KEY and OPENAI_API_KEY environment variables.
func (c *Config) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if key := os.Getenv("REMEDY_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("OPENAI_API_KEY")
}

// Validate checks the configuration and returns the first problem as a
// ConfigError. validate-config surfaces these with a non-zero exit.
func (c *Config) Validate() error {
	if c.ResolveAPIKey() == "" {
		return &types.ConfigError{
			Field:   "api_key",
			Message: "missing oracle API credential (set REMEDY_API_KEY or OPENAI_API_KEY, or api_key in the config file)",
		}
	}

	if c.Model == "" {
		return &types.ConfigError{Field: "model", Message: "model is required"}
	}

	if !c.Framework.Valid() {
		return &types.ConfigError{
			Field:   "framework",
			Message: fmt.Sprintf("invalid framework %q (known: %v)", c.Framework, KnownFrameworks),
		}
	}

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return &types.ConfigError{
			Field:   "confidence_threshold",
			Message: fmt.Sprintf("must be in [0,1], got %v", c.ConfidenceThreshold),
		}
	}

	if c.MaxHealingAttempts < 1 {
		return &types.ConfigError{Field: "max_healing_attempts", Message: "must be at least 1"}
	}

	if c.MaxLoopIterations < 1 {
		return &types.ConfigError{Field: "max_loop_iterations", Message: "must be at least 1"}
	}

	if c.Oracle.MaxRetries < 0 {
		return &types.ConfigError{Field: "oracle.max_retries", Message: "cannot be negative"}
	}

	if c.Oracle.MaxOutputTokens < 1 {
		return &types.ConfigError{Field: "oracle.max_output_tokens", Message: "must be positive"}
	}

	if c.Browser.ViewportWidth < 1 || c.Browser.ViewportHeight < 1 {
		return &types.ConfigError{Field: "browser", Message: "viewport dimensions must be positive"}
	}

	for field, d := range map[string]Duration{
		"timeouts.action":  c.Timeouts.Action,
		"timeouts.oracle":  c.Timeouts.Oracle,
		"timeouts.attempt": c.Timeouts.Attempt,
	} {
		if d <= 0 {
			return &types.ConfigError{Field: field, Message: "timeout must be positive"}
		}
	}

	return nil
}
