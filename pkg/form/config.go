package form

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ValidateOn selects when field validation runs.
type ValidateOn string

const (
	// ValidateOnSubmit validates only on Submit (and wizard navigation).
	ValidateOnSubmit ValidateOn = "submit"
	// ValidateOnChange validates a field every time its value changes.
	ValidateOnChange ValidateOn = "change"
	// ValidateOnBlur validates a field when it loses focus.
	ValidateOnBlur ValidateOn = "blur"
)

// Defaults applied by DefaultConfig.
const (
	DefaultMaxSettleIterations = 10
	DefaultHistoryLimit        = 50
	DefaultStepBudget          = 100_000
	DefaultScriptTimeout       = 250 * time.Millisecond
	DefaultPageType            = "panel"
)

// Duration decodes "250ms" style strings from JSON and YAML.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

// UnmarshalYAML accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return d.set(raw)
}

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) set(raw any) error {
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("form: invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(v))
	case int:
		*d = Duration(time.Duration(v))
	case nil:
	default:
		return fmt.Errorf("form: invalid duration %v", raw)
	}
	return nil
}

// WizardConfig configures multi-step navigation.
type WizardConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	Linear         *bool  `json:"linear,omitempty" yaml:"linear,omitempty"`
	BreadcrumbJump bool   `json:"breadcrumbJump" yaml:"breadcrumbJump"`
	PageType       string `json:"pageType" yaml:"pageType"`
}

// IsLinear reports the effective linear flag (true when unset).
func (w WizardConfig) IsLinear() bool {
	return w.Linear == nil || *w.Linear
}

// Config holds tunables for a form instance.
type Config struct {
	ValidateOn          ValidateOn   `json:"validateOn" yaml:"validateOn" validate:"omitempty,oneof=submit change blur"`
	HistoryLimit        int          `json:"historyLimit" yaml:"historyLimit" validate:"gte=0"`
	MaxSettleIterations int          `json:"maxSettleIterations" yaml:"maxSettleIterations" validate:"gte=0,lte=1000"`
	ScriptStepBudget    uint64       `json:"scriptStepBudget" yaml:"scriptStepBudget"`
	ScriptTimeout       Duration     `json:"scriptTimeout" yaml:"scriptTimeout" validate:"gte=0"`
	Timezone            string       `json:"timezone" yaml:"timezone" validate:"omitempty,timezone"`
	Locale              string       `json:"locale" yaml:"locale"`
	Wizard              WizardConfig `json:"wizard" yaml:"wizard"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		ValidateOn:          ValidateOnSubmit,
		HistoryLimit:        DefaultHistoryLimit,
		MaxSettleIterations: DefaultMaxSettleIterations,
		ScriptStepBudget:    DefaultStepBudget,
		ScriptTimeout:       Duration(DefaultScriptTimeout),
		Wizard:              WizardConfig{PageType: DefaultPageType},
	}
}

// normalise fills zero values with defaults.
func (c Config) normalise() Config {
	def := DefaultConfig()
	if c.ValidateOn == "" {
		c.ValidateOn = def.ValidateOn
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	if c.MaxSettleIterations == 0 {
		c.MaxSettleIterations = def.MaxSettleIterations
	}
	if c.ScriptStepBudget == 0 {
		c.ScriptStepBudget = def.ScriptStepBudget
	}
	if c.ScriptTimeout == 0 {
		c.ScriptTimeout = def.ScriptTimeout
	}
	if strings.TrimSpace(c.Wizard.PageType) == "" {
		c.Wizard.PageType = def.Wizard.PageType
	}
	return c
}

var configValidator = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("form: invalid config: %w", err)
	}
	return nil
}

// ParseConfig decodes JSON, falling back to YAML, then applies defaults and
// validates the result.
func ParseConfig(data []byte, source string) (Config, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Config{}, fmt.Errorf("form: config %s is empty", source)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		cfg = Config{}
		if yerr := yaml.Unmarshal(data, &cfg); yerr != nil {
			return Config{}, fmt.Errorf("form: parse config %s: invalid JSON or YAML: %w", source, yerr)
		}
	}
	cfg = cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a JSON or YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("form: read config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}
