package payroll

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"nomina/internal/core"
)

// SettingsVersion is the schema version written by this build.
const SettingsVersion = 1

// Settings is the single configuration entity: quotas, base salary, rates
// and aggregation strategies. Values are treated as an immutable snapshot.
type Settings struct {
	Version              int             `yaml:"version" json:"version"`
	DailyQuota           int             `yaml:"daily_quota" json:"daily_quota"`
	MonthlyQuota         int             `yaml:"monthly_quota" json:"monthly_quota"`
	BaseSalary           float64         `yaml:"base_salary" json:"base_salary"`
	Rates                RateTable       `yaml:"rates" json:"rates"`
	Strategy             StrategyConfig  `yaml:"strategy" json:"strategy"`
	QualifyingCategories []core.Category `yaml:"qualifying_categories" json:"qualifying_categories"`
	Leaders              []string        `yaml:"leaders,omitempty" json:"leaders,omitempty"`
	Statuses             []string        `yaml:"statuses,omitempty" json:"statuses,omitempty"`
}

// DefaultSettings returns the configuration used before any is stored.
func DefaultSettings() Settings {
	return Settings{
		Version:      SettingsVersion,
		DailyQuota:   12,
		MonthlyQuota: 300,
		Rates:        DefaultRates(),
		Strategy: StrategyConfig{
			Default:   RowCountStrategy,
			Overrides: map[core.Category]StrategyName{core.HorasExtra: SumQuantityStrategy},
		},
		QualifyingCategories: []core.Category{core.Productividad},
		Statuses:             []string{"Finalizado", "Defensoria", "Tutela"},
	}
}

// Clone returns a deep copy so callers can modify it without touching the snapshot.
func (s Settings) Clone() Settings {
	out := s
	out.Rates = s.Rates.Clone()
	out.Strategy.Overrides = make(map[core.Category]StrategyName, len(s.Strategy.Overrides))
	for k, v := range s.Strategy.Overrides {
		out.Strategy.Overrides[k] = v
	}
	out.QualifyingCategories = append([]core.Category(nil), s.QualifyingCategories...)
	out.Leaders = append([]string(nil), s.Leaders...)
	out.Statuses = append([]string(nil), s.Statuses...)
	return out
}

// Qualifies reports whether entries of c count toward quotas.
func (s Settings) Qualifies(c core.Category) bool {
	for _, q := range s.QualifyingCategories {
		if q == c {
			return true
		}
	}
	return false
}

// Validate reports every problem at once, mirroring config validation.
func (s Settings) Validate() error {
	var errs []string
	if s.DailyQuota < 0 {
		errs = append(errs, "daily_quota must not be negative")
	}
	if s.MonthlyQuota < 0 {
		errs = append(errs, "monthly_quota must not be negative")
	}
	if s.BaseSalary < 0 {
		errs = append(errs, "base_salary must not be negative")
	}
	for c, v := range s.Rates {
		if !c.Valid() {
			errs = append(errs, fmt.Sprintf("unknown rate category %q", c))
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Sprintf("rate for %s must be a non-negative number", c))
		}
	}
	if _, err := MeasureFor(s.Strategy.Default); err != nil {
		errs = append(errs, err.Error())
	}
	for c, name := range s.Strategy.Overrides {
		if !c.Valid() {
			errs = append(errs, fmt.Sprintf("unknown strategy override category %q", c))
		}
		if _, err := MeasureFor(name); err != nil {
			errs = append(errs, err.Error())
		}
	}
	for _, c := range s.QualifyingCategories {
		if !c.Valid() {
			errs = append(errs, fmt.Sprintf("unknown qualifying category %q", c))
		}
	}
	if len(errs) > 0 {
		return core.NewValidationError("settings", strings.Join(errs, "; "))
	}
	return nil
}

// settingsDocument is the on-disk shape. Numeric fields are decoded
// leniently and nil fields keep their defaults.
type settingsDocument struct {
	Version              *lenientInt             `yaml:"version"`
	DailyQuota           *lenientInt             `yaml:"daily_quota"`
	MonthlyQuota         *lenientInt             `yaml:"monthly_quota"`
	BaseSalary           *lenientFloat           `yaml:"base_salary"`
	Rates                map[string]lenientFloat `yaml:"rates"`
	Strategy             *strategyDocument       `yaml:"strategy"`
	QualifyingCategories []string                `yaml:"qualifying_categories"`
	Leaders              []string                `yaml:"leaders"`
	Statuses             []string                `yaml:"statuses"`
	Legacy               map[string]lenientFloat `yaml:",inline"`
}

type strategyDocument struct {
	Default   StrategyName            `yaml:"default"`
	Overrides map[string]StrategyName `yaml:"overrides"`
}

// UnmarshalYAML coerces malformed numbers to 0 instead of failing, and
// accepts the legacy meta_dia/meta_mes/valor_*/salario_base_mensual keys.
func (s *Settings) UnmarshalYAML(value *yaml.Node) error {
	var doc settingsDocument
	if err := value.Decode(&doc); err != nil {
		return err
	}
	out := DefaultSettings()
	if doc.Version != nil {
		out.Version = int(*doc.Version)
	}
	if v, ok := doc.Legacy["meta_dia"]; ok {
		out.DailyQuota = int(v)
	}
	if v, ok := doc.Legacy["meta_mes"]; ok {
		out.MonthlyQuota = int(v)
	}
	if v, ok := doc.Legacy["salario_base_mensual"]; ok {
		out.BaseSalary = float64(v)
	}
	if doc.DailyQuota != nil {
		out.DailyQuota = int(*doc.DailyQuota)
	}
	if doc.MonthlyQuota != nil {
		out.MonthlyQuota = int(*doc.MonthlyQuota)
	}
	if doc.BaseSalary != nil {
		out.BaseSalary = float64(*doc.BaseSalary)
	}
	for key, v := range doc.Legacy {
		if c, ok := rateKeyAliases[key]; ok {
			out.Rates[c] = float64(v)
		}
	}
	if doc.Rates != nil {
		out.Rates = RateTable{}
		for key, v := range doc.Rates {
			if c, ok := parseRateKey(key); ok {
				out.Rates[c] = float64(v)
			}
		}
	}
	if doc.Strategy != nil {
		if doc.Strategy.Default != "" {
			out.Strategy.Default = doc.Strategy.Default
		}
		if doc.Strategy.Overrides != nil {
			out.Strategy.Overrides = map[core.Category]StrategyName{}
			for key, name := range doc.Strategy.Overrides {
				c, err := core.ParseCategory(key)
				if err != nil {
					return fmt.Errorf("strategy override: %w", err)
				}
				out.Strategy.Overrides[c] = name
			}
		}
	}
	if doc.QualifyingCategories != nil {
		out.QualifyingCategories = out.QualifyingCategories[:0]
		for _, key := range doc.QualifyingCategories {
			c, err := core.ParseCategory(key)
			if err != nil {
				return fmt.Errorf("qualifying categories: %w", err)
			}
			out.QualifyingCategories = append(out.QualifyingCategories, c)
		}
	}
	if doc.Leaders != nil {
		out.Leaders = doc.Leaders
	}
	if doc.Statuses != nil {
		out.Statuses = doc.Statuses
	}
	*s = out
	return nil
}

// ParseSettings decodes a YAML settings document. An empty document yields defaults.
func ParseSettings(data []byte) (Settings, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return DefaultSettings(), nil
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return s, nil
}

// EncodeSettings renders the YAML settings document.
func EncodeSettings(s Settings) ([]byte, error) {
	s.Version = SettingsVersion
	return yaml.Marshal(s)
}

type lenientInt int

func (i *lenientInt) UnmarshalYAML(value *yaml.Node) error {
	*i = lenientInt(math.Round(coerceScalar(value)))
	return nil
}

type lenientFloat float64

func (f *lenientFloat) UnmarshalYAML(value *yaml.Node) error {
	*f = lenientFloat(coerceScalar(value))
	return nil
}

// coerceScalar turns malformed scalars into 0. Well-formed numbers keep
// their sign so Validate can reject negative quotas and rates.
func coerceScalar(value *yaml.Node) float64 {
	if value.Kind != yaml.ScalarNode {
		return 0
	}
	switch value.ShortTag() {
	case "!!int", "!!float":
		v, err := strconv.ParseFloat(strings.TrimSpace(value.Value), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}
	// quoted or free-form values such as "15.000" or "$ 1.300.000"
	return core.ParseAmountOrZero(value.Value)
}

// ErrInvalidSettings marks a settings document that cannot be decoded at all.
var ErrInvalidSettings = errors.New("invalid settings document")
