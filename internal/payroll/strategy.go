// This file implements the Strategy Pattern for category measures.
// Whether a category is paid per row or per summed quantity is configuration,
// never inferred from the data.

package payroll

import (
	"fmt"

	"nomina/internal/core"
)

const (
	RowCountStrategy    StrategyName = "row_count"
	SumQuantityStrategy StrategyName = "sum_quantity"
)

// StrategyName identifies a registered Measure.
type StrategyName string

// Measure is the strategy interface that reduces the entries of one category
// to the number that gets multiplied by the category rate.
type Measure interface {
	Measure(entries []core.Entry) float64
}

// RowCount counts entries, ignoring their quantity.
type RowCount struct{}

func (RowCount) Measure(entries []core.Entry) float64 {
	return float64(len(entries))
}

// SumQuantity adds the quantity of every entry (fractional hours included).
type SumQuantity struct{}

func (SumQuantity) Measure(entries []core.Entry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}

var measures = map[StrategyName]Measure{
	RowCountStrategy:    RowCount{},
	SumQuantityStrategy: SumQuantity{},
}

// MeasureFor returns the measure registered under name.
func MeasureFor(name StrategyName) (Measure, error) {
	m, ok := measures[name]
	if !ok {
		return nil, fmt.Errorf("unknown aggregation strategy: %q", name)
	}
	return m, nil
}

// StrategyConfig selects a default measure plus per-category overrides.
type StrategyConfig struct {
	Default   StrategyName                   `yaml:"default" json:"default"`
	Overrides map[core.Category]StrategyName `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

// For returns the measure that applies to c. Unknown names fall back to RowCount.
func (sc StrategyConfig) For(c core.Category) Measure {
	if name, ok := sc.Overrides[c]; ok {
		if m, err := MeasureFor(name); err == nil {
			return m
		}
	}
	if m, err := MeasureFor(sc.Default); err == nil {
		return m
	}
	return RowCount{}
}
