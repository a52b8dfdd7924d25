// Package payroll turns ledger entries into payout summaries and quota checks.
//
// Every view is a pure function of the current entries and one immutable
// Settings snapshot; nothing here performs I/O except the SettingsStore.
package payroll

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"nomina/internal/core"
)

// RateTable holds the current unit price per category.
type RateTable map[core.Category]float64

// DefaultRates returns the prices used before an administrator sets any.
func DefaultRates() RateTable {
	return RateTable{
		core.Adicional:  10000,
		core.HorasExtra: 8000,
		core.Variable:   10000,
	}
}

// Rate returns the configured price for c, or 0 when absent.
func (t RateTable) Rate(c core.Category) float64 {
	return t.RateOr(c, 0)
}

// RateOr returns the configured price for c, or def when absent.
func (t RateTable) RateOr(c core.Category, def float64) float64 {
	if v, ok := t[c]; ok {
		return v
	}
	return def
}

// Clone returns an independent copy.
func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// legacy key/value configuration names
var rateKeyAliases = map[string]core.Category{
	"valor_prod":       core.Productividad,
	"valor_adic":       core.Adicional,
	"valor_sabado":     core.Sabado,
	"valor_variable":   core.Variable,
	"valor_hora_extra": core.HorasExtra,
}

// parseRateKey resolves a category name, alias or legacy valor_* key.
func parseRateKey(key string) (core.Category, bool) {
	if c, ok := rateKeyAliases[strings.ToLower(strings.TrimSpace(key))]; ok {
		return c, true
	}
	c, err := core.ParseCategory(key)
	if err != nil {
		return "", false
	}
	return c, true
}

// ParseRatesCSV imports a Concepto,Tarifa table. Unknown concepts are
// skipped and malformed prices become 0.
func ParseRatesCSV(r io.Reader) (RateTable, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return RateTable{}, nil, nil
		}
		return nil, nil, fmt.Errorf("read rates header: %w", err)
	}
	conceptCol, priceCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "concepto", "concept", "category", "categoria":
			conceptCol = i
		case "tarifa", "rate", "price", "valor":
			priceCol = i
		}
	}
	if conceptCol < 0 || priceCol < 0 {
		return nil, nil, fmt.Errorf("rates table needs Concepto and Tarifa columns, got %v", header)
	}

	table := RateTable{}
	var skipped []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read rates row: %w", err)
		}
		if conceptCol >= len(rec) {
			continue
		}
		cat, ok := parseRateKey(rec[conceptCol])
		if !ok {
			skipped = append(skipped, rec[conceptCol])
			continue
		}
		price := ""
		if priceCol < len(rec) {
			price = rec[priceCol]
		}
		table[cat] = core.ParseAmountOrZero(price)
	}
	return table, skipped, nil
}

// ParseRatesMap imports rates keyed by category name, alias or legacy key.
// Unknown keys are returned in skipped, sorted.
func ParseRatesMap(in map[string]float64) (RateTable, []string) {
	table := make(RateTable, len(in))
	var skipped []string
	for key, v := range in {
		cat, ok := parseRateKey(key)
		if !ok {
			skipped = append(skipped, key)
			continue
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		table[cat] = v
	}
	sort.Strings(skipped)
	return table, skipped
}

// WriteRatesCSV writes the table as Concepto,Tarifa in category order.
func WriteRatesCSV(w io.Writer, t RateTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Concepto", "Tarifa"}); err != nil {
		return err
	}
	for _, c := range core.Categories {
		v, ok := t[c]
		if !ok {
			continue
		}
		if err := cw.Write([]string{string(c), core.FormatQuantity(v)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
