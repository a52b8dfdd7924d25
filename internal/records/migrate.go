package records

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"nomina/internal/core"
)

// maxLegacyCasesPerRow bounds the Casos_Adicionales count expanded from one
// legacy row; larger values mark the document as corrupt.
const maxLegacyCasesPerRow = 1000

// legacyDateLayouts are the date formats seen in hand-edited dashboards.
var legacyDateLayouts = []string{time.DateOnly, "02/01/2006", "2006/01/02", "2/1/2006"}

// DetectVersion returns the schema version of a header: 1 for the current
// layout, 0 for the legacy dashboards without identifiers or tombstones.
func DetectVersion(header []string) int {
	if indexHeader(header).has("ID", "Fecha", "Empleado", "Tipo_Caso", "Eliminado") {
		return SchemaVersion
	}
	return 0
}

// Migrate converts a parsed document of any known version into typed rows
// and reports the version it was read as. Legacy rows without an employee
// or a date are dropped; they cannot satisfy the persisted-entry invariants.
func Migrate(header []string, records [][]string) ([]Row, int, error) {
	idx := indexHeader(header)
	version := DetectVersion(header)
	if version == SchemaVersion {
		rows, err := decodeCurrent(idx, records)
		return rows, version, err
	}
	if !idx.has("Empleado") && !idx.has("Nombre") {
		return nil, 0, fmt.Errorf("%w: unrecognised header %v", ErrCorruptDocument, header)
	}
	rows, err := migrateV0(idx, records)
	return rows, 0, err
}

func parseLegacyDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range legacyDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.Date{Time: t}, nil
		}
	}
	return core.Date{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

// migrateV0 expands legacy rows. A row with a category column becomes one
// entry; otherwise a case number becomes a Productividad entry,
// Casos_Adicionales n becomes n Adicional entries and Horas_Extra h becomes
// one HorasExtra entry of h hours.
func migrateV0(idx columnIndex, records [][]string) ([]Row, error) {
	var rows []Row
	used := make(map[int64]bool)
	var pending []int // rows still needing an id

	add := func(e core.Entry, legacyID string) {
		if id, err := strconv.ParseInt(legacyID, 10, 64); err == nil && id > 0 && !used[id] {
			e.ID = id
			used[id] = true
		} else {
			pending = append(pending, len(rows))
		}
		rows = append(rows, Row{Entry: e})
	}

	for n, rec := range records {
		line := n + 2
		if isBlank(rec) {
			continue
		}
		employee := idx.get(rec, "Empleado", "Nombre")
		date, err := parseLegacyDate(idx.get(rec, "Fecha"))
		if employee == "" || err != nil {
			continue
		}
		base := core.Entry{
			Date:       date,
			Employee:   employee,
			Area:       idx.get(rec, "Area"),
			Leader:     idx.get(rec, "Lider"),
			CaseNumber: idx.get(rec, "Numero_Caso", "Caso"),
			Status:     idx.get(rec, "Estado"),
		}
		legacyID := idx.get(rec, "ID")

		if raw := idx.get(rec, "Tipo_Caso", "Categoria", "Tipo"); raw != "" {
			cat, err := core.ParseCategory(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptDocument, line, err)
			}
			qty, err := quantityFor(cat, idx.get(rec, "Cantidad"), idx.get(rec, "Horas_Extra"))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptDocument, line, err)
			}
			e := base
			e.Category, e.Quantity = cat, qty
			add(e, legacyID)
			continue
		}

		if base.CaseNumber != "" {
			e := base
			e.Category, e.Quantity = core.Productividad, 1
			add(e, legacyID)
			legacyID = ""
		}
		if extra, err := core.ParseQuantity(idx.get(rec, "Casos_Adicionales")); err == nil {
			if extra > maxLegacyCasesPerRow {
				return nil, fmt.Errorf("%w: line %d: %v additional cases in one row", ErrCorruptDocument, line, extra)
			}
			for i := 0; i < int(extra); i++ {
				e := base
				e.CaseNumber = ""
				e.Category, e.Quantity = core.Adicional, 1
				add(e, legacyID)
				legacyID = ""
			}
		}
		if hours, err := core.ParseQuantity(idx.get(rec, "Horas_Extra")); err == nil && hours > 0 {
			e := base
			e.CaseNumber = ""
			e.Category, e.Quantity = core.HorasExtra, hours
			add(e, legacyID)
		}
	}

	var next int64
	for id := range used {
		if id > next {
			next = id
		}
	}
	for _, i := range pending {
		next++
		rows[i].ID = next
	}
	return rows, nil
}
