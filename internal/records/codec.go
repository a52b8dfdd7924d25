// Package records persists ledger entries as one CSV document in a blob.Store.
//
// Deleted entries stay in the document as tombstones so identifiers are
// never handed out twice. Duplicate flags are derived on every load.
package records

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"nomina/internal/core"
)

// SchemaVersion is the current document layout.
const SchemaVersion = 1

// Columns is the header written by this build.
var Columns = []string{
	"ID", "Fecha", "Empleado", "Area", "Lider", "Tipo_Caso", "Numero_Caso",
	"Estado", "Cantidad", "Horas_Extra", "Mes", "Año", "Eliminado",
}

// Row is one persisted line: an entry plus its tombstone flag.
type Row struct {
	core.Entry
	Deleted bool
}

var ErrCorruptDocument = errors.New("ledger document is corrupt")

// Encode renders rows with the current header. Mes and Año are derived from the date.
func Encode(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, err
	}
	for _, r := range rows {
		cantidad, horas := core.FormatQuantity(r.Quantity), "0"
		if r.Category == core.HorasExtra {
			cantidad, horas = "0", core.FormatQuantity(r.Quantity)
		}
		deleted := "0"
		if r.Deleted {
			deleted = "1"
		}
		rec := []string{
			strconv.FormatInt(r.ID, 10),
			r.Date.String(),
			r.Employee,
			r.Area,
			r.Leader,
			string(r.Category),
			r.CaseNumber,
			r.Status,
			cantidad,
			horas,
			r.Month().String(),
			strconv.Itoa(r.Date.Year()),
			deleted,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a document of any known schema version and returns typed
// rows. Legacy layouts are converted by Migrate.
func Decode(data []byte) ([]Row, int, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, SchemaVersion, nil
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: header: %v", ErrCorruptDocument, err)
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
		records = append(records, rec)
	}
	return Migrate(header, records)
}

// columnIndex maps normalised header names to positions.
type columnIndex map[string]int

func indexHeader(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	if i := strings.Index(h, "("); i > 0 {
		h = strings.TrimSpace(h[:i])
	}
	return strings.ToLower(h)
}

func (c columnIndex) has(names ...string) bool {
	for _, n := range names {
		if _, ok := c[strings.ToLower(n)]; !ok {
			return false
		}
	}
	return true
}

// get returns the first present column among names.
func (c columnIndex) get(rec []string, names ...string) string {
	for _, n := range names {
		if i, ok := c[strings.ToLower(n)]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
	}
	return ""
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "si", "sí", "yes", "x":
		return true
	}
	return false
}

func decodeCurrent(idx columnIndex, records [][]string) ([]Row, error) {
	rows := make([]Row, 0, len(records))
	seen := make(map[int64]bool, len(records))
	for n, rec := range records {
		line := n + 2
		if isBlank(rec) {
			continue
		}
		id, err := strconv.ParseInt(idx.get(rec, "ID"), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: line %d: invalid ID %q", ErrCorruptDocument, line, idx.get(rec, "ID"))
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: line %d: repeated ID %d", ErrCorruptDocument, line, id)
		}
		seen[id] = true

		date, err := core.ParseDate(idx.get(rec, "Fecha"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptDocument, line, err)
		}
		cat, err := core.ParseCategory(idx.get(rec, "Tipo_Caso"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptDocument, line, err)
		}
		qty, err := quantityFor(cat, idx.get(rec, "Cantidad"), idx.get(rec, "Horas_Extra"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptDocument, line, err)
		}
		row := Row{
			Entry: core.Entry{
				ID:         id,
				Date:       date,
				Employee:   idx.get(rec, "Empleado"),
				Area:       idx.get(rec, "Area"),
				Leader:     idx.get(rec, "Lider"),
				Category:   cat,
				CaseNumber: idx.get(rec, "Numero_Caso"),
				Status:     idx.get(rec, "Estado"),
				Quantity:   qty,
			},
			Deleted: parseBool(idx.get(rec, "Eliminado")),
		}
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptDocument, line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// quantityFor reads hours for overtime and the case quantity otherwise.
// Case rows without a quantity count as one case.
func quantityFor(cat core.Category, cantidad, horas string) (float64, error) {
	if cat == core.HorasExtra {
		h, err := core.ParseQuantity(horas)
		if err != nil {
			return 0, err
		}
		if h > 0 {
			return h, nil
		}
		return core.ParseQuantity(cantidad)
	}
	if cantidad == "" {
		return 1, nil
	}
	return core.ParseQuantity(cantidad)
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
