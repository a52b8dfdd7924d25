package records

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"nomina/internal/core"
)

func TestEncodeDecodePreservesRows(t *testing.T) {
	rows := []Row{
		{Entry: core.Entry{ID: 1, Date: core.NewDate(2024, 3, 1), Employee: "Ana", Leader: "Luis", Area: "Reclamos",
			Category: core.Productividad, CaseNumber: "C-1", Status: "Finalizado", Quantity: 1}},
		{Entry: core.Entry{ID: 2, Date: core.NewDate(2024, 3, 1), Employee: "Ana",
			Category: core.HorasExtra, Quantity: 2.5}},
		{Entry: core.Entry{ID: 5, Date: core.NewDate(2024, 3, 2), Employee: "Beto, Jr.",
			Category: core.Adicional, Quantity: 1}, Deleted: true},
	}
	data, err := Encode(rows)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), "2024-03,2024") {
		t.Fatalf("derived Mes/Año columns missing: %s", data)
	}

	got, version, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if version != SchemaVersion {
		t.Fatalf("version = %d", version)
	}
	if len(got) != len(rows) {
		t.Fatalf("got %d rows", len(got))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Errorf("row %d:\n got %+v\nwant %+v", i, got[i], rows[i])
		}
	}
}

func TestDecodeEmptyDocument(t *testing.T) {
	rows, _, err := Decode(nil)
	if err != nil || len(rows) != 0 {
		t.Fatalf("empty document = %v, %v", rows, err)
	}
}

func TestDecodeRejectsRepeatedIDs(t *testing.T) {
	doc := strings.Join(Columns, ",") + "\n" +
		"1,2024-03-01,Ana,,,Productividad,C-1,,1,0,2024-03,2024,0\n" +
		"1,2024-03-02,Ana,,,Productividad,C-2,,1,0,2024-03,2024,0\n"
	if _, _, err := Decode([]byte(doc)); !errors.Is(err, ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got %v", err)
	}
}

func TestMigrateLegacyLayouts(t *testing.T) {
	cases := []struct {
		name   string
		header []string
		rows   [][]string
		want   []core.Category
	}{
		{
			name:   "typed rows",
			header: []string{"Fecha", "Empleado", "Tipo", "Numero_Caso", "Horas_Extra"},
			rows: [][]string{
				{"2024-03-01", "Ana", "Caso_Adicional", "", ""},
				{"01/03/2024", "Ana", "Hora_Extra", "", "3"},
			},
			want: []core.Category{core.Adicional, core.HorasExtra},
		},
		{
			name:   "count columns",
			header: []string{"Fecha (YYYY-MM-DD)", "Empleado", "Numero_Caso", "Casos_Adicionales", "Horas_Extra"},
			rows: [][]string{
				{"2024-03-01", "Ana", "C-1", "1", "0"},
				{"2024-03-02", "", "C-2", "0", "0"}, // no employee, dropped
			},
			want: []core.Category{core.Productividad, core.Adicional},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if DetectVersion(tc.header) != 0 {
				t.Fatalf("expected legacy version")
			}
			rows, version, err := Migrate(tc.header, tc.rows)
			if err != nil {
				t.Fatalf("migrate: %v", err)
			}
			if version != 0 {
				t.Fatalf("version = %d", version)
			}
			if len(rows) != len(tc.want) {
				t.Fatalf("got %d rows: %+v", len(rows), rows)
			}
			for i, r := range rows {
				if r.Category != tc.want[i] {
					t.Errorf("row %d category = %s, want %s", i, r.Category, tc.want[i])
				}
				if r.ID != int64(i+1) {
					t.Errorf("row %d id = %d", i, r.ID)
				}
			}
		})
	}
}

func TestMigrateRejectsUnknownHeader(t *testing.T) {
	if _, _, err := Migrate([]string{"foo", "bar"}, nil); !errors.Is(err, ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got %v", err)
	}
}

func TestMigrateRejectsOversizedCounts(t *testing.T) {
	header := []string{"Fecha", "Empleado", "Numero_Caso", "Casos_Adicionales"}
	rows := [][]string{{"2024-03-01", "Ana", "", "1000000000"}}
	if _, _, err := Migrate(header, rows); !errors.Is(err, ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got %v", err)
	}

	rows = [][]string{{"2024-03-01", "Ana", "", strconv.Itoa(maxLegacyCasesPerRow)}}
	got, _, err := Migrate(header, rows)
	if err != nil || len(got) != maxLegacyCasesPerRow {
		t.Fatalf("Migrate() at the cap = %d rows, %v", len(got), err)
	}
}
