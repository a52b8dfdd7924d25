package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"nomina/internal/auth"
	"nomina/internal/core"
)

var entryExportHeader = []string{
	"ID", "Fecha", "Empleado", "Area", "Lider", "Tipo_Caso", "Numero_Caso", "Estado", "Cantidad", "Duplicado",
}

// ExportEntriesCSV writes the live entries matching f.
func (s *LedgerService) ExportEntriesCSV(ctx context.Context, sess auth.Session, w io.Writer, f core.Filter) error {
	if err := sess.Require(auth.ObjExports, auth.ActRead); err != nil {
		return err
	}
	entries := filterEntries(s.records.List(ctx), f)

	cw := csv.NewWriter(w)
	if err := cw.Write(entryExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		rec := []string{
			strconv.FormatInt(e.ID, 10),
			e.Date.String(),
			e.Employee,
			e.Area,
			e.Leader,
			string(e.Category),
			e.CaseNumber,
			e.Status,
			core.FormatQuantity(e.Quantity),
			strconv.FormatBool(e.Duplicate),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write entry %d: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportSummariesCSV writes one row per employee and month, with a measure
// and an amount column per category.
func (s *LedgerService) ExportSummariesCSV(ctx context.Context, sess auth.Session, w io.Writer, f core.Filter) error {
	if err := sess.Require(auth.ObjExports, auth.ActRead); err != nil {
		return err
	}
	summaries := s.Recompute(ctx, f)

	header := []string{"Mes", "Empleado", "Lider"}
	for _, c := range core.Categories {
		header = append(header, "Cantidad_"+string(c), "Valor_"+string(c))
	}
	header = append(header, "Salario_Base", "Total", "Racha_Perfecta", "Meta_Mensual", "Duplicados")

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, sum := range summaries {
		measures := make(map[core.Category]core.CategoryTotal, len(sum.Categories))
		for _, ct := range sum.Categories {
			measures[ct.Category] = ct
		}
		rec := []string{sum.Month.String(), sum.Employee, sum.Leader}
		for _, c := range core.Categories {
			ct := measures[c]
			rec = append(rec, core.FormatQuantity(ct.Measure), formatAmount(ct.Amount))
		}
		rec = append(rec,
			formatAmount(sum.BaseSalary),
			formatAmount(sum.Total),
			strconv.FormatBool(sum.PerfectStreak),
			strconv.FormatBool(sum.MeetsMonthlyQuota),
			strconv.Itoa(sum.Duplicates),
		)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write summary %s/%s: %w", sum.Employee, sum.Month, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
