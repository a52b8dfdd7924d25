package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"nomina/internal/core"
	"nomina/internal/log"
	ports "nomina/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSummarySheet = "Resumen"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// summaryBase is the sheet name without year; one "<year> <base>" sheet per year.
	summaryBase string
	logger      *log.Logger
}

// Ensure interface conformance
var _ ports.SummaryWriter = (*Client)(nil)

// Config selects the spreadsheet and credentials.
type Config struct {
	SpreadsheetID      string
	SummarySheet       string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// New creates a Sheets client. Extra options replace the credential options,
// which lets tests point the client at a local server.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentSheets)

	if len(opts) == 0 {
		creds, err := credentials(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	base := cfg.SummarySheet
	if base == "" {
		base = defaultSummarySheet
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, summaryBase: base, logger: logger}, nil
}

func credentials(ctx context.Context, cfg Config, logger *log.Logger) ([]byte, error) {
	switch {
	case cfg.ServiceAccountJSON != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		return []byte(cfg.ServiceAccountJSON), nil
	case cfg.ServiceAccountFile != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", cfg.ServiceAccountFile)
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteSummaries replaces the content of one sheet per year covered by
// summaries. Years without summaries are left untouched.
func (c *Client) WriteSummaries(ctx context.Context, summaries []core.MonthlySummary) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	byYear := make(map[int][]core.MonthlySummary)
	for _, s := range summaries {
		byYear[s.Month.Year] = append(byYear[s.Month.Year], s)
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	refs := make([]string, 0, len(years))
	for _, year := range years {
		ref, err := c.writeSheet(ctx, yearPrefixedName(c.summaryBase, year), byYear[year])
		if err != nil {
			return "", err
		}
		refs = append(refs, ref)
	}
	return strings.Join(refs, ","), nil
}

func (c *Client) writeSheet(ctx context.Context, sheet string, summaries []core.MonthlySummary) (string, error) {
	clearRange := fmt.Sprintf("%s!A:Z", sheet)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	vr := &gsheet.ValueRange{Values: summaryRows(summaries)}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A1", sheet), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update sheet %s: %w", sheet, err)
	}

	c.logger.InfoContext(ctx, "Summary sheet written",
		"sheet", sheet,
		"rows", len(summaries),
		"updated_range", resp.UpdatedRange,
		log.FieldOperation, log.OpSync)
	return resp.UpdatedRange, nil
}

// summaryHeader names the mirror columns.
func summaryHeader() []interface{} {
	header := []interface{}{"Mes", "Empleado", "Lider", "Casos", "Horas_Extra"}
	for _, c := range core.Categories {
		header = append(header, "Valor_"+string(c))
	}
	return append(header, "Salario_Base", "Total", "Racha_Perfecta", "Meta_Mensual", "Duplicados")
}

func summaryRows(summaries []core.MonthlySummary) [][]interface{} {
	rows := make([][]interface{}, 0, len(summaries)+1)
	rows = append(rows, summaryHeader())
	for _, s := range summaries {
		row := []interface{}{s.Month.String(), s.Employee, s.Leader, s.CaseCount, s.OvertimeHours}
		for _, c := range core.Categories {
			row = append(row, s.Amount(c))
		}
		row = append(row, s.BaseSalary, s.Total, yesNo(s.PerfectStreak), yesNo(s.MeetsMonthlyQuota), s.Duplicates)
		rows = append(rows, row)
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "Si"
	}
	return "No"
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
