package payroll

import (
	"sort"

	"nomina/internal/core"
)

// Evaluator checks quota attainment on raw entries, independently of payouts.
type Evaluator struct {
	DailyQuota   int
	MonthlyQuota int
	Qualifying   []core.Category
}

// NewEvaluator takes quotas and qualifying categories from the settings snapshot.
func NewEvaluator(s Settings) Evaluator {
	return Evaluator{
		DailyQuota:   s.DailyQuota,
		MonthlyQuota: s.MonthlyQuota,
		Qualifying:   s.QualifyingCategories,
	}
}

func (ev Evaluator) qualifies(c core.Category) bool {
	for _, q := range ev.Qualifying {
		if q == c {
			return true
		}
	}
	return false
}

// dailyCounts returns qualifying entries per day for one employee in one month.
func (ev Evaluator) dailyCounts(entries []core.Entry, employee string, month core.Month) map[core.Date]int {
	counts := make(map[core.Date]int)
	for _, e := range entries {
		if e.Employee != employee || e.Month() != month || !ev.qualifies(e.Category) {
			continue
		}
		counts[e.Date]++
	}
	return counts
}

// PerfectStreak reports whether every calendar day between the employee's
// first and last active day of the month (inclusive) met the daily quota.
// Days without entries inside that range count as zero. No entries means false.
//
// A single active day that meets the quota is a streak; this matches the
// dashboards the ledger replaces and is pending product review.
func (ev Evaluator) PerfectStreak(entries []core.Entry, employee string, month core.Month) bool {
	counts := ev.dailyCounts(entries, employee, month)
	if len(counts) == 0 {
		return false
	}
	var first, last core.Date
	for d := range counts {
		if first.IsZero() || d.Before(first.Time) {
			first = d
		}
		if last.IsZero() || d.After(last.Time) {
			last = d
		}
	}
	for d := first; !d.After(last.Time); d = d.AddDays(1) {
		if counts[d] < ev.DailyQuota {
			return false
		}
	}
	return true
}

// MonthlyQuotaMet reports whether the qualifying entries of the month reach the monthly quota.
func (ev Evaluator) MonthlyQuotaMet(entries []core.Entry, employee string, month core.Month) bool {
	total := 0
	for _, n := range ev.dailyCounts(entries, employee, month) {
		total += n
	}
	return total >= ev.MonthlyQuota
}

// DailyCompliance lists the qualifying count per employee and active day,
// sorted by date then employee.
func (ev Evaluator) DailyCompliance(entries []core.Entry, f core.Filter) []core.DailyResult {
	type key struct {
		employee string
		date     core.Date
	}
	counts := make(map[key]int)
	for _, e := range entries {
		if !f.Match(e) || !ev.qualifies(e.Category) {
			continue
		}
		counts[key{e.Employee, e.Date}]++
	}
	out := make([]core.DailyResult, 0, len(counts))
	for k, n := range counts {
		out = append(out, core.DailyResult{
			Employee: k.employee,
			Date:     k.date,
			Count:    n,
			Quota:    ev.DailyQuota,
			Met:      n >= ev.DailyQuota,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].Employee < out[j].Employee
	})
	return out
}
