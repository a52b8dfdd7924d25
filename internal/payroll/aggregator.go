package payroll

import (
	"sort"

	"nomina/internal/core"
)

// NoStatus labels entries without a status tag in the control pivot.
const NoStatus = "Sin estado"

type summaryKey struct {
	employee string
	month    core.Month
}

// Summarize groups the filtered entries by employee and month and prices
// each category with the settings snapshot. Results are sorted by month,
// then employee. Empty input yields an empty, non-nil slice.
func Summarize(entries []core.Entry, s Settings, f core.Filter) []core.MonthlySummary {
	groups := make(map[summaryKey][]core.Entry)
	var order []summaryKey
	for _, e := range entries {
		if !f.Match(e) {
			continue
		}
		k := summaryKey{employee: e.Employee, month: e.Month()}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].month != order[j].month {
			return order[i].month.Before(order[j].month)
		}
		return order[i].employee < order[j].employee
	})

	ev := NewEvaluator(s)
	out := make([]core.MonthlySummary, 0, len(order))
	for _, k := range order {
		out = append(out, summarizeGroup(k, groups[k], s, ev))
	}
	return out
}

// Summary computes the summary of one employee in one month. The zero
// summary (Total 0, no categories) is returned when there are no entries.
func Summary(entries []core.Entry, s Settings, employee string, month core.Month) core.MonthlySummary {
	res := Summarize(entries, s, core.Filter{Employee: employee, Month: month})
	if len(res) == 0 {
		return core.MonthlySummary{Employee: employee, Month: month, Categories: []core.CategoryTotal{}}
	}
	return res[0]
}

func summarizeGroup(k summaryKey, group []core.Entry, s Settings, ev Evaluator) core.MonthlySummary {
	byCategory := make(map[core.Category][]core.Entry)
	sum := core.MonthlySummary{
		Employee:   k.employee,
		Month:      k.month,
		Categories: []core.CategoryTotal{},
	}
	for _, e := range group {
		byCategory[e.Category] = append(byCategory[e.Category], e)
		if e.Leader != "" {
			sum.Leader = e.Leader
		}
		if e.Duplicate {
			sum.Duplicates++
		}
		if e.Category == core.HorasExtra {
			sum.OvertimeHours += e.Quantity
		} else {
			sum.CaseCount++
		}
		if s.Qualifies(e.Category) {
			sum.QualifyingCount++
		}
	}

	for _, c := range core.Categories {
		rows, ok := byCategory[c]
		if !ok {
			continue
		}
		measure := s.Strategy.For(c).Measure(rows)
		rate := s.Rates.Rate(c)
		ct := core.CategoryTotal{Category: c, Measure: measure, Rate: rate, Amount: measure * rate}
		sum.Categories = append(sum.Categories, ct)
		sum.Total += ct.Amount
	}
	if s.BaseSalary > 0 {
		sum.BaseSalary = s.BaseSalary
		sum.Total += s.BaseSalary
	}

	sum.PerfectStreak = ev.PerfectStreak(group, k.employee, k.month)
	sum.MeetsMonthlyQuota = ev.MonthlyQuotaMet(group, k.employee, k.month)
	return sum
}

// MonthlyTotals sums the payout of all summaries per month, oldest first.
func MonthlyTotals(summaries []core.MonthlySummary) []core.MonthTotal {
	totals := make(map[core.Month]float64)
	for _, s := range summaries {
		totals[s.Month] += s.Total
	}
	out := make([]core.MonthTotal, 0, len(totals))
	for m, t := range totals {
		out = append(out, core.MonthTotal{Month: m, Total: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// StatusBreakdown counts filtered entries by category and status.
func StatusBreakdown(entries []core.Entry, f core.Filter) []core.StatusCount {
	type key struct {
		category core.Category
		status   string
	}
	counts := make(map[key]int)
	for _, e := range entries {
		if !f.Match(e) {
			continue
		}
		status := e.Status
		if status == "" {
			status = NoStatus
		}
		counts[key{e.Category, status}]++
	}

	rank := make(map[core.Category]int, len(core.Categories))
	for i, c := range core.Categories {
		rank[c] = i
	}
	out := make([]core.StatusCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, core.StatusCount{Category: k.category, Status: k.status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return rank[out[i].Category] < rank[out[j].Category]
		}
		return out[i].Status < out[j].Status
	})
	return out
}
