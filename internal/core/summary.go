package core

// CategoryTotal is the payout line of one category within a monthly summary.
type CategoryTotal struct {
	Category Category `json:"category"`
	Measure  float64  `json:"measure"`
	Rate     float64  `json:"rate"`
	Amount   float64  `json:"amount"`
}

// MonthlySummary is the derived view of one employee in one month.
type MonthlySummary struct {
	Employee          string          `json:"employee"`
	Month             Month           `json:"month"`
	Leader            string          `json:"leader,omitempty"`
	Categories        []CategoryTotal `json:"categories"`
	CaseCount         int             `json:"case_count"`
	OvertimeHours     float64         `json:"overtime_hours"`
	BaseSalary        float64         `json:"base_salary"`
	Total             float64         `json:"total"`
	QualifyingCount   int             `json:"qualifying_count"`
	PerfectStreak     bool            `json:"perfect_streak"`
	MeetsMonthlyQuota bool            `json:"meets_monthly_quota"`
	Duplicates        int             `json:"duplicates"`
}

// Amount returns the payout line for c, or zero when the category is absent.
func (s MonthlySummary) Amount(c Category) float64 {
	for _, ct := range s.Categories {
		if ct.Category == c {
			return ct.Amount
		}
	}
	return 0
}

// MonthTotal is one point of the monthly payout series.
type MonthTotal struct {
	Month Month   `json:"month"`
	Total float64 `json:"total"`
}

// StatusCount is one cell of the category by status pivot.
type StatusCount struct {
	Category Category `json:"category"`
	Status   string   `json:"status"`
	Count    int      `json:"count"`
}

// DailyResult reports the qualifying count of one employee on one day.
type DailyResult struct {
	Employee string `json:"employee"`
	Date     Date   `json:"date"`
	Count    int    `json:"count"`
	Quota    int    `json:"quota"`
	Met      bool   `json:"met"`
}

// Filter narrows aggregation views. Zero values match everything.
type Filter struct {
	Employee string
	Leader   string
	Month    Month
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if f.Employee != "" && e.Employee != f.Employee {
		return false
	}
	if f.Leader != "" && e.Leader != f.Leader {
		return false
	}
	if !f.Month.IsZero() && e.Month() != f.Month {
		return false
	}
	return true
}
