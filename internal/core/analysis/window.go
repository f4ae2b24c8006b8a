package analysis

import (
	"fmt"
	"time"

	"github.com/grubsight/grubsight/internal/core/dataset"
)

// Named reporting periods accepted by the sales summary and the intent layer.
const (
	PeriodLast7Days  = "last_7_days"
	PeriodLast30Days = "last_30_days"
	PeriodLast90Days = "last_90_days"
)

var periodDays = map[string]int{
	PeriodLast7Days:  7,
	PeriodLast30Days: 30,
	PeriodLast90Days: 90,
}

// PeriodDays maps a named period to its day count. Unrecognized names fall
// back to the caller-supplied default.
func PeriodDays(period string, fallback int) int {
	if d, ok := periodDays[period]; ok {
		return d
	}
	return fallback
}

// Window is the inclusive [Start, End] timestamp range a query operates on.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, boundaries included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// StartDate returns the window start as a calendar date.
func (w Window) StartDate() string { return w.Start.Format("2006-01-02") }

// EndDate returns the window end as a calendar date.
func (w Window) EndDate() string { return w.End.Format("2006-01-02") }

// ResolveWindow computes the "last N days" window relative to the latest
// order timestamp in the dataset, not wall-clock time. End is that timestamp
// exactly; Start is midnight of its calendar day minus days-1, in the same
// zone. A 7-day window therefore always covers the full day of the latest
// order plus the 6 preceding calendar days, whatever the time of day the
// last order landed.
func ResolveWindow(transactions []dataset.Transaction, days int) (Window, error) {
	if days < 1 {
		return Window{}, fmt.Errorf("window days must be >= 1, got %d", days)
	}

	var latest time.Time
	for _, tx := range transactions {
		if tx.OrderedAt.After(latest) {
			latest = tx.OrderedAt
		}
	}
	if latest.IsZero() {
		return Window{}, noDataf("cannot determine latest order time: transaction table has no timestamps")
	}

	y, m, d := latest.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, latest.Location())
	return Window{
		Start: midnight.AddDate(0, 0, -(days - 1)),
		End:   latest,
	}, nil
}
