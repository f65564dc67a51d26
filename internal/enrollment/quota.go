package enrollment

import (
	"time"

	"github.com/Gio21sr/oberfit/internal/schedule"
)

// MonthlyAllowance is the number of classes a member may book per
// calendar month.
const MonthlyAllowance = 8

// EffectiveQuota returns the quota a member can spend at now. The stored
// value only counts when it was last reset in the same calendar month as
// now, both read in gym-local time; otherwise the allowance refills.
func EffectiveQuota(remaining int, lastReset *time.Time, now time.Time) (quota int, refilled bool) {
	if lastReset == nil {
		return MonthlyAllowance, true
	}

	last := lastReset.In(schedule.Location)
	cur := now.In(schedule.Location)
	if last.Year() != cur.Year() || last.Month() != cur.Month() {
		return MonthlyAllowance, true
	}

	return remaining, false
}
