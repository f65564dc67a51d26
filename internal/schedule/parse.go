package schedule

import (
	"time"

	"github.com/Gio21sr/oberfit/internal/apperr"
)

// Layouts without a zone are datetime-local form values and are read as
// gym-local time.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseStartTime accepts RFC 3339 timestamps and zone-less local values.
func ParseStartTime(value string) (time.Time, error) {
	const op = "schedule.ParseStartTime"

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, Location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Newf(apperr.KindValidation, op, "start_time %q is not a valid date and time", value)
}
