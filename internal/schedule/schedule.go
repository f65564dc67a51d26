// Package schedule decides whether a class may start at a given time.
package schedule

import (
	"strings"
	"time"

	"github.com/Gio21sr/oberfit/internal/apperr"
)

// Location is the gym's local zone. Fixed UTC-6, no daylight saving.
var Location = time.FixedZone("UTC-6", -6*60*60)

// Hours is a half-open opening window [Open, Close) in local hours.
type Hours struct {
	Open  int `json:"open"`
	Close int `json:"close"`
}

func (h Hours) Contains(hour int) bool {
	return hour >= h.Open && hour < h.Close
}

var operatingHours = map[time.Weekday]Hours{
	time.Monday:    {Open: 6, Close: 22},
	time.Tuesday:   {Open: 6, Close: 22},
	time.Wednesday: {Open: 6, Close: 22},
	time.Thursday:  {Open: 6, Close: 22},
	time.Friday:    {Open: 6, Close: 21},
	time.Saturday:  {Open: 6, Close: 14},
	time.Sunday:    {Open: 7, Close: 14},
}

func HoursFor(day time.Weekday) Hours {
	return operatingHours[day]
}

// WeekTable returns the operating hours keyed by lowercase weekday name.
func WeekTable() map[string]Hours {
	table := make(map[string]Hours, len(operatingHours))
	for day, h := range operatingHours {
		table[strings.ToLower(day.String())] = h
	}
	return table
}

// Validate checks startTime against the no-past rule, the weekly operating
// hours and the on-the-hour rule, in that order. A start at 06:30 on a day
// that opens at 07:00 is reported as outside operating hours.
func Validate(startTime, now time.Time) error {
	const op = "schedule.Validate"

	local := startTime.In(Location)
	if local.Before(now.In(Location)) {
		return apperr.New(apperr.KindPastDateTime, op)
	}

	if !HoursFor(local.Weekday()).Contains(local.Hour()) {
		return apperr.New(apperr.KindOutsideOperatingHours, op)
	}

	if local.Minute() != 0 || local.Second() != 0 || local.Nanosecond() != 0 {
		return apperr.New(apperr.KindInvalidSchedule, op)
	}

	return nil
}
