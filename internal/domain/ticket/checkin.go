package ticket

import (
	"fmt"
	"time"
)

// CheckInOpensAt combines the flight date and time in loc and returns the
// instant check-in opens, CheckInWindow before departure, in UTC.
func CheckInOpensAt(flightDate, flightTime string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if flightTime == "" {
		flightTime = DefaultFlightTime
	}
	departure, err := time.ParseInLocation("2006-01-02 15:04", flightDate+" "+flightTime, loc)
	if err != nil {
		return time.Time{}, newError(KindInvalidDateTime,
			fmt.Sprintf("invalid flight date/time %q %q", flightDate, flightTime), err)
	}
	return departure.Add(-CheckInWindow).UTC(), nil
}
