package leave

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const dayFormat = "2006-01-02"

var halfDayAmount = decimal.NewFromFloat(0.5)

// HolidayCalendar is a prefetched set of holiday dates, keyed YYYY-MM-DD.
type HolidayCalendar map[string]struct{}

// NewHolidayCalendar builds the calendar from holiday rows for the [from, to]
// window. Recurring holidays are projected onto every year the window touches.
func NewHolidayCalendar(holidays []Holiday, from, to time.Time) HolidayCalendar {
	cal := make(HolidayCalendar, len(holidays))
	for _, h := range holidays {
		cal[h.Date.Format(dayFormat)] = struct{}{}
		if !h.IsRecurring {
			continue
		}
		for year := from.Year(); year <= to.Year(); year++ {
			projected := time.Date(year, h.Date.Month(), h.Date.Day(), 0, 0, 0, 0, time.UTC)
			cal[projected.Format(dayFormat)] = struct{}{}
		}
	}
	return cal
}

func (c HolidayCalendar) Contains(day time.Time) bool {
	_, ok := c[day.Format(dayFormat)]
	return ok
}

// ChargeableDays computes how many days a request consumes. A half-day request
// always costs 0.5, whatever the range spans. Otherwise every date from start
// to end inclusive counts unless it falls on a weekend or a holiday.
func ChargeableDays(start, end time.Time, halfDay bool, cal HolidayCalendar) (decimal.Decimal, error) {
	if halfDay {
		return halfDayAmount, nil
	}
	if end.Before(start) {
		return decimal.Zero, errors.New("end date before start date")
	}

	days := int64(0)
	for current := truncateToDay(start); !current.After(truncateToDay(end)); current = current.AddDate(0, 0, 1) {
		if current.Weekday() == time.Saturday || current.Weekday() == time.Sunday {
			continue
		}
		if cal.Contains(current) {
			continue
		}
		days++
	}
	return decimal.NewFromInt(days), nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
