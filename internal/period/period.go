// Package period validates the year/month pairs the On-Time Performance
// table can serve and names the artifacts downloaded for them.
package period

import (
	"fmt"
	"time"

	ritaerrors "github.com/princespaghetti/rita/internal/errors"
)

const (
	// MinYear is the first year BTS publishes On-Time Performance data for.
	MinYear = 1987

	// LagDays is how far behind today the published data runs. Years past
	// (today - LagDays) are rejected.
	LagDays = 90
)

// Period is a validated year/month pair. The zero value is not valid; use New.
type Period struct {
	Year  int
	Month time.Month
}

// MaxYear returns the latest year that can be requested at now.
func MaxYear(now time.Time) int {
	return now.AddDate(0, 0, -LagDays).Year()
}

// New validates year and month against the publication window at now.
func New(year, month int, now time.Time) (Period, error) {
	if err := ValidateYear(year, now); err != nil {
		return Period{}, err
	}
	if err := ValidateMonth(month); err != nil {
		return Period{}, err
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// ValidateYear checks 1987 <= year <= year of (now - 90 days).
func ValidateYear(year int, now time.Time) error {
	maxYear := MaxYear(now)
	if year < MinYear || year > maxYear {
		return &ritaerrors.ValidationError{Field: "year", Value: year, Min: MinYear, Max: maxYear}
	}
	return nil
}

// ValidateMonth checks 1 <= month <= 12.
func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return &ritaerrors.ValidationError{Field: "month", Value: month, Min: 1, Max: 12}
	}
	return nil
}

// MonthName returns the English month name used by the download form.
func (p Period) MonthName() string {
	return p.Month.String()
}

// FileName returns the artifact name, e.g. "03-2015.zip".
func (p Period) FileName() string {
	return fmt.Sprintf("%02d-%d.zip", int(p.Month), p.Year)
}

// String returns the period as "YYYY-MM".
func (p Period) String() string {
	return fmt.Sprintf("%d-%02d", p.Year, int(p.Month))
}
