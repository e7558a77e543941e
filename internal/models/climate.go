package models

import (
	"time"
)

// DateLayout is the ISO calendar date format used by the measurement table.
// Dates in this layout sort lexicographically in chronological order.
const DateLayout = "2006-01-02"

// WindowDays is the fixed length of the trailing report window.
const WindowDays = 365

// Station represents a weather reporting station
type Station struct {
	StationID string   `json:"station_id" db:"station"`
	Name      string   `json:"name" db:"name"`
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`
	Elevation *float64 `json:"elevation,omitempty" db:"elevation"`
}

// Observation represents one station's reading for a single day.
// A nil measurement means the station did not report it that day.
type Observation struct {
	StationID     string   `json:"station_id" db:"station"`
	Date          string   `json:"date" db:"date"`
	Precipitation *float64 `json:"prcp,omitempty" db:"prcp"`
	Temperature   *float64 `json:"tobs,omitempty" db:"tobs"`
}

// PrecipitationReading is a non-null precipitation measurement
type PrecipitationReading struct {
	StationID     string  `json:"station_id" db:"station"`
	Date          string  `json:"date" db:"date"`
	Precipitation float64 `json:"prcp" db:"prcp"`
}

// TemperatureReading is a non-null observed temperature
type TemperatureReading struct {
	StationID   string  `json:"station_id" db:"station"`
	Date        string  `json:"date" db:"date"`
	Temperature float64 `json:"tobs" db:"tobs"`
}

// AggregateRow summarizes every temperature reported on one date
type AggregateRow struct {
	Date string  `json:"date"`
	Min  float64 `json:"min"`
	Avg  float64 `json:"avg"`
	Max  float64 `json:"max"`
}

// DateWindow is an inclusive date range. It is derived per request and
// never persisted.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewLastYearWindow returns the window of WindowDays days ending at end.
func NewLastYearWindow(end time.Time) DateWindow {
	return DateWindow{
		Start: end.AddDate(0, 0, -WindowDays),
		End:   end,
	}
}

// StartDate returns the window start in DateLayout
func (w DateWindow) StartDate() string {
	return w.Start.Format(DateLayout)
}

// EndDate returns the window end in DateLayout
func (w DateWindow) EndDate() string {
	return w.End.Format(DateLayout)
}

// ParseDate parses an ISO calendar date. Anything that is not a real date in
// DateLayout, including non-padded forms such as "2017-1-1", is rejected.
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil || t.Format(DateLayout) != value {
		return time.Time{}, &InvalidDateError{
			Field: field,
			Value: value,
		}
	}
	return t, nil
}
