package models

import "time"

// ColumnMap records which columns of the daily table were chosen for each
// field. Optional columns are -1 when unresolved. Latitude and Longitude are
// resolved together or not at all.
type ColumnMap struct {
	Station       int `json:"station"`
	StationNumber int `json:"stationNumber"`
	MinTemp       int `json:"minTemp"`
	MaxTemp       int `json:"maxTemp"`
	Latitude      int `json:"latitude"`
	Longitude     int `json:"longitude"`
}

// HasCoordinates reports whether both coordinate columns were resolved.
func (m ColumnMap) HasCoordinates() bool {
	return m.Latitude >= 0 && m.Longitude >= 0
}

// StationReading is one row of the daily table. Temperature and coordinate
// pointers are nil when the source cell was blank, the -999 sentinel, or
// unparseable.
type StationReading struct {
	StationLabel string   `json:"stationLabel"`
	MinTemp      *float64 `json:"minTemp,omitempty"`
	MaxTemp      *float64 `json:"maxTemp,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// ExtremeResult is the station achieving the day's nationwide minimum or
// maximum. Coordinates are carried from the winning row only when the source
// table had both coordinate columns and both cells parsed.
type ExtremeResult struct {
	Value        float64  `json:"value"`
	StationLabel string   `json:"stationLabel"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// DailyReport is the parsed table for one calendar date. Immutable once
// constructed; built fresh per requested date.
type DailyReport struct {
	Date    time.Time        `json:"date"`
	Columns ColumnMap        `json:"columns"`
	Rows    []StationReading `json:"rows"`
}

// DailyExtremes is the aggregate surface handed to the presentation layer:
// the two extremes (either may be absent) plus the full station table for
// optional map rendering.
type DailyExtremes struct {
	Date     string           `json:"date"`
	Min      *ExtremeResult   `json:"min,omitempty"`
	Max      *ExtremeResult   `json:"max,omitempty"`
	Stations []StationReading `json:"stations"`
}
