// Package extremes cleanses the resolved temperature columns and reduces the
// daily table to the station-level nationwide minimum and maximum.
package extremes

import (
	"strconv"
	"strings"

	"github.com/gkiss/odp-extremes-service/internal/models"
	"github.com/gkiss/odp-extremes-service/internal/observability"
)

// sentinel is the feed's "no measurement" marker. It must never win a
// comparison or appear as a returned extreme.
const sentinel = "-999"

// ParseCell cleanses one table cell: trim, blank and sentinel become absent,
// decimal comma becomes decimal point, then float parse. Unparseable text is
// a degradation, never an error.
func ParseCell(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == sentinel {
		return nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseColumn parses a cell and records degradations under the column label.
func parseColumn(raw string, column string) *float64 {
	v := ParseCell(raw)
	if v == nil && strings.TrimSpace(raw) != "" {
		observability.CellDegradationsTotal.WithLabelValues(column).Inc()
	}
	return v
}

// cell returns the value at idx or "" when the row is too short or idx is
// unresolved. Short rows degrade to absent values, same as blank cells.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// BuildReadings converts raw data rows into station readings using the
// resolved columns. Coordinates are populated per row only when both columns
// were resolved and both cells parse; never one without the other.
func BuildReadings(records [][]string, cm models.ColumnMap) []models.StationReading {
	rows := make([]models.StationReading, 0, len(records))
	for _, rec := range records {
		r := models.StationReading{
			StationLabel: Label(cell(rec, cm.Station), cell(rec, cm.StationNumber)),
			MinTemp:      parseColumn(cell(rec, cm.MinTemp), "min_temp"),
			MaxTemp:      parseColumn(cell(rec, cm.MaxTemp), "max_temp"),
		}
		if cm.HasCoordinates() {
			lat := parseColumn(cell(rec, cm.Latitude), "latitude")
			lon := parseColumn(cell(rec, cm.Longitude), "longitude")
			if lat != nil && lon != nil {
				r.Latitude = lat
				r.Longitude = lon
			}
		}
		rows = append(rows, r)
	}
	return rows
}

// Label builds the station label: "<name> (<number>)" when a station number
// is present, else the trimmed name alone.
func Label(name, number string) string {
	name = strings.TrimSpace(name)
	number = strings.TrimSpace(number)
	if number == "" {
		return name
	}
	return name + " (" + number + ")"
}

// Find reduces the readings to the minimum and maximum extremes. Ties break
// to the first occurrence in source row order. A direction with no present
// value yields nil, which is a "no data" state, not an error. The two
// reductions are independent: one may be absent while the other is present.
func Find(rows []models.StationReading) (min, max *models.ExtremeResult) {
	for _, r := range rows {
		if r.MinTemp != nil && (min == nil || *r.MinTemp < min.Value) {
			min = &models.ExtremeResult{
				Value:        *r.MinTemp,
				StationLabel: r.StationLabel,
				Latitude:     r.Latitude,
				Longitude:    r.Longitude,
			}
		}
		if r.MaxTemp != nil && (max == nil || *r.MaxTemp > max.Value) {
			max = &models.ExtremeResult{
				Value:        *r.MaxTemp,
				StationLabel: r.StationLabel,
				Latitude:     r.Latitude,
				Longitude:    r.Longitude,
			}
		}
	}
	return min, max
}
