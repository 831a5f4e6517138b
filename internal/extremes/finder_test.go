package extremes

import (
	"testing"

	"github.com/gkiss/odp-extremes-service/internal/models"
)

func TestParseCell(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *float64
	}{
		{"decimal point", "12.5", f(12.5)},
		{"decimal comma parses identically", "12,5", f(12.5)},
		{"negative with comma", "-5,2", f(-5.2)},
		{"integer", "9", f(9)},
		{"surrounding whitespace", "  3.1  ", f(3.1)},
		{"empty is absent", "", nil},
		{"whitespace only is absent", "   ", nil},
		{"sentinel is absent", "-999", nil},
		{"sentinel with whitespace is absent", " -999 ", nil},
		{"unparseable text is absent", "n/a", nil},
		{"near-sentinel numeric still parses", "-999.5", f(-999.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCell(tt.raw)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("ParseCell(%q) = %v, want %v", tt.raw, deref(got), deref(tt.want))
			}
			if got != nil && *got != *tt.want {
				t.Errorf("ParseCell(%q) = %v, want %v", tt.raw, *got, *tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name    string
		station string
		number  string
		want    string
	}{
		{"name and number", "Budapest", "12843", "Budapest (12843)"},
		{"name only", "Budapest", "", "Budapest"},
		{"values are trimmed", "  Budapest  ", " 12843 ", "Budapest (12843)"},
		{"blank number omits parentheses", "Szeged", "   ", "Szeged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.station, tt.number); got != tt.want {
				t.Errorf("Label(%q, %q) = %q, want %q", tt.station, tt.number, got, tt.want)
			}
		})
	}
}

// columns: station=0, min=1, max=2.
var testColumns = models.ColumnMap{
	Station:       0,
	StationNumber: -1,
	MinTemp:       1,
	MaxTemp:       2,
	Latitude:      -1,
	Longitude:     -1,
}

func TestFind_DailyExtremes(t *testing.T) {
	rows := BuildReadings([][]string{
		{"Kékestető", "-5.2", "3.1"},
		{"Szeged", "-2.0", "9.4"},
		{"Debrecen", "-999", "-999"},
	}, testColumns)

	min, max := Find(rows)
	if min == nil || max == nil {
		t.Fatalf("Find() = (%v, %v), want both present", min, max)
	}
	if min.Value != -5.2 || min.StationLabel != "Kékestető" {
		t.Errorf("min = %+v, want -5.2 at Kékestető", min)
	}
	if max.Value != 9.4 || max.StationLabel != "Szeged" {
		t.Errorf("max = %+v, want 9.4 at Szeged", max)
	}
}

func TestFind_SentinelNeverWins(t *testing.T) {
	rows := BuildReadings([][]string{
		{"A", "-999", "12.0"},
		{"B", "1.5", "-999"},
	}, testColumns)

	min, max := Find(rows)
	if min == nil || min.Value != 1.5 || min.StationLabel != "B" {
		t.Errorf("min = %+v, want 1.5 at B (sentinel excluded)", min)
	}
	if max == nil || max.Value != 12.0 || max.StationLabel != "A" {
		t.Errorf("max = %+v, want 12.0 at A (sentinel excluded)", max)
	}
}

func TestFind_TiesBreakToFirstOccurrence(t *testing.T) {
	rows := BuildReadings([][]string{
		{"First", "-5.0", "10.0"},
		{"Second", "-5.0", "10.0"},
		{"Third", "-5.0", "10.0"},
	}, testColumns)

	min, max := Find(rows)
	if min == nil || min.StationLabel != "First" {
		t.Errorf("min station = %v, want First", min)
	}
	if max == nil || max.StationLabel != "First" {
		t.Errorf("max station = %v, want First", max)
	}
}

func TestFind_ReductionsAreIndependent(t *testing.T) {
	// Every minimum cell degraded, maxima intact: min absent, max present.
	rows := BuildReadings([][]string{
		{"A", "-999", "4.0"},
		{"B", "", "7.5"},
		{"C", "junk", "2.0"},
	}, testColumns)

	min, max := Find(rows)
	if min != nil {
		t.Errorf("min = %+v, want nil when no usable minimum exists", min)
	}
	if max == nil || max.Value != 7.5 || max.StationLabel != "B" {
		t.Errorf("max = %+v, want 7.5 at B", max)
	}
}

func TestFind_EmptyTable(t *testing.T) {
	min, max := Find(nil)
	if min != nil || max != nil {
		t.Errorf("Find(nil) = (%v, %v), want both absent", min, max)
	}

	rows := BuildReadings(nil, testColumns)
	min, max = Find(rows)
	if min != nil || max != nil {
		t.Errorf("Find(no rows) = (%v, %v), want both absent", min, max)
	}
}

func TestBuildReadings_StationNumberLabel(t *testing.T) {
	cm := testColumns
	cm.StationNumber = 3
	rows := BuildReadings([][]string{
		{"Budapest", "1.0", "2.0", "12843"},
		{"Szeged", "1.0", "2.0", ""},
	}, cm)

	if rows[0].StationLabel != "Budapest (12843)" {
		t.Errorf("label = %q, want %q", rows[0].StationLabel, "Budapest (12843)")
	}
	if rows[1].StationLabel != "Szeged" {
		t.Errorf("label = %q, want %q", rows[1].StationLabel, "Szeged")
	}
}

func TestBuildReadings_Coordinates(t *testing.T) {
	cm := testColumns
	cm.Latitude = 3
	cm.Longitude = 4

	rows := BuildReadings([][]string{
		{"A", "-1.0", "5.0", "47,43", "19,18"},
		{"B", "-2.0", "6.0", "46.25", ""}, // longitude blank: neither attached
		{"C", "-3.0", "7.0", "junk", "20.14"},
	}, cm)

	if rows[0].Latitude == nil || *rows[0].Latitude != 47.43 || rows[0].Longitude == nil || *rows[0].Longitude != 19.18 {
		t.Errorf("row A coordinates = (%v, %v), want (47.43, 19.18)", deref(rows[0].Latitude), deref(rows[0].Longitude))
	}
	for _, i := range []int{1, 2} {
		if rows[i].Latitude != nil || rows[i].Longitude != nil {
			t.Errorf("row %d coordinates = (%v, %v), want both nil", i, deref(rows[i].Latitude), deref(rows[i].Longitude))
		}
	}
}

func TestFind_CoordinatesCarriedFromWinningRow(t *testing.T) {
	cm := testColumns
	cm.Latitude = 3
	cm.Longitude = 4

	rows := BuildReadings([][]string{
		{"Kékestető", "-5.2", "3.1", "47.87", "20.01"},
		{"Szeged", "-2.0", "9.4", "46.25", "20.09"},
	}, cm)

	min, max := Find(rows)
	if min.Latitude == nil || *min.Latitude != 47.87 {
		t.Errorf("min latitude = %v, want 47.87", deref(min.Latitude))
	}
	if max.Longitude == nil || *max.Longitude != 20.09 {
		t.Errorf("max longitude = %v, want 20.09", deref(max.Longitude))
	}
}

func TestBuildReadings_ShortRowsDegradeToAbsent(t *testing.T) {
	rows := BuildReadings([][]string{
		{"OnlyStation"},
	}, testColumns)

	if rows[0].MinTemp != nil || rows[0].MaxTemp != nil {
		t.Errorf("short row temps = (%v, %v), want both nil", deref(rows[0].MinTemp), deref(rows[0].MaxTemp))
	}
	if rows[0].StationLabel != "OnlyStation" {
		t.Errorf("label = %q, want OnlyStation", rows[0].StationLabel)
	}
}

func f(v float64) *float64 { return &v }

func deref(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
