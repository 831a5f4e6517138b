package validation

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDate(t *testing.T) {
	earliest := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		wantErr error
		want    string
	}{
		{"valid date", "2024-03-05", nil, "2024-03-05"},
		{"valid with whitespace", "  2024-03-05  ", nil, "2024-03-05"},
		{"latest boundary inclusive", "2024-03-06", nil, "2024-03-06"},
		{"earliest boundary inclusive", "2000-01-01", nil, "2000-01-01"},
		{"empty", "", ErrDateEmpty, ""},
		{"whitespace only", "   ", ErrDateEmpty, ""},
		{"wrong format", "05-03-2024", ErrDateFormat, ""},
		{"compact format rejected", "20240305", ErrDateFormat, ""},
		{"not a date", "yesterday", ErrDateFormat, ""},
		{"impossible day", "2024-02-30", ErrDateFormat, ""},
		{"future", "2024-03-07", ErrDateInFuture, ""},
		{"too old", "1999-12-31", ErrDateTooOld, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateDate(tt.input, earliest, latest, time.UTC)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ValidateDate(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateDate(%q) unexpected error: %v", tt.input, err)
			}
			if got.Format(DateFormat) != tt.want {
				t.Errorf("ValidateDate(%q) = %s, want %s", tt.input, got.Format(DateFormat), tt.want)
			}
		})
	}
}

func TestValidateDate_EarliestBoundInRequestZone(t *testing.T) {
	budapest, err := time.LoadLocation("Europe/Budapest")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}

	// Bound and request parse in the same zone, so the earliest day itself
	// is accepted even though its midnight is 1-2h before UTC midnight.
	earliest := time.Date(2000, 1, 1, 0, 0, 0, 0, budapest)
	got, err := ValidateDate("2000-01-01", earliest, time.Time{}, budapest)
	if err != nil {
		t.Fatalf("ValidateDate(earliest day) error = %v, want nil", err)
	}
	if got.Format(DateFormat) != "2000-01-01" {
		t.Errorf("ValidateDate() = %s, want 2000-01-01", got.Format(DateFormat))
	}

	if _, err := ValidateDate("1999-12-31", earliest, time.Time{}, budapest); !errors.Is(err, ErrDateTooOld) {
		t.Errorf("day before earliest: error = %v, want %v", err, ErrDateTooOld)
	}
}

func TestValidateDate_ZeroBoundsDisabled(t *testing.T) {
	if _, err := ValidateDate("1850-01-01", time.Time{}, time.Time{}, time.UTC); err != nil {
		t.Errorf("ValidateDate() with zero bounds error = %v, want nil", err)
	}
}
