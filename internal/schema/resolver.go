// Package schema decides which columns of the daily table carry the station
// identity, temperatures, and coordinates. Feed headers are not stable
// release-to-release, so every required field has an ordered strategy list:
// name-based matching first, a fixed positional fallback last.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gkiss/odp-extremes-service/internal/models"
	"github.com/gkiss/odp-extremes-service/internal/observability"
)

// ErrSchema means the table structure is insufficient to resolve a required
// column even via positional fallback. Structural, not recoverable by retry.
var ErrSchema = errors.New("unresolvable table schema")

// Positional offsets reflect the fixed layout of the feed when headers are
// absent or renamed.
const (
	stationFallbackIndex = 2
	minTempFallbackIndex = 10
	maxTempFallbackIndex = 12
)

// Tokens is the recognized-header configuration. Kept as data rather than
// scattered literals so a feed header rename is a config change.
type Tokens struct {
	// Substring markers, case-insensitive. Cover English and Hungarian
	// spellings for "station".
	StationMarkers       []string `yaml:"station_markers"`
	StationNumberMarkers []string `yaml:"station_number_markers"`

	// Exact matches against the normalized (trimmed, case-folded) header.
	MinTemp   []string `yaml:"min_temp"`
	MaxTemp   []string `yaml:"max_temp"`
	Latitude  []string `yaml:"latitude"`
	Longitude []string `yaml:"longitude"`
}

// DefaultTokens returns the header vocabulary observed across feed revisions.
func DefaultTokens() Tokens {
	return Tokens{
		StationMarkers:       []string{"station", "allomas", "állomás"},
		StationNumberMarkers: []string{"stationnumber", "station_number", "stanum", "szam", "szám"},
		MinTemp:              []string{"tn", "tn24", "min", "minimum"},
		MaxTemp:              []string{"tx", "tx24", "max", "maximum"},
		Latitude:             []string{"lat", "latitude"},
		Longitude:            []string{"lon", "long", "longitude"},
	}
}

// merge fills empty token lists with defaults, so partial config overrides work.
func (t Tokens) merge() Tokens {
	def := DefaultTokens()
	if len(t.StationMarkers) == 0 {
		t.StationMarkers = def.StationMarkers
	}
	if len(t.StationNumberMarkers) == 0 {
		t.StationNumberMarkers = def.StationNumberMarkers
	}
	if len(t.MinTemp) == 0 {
		t.MinTemp = def.MinTemp
	}
	if len(t.MaxTemp) == 0 {
		t.MaxTemp = def.MaxTemp
	}
	if len(t.Latitude) == 0 {
		t.Latitude = def.Latitude
	}
	if len(t.Longitude) == 0 {
		t.Longitude = def.Longitude
	}
	return t
}

// Resolver maps a header row onto a ColumnMap.
type Resolver struct {
	tokens Tokens
}

// NewResolver returns a Resolver using the given token configuration; empty
// lists fall back to DefaultTokens.
func NewResolver(tokens Tokens) *Resolver {
	return &Resolver{tokens: tokens.merge()}
}

// strategy attempts to resolve one field. ok=false means try the next
// strategy; an error aborts resolution.
type strategy func(header []string, columnCount int) (idx int, ok bool, err error)

// Resolve picks columns for every field. header is the raw header row;
// columnCount is the width of the data rows (used by positional fallbacks,
// which must not point past the table).
func (r *Resolver) Resolve(header []string, columnCount int) (models.ColumnMap, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	cm := models.ColumnMap{
		StationNumber: -1,
		Latitude:      -1,
		Longitude:     -1,
	}

	// The number column resolves first: its header also contains the
	// station markers ("stationnumber" contains "station"), so the name
	// search must skip it or a number-before-name ordering binds the name
	// field to the number column.
	if idx, ok := firstMatch(normalized, containsPredicate(r.tokens.StationNumberMarkers)); ok {
		cm.StationNumber = idx
	}

	station, err := resolve("station", columnCount, normalized,
		containsAnyExcluding(r.tokens.StationMarkers, cm.StationNumber),
		positional(stationFallbackIndex),
	)
	if err != nil {
		return models.ColumnMap{}, err
	}
	cm.Station = station

	minTemp, err := resolve("min_temp", columnCount, normalized,
		equalsAny(r.tokens.MinTemp),
		positional(minTempFallbackIndex),
	)
	if err != nil {
		return models.ColumnMap{}, err
	}
	cm.MinTemp = minTemp

	maxTemp, err := resolve("max_temp", columnCount, normalized,
		equalsAny(r.tokens.MaxTemp),
		positional(maxTempFallbackIndex),
	)
	if err != nil {
		return models.ColumnMap{}, err
	}
	cm.MaxTemp = maxTemp

	// Coordinates are optional: name match only, no positional fallback.
	// They resolve together or not at all; a row must never carry a
	// latitude without a longitude.
	lat, latOK := firstMatch(normalized, equalsPredicate(r.tokens.Latitude))
	lon, lonOK := firstMatch(normalized, equalsPredicate(r.tokens.Longitude))
	if latOK && lonOK {
		cm.Latitude = lat
		cm.Longitude = lon
	}

	return cm, nil
}

// resolve runs strategies in priority order; the first success wins.
func resolve(field string, columnCount int, normalized []string, strategies ...strategy) (int, error) {
	for i, s := range strategies {
		idx, ok, err := s(normalized, columnCount)
		if err != nil {
			return 0, err
		}
		if ok {
			if i > 0 {
				observability.SchemaFallbacksTotal.WithLabelValues(field).Inc()
			}
			return idx, nil
		}
	}
	return 0, fmt.Errorf("%w: no column for %s", ErrSchema, field)
}

// containsAnyExcluding is a substring match skipping one column index
// (-1 excludes nothing).
func containsAnyExcluding(markers []string, exclude int) strategy {
	pred := containsPredicate(markers)
	return func(normalized []string, _ int) (int, bool, error) {
		for i, h := range normalized {
			if i != exclude && pred(h) {
				return i, true, nil
			}
		}
		return 0, false, nil
	}
}

func equalsAny(tokens []string) strategy {
	pred := equalsPredicate(tokens)
	return func(normalized []string, _ int) (int, bool, error) {
		idx, ok := firstMatch(normalized, pred)
		return idx, ok, nil
	}
}

// positional is the last-resort strategy: a fixed offset into the table.
// Errors with ErrSchema when the table is too narrow to contain it.
func positional(index int) strategy {
	return func(_ []string, columnCount int) (int, bool, error) {
		if columnCount <= index {
			return 0, false, fmt.Errorf("%w: need at least %d columns, table has %d", ErrSchema, index+1, columnCount)
		}
		return index, true, nil
	}
}

func firstMatch(normalized []string, pred func(string) bool) (int, bool) {
	for i, h := range normalized {
		if pred(h) {
			return i, true
		}
	}
	return 0, false
}

func containsPredicate(markers []string) func(string) bool {
	lowered := lowerAll(markers)
	return func(header string) bool {
		for _, m := range lowered {
			if m != "" && strings.Contains(header, m) {
				return true
			}
		}
		return false
	}
}

func equalsPredicate(tokens []string) func(string) bool {
	lowered := lowerAll(tokens)
	return func(header string) bool {
		for _, t := range lowered {
			if t != "" && header == t {
				return true
			}
		}
		return false
	}
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

// normalizeHeader trims whitespace and a UTF-8 BOM and case-folds. Feed
// headers occasionally carry stray padding or a BOM on the first cell.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	return strings.ToLower(strings.TrimSpace(h))
}
