package ohlcv

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/dnldd/stocksense/shared"
)

const (
	// Canonical field names.
	FieldDate     = "date"
	FieldOpen     = "open"
	FieldHigh     = "high"
	FieldLow      = "low"
	FieldClose    = "close"
	FieldAdjClose = "adj_close"
	FieldVolume   = "volume"
)

// requiredFields are the canonical fields every normalized table must carry, in
// the order they are reported when missing.
var requiredFields = []string{FieldDate, FieldOpen, FieldHigh, FieldLow, FieldClose, FieldAdjClose, FieldVolume}

// aliases maps squashed header names to canonical fields.
var aliases = map[string]string{
	"date":          FieldDate,
	"datetime":      FieldDate,
	"timestamp":     FieldDate,
	"open":          FieldOpen,
	"high":          FieldHigh,
	"low":           FieldLow,
	"close":         FieldClose,
	"adjclose":      FieldAdjClose,
	"adjustedclose": FieldAdjClose,
	"volume":        FieldVolume,
}

// squash lowercases the provided header and strips separators.
func squash(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(header)) {
		switch r {
		case ' ', '_', '-', '.':
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// CanonicalField returns the canonical field for a raw header, if any.
func CanonicalField(header string) (string, bool) {
	field, ok := aliases[squash(header)]
	return field, ok
}

// mapColumns resolves the table column index of every canonical field. Price
// and volume fields are matched on the outermost header level only, the date
// may be named at any level since hierarchical exports put the index name below
// the field names.
func mapColumns(t *shared.Table) (map[string]int, []string) {
	mapped := make(map[string]int, len(requiredFields))
	for idx := range t.Columns {
		field, ok := CanonicalField(t.Columns[idx].Name())
		if !ok {
			continue
		}
		if _, exists := mapped[field]; !exists {
			mapped[field] = idx
		}
	}

	if _, ok := mapped[FieldDate]; !ok {
	search:
		for idx := range t.Columns {
			for _, level := range t.Columns[idx].Header {
				if field, ok := CanonicalField(level); ok && field == FieldDate {
					mapped[FieldDate] = idx
					break search
				}
			}
		}
	}

	var missing []string
	for _, field := range requiredFields {
		if _, ok := mapped[field]; !ok {
			missing = append(missing, field)
		}
	}

	return mapped, missing
}

// parsePrice parses a raw price cell. Blank and null cells are NaN.
func parsePrice(cell string) (float64, error) {
	switch strings.ToLower(cell) {
	case "", "nan", "null", "none":
		return math.NaN(), nil
	}

	return strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
}

// parseVolume parses a raw volume cell, accepting float notation.
func parseVolume(cell string) (uint64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
	if err != nil {
		return 0, err
	}

	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("volume must be a finite non-negative number, got %v", v)
	}

	return uint64(math.Round(v)), nil
}

// cell returns the raw cell at row for the provided field.
func cell(t *shared.Table, mapped map[string]int, field string, row int) string {
	cells := t.Columns[mapped[field]].Cells
	if row >= len(cells) {
		return ""
	}

	return cells[row]
}

// Normalize maps a raw price table onto the canonical schema. The returned
// series is sorted by ascending date with duplicate dates resolved in favour of
// the later record. A *shared.SchemaError is returned when a required field
// cannot be mapped or a date or volume cell is malformed.
func Normalize(t *shared.Table) (Series, error) {
	if t == nil {
		return nil, &shared.SchemaError{Missing: slices.Clone(requiredFields)}
	}

	mapped, missing := mapColumns(t)
	if len(missing) > 0 {
		return nil, &shared.SchemaError{Missing: missing}
	}

	n := t.Len()
	series := make(Series, 0, n)
	for row := 0; row < n; row++ {
		var bar Bar
		var err error

		rawDate := cell(t, mapped, FieldDate, row)
		bar.Date, err = shared.ParseDate(rawDate)
		if err != nil {
			return nil, &shared.SchemaError{Reason: fmt.Sprintf("row %d: %v", row, err)}
		}

		prices := []struct {
			field string
			dst   *float64
		}{
			{FieldOpen, &bar.Open},
			{FieldHigh, &bar.High},
			{FieldLow, &bar.Low},
			{FieldClose, &bar.Close},
			{FieldAdjClose, &bar.AdjClose},
		}
		for _, p := range prices {
			*p.dst, err = parsePrice(cell(t, mapped, p.field, row))
			if err != nil {
				return nil, &shared.SchemaError{Reason: fmt.Sprintf("row %d: parsing %s: %v", row, p.field, err)}
			}
		}

		bar.Volume, err = parseVolume(cell(t, mapped, FieldVolume, row))
		if err != nil {
			return nil, &shared.SchemaError{Reason: fmt.Sprintf("row %d: parsing %s: %v", row, FieldVolume, err)}
		}

		series = append(series, bar)
	}

	slices.SortStableFunc(series, func(a, b Bar) int {
		return a.Date.Compare(b.Date)
	})

	deduped := series[:0]
	for idx := range series {
		if len(deduped) > 0 && deduped[len(deduped)-1].Date.Equal(series[idx].Date) {
			deduped[len(deduped)-1] = series[idx]
			continue
		}
		deduped = append(deduped, series[idx])
	}

	return deduped, nil
}
