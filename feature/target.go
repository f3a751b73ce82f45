// Package feature assembles per-target feature matrices and fits the
// reversible min-max scaler used to encode and decode model data.
package feature

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dnldd/stocksense/indicator"
	"github.com/dnldd/stocksense/ohlcv"
)

const (
	// DefaultLookBack is the number of prior days fed to the model per window.
	DefaultLookBack = 21
	// maWindow is the short moving average window over adjusted close.
	maWindow = 3
)

// Column represents a feature matrix column.
type Column int

const (
	AdjClose Column = iota
	Volume
	GarmanKlassVolatility
	DollarVolume
	OBV
	MA3Days
	MACD
)

// String stringifies the provided column.
func (c Column) String() string {
	switch c {
	case AdjClose:
		return "adj_close"
	case Volume:
		return "volume"
	case GarmanKlassVolatility:
		return "garman_klass_volatility"
	case DollarVolume:
		return "dollar_volume"
	case OBV:
		return "obv"
	case MA3Days:
		return "ma_3_days"
	case MACD:
		return "macd"
	default:
		return "unknown"
	}
}

// ParseColumn returns the column with the provided name.
func ParseColumn(name string) (Column, error) {
	for c := AdjClose; c <= MACD; c++ {
		if c.String() == name {
			return c, nil
		}
	}

	return 0, fmt.Errorf("unknown feature column '%s'", name)
}

// compute derives the column from the provided series over its full history.
func (c Column) compute(s ohlcv.Series) ([]float64, error) {
	switch c {
	case AdjClose:
		return s.AdjCloses(), nil
	case Volume:
		return s.Volumes(), nil
	case GarmanKlassVolatility:
		return indicator.GarmanKlass(s.Highs(), s.Lows(), s.AdjCloses(), s.Opens()), nil
	case DollarVolume:
		return indicator.DollarVolume(s.AdjCloses(), s.Volumes()), nil
	case OBV:
		return indicator.OBV(s.Closes(), s.Volumes()), nil
	case MA3Days:
		return indicator.SMA(s.AdjCloses(), maWindow), nil
	case MACD:
		return indicator.MACD(s.Closes(), indicator.MACDFast, indicator.MACDSlow), nil
	default:
		return nil, fmt.Errorf("unknown feature column %d", int(c))
	}
}

// Target represents a forecasting target: the modelled symbol and the ordered
// feature columns its model was trained on. Column 0 is always the adjusted
// close, which the decoder relies on.
type Target struct {
	// Name is the target identifier.
	Name string
	// Symbol is the traded symbol.
	Symbol string
	// Columns is the ordered feature set.
	Columns []Column
	// LookBack is the window length fed to the model.
	LookBack int
}

// Validate asserts the target is usable for assembly.
func (t *Target) Validate() error {
	var errs error

	if t.Name == "" {
		errs = errors.Join(errs, fmt.Errorf("target name cannot be an empty string"))
	}
	if t.Symbol == "" {
		errs = errors.Join(errs, fmt.Errorf("target symbol cannot be an empty string"))
	}
	if t.LookBack <= 0 {
		errs = errors.Join(errs, fmt.Errorf("target lookback must be positive, got %d", t.LookBack))
	}

	switch {
	case len(t.Columns) == 0:
		errs = errors.Join(errs, fmt.Errorf("target has no feature columns"))
	case t.Columns[0] != AdjClose:
		errs = errors.Join(errs, fmt.Errorf("target column 0 must be %s, got %s", AdjClose, t.Columns[0]))
	}

	seen := make(map[Column]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c] {
			errs = errors.Join(errs, fmt.Errorf("duplicate feature column %s", c))
		}
		seen[c] = true
	}

	return errs
}

// ColumnNames returns the names of the target's columns in order.
func (t *Target) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for idx, c := range t.Columns {
		names[idx] = c.String()
	}

	return names
}

var (
	// Apple is the five feature adjusted close target for AAPL.
	Apple = Target{
		Name:     "apple",
		Symbol:   "AAPL",
		Columns:  []Column{AdjClose, GarmanKlassVolatility, DollarVolume, OBV, MA3Days},
		LookBack: DefaultLookBack,
	}
	// Google is the six feature adjusted close target for GOOGL.
	Google = Target{
		Name:     "google",
		Symbol:   "GOOGL",
		Columns:  []Column{AdjClose, Volume, DollarVolume, OBV, MA3Days, MACD},
		LookBack: DefaultLookBack,
	}
)

// Targets returns the predefined targets.
func Targets() []Target {
	return []Target{Apple, Google}
}

// FindTarget returns the predefined target with the provided name.
func FindTarget(name string) (Target, error) {
	for _, t := range Targets() {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}

	return Target{}, fmt.Errorf("unknown target '%s'", name)
}
