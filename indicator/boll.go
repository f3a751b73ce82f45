package indicator

// LowerBandPolicy selects how the lower bollinger band is derived.
type LowerBandPolicy int

const (
	// SymmetricLower places the lower band k standard deviations below the mid.
	SymmetricLower LowerBandPolicy = iota
	// LegacyLower places the lower band one standard deviation below the mid,
	// matching historical dashboard output.
	LegacyLower
)

// String stringifies the provided lower band policy.
func (p LowerBandPolicy) String() string {
	switch p {
	case SymmetricLower:
		return "symmetric"
	case LegacyLower:
		return "legacy"
	default:
		return "unknown"
	}
}

// Bands represents bollinger band series.
type Bands struct {
	Mid   []float64
	Upper []float64
	Lower []float64
}

// Bollinger returns bollinger bands over w rows with the upper band k sample
// standard deviations above the moving average.
func Bollinger(close []float64, w int, k float64, policy LowerBandPolicy) Bands {
	mid := SMA(close, w)
	std := RollingStdDev(close, w)

	lowerK := k
	if policy == LegacyLower {
		lowerK = 1
	}

	bands := Bands{
		Mid:   mid,
		Upper: make([]float64, len(mid)),
		Lower: make([]float64, len(mid)),
	}
	for idx := range mid {
		bands.Upper[idx] = mid[idx] + k*std[idx]
		bands.Lower[idx] = mid[idx] - lowerK*std[idx]
	}

	return bands
}
