package coord

// NutationPrecision controls the number of terms used in the IAU 2000A nutation series.
type NutationPrecision int

const (
	// NutationStandard uses the 30 largest luni-solar terms (~1 arcsec precision).
	// This is ~45x faster than NutationFull and sufficient for most applications,
	// since other error sources (light-time ~20 arcsec, GMST formula ~0.3 arcsec/century)
	// dominate the overall accuracy budget.
	NutationStandard NutationPrecision = iota

	// NutationFull uses all 678 luni-solar + 687 planetary terms (~0.001 arcsec precision).
	// Matches Skyfield's default IAU 2000A nutation model. Use for high-precision
	// single-point computations or when exact Skyfield parity is required.
	NutationFull
)

// DefaultNutationPrecision is the precision used by the unparameterized
// convenience wrappers (GAST, Altaz, HourAngleDec, ...). Precision is no
// longer process-global mutable state: callers that need a different
// precision call the WithPrecision variants directly, or go through
// precess.Selector, which carries its own precision field per caller.
const DefaultNutationPrecision = NutationStandard

// NutationAnglesStandard exposes the 30-term nutation series so
// precess.Selector can dispatch to it without this package duplicating
// the coefficient tables. T is Julian centuries from J2000 (TT).
func NutationAnglesStandard(T float64) (dpsiRad, depsRad float64) {
	return nutationAnglesStandard(T)
}

// NutationAnglesFull exposes the full IAU 2000A nutation series so
// precess.Selector can dispatch to it without this package duplicating
// the coefficient tables. T is Julian centuries from J2000 (TT).
func NutationAnglesFull(T float64) (dpsiRad, depsRad float64) {
	return nutationAnglesFull(T)
}
