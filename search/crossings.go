package search

import (
	"math"

	"github.com/anupshinde/goeph/coord"
	"github.com/anupshinde/goeph/ephemeris"
	"github.com/anupshinde/goeph/spk"
)

// Approximate synodic periods (days) used to seed the longitude-crossing
// bracket step, keyed by the NAIF body id the caller passes to
// FindLongitudeCrossing. These mirror the "tcon[]" reference-conjunction
// table spec.md §4.9 describes: a coarse period estimate that the scan
// steps through in eighths (see crossingPeriod) so it does not skip over the
// target longitude, refined afterward by secant iteration.
var synodicPeriodDays = map[int]float64{
	spk.Sun:               365.25,
	spk.Moon:              27.32,
	spk.Mercury:           115.88,
	spk.Venus:             583.92,
	spk.MarsBarycenter:    779.94,
	spk.JupiterBarycenter: 398.88,
	spk.SaturnBarycenter:  378.09,
	spk.UranusBarycenter:  369.66,
	spk.NeptuneBarycenter: 367.49,
}

// LongitudeCrossing is the result of FindLongitudeCrossing / FindNodeCrossing.
type LongitudeCrossing struct {
	JD   float64 // TDB Julian date of the crossing
	Iter int     // number of secant iterations used to converge
}

// crossingPeriod returns the coarse scan step for a body: one eighth of its
// synodic period, or of one year for anything not in the synodic table
// (asteroids etc.). A whole-period step would land on nearly the same
// longitude every time and never bracket the target.
func crossingPeriod(body int) float64 {
	if p, ok := synodicPeriodDays[body]; ok {
		return p / 8
	}
	return 365.25 / 8
}

// FindLongitudeCrossing finds the TDB Julian date at or after startJD when
// body's geocentric apparent ecliptic longitude first equals targetLonDeg.
//
// It advances in steps of one eighth of a synodic period (spec.md §4.9's
// "tcon[]"-seeded scan) until the longitude difference changes sign across
// the target (the ±180° wrap opposite the target is not counted), then
// refines with secant iteration on the wrapped longitude difference until
// |Δλ| < 1e-5°.
//
// Returns an error if no crossing is found within maxYears of startJD.
func FindLongitudeCrossing(eph ephemeris.KmSource, body int, targetLonDeg, startJD float64, maxYears float64) (LongitudeCrossing, error) {
	lonDiff := func(jd float64) float64 {
		pos := eph.Apparent(body, jd)
		_, lon := coord.ICRFToEcliptic(pos[0], pos[1], pos[2])
		return wrapDeg180(lon - targetLonDeg)
	}
	return secantCrossing(lonDiff, startJD, crossingPeriod(body), maxYears)
}

// FindHeliocentricLongitudeCrossing is the heliocentric analogue of
// FindLongitudeCrossing: it uses the body's heliocentric ecliptic longitude
// (as seen from the Sun) rather than its geocentric apparent longitude,
// per spec.md §4.9's "heliocentric variants differ only in the coordinate
// basis".
func FindHeliocentricLongitudeCrossing(eph ephemeris.KmSource, body int, targetLonDeg, startJD float64, maxYears float64) (LongitudeCrossing, error) {
	lonDiff := func(jd float64) float64 {
		pos := eph.ObserveFrom(spk.Sun, body, jd)
		_, lon := coord.ICRFToEcliptic(pos[0], pos[1], pos[2])
		return wrapDeg180(lon - targetLonDeg)
	}
	return secantCrossing(lonDiff, startJD, crossingPeriod(body), maxYears)
}

// FindNodeCrossing finds the TDB Julian date at or after startJD when the
// Moon crosses the ecliptic plane (ascending if ascending is true,
// descending otherwise), i.e. when its ecliptic latitude changes sign in
// the requested direction.
func FindNodeCrossing(eph ephemeris.KmSource, startJD float64, ascending bool, maxYears float64) (LongitudeCrossing, error) {
	// The Moon's latitude is already signed; an ascending node is a
	// negative-to-positive crossing, descending the reverse. Expressing
	// both as "signed latitude, or its negation" lets secantCrossing's
	// single sign-change bracket handle either direction.
	latFunc := func(jd float64) float64 {
		pos := eph.Apparent(spk.Moon, jd)
		lat, _ := coord.ICRFToEcliptic(pos[0], pos[1], pos[2])
		if !ascending {
			return -lat
		}
		return lat
	}
	// Draconic month ~27.21 days; step at a quarter of that so the coarse
	// scan cannot step over both nodes in one stride.
	return secantCrossing(latFunc, startJD, 27.21/4.0, maxYears)
}

// secantCrossing brackets the first zero of f at or after startJD by
// stepping forward in stepDays-sized strides (bounded by maxYears), then
// refines the bracket with secant iteration until |f| < 1e-5 (degrees) or
// 200 iterations are exhausted.
func secantCrossing(f func(float64) float64, startJD, stepDays, maxYears float64) (LongitudeCrossing, error) {
	const tol = 1e-5
	const maxIter = 200

	endJD := startJD + maxYears*365.25
	t0 := startJD
	v0 := f(t0)
	for t1 := startJD + stepDays; t1 <= endJD; t1 += stepDays {
		v1 := f(t1)
		// A jump of more than 180 between samples is the ±180 wrap of a
		// longitude difference, not a zero of f.
		if sameSign(v0, v1) || math.Abs(v1-v0) > 180 {
			t0, v0 = t1, v1
			continue
		}
		// Secant iteration on the bracket (t0, v0)-(t1, v1).
		a, fa := t0, v0
		b, fb := t1, v1
		for i := 0; i < maxIter; i++ {
			if fb == fa {
				break
			}
			c := b - fb*(b-a)/(fb-fa)
			fc := f(c)
			if math.Abs(fc) < tol {
				return LongitudeCrossing{JD: c, Iter: i + 1}, nil
			}
			a, fa = b, fb
			b, fb = c, fc
		}
		return LongitudeCrossing{JD: b, Iter: maxIter}, nil
	}
	return LongitudeCrossing{}, ErrNoCrossing
}

func sameSign(a, b float64) bool {
	return (a >= 0) == (b >= 0)
}

// wrapDeg180 wraps a degree difference into (-180, 180].
func wrapDeg180(d float64) float64 {
	for d <= -180 {
		d += 360
	}
	for d > 180 {
		d -= 360
	}
	return d
}
