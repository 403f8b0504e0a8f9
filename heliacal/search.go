package heliacal

import (
	"math"

	"github.com/anupshinde/goeph/coord"
	"github.com/anupshinde/goeph/ephemeris"
	"github.com/anupshinde/goeph/magnitude"
	"github.com/anupshinde/goeph/search"
	"github.com/anupshinde/goeph/spk"
	"github.com/anupshinde/goeph/timescale"
	"github.com/anupshinde/goeph/units"
)

// VisionRegime flags the vision regime VisLimMag used when a body's
// visibility was evaluated, per spec.md §4.8's SE_SCOTOPIC_FLAG /
// SE_MIXEDOPIC_FLAG.
type VisionRegime int

const (
	// Photopic means the sky was brighter than photopicThresholdNL
	// throughout the window: cone (daylight-adapted) vision only.
	Photopic VisionRegime = iota
	// Scotopic means the sky was darker than photopicThresholdNL
	// throughout: rod (dark-adapted) vision only.
	Scotopic
	// Mixed means the sky brightness crossed the photopic/scotopic
	// threshold within the window — the caller must treat the result as
	// uncertain, per spec.md §4.8.
	Mixed
)

// EventKind selects which heliacal event FindEvent searches for.
type EventKind int

const (
	// MorningFirst is the first morning the body is visible rising ahead
	// of the Sun after a period of invisibility near conjunction.
	MorningFirst EventKind = iota
	// EveningLast is the last evening the body is visible setting after
	// the Sun before becoming lost in its glare.
	EveningLast
	// EveningFirst is the first evening the body is visible setting after
	// the Sun following conjunction (applies to outer bodies/the Moon).
	EveningFirst
	// MorningLast is the last morning the body is visible rising ahead of
	// the Sun before becoming lost in its glare.
	MorningLast
	// AcronychalRising is the body's rising near sunset when near
	// opposition (only visible right after the Sun sets).
	AcronychalRising
	// AcronychalSetting is the body's setting near sunrise when near
	// opposition.
	AcronychalSetting
)

// Target identifies the body whose heliacal visibility is being searched: a
// planet/Moon tracked by the ephemeris, or a fixed star given by catalog
// position and magnitude. Mirrors eclipse.OccultedBody's first-class
// planet-or-star shape rather than branching on (planet, starname)
// internally.
type Target struct {
	IsStar bool

	// NAIFBody identifies a planet or the Moon, valid when !IsStar.
	NAIFBody int

	// StarName, StarRAHours, StarDecDeg, StarMagnitude identify a fixed
	// star by its J2000 catalog position and apparent magnitude, valid
	// when IsStar. Proper motion is ignored, matching eclipse.OccultedBody.
	StarName                string
	StarRAHours, StarDecDeg float64
	StarMagnitude           float64
}

// Event describes a heliacal visibility event: the bracketed window and, if
// found, the times of first visibility, best (most confidently visible)
// moment, and last visibility within that window.
type Event struct {
	Kind EventKind

	Found bool

	StartVisible float64 // TDB JD, first instant the body clears VisLimMag
	BestVisible  float64 // TDB JD, instant of maximum margin above VisLimMag
	EndVisible   float64 // TDB JD, last instant the body clears VisLimMag

	Regime VisionRegime
}

// visibilityMargin is positive when the body is visible: the visual limiting
// magnitude at the body's sky position minus the body's own apparent
// magnitude. Larger is more comfortably visible.
func visibilityMargin(eph ephemeris.KmSource, target Target, latDeg, lonDeg, tdbJD float64, atmo AtmosphericParams, obs ObserverParams) (margin float64, regime VisionRegime) {
	jdUT1 := timescale.TTToUT1(tdbJD)

	sunPos := eph.Apparent(spk.Sun, tdbJD)
	sunAlt, sunAz, _ := coord.Altaz(sunPos, latDeg, lonDeg, jdUT1)

	moonPos := eph.Apparent(spk.Moon, tdbJD)
	moonAlt, moonAz, _ := coord.Altaz(moonPos, latDeg, lonDeg, jdUT1)

	bodyPos := targetPosition(eph, target, tdbJD)
	bodyAlt, bodyAz, _ := coord.Altaz(bodyPos, latDeg, lonDeg, jdUT1)

	sepFromSun := angularSepAzAlt(bodyAz, bodyAlt, sunAz, sunAlt)
	sepFromMoon := angularSepAzAlt(bodyAz, bodyAlt, moonAz, moonAlt)

	moonSunToMoon := [3]float64{moonPos[0] - sunPos[0], moonPos[1] - sunPos[1], moonPos[2] - sunPos[2]}
	moonPhaseAngle := coord.PhaseAngle(moonPos, moonSunToMoon)
	illuminated := coord.FractionIlluminated(moonPhaseAngle)

	bSky := SkyBrightness(sunAlt, moonAlt, sepFromSun, sepFromMoon, illuminated, tdbJD, atmo)
	f1, f2 := OpticalFactor(obs)
	limMag := VisLimMag(bSky, f1, f2)

	regime = Photopic
	if bSky < photopicThresholdNL {
		regime = Scotopic
	}

	bodyMag := apparentMagnitude(eph, target, tdbJD)
	bodyMagExtinguished := extinguish(bodyMag, bodyAlt, atmo)

	if bodyAlt < 0 {
		return math.Inf(-1), regime
	}
	return limMag - bodyMagExtinguished, regime
}

// targetPosition returns a target's apparent geocentric direction. A star's
// direction is its fixed catalog position; a planet/Moon's is its
// light-time- and aberration-corrected ephemeris position.
func targetPosition(eph ephemeris.KmSource, target Target, tdbJD float64) [3]float64 {
	if target.IsStar {
		x, y, z := coord.RADecToICRF(target.StarRAHours, target.StarDecDeg)
		return [3]float64{x, y, z}
	}
	return eph.Apparent(target.NAIFBody, tdbJD)
}

// apparentMagnitude computes a target's apparent visual magnitude: the
// catalog magnitude for a star, a phase-curve magnitude for a planet, or
// a fixed mean magnitude for the Moon and the Sun.
func apparentMagnitude(eph ephemeris.KmSource, target Target, tdbJD float64) float64 {
	if target.IsStar {
		return target.StarMagnitude
	}
	body := target.NAIFBody
	if body == spk.Moon {
		return -12.7 // mean full-Moon magnitude; phase is carried by BMoon, not here
	}
	if body == spk.Sun {
		return -26.7
	}
	sunPos := eph.GeocentricPosition(spk.Sun, tdbJD)
	bodyGeoPos := eph.GeocentricPosition(body, tdbJD)
	obsPos := eph.Apparent(body, tdbJD)

	sunToBodyAU := kmToAU([3]float64{bodyGeoPos[0] - sunPos[0], bodyGeoPos[1] - sunPos[1], bodyGeoPos[2] - sunPos[2]})
	obsToBodyAU := kmToAU(obsPos)
	return magnitude.PlanetaryMagnitudeWithGeometry(body, sunToBodyAU, obsToBodyAU, yearFromJD(tdbJD))
}

func kmToAU(v [3]float64) [3]float64 {
	return [3]float64{v[0] / units.AUToKm, v[1] / units.AUToKm, v[2] / units.AUToKm}
}

func yearFromJD(jd float64) float64 {
	return 2000.0 + (jd-2451545.0)/365.25
}

func angularSepAzAlt(az1, alt1, az2, alt2 float64) float64 {
	x1, y1, z1 := sphToCartesian(az1, alt1)
	x2, y2, z2 := sphToCartesian(az2, alt2)
	dot := x1*x2 + y1*y2 + z1*z2
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return math.Acos(dot) * rad2deg
}

func sphToCartesian(azDeg, altDeg float64) (x, y, z float64) {
	az := azDeg * deg2rad
	alt := altDeg * deg2rad
	return math.Cos(alt) * math.Cos(az), math.Cos(alt) * math.Sin(az), math.Sin(alt)
}

// FindEvent searches [startJD, endJD] for the requested heliacal event of
// body, observed from the given geographic location, following spec.md
// §4.8's bracket-then-refine shape: a coarse scan (15-day step, or 1-day
// for the Moon) finds where the visibility margin crosses zero, then
// search.FindMaxima locates the best-visible instant, and two walks from
// that peak find the start/end of the visible window.
func FindEvent(eph ephemeris.KmSource, target Target, kind EventKind, latDeg, lonDeg, startJD, endJD float64, atmo AtmosphericParams, obs ObserverParams) (Event, error) {
	stepDays := 15.0
	if !target.IsStar && target.NAIFBody == spk.Moon {
		stepDays = 1.0
	}

	marginAt := func(tdbJD float64) float64 {
		m, _ := visibilityMargin(eph, target, latDeg, lonDeg, tdbJD, atmo, obs)
		return m
	}

	visible := func(tdbJD float64) int {
		if marginAt(tdbJD) > 0 {
			return 1
		}
		return 0
	}

	transitions, err := search.FindDiscrete(startJD, endJD, stepDays, visible, 0)
	if err != nil {
		return Event{Kind: kind}, err
	}
	if len(transitions) == 0 {
		return Event{Kind: kind, Found: false}, nil
	}

	// The transition to look for depends on the event kind: "first"
	// events want a 0→1 crossing, "last" events want a 1→0 crossing.
	wantRising := kind == MorningFirst || kind == EveningFirst || kind == AcronychalRising

	var crossingJD float64
	found := false
	for _, tr := range transitions {
		if wantRising && tr.NewValue == 1 {
			crossingJD = tr.T
			found = true
			break
		}
		if !wantRising && tr.NewValue == 0 {
			crossingJD = tr.T
			found = true
			break
		}
	}
	if !found {
		return Event{Kind: kind, Found: false}, nil
	}

	// Refine the best-visible instant: a local maximum of the margin
	// function near the crossing.
	window := stepDays * 2
	lo := crossingJD - window
	if lo < startJD {
		lo = startJD
	}
	hi := crossingJD + window
	if hi > endJD {
		hi = endJD
	}

	maxima, err := search.FindMaxima(lo, hi, stepDays/4.0, marginAt, 0)
	if err != nil {
		return Event{Kind: kind}, err
	}

	best := crossingJD
	if len(maxima) > 0 {
		closest := maxima[0]
		for _, m := range maxima[1:] {
			if math.Abs(m.T-crossingJD) < math.Abs(closest.T-crossingJD) {
				closest = m
			}
		}
		best = closest.T
	}

	startVis, endVis := visibleWindowAround(marginAt, best, lo, hi)

	// Determine the vision regime across the whole visible window: mixed
	// if it crosses the photopic/scotopic threshold at any sampled point.
	regime := sampleRegime(eph, target, latDeg, lonDeg, startVis, endVis, atmo, obs)

	return Event{
		Kind:         kind,
		Found:        true,
		StartVisible: startVis,
		BestVisible:  best,
		EndVisible:   endVis,
		Regime:       regime,
	}, nil
}

// visibleWindowAround walks outward from t in both directions in small
// steps until the margin function drops to zero, bisecting each final step
// to locate the boundary precisely. This is the "two time_limit_invisible
// walks" spec.md §4.8 describes.
func visibleWindowAround(margin func(float64) float64, t, lo, hi float64) (start, end float64) {
	const step = 0.02 // ~29 minutes

	start = walkToBoundary(margin, t, lo, -step)
	end = walkToBoundary(margin, t, hi, step)
	return
}

func walkToBoundary(margin func(float64) float64, t, limit, step float64) float64 {
	prev := t
	cur := t
	for {
		next := cur + step
		if (step < 0 && next < limit) || (step > 0 && next > limit) {
			return cur
		}
		if margin(next) <= 0 {
			return bisectBoundary(margin, prev, next)
		}
		prev = cur
		cur = next
	}
}

func bisectBoundary(margin func(float64) float64, visibleT, invisibleT float64) float64 {
	const tol = 1.0 / 86400.0 // 1 second
	for math.Abs(invisibleT-visibleT) > tol {
		mid := (visibleT + invisibleT) / 2.0
		if margin(mid) > 0 {
			visibleT = mid
		} else {
			invisibleT = mid
		}
	}
	return visibleT
}

func sampleRegime(eph ephemeris.KmSource, target Target, latDeg, lonDeg, startJD, endJD float64, atmo AtmosphericParams, obs ObserverParams) VisionRegime {
	const samples = 8
	sawPhotopic := false
	sawScotopic := false
	for i := 0; i <= samples; i++ {
		t := startJD + (endJD-startJD)*float64(i)/float64(samples)
		_, regime := visibilityMargin(eph, target, latDeg, lonDeg, t, atmo, obs)
		if regime == Photopic {
			sawPhotopic = true
		} else {
			sawScotopic = true
		}
	}
	switch {
	case sawPhotopic && sawScotopic:
		return Mixed
	case sawPhotopic:
		return Photopic
	default:
		return Scotopic
	}
}
