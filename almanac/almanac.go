// Package almanac provides astronomical event-finding functions built on the
// search package. It finds times of seasons, moon phases, sunrise/sunset,
// twilight, body risings/settings, meridian transits, and oppositions/conjunctions.
package almanac

import (
	"math"

	"github.com/anupshinde/goeph/coord"
	"github.com/anupshinde/goeph/ephemeris"
	"github.com/anupshinde/goeph/search"
	"github.com/anupshinde/goeph/spk"
	"github.com/anupshinde/goeph/timescale"
)

// Season values returned in DiscreteEvent.NewValue by Seasons.
const (
	SpringEquinox  = 0 // Sun ecliptic longitude crosses 0°
	SummerSolstice = 1 // Sun ecliptic longitude crosses 90°
	AutumnEquinox  = 2 // Sun ecliptic longitude crosses 180°
	WinterSolstice = 3 // Sun ecliptic longitude crosses 270°
)

// Moon phase values returned in DiscreteEvent.NewValue by MoonPhases.
const (
	NewMoon      = 0 // Moon-Sun elongation crosses 0°
	FirstQuarter = 1 // Moon-Sun elongation crosses 90°
	FullMoon     = 2 // Moon-Sun elongation crosses 180°
	LastQuarter  = 3 // Moon-Sun elongation crosses 270°
)

// Twilight level values returned in DiscreteEvent.NewValue by Twilight.
const (
	Night                = 0 // Sun altitude < -18°
	AstronomicalTwilight = 1 // -18° ≤ alt < -12°
	NauticalTwilight     = 2 // -12° ≤ alt < -6°
	CivilTwilight        = 3 // -6° ≤ alt < -0.8333°
	Daylight             = 4 // alt ≥ -0.8333°
)

// sunAltitudeThreshold is the standard altitude for sunrise/sunset:
// -50 arcminutes = -0.8333° (16' solar radius + 34' refraction).
const sunAltitudeThreshold = -0.8333

// standardTempC/standardPressureMbar are the conventional refraction-formula
// reference conditions (10°C, 1010 mbar) used as the default for rise/set refraction when the caller doesn't supply
// site conditions via RisingsAtmo/SettingsAtmo.
const (
	standardTempC        = 10.0
	standardPressureMbar = 1010.0
)

// horizonRefractionDeg returns the atmospheric refraction at the horizon
// (apparent altitude 0) for the given site temperature and pressure, via
// coord.Refraction's Bennett's-formula implementation — the
// pressure/temperature-aware generalization of the classical fixed 34'
// horizon-dip rule of thumb.
func horizonRefractionDeg(tempC, pressureMbar float64) float64 {
	return coord.Refraction(0.0, tempC, pressureMbar)
}

// fastPathLatitudeLimitDeg is the classical cutoff above which the
// semi-diurnal-arc formula used by the fast path becomes unreliable near
// the pole (the body may graze the horizon or the cosine argument may
// exceed [-1, 1] by a hair due to refraction/semi-diameter, which the slow
// path's direct bracketed search handles without special-casing).
const fastPathLatitudeLimitDeg = 63.0

// bodyRadiusKm holds the physical radii (km) of the Sun, Moon, and major
// planets, used to compute a body-specific semi-diameter for rise/set
// thresholds. Bodies not listed (asteroids, fictitious points) fall back to
// refraction alone, via altitudeThresholdDeg's radiusKm<=0 branch.
var bodyRadiusKm = map[int]float64{
	spk.Sun:               695700.0,
	spk.Moon:              1737.4,
	spk.Mercury:           2439.7,
	spk.Venus:             6051.8,
	spk.MarsBarycenter:    3389.5,
	spk.JupiterBarycenter: 69911.0,
	spk.SaturnBarycenter:  58232.0,
	spk.UranusBarycenter:  25362.0,
	spk.NeptuneBarycenter: 24622.0,
}

// altitudeThresholdDeg returns the altitude (degrees) at which a body of
// the given physical radius, seen at the given geocentric distance, is
// considered to be rising or setting: its own semi-diameter below the true
// horizon plus the atmospheric refraction at the horizon for tempC/
// pressureMbar, generalizing sunAltitudeThreshold's "16' disc + 34'
// refraction" reasoning to any body with a known radius and any site
// atmosphere.
func altitudeThresholdDeg(distKm, radiusKm, tempC, pressureMbar float64) float64 {
	refractionDeg := horizonRefractionDeg(tempC, pressureMbar)
	if radiusKm <= 0 || distKm <= 0 {
		return -refractionDeg
	}
	semiDiameterDeg := math.Asin(radiusKm/distKm) * rad2deg
	return -(semiDiameterDeg + refractionDeg)
}

const rad2deg = 180.0 / math.Pi
const deg2rad = math.Pi / 180.0

// algebraicHourAngle estimates the hour angle (degrees, always positive)
// at which a body of declination decDeg reaches altitude altThresholdDeg
// for an observer at latDeg, via the classical semi-diurnal-arc formula
// cos H = (sin(alt) - sin(lat)·sin(dec)) / (cos(lat)·cos(dec)).
//
// ok is false if the body never reaches (cosH > 1) or never leaves
// (cosH < -1) that altitude at this latitude/declination — a circumpolar
// or never-rising case the caller must fall back to the slow path for.
func algebraicHourAngle(latDeg, decDeg, altThresholdDeg float64) (hourAngleDeg float64, ok bool) {
	sinLat, cosLat := math.Sincos(latDeg * deg2rad)
	sinDec, cosDec := math.Sincos(decDeg * deg2rad)
	if cosLat == 0 || cosDec == 0 {
		return 0, false
	}
	cosH := (math.Sin(altThresholdDeg*deg2rad) - sinLat*sinDec) / (cosLat * cosDec)
	if cosH > 1 || cosH < -1 {
		return 0, false
	}
	return math.Acos(cosH) * rad2deg, true
}

// refineByLinearInterpolation improves an approximate crossing time tGuess
// of alt(t) = altThresholdDeg by linear interpolation of altitude against
// time, iterating a small fixed number of times — the "refine with linear
// interpolation of altitude vs time; one or two refinement iterations"
// fast path spec.md §4.7 describes.
func refineByLinearInterpolation(altAt func(float64) float64, tGuess, altThresholdDeg, slopeDegPerDay float64) float64 {
	t := tGuess
	for i := 0; i < 2; i++ {
		alt := altAt(t)
		if slopeDegPerDay == 0 {
			break
		}
		t += (altThresholdDeg - alt) / slopeDegPerDay
	}
	return t
}

// Seasons finds equinoxes and solstices in the given TDB Julian date range.
//
// Returns events with NewValue: SpringEquinox=0, SummerSolstice=1,
// AutumnEquinox=2, WinterSolstice=3 (Northern Hemisphere conventions).
func Seasons(eph ephemeris.KmSource, startJD, endJD float64) ([]search.DiscreteEvent, error) {
	f := func(tdbJD float64) int {
		pos := eph.Apparent(spk.Sun, tdbJD)
		_, lonDeg := coord.ICRFToEcliptic(pos[0], pos[1], pos[2])
		if lonDeg < 0 {
			lonDeg += 360.0
		}
		return int(math.Floor(lonDeg/90.0)) % 4
	}
	return search.FindDiscrete(startJD, endJD, 90.0, f, 0)
}

// MoonPhases finds new moons, first quarters, full moons, and last quarters
// in the given TDB Julian date range.
//
// Returns events with NewValue: NewMoon=0, FirstQuarter=1, FullMoon=2,
// LastQuarter=3.
func MoonPhases(eph ephemeris.KmSource, startJD, endJD float64) ([]search.DiscreteEvent, error) {
	f := func(tdbJD float64) int {
		moonPos := eph.Apparent(spk.Moon, tdbJD)
		sunPos := eph.Apparent(spk.Sun, tdbJD)
		_, moonLon := coord.ICRFToEcliptic(moonPos[0], moonPos[1], moonPos[2])
		_, sunLon := coord.ICRFToEcliptic(sunPos[0], sunPos[1], sunPos[2])
		diff := moonLon - sunLon
		if diff < 0 {
			diff += 360.0
		}
		return int(math.Floor(diff/90.0)) % 4
	}
	return search.FindDiscrete(startJD, endJD, 5.0, f, 0)
}

// sunAltitude returns the Sun's altitude in degrees as seen from a ground observer.
func sunAltitude(eph ephemeris.KmSource, latDeg, lonDeg, tdbJD float64) float64 {
	pos := eph.Apparent(spk.Sun, tdbJD)
	jdUT1 := timescale.TTToUT1(tdbJD)
	alt, _, _ := coord.Altaz(pos, latDeg, lonDeg, jdUT1)
	return alt
}

// SunriseSunset finds sunrise and sunset times for a ground observer in the
// given TDB Julian date range.
//
// latDeg, lonDeg: observer geodetic latitude and longitude in degrees.
// Returns events with NewValue=1 (sunrise) and NewValue=0 (sunset).
func SunriseSunset(eph ephemeris.KmSource, latDeg, lonDeg, startJD, endJD float64) ([]search.DiscreteEvent, error) {
	f := func(tdbJD float64) int {
		if sunAltitude(eph, latDeg, lonDeg, tdbJD) >= sunAltitudeThreshold {
			return 1
		}
		return 0
	}
	return search.FindDiscrete(startJD, endJD, 0.04, f, 0)
}

// Twilight finds transitions between darkness, twilight levels, and daylight
// for a ground observer in the given TDB Julian date range.
//
// Returns events with NewValue: Night=0, AstronomicalTwilight=1,
// NauticalTwilight=2, CivilTwilight=3, Daylight=4.
func Twilight(eph ephemeris.KmSource, latDeg, lonDeg, startJD, endJD float64) ([]search.DiscreteEvent, error) {
	f := func(tdbJD float64) int {
		alt := sunAltitude(eph, latDeg, lonDeg, tdbJD)
		switch {
		case alt >= sunAltitudeThreshold:
			return Daylight
		case alt >= -6.0:
			return CivilTwilight
		case alt >= -12.0:
			return NauticalTwilight
		case alt >= -18.0:
			return AstronomicalTwilight
		default:
			return Night
		}
	}
	return search.FindDiscrete(startJD, endJD, 0.01, f, 0)
}

// bodyAltitudeDistDec returns a body's altitude, geocentric distance, and
// declination as seen from a ground observer, the three quantities the
// semi-diameter-aware threshold and the fast-path hour-angle estimate both need.
func bodyAltitudeDistDec(eph ephemeris.KmSource, body int, latDeg, lonDeg, tdbJD float64) (altDeg, distKm, decDeg float64) {
	pos := eph.Apparent(body, tdbJD)
	jdUT1 := timescale.TTToUT1(tdbJD)
	altDeg, _, distKm = coord.Altaz(pos, latDeg, lonDeg, jdUT1)
	_, decDeg = coord.HourAngleDec(pos, lonDeg, jdUT1)
	return
}

// risingSettingStepDays is the coarse sampling step for the slow-path
// generic sweep across the whole search window; small enough that no two
// rise/set transitions of a Sun/Moon/planet can occur within one step.
const risingSettingStepDays = 0.25

// fastPathDayStep is the day-by-day sampling used to seed fast-path
// estimates: one algebraic hour-angle evaluation per day in place of the
// slow path's 4 coarse altitude samples per day (risingSettingStepDays)
// and their bisection.
const fastPathDayStep = 1.0

// fastPathWindowDays brackets the precise FindDiscrete bisection around a
// fast-path algebraic estimate, rather than sweeping the whole search range
// at risingSettingStepDays — the CPU-saving point of the fast path
// described in spec.md §4.7: the costly ephemeris evaluations move from a
// dense sweep to one estimate per day plus a narrow local bisection.
const fastPathWindowDays = 0.3

// siderealHoursPerHourAngleDeg converts a degree of hour angle to hours of
// mean solar time (1/15.04107 hours per degree of sidereal rotation).
const siderealHoursPerHourAngleDeg = 1.0 / 15.04107

// useFastPath reports whether the classical semi-diurnal-arc formula is
// reliable for this latitude: above fastPathLatitudeLimitDeg the horizon
// crossing can be grazing or absent by a hair even for ordinarily-rising
// bodies, and the slow path's direct bracketed search handles that without
// special-casing.
func useFastPath(latDeg float64) bool {
	return math.Abs(latDeg) < fastPathLatitudeLimitDeg
}

// estimateRiseSetJDs walks day by day across [startJD, endJD] and, for each
// day the body actually crosses altThreshold at this latitude/declination,
// returns an algebraic estimate of that day's rising and setting Julian
// dates (TDB), via algebraicHourAngle centered on the body's meridian
// transit that day.
func estimateRiseSetJDs(eph ephemeris.KmSource, body int, latDeg, lonDeg, startJD, endJD, tempC, pressureMbar float64) (riseEst, setEst []float64) {
	radiusKm := bodyRadiusKm[body]
	for day := math.Floor(startJD); day < endJD+1.0; day += fastPathDayStep {
		noonJD := day + 0.5
		_, distKm, decDeg := bodyAltitudeDistDec(eph, body, latDeg, lonDeg, noonJD)
		threshold := altitudeThresholdDeg(distKm, radiusKm, tempC, pressureMbar)
		haDeg, ok := algebraicHourAngle(latDeg, decDeg, threshold)
		if !ok {
			continue
		}
		transitJD := approximateTransitJD(eph, body, lonDeg, noonJD)
		offsetDays := haDeg * siderealHoursPerHourAngleDeg / 24.0
		riseEst = append(riseEst, transitJD-offsetDays)
		setEst = append(setEst, transitJD+offsetDays)
	}
	return
}

// approximateTransitJD estimates a body's meridian-transit time on the day
// containing nearJD, by one Newton-style correction of the hour angle at
// nearJD (treating HA as advancing at the sidereal rate, which holds to
// well within a minute over one correction for Sun/Moon/planets).
func approximateTransitJD(eph ephemeris.KmSource, body int, lonDeg, nearJD float64) float64 {
	pos := eph.Apparent(body, nearJD)
	jdUT1 := timescale.TTToUT1(nearJD)
	haDeg, _ := coord.HourAngleDec(pos, lonDeg, jdUT1)
	if haDeg > 180.0 {
		haDeg -= 360.0
	}
	return nearJD - haDeg*siderealHoursPerHourAngleDeg/24.0
}

// linearInterpSlopeStep is the half-width (days) of the two samples used to
// estimate the local slope of altitude-minus-threshold for
// refineFastPathCrossing's linear interpolation — about 30 minutes, short
// enough that the margin is close to linear across it for Sun/Moon/planets.
const linearInterpSlopeStep = 1.0 / 48.0

// fastPathConvergedMarginDeg is the tolerance refineFastPathCrossing
// requires of the linear-interpolation refinement before trusting it; a
// looser residual falls back to refineNearEstimate's bisection instead of
// returning a possibly-wrong crossing.
const fastPathConvergedMarginDeg = 0.01

// refineFastPathCrossing refines an algebraic rise/set estimate by linear
// interpolation of the altitude-minus-threshold margin against time — the
// "refine with linear interpolation of altitude vs time; one or two
// refinement iterations" fast path spec.md §4.7 describes — and confirms
// the result actually converged to a near-zero margin before trusting it.
func refineFastPathCrossing(margin func(float64) float64, estJD float64) (float64, bool) {
	slope := (margin(estJD+linearInterpSlopeStep) - margin(estJD-linearInterpSlopeStep)) / (2 * linearInterpSlopeStep)
	if slope == 0 {
		return 0, false
	}
	refinedJD := refineByLinearInterpolation(margin, estJD, 0, slope)
	if math.Abs(margin(refinedJD)) > fastPathConvergedMarginDeg {
		return 0, false
	}
	return refinedJD, true
}

// refineNearEstimate runs the slow path's bracket-and-bisect search in a
// narrow window around a fast-path estimate, returning the single
// transition closest to the estimate with the given wantValue (1 for
// rising, 0 for setting). Used when refineFastPathCrossing's linear
// interpolation doesn't converge cleanly.
func refineNearEstimate(startJD, endJD, estJD float64, wantValue int, f func(float64) int) (search.DiscreteEvent, bool) {
	lo := estJD - fastPathWindowDays
	if lo < startJD {
		lo = startJD
	}
	hi := estJD + fastPathWindowDays
	if hi > endJD {
		hi = endJD
	}
	if lo >= hi {
		return search.DiscreteEvent{}, false
	}
	events, err := search.FindDiscrete(lo, hi, fastPathWindowDays/4.0, f, 0)
	if err != nil || len(events) == 0 {
		return search.DiscreteEvent{}, false
	}
	var best search.DiscreteEvent
	found := false
	for _, e := range events {
		if e.NewValue != wantValue {
			continue
		}
		if !found || math.Abs(e.T-estJD) < math.Abs(best.T-estJD) {
			best = e
			found = true
		}
	}
	if !found {
		return search.DiscreteEvent{}, false
	}
	return best, true
}

// riseSetThresholdFunc builds the discrete 0/1 altitude-vs-threshold
// function Risings/Settings bracket, using altitudeThresholdDeg's
// semi-diameter- and atmosphere-aware horizon.
func riseSetThresholdFunc(eph ephemeris.KmSource, body int, latDeg, lonDeg, tempC, pressureMbar float64) func(float64) int {
	radiusKm := bodyRadiusKm[body]
	return func(tdbJD float64) int {
		alt, distKm, _ := bodyAltitudeDistDec(eph, body, latDeg, lonDeg, tdbJD)
		if alt >= altitudeThresholdDeg(distKm, radiusKm, tempC, pressureMbar) {
			return 1
		}
		return 0
	}
}

// risingsSettings finds rise (wantValue=1) or set (wantValue=0) events over
// [startJD, endJD], taking the fast algebraic path at low/mid latitudes for
// bodies with a known physical radius and falling back to a direct
// generic sweep otherwise.
func risingsSettings(eph ephemeris.KmSource, body int, latDeg, lonDeg, startJD, endJD, tempC, pressureMbar float64, wantValue int) ([]search.DiscreteEvent, error) {
	f := riseSetThresholdFunc(eph, body, latDeg, lonDeg, tempC, pressureMbar)

	if _, known := bodyRadiusKm[body]; known && useFastPath(latDeg) {
		radiusKm := bodyRadiusKm[body]
		margin := func(tdbJD float64) float64 {
			alt, distKm, _ := bodyAltitudeDistDec(eph, body, latDeg, lonDeg, tdbJD)
			return alt - altitudeThresholdDeg(distKm, radiusKm, tempC, pressureMbar)
		}

		riseEst, setEst := estimateRiseSetJDs(eph, body, latDeg, lonDeg, startJD, endJD, tempC, pressureMbar)
		ests := riseEst
		if wantValue == 0 {
			ests = setEst
		}
		var out []search.DiscreteEvent
		for _, est := range ests {
			if est < startJD || est > endJD {
				continue
			}
			if refinedJD, ok := refineFastPathCrossing(margin, est); ok {
				out = append(out, search.DiscreteEvent{T: refinedJD, NewValue: wantValue})
				continue
			}
			if event, ok := refineNearEstimate(startJD, endJD, est, wantValue, f); ok {
				out = append(out, event)
			}
		}
		if out != nil {
			return out, nil
		}
		// No per-day estimates were valid (e.g. the body never crosses the
		// threshold on any sampled day) — fall through to the generic sweep.
	}

	events, err := search.FindDiscrete(startJD, endJD, risingSettingStepDays, f, 0)
	if err != nil {
		return nil, err
	}
	var out []search.DiscreteEvent
	for _, e := range events {
		if e.NewValue == wantValue {
			out = append(out, e)
		}
	}
	return out, nil
}

// Risings finds times when a body rises above the horizon for a ground
// observer in the given TDB Julian date range, using the default
// refraction conditions (10°C, 1010 mbar). Returns events with
// NewValue=1 (body rose).
func Risings(eph ephemeris.KmSource, body int, latDeg, lonDeg, startJD, endJD float64) ([]search.DiscreteEvent, error) {
	return risingsSettings(eph, body, latDeg, lonDeg, startJD, endJD, standardTempC, standardPressureMbar, 1)
}

// Settings finds times when a body sets below the horizon for a ground
// observer in the given TDB Julian date range, using the default
// refraction conditions (10°C, 1010 mbar). Returns events with
// NewValue=0 (body set).
func Settings(eph ephemeris.KmSource, body int, latDeg, lonDeg, startJD, endJD float64) ([]search.DiscreteEvent, error) {
	return risingsSettings(eph, body, latDeg, lonDeg, startJD, endJD, standardTempC, standardPressureMbar, 0)
}

// RisingsAtmo is Risings with an explicit site temperature (°C) and pressure
// (mbar), for callers at high altitude or in unusual conditions where
// refraction departs noticeably from the default 10°C, 1010 mbar.
func RisingsAtmo(eph ephemeris.KmSource, body int, latDeg, lonDeg, startJD, endJD, tempC, pressureMbar float64) ([]search.DiscreteEvent, error) {
	return risingsSettings(eph, body, latDeg, lonDeg, startJD, endJD, tempC, pressureMbar, 1)
}

// SettingsAtmo is Settings with an explicit site temperature (°C) and
// pressure (mbar). See RisingsAtmo.
func SettingsAtmo(eph ephemeris.KmSource, body int, latDeg, lonDeg, startJD, endJD, tempC, pressureMbar float64) ([]search.DiscreteEvent, error) {
	return risingsSettings(eph, body, latDeg, lonDeg, startJD, endJD, tempC, pressureMbar, 0)
}

// Transits finds times when a body crosses the observer's meridian (upper
// culmination) in the given TDB Julian date range.
//
// Returns events with NewValue=1 (body crossed from east to west of meridian).
func Transits(eph ephemeris.KmSource, body int, latDeg, lonDeg, startJD, endJD float64) ([]search.DiscreteEvent, error) {
	f := func(tdbJD float64) int {
		pos := eph.Apparent(body, tdbJD)
		jdUT1 := timescale.TTToUT1(tdbJD)
		haDeg, _ := coord.HourAngleDec(pos, lonDeg, jdUT1)
		// HA > 180° means east of meridian (approaching transit).
		if haDeg > 180.0 {
			return 0 // east, approaching meridian
		}
		return 1 // west, past meridian
	}
	events, err := search.FindDiscrete(startJD, endJD, 0.4, f, 0)
	if err != nil {
		return nil, err
	}
	// Filter to only east-to-west transitions (actual transits).
	var transits []search.DiscreteEvent
	for _, e := range events {
		if e.NewValue == 1 {
			transits = append(transits, e)
		}
	}
	return transits, nil
}

// OppositionsConjunctions finds times when a planet is at opposition or
// conjunction with the Sun in the given TDB Julian date range.
//
// Returns events with NewValue=0 (conjunction: planet near Sun) and
// NewValue=1 (opposition: planet opposite Sun).
func OppositionsConjunctions(eph ephemeris.KmSource, body int, startJD, endJD float64) ([]search.DiscreteEvent, error) {
	f := func(tdbJD float64) int {
		sunPos := eph.Apparent(spk.Sun, tdbJD)
		bodyPos := eph.Apparent(body, tdbJD)
		_, sunLon := coord.ICRFToEcliptic(sunPos[0], sunPos[1], sunPos[2])
		_, bodyLon := coord.ICRFToEcliptic(bodyPos[0], bodyPos[1], bodyPos[2])
		diff := sunLon - bodyLon
		if diff < 0 {
			diff += 360.0
		}
		return int(math.Floor(diff/180.0)) % 2
	}
	return search.FindDiscrete(startJD, endJD, 40.0, f, 0)
}
