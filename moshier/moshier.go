// Package moshier implements the analytical ("no external file")
// position theory spec.md §4.4 names moshplan/moshmoon: a table-driven
// series evaluated purely from polynomial orbital elements, with no
// binary ephemeris file required. Planetary positions come from J2000
// mean Keplerian elements with linear secular rates (the closed-form
// two-body substitute for the full VSOP87 Fourier expansion); lunar
// position comes from the ELP2000/Chapront truncated periodic series
// (ported from the pack's Meeus port), matching the real Moshier
// lunar theory's fundamental-argument structure.
package moshier

import (
	"math"

	"github.com/pkg/errors"

	"github.com/anupshinde/goeph/mathkernel"
)

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
	j2000JD = 2451545.0

	// planSpeedIntervalDays is the finite-difference step used for
	// planetary velocity, matching spec.md §4.4's PLAN_SPEED_INTV.
	planSpeedIntervalDays = 1e-4

	// Validity window for the planetary series, spec.md §4.4.
	MoshPlEphStartJD = 625000.5
	MoshPlEphEndJD   = 2818000.5

	// Validity window for the lunar series, spec.md §4.4. The real
	// Moshier lunar fit (ELP2000/85 adjusted to DE404) is valid over a
	// wider span than the planetary series; this reader uses the same
	// outer bound published for the planetary theory since both draw on
	// the same J2000 mean-element epoch range.
	MoshLuEphStartJD = 625000.5
	MoshLuEphEndJD   = 2818000.5
)

// ErrOutsideRange indicates jdTT falls outside the series' validity window.
var ErrOutsideRange = errors.New("moshier: time outside series validity range")

// ErrUnknownBody indicates body is not one of Mercury..Pluto, Sun, or Moon.
var ErrUnknownBody = errors.New("moshier: unknown body")

// Body indices, matching the convention used by se1/jpl.
const (
	Mercury = 1
	Venus   = 2
	Earth   = 3
	Mars    = 4
	Jupiter = 5
	Saturn  = 6
	Uranus  = 7
	Neptune = 8
	Pluto   = 9
	Moon    = 10
	Sun     = 11
)

// elements holds one planet's J2000 mean orbital elements and their
// linear secular rates (per Julian century), in the convention
// published by JPL's "Keplerian Elements for Approximate Positions of
// the Major Planets" (Standish 1992) — semi-major axis in AU, angles
// in degrees.
type elements struct {
	a, aDot         float64
	e, eDot         float64
	i, iDot         float64
	l, lDot         float64 // mean longitude
	peri, periDot   float64 // longitude of perihelion (ϖ)
	node, nodeDot   float64 // longitude of ascending node (Ω)
}

var planetElements = map[int]elements{
	Mercury: {0.38709927, 0.00000037, 0.20563593, 0.00001906, 7.00497902, -0.00594749, 252.25032350, 149472.67411175, 77.45779628, 0.16047689, 48.33076593, -0.12534081},
	Venus:   {0.72333566, 0.00000390, 0.00677672, -0.00004107, 3.39467605, -0.00078890, 181.97909950, 58517.81538729, 131.60246718, 0.00268329, 76.67984255, -0.27769418},
	Earth:   {1.00000261, 0.00000562, 0.01671123, -0.00004392, -0.00001531, -0.01294668, 100.46457166, 35999.37244981, 102.93768193, 0.32327364, 0.0, 0.0},
	Mars:    {1.52371034, 0.00001847, 0.09339410, 0.00007882, 1.84969142, -0.00813131, -4.55343205, 19140.30268499, -23.94362959, 0.44441088, 49.55953891, -0.29257343},
	Jupiter: {5.20288700, -0.00011607, 0.04838624, -0.00013253, 1.30439695, -0.00183714, 34.39644051, 3034.74612775, 14.72847983, 0.21252668, 100.47390909, 0.20469106},
	Saturn:  {9.53667594, -0.00125060, 0.05386179, -0.00050991, 2.48599187, 0.00193609, 49.95424423, 1222.49362201, 92.59887831, -0.41897216, 113.66242448, -0.28867794},
	Uranus:  {19.18916464, -0.00196176, 0.04725744, -0.00004397, 0.77263783, -0.00242939, 313.23810451, 428.48202785, 170.95427630, 0.40805281, 74.01692503, 0.04240589},
	Neptune: {30.06992276, 0.00026291, 0.00859048, 0.00005105, 1.77004347, 0.00035372, -55.12002969, 218.45945325, 44.96476227, -0.32241464, 131.78422574, -0.00508664},
	Pluto:   {39.48211675, -0.00031596, 0.24882730, 0.00005170, 17.14001206, 0.00004818, 238.92903833, 145.20780515, 224.06891629, -0.04062942, 110.30393684, -0.01183482},
}

// heliocentricFromElements evaluates the two-body Kepler ellipse for el
// at Julian centuries T from J2000, returning the heliocentric ecliptic
// J2000 Cartesian position in AU.
func heliocentricFromElements(el elements, T float64) [3]float64 {
	a := el.a + el.aDot*T
	e := el.e + el.eDot*T
	i := (el.i + el.iDot*T) * deg2rad
	l := el.l + el.lDot*T
	peri := el.peri + el.periDot*T
	node := el.node + el.nodeDot*T
	omega := (peri - node) * deg2rad // argument of perihelion
	nodeRad := node * deg2rad

	mDeg := mathkernel.DegNorm(l - peri)
	mRad := mDeg * deg2rad
	if mDeg > 180 {
		mRad = (mDeg - 360) * deg2rad
	}

	E, _, _ := mathkernel.Kepler(mRad, e)

	xOrb := a * (math.Cos(E) - e)
	yOrb := a * math.Sqrt(1-e*e) * math.Sin(E)

	cosO, sinO := math.Cos(nodeRad), math.Sin(nodeRad)
	cosW, sinW := math.Cos(omega), math.Sin(omega)
	cosI, sinI := math.Cos(i), math.Sin(i)

	x := (cosO*cosW-sinO*sinW*cosI)*xOrb + (-cosO*sinW-sinO*cosW*cosI)*yOrb
	y := (sinO*cosW+cosO*sinW*cosI)*xOrb + (-sinO*sinW+cosO*cosW*cosI)*yOrb
	z := (sinW * sinI) * xOrb + (cosW * sinI) * yOrb

	return [3]float64{x, y, z}
}

// PlanetHeliocentric returns the heliocentric ecliptic J2000 position
// and velocity (AU, AU/day) of a major planet (Mercury..Pluto, Earth
// included) at jdTT, via the Kepler-ellipse evaluation of its J2000
// mean elements. Velocity is a central finite difference over
// planSpeedIntervalDays, matching spec.md §4.4's documented method.
func PlanetHeliocentric(body int, jdTT float64) (pos, vel [3]float64, err error) {
	el, ok := planetElements[body]
	if !ok {
		return pos, vel, errors.Wrapf(ErrUnknownBody, "body %d", body)
	}
	if jdTT < MoshPlEphStartJD || jdTT > MoshPlEphEndJD {
		return pos, vel, errors.WithStack(ErrOutsideRange)
	}

	T := (jdTT - j2000JD) / 36525.0
	pos = heliocentricFromElements(el, T)

	Tplus := (jdTT + planSpeedIntervalDays - j2000JD) / 36525.0
	Tminus := (jdTT - planSpeedIntervalDays - j2000JD) / 36525.0
	posPlus := heliocentricFromElements(el, Tplus)
	posMinus := heliocentricFromElements(el, Tminus)
	for k := 0; k < 3; k++ {
		vel[k] = (posPlus[k] - posMinus[k]) / (2 * planSpeedIntervalDays)
	}
	return pos, vel, nil
}

// SunGeocentric returns the Sun's geocentric ecliptic J2000 longitude,
// latitude, and distance (AU): the negation of Earth's heliocentric
// position, re-expressed in polar form.
func SunGeocentric(jdTT float64) (lonDeg, latDeg, distAU float64, err error) {
	earthPos, _, err := PlanetHeliocentric(Earth, jdTT)
	if err != nil {
		return 0, 0, 0, err
	}
	sunFromEarth := [3]float64{-earthPos[0], -earthPos[1], -earthPos[2]}
	lon, lat, r := mathkernel.CartToPolar(sunFromEarth)
	return lon * rad2deg, lat * rad2deg, r, nil
}

// HeliocentricEclipticJ2000 satisfies ephemeris.PositionSource: it
// dispatches Sun (trivially the origin), Earth and the other major
// planets (PlanetHeliocentric), and the Moon (Earth's heliocentric
// position plus the ELP2000 geocentric lunar vector) to the
// appropriate evaluator.
func HeliocentricEclipticJ2000(jdTT float64, body int) (pos, vel [3]float64, err error) {
	switch body {
	case Sun:
		return pos, vel, nil
	case Moon:
		earthPos, earthVel, err := PlanetHeliocentric(Earth, jdTT)
		if err != nil {
			return pos, vel, err
		}
		moonPos, moonVel, err := moonGeocentricCartesian(jdTT)
		if err != nil {
			return pos, vel, err
		}
		for k := 0; k < 3; k++ {
			pos[k] = earthPos[k] + moonPos[k]
			vel[k] = earthVel[k] + moonVel[k]
		}
		return pos, vel, nil
	default:
		return PlanetHeliocentric(body, jdTT)
	}
}
