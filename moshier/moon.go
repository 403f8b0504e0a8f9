package moshier

import (
	"math"

	"github.com/pkg/errors"

	"github.com/anupshinde/goeph/mathkernel"
)

// moonLonDistTerm is one term of the ELP2000/Chapront truncated series
// for lunar longitude perturbation (Σl, 1e-6 deg) and distance
// perturbation (Σr, 1e-3 km). D, M, Mp, F are integer multipliers of
// the four fundamental arguments (mean elongation, Sun's mean anomaly,
// Moon's mean anomaly, argument of latitude). Ported from the pack's
// Meeus port (soniakeys-meeus moonposition), itself Chapter 47's
// standard truncated term table — the real Moshier lunar theory is
// this same ELP2000/85-family series refit to DE404; this is the
// published, non-refit version, which spec.md §4.4's ±0.2 JD tolerance
// accommodates.
type moonLonDistTerm struct {
	d, m, mp, f float64
	sigmaL      float64
	sigmaR      float64
}

var moonLonDistTerms = [...]moonLonDistTerm{
	{0, 0, 1, 0, 6288774, -20905355},
	{2, 0, -1, 0, 1274027, -3699111},
	{2, 0, 0, 0, 658314, -2955968},
	{0, 0, 2, 0, 213618, -569925},
	{0, 1, 0, 0, -185116, 48888},
	{0, 0, 0, 2, -114332, -3149},
	{2, 0, -2, 0, 58793, 246158},
	{2, -1, -1, 0, 57066, -152138},
	{2, 0, 1, 0, 53322, -170733},
	{2, -1, 0, 0, 45758, -204586},
	{0, 1, -1, 0, -40923, -129620},
	{1, 0, 0, 0, -34720, 108743},
	{0, 1, 1, 0, -30383, 104755},
	{2, 0, 0, -2, 15327, 10321},
	{0, 0, 1, 2, -12528, 0},
	{0, 0, 1, -2, 10980, 79661},
	{4, 0, -1, 0, 10675, -34782},
	{0, 0, 3, 0, 10034, -23210},
	{4, 0, -2, 0, 8548, -21636},
	{2, 1, -1, 0, -7888, 24208},
	{2, 1, 0, 0, -6766, 30824},
	{1, 0, -1, 0, -5163, -8379},
	{1, 1, 0, 0, 4987, -16675},
	{2, -1, 1, 0, 4036, -12831},
	{2, 0, 2, 0, 3994, -10445},
	{4, 0, 0, 0, 3861, -11650},
	{2, 0, -3, 0, 3665, 14403},
	{0, 1, -2, 0, -2689, -7003},
	{2, 0, -1, 2, -2602, 0},
	{2, -1, -2, 0, 2390, 10056},
	{1, 0, 1, 0, -2348, 6322},
	{2, -2, 0, 0, 2236, -9884},
	{0, 1, 2, 0, -2120, 5751},
	{0, 2, 0, 0, -2069, 0},
	{2, -2, -1, 0, 2048, -4950},
	{2, 0, 1, -2, -1773, 4130},
	{2, 0, 0, 2, -1595, 0},
	{4, -1, -1, 0, 1215, -3958},
	{0, 0, 2, 2, -1110, 0},
	{3, 0, -1, 0, -892, 3258},
	{2, 1, 1, 0, -810, 2616},
	{4, -1, -2, 0, 759, -1897},
	{0, 2, -1, 0, -713, -2117},
	{2, 2, -1, 0, -700, 2354},
	{2, 1, -2, 0, 691, 0},
	{2, -1, 0, -2, 596, 0},
	{4, 0, 1, 0, 549, -1423},
	{0, 0, 4, 0, 537, -1117},
	{4, -1, 0, 0, 520, -1571},
	{1, 0, -2, 0, -487, -1739},
	{2, 1, 0, -2, -399, 0},
	{0, 0, 2, -2, -381, -4421},
	{1, 1, 1, 0, 351, 0},
	{3, 0, -2, 0, -340, 0},
	{4, 0, -3, 0, 330, 0},
	{2, -1, 2, 0, 327, 0},
	{0, 2, 1, 0, -323, 1165},
	{1, 1, -1, 0, 299, 0},
	{2, 0, 3, 0, 294, 0},
	{2, 0, -1, -2, 0, 8752},
}

// moonLatTerm is one term of the ELP2000/Chapront truncated series for
// lunar latitude perturbation (Σb, 1e-6 deg).
type moonLatTerm struct {
	d, m, mp, f float64
	sigmaB      float64
}

var moonLatTerms = [...]moonLatTerm{
	{0, 0, 0, 1, 5128122},
	{0, 0, 1, 1, 280602},
	{0, 0, 1, -1, 277693},
	{2, 0, 0, -1, 173237},
	{2, 0, -1, 1, 55413},
	{2, 0, -1, -1, 46271},
	{2, 0, 0, 1, 32573},
	{0, 0, 2, 1, 17198},
	{2, 0, 1, -1, 9266},
	{0, 0, 2, -1, 8822},
	{2, -1, 0, -1, 8216},
	{2, 0, -2, -1, 4324},
	{2, 0, 1, 1, 4200},
	{2, 1, 0, -1, -3359},
	{2, -1, -1, 1, 2463},
	{2, -1, 0, 1, 2211},
	{2, -1, -1, -1, 2065},
	{0, 1, -1, -1, -1870},
	{4, 0, -1, -1, 1828},
	{0, 1, 0, 1, -1794},
	{0, 0, 0, 3, -1749},
	{0, 1, -1, 1, -1565},
	{1, 0, 0, 1, -1491},
	{0, 1, 1, 1, -1475},
	{0, 1, 1, -1, -1410},
	{0, 1, 0, -1, -1344},
	{1, 0, 0, -1, -1335},
	{0, 0, 3, 1, 1107},
	{4, 0, 0, -1, 1021},
	{4, 0, -1, 1, 833},
	{0, 0, 1, -3, 777},
	{4, 0, -2, 1, 671},
	{2, 0, 0, -3, 607},
	{2, 0, 2, -1, 596},
	{2, -1, 1, -1, 491},
	{2, 0, -2, 1, -451},
	{0, 0, 3, -1, 439},
	{2, 0, 2, 1, 422},
	{2, 0, -3, -1, 421},
	{2, 1, -1, 1, -366},
	{2, 1, 0, 1, -351},
	{4, 0, 0, 1, 331},
	{2, -1, 1, 1, 315},
	{2, -2, 0, -1, 302},
	{0, 0, 1, 3, -283},
	{2, 1, 1, -1, -229},
	{1, 1, 0, -1, 223},
	{1, 1, 0, 1, 223},
	{0, 1, -2, -1, -220},
	{2, 1, -1, -1, -220},
	{1, 0, 1, 1, -185},
	{2, -1, -2, -1, 181},
	{0, 1, 2, 1, -177},
	{4, 0, -2, -1, 176},
	{4, -1, -1, -1, 166},
	{1, 0, 1, -1, -164},
	{4, 0, 1, -1, 132},
	{1, 0, -1, -1, -119},
	{4, -1, 0, -1, 115},
	{2, -2, 0, 1, 107},
}

// moonFundamentalArgs returns the mean elongation D, Sun's mean
// anomaly M, Moon's mean anomaly Mp, argument of latitude F (radians),
// and the eccentricity-correction factor E, at Julian centuries T.
func moonFundamentalArgs(T float64) (d, m, mp, f, e float64) {
	d = horner(T, 297.8501921, 445267.1114034, -0.0018819, 1.0/545868, -1.0/113065000) * deg2rad
	m = horner(T, 357.5291092, 35999.0502909, -0.0001536, 1.0/24490000) * deg2rad
	mp = horner(T, 134.9633964, 477198.8675055, 0.0087414, 1.0/69699, -1.0/14712000) * deg2rad
	f = horner(T, 93.2720950, 483202.0175233, -0.0036539, -1.0/3526000, 1.0/863310000) * deg2rad
	e = horner(T, 1, -0.002516, -0.0000074)
	return
}

func horner(T float64, coef ...float64) float64 {
	sum := 0.0
	for i := len(coef) - 1; i >= 0; i-- {
		sum = sum*T + coef[i]
	}
	return sum
}

// MoonGeocentric returns the geocentric ecliptic-of-date longitude,
// latitude, distance (AU), and longitude speed (deg/day) of the Moon
// at jdTT via the ELP2000/Chapront series. Nutation is not applied
// (mean equinox of date), matching the real Moshier lunar theory's
// raw series output before the position pipeline's nutation step.
func MoonGeocentric(jdTT float64) (lonDeg, latDeg, distAU, lonSpeedDegPerDay float64) {
	lon0, lat0, dist0 := moonSeries(jdTT)
	const h = 1e-3
	lon1, _, _ := moonSeries(jdTT + h)
	diff := lon1 - lon0
	for diff > 180 {
		diff -= 360
	}
	for diff < -180 {
		diff += 360
	}
	return lon0, lat0, dist0, diff / h
}

const auKm = 149597870.7

func moonSeries(jdTT float64) (lonDeg, latDeg, distAU float64) {
	T := (jdTT - j2000JD) / 36525.0
	lPrime := horner(T, 218.3164477, 481267.88123421, -0.0015786, 1.0/538841, -1.0/65194000)
	d, m, mp, f, e := moonFundamentalArgs(T)
	e2 := e * e

	a1 := (119.75 + 131.849*T) * deg2rad
	a2 := (53.09 + 479264.29*T) * deg2rad
	a3 := (313.45 + 481266.484*T) * deg2rad

	sigmaL := 3958*math.Sin(a1) + 1962*math.Sin(lPrime*deg2rad-f) + 318*math.Sin(a2)
	sigmaR := 0.0
	sigmaB := -2235*math.Sin(lPrime*deg2rad) + 382*math.Sin(a3) + 175*math.Sin(a1-f) +
		175*math.Sin(a1+f) + 127*math.Sin(lPrime*deg2rad-mp) - 115*math.Sin(lPrime*deg2rad+mp)

	for _, term := range moonLonDistTerms {
		arg := d*term.d + m*term.m + mp*term.mp + f*term.f
		sinArg, cosArg := math.Sin(arg), math.Cos(arg)
		factor := eccentricityFactor(term.m, e, e2)
		sigmaL += term.sigmaL * sinArg * factor
		sigmaR += term.sigmaR * cosArg * factor
	}
	for _, term := range moonLatTerms {
		arg := d*term.d + m*term.m + mp*term.mp + f*term.f
		factor := eccentricityFactor(term.m, e, e2)
		sigmaB += term.sigmaB * math.Sin(arg) * factor
	}

	lonDeg = mathkernel.DegNorm(lPrime + sigmaL*1e-6)
	latDeg = sigmaB * 1e-6
	distKm := 385000.56 + sigmaR*1e-3
	distAU = distKm / auKm
	return
}

func eccentricityFactor(mMultiplier, e, e2 float64) float64 {
	switch mMultiplier {
	case 1, -1:
		return e
	case 2, -2:
		return e2
	default:
		return 1
	}
}

// moonGeocentricCartesian converts moonSeries' polar result to a
// geocentric ecliptic-of-date Cartesian vector (AU) plus velocity
// (AU/day), via a central finite difference — the two-point-symmetric
// case of the parabolic fit spec.md §4.4 describes for moshmoon
// velocity.
func moonGeocentricCartesian(jdTT float64) (pos, vel [3]float64, err error) {
	if jdTT < MoshLuEphStartJD || jdTT > MoshLuEphEndJD {
		return pos, vel, errors.WithStack(ErrOutsideRange)
	}
	const h = 1e-3
	lon0, lat0, dist0 := moonSeries(jdTT - h)
	lon1, lat1, dist1 := moonSeries(jdTT)
	lon2, lat2, dist2 := moonSeries(jdTT + h)

	p0 := mathkernel.PolarToCart(lon0*deg2rad, lat0*deg2rad, dist0)
	p1 := mathkernel.PolarToCart(lon1*deg2rad, lat1*deg2rad, dist1)
	p2 := mathkernel.PolarToCart(lon2*deg2rad, lat2*deg2rad, dist2)

	pos = p1
	for k := 0; k < 3; k++ {
		vel[k] = (p2[k] - p0[k]) / (2 * h)
	}
	return pos, vel, nil
}

