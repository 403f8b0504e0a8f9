// Package timescale bridges UT1, UTC, TT and TDB time scales.
//
// Julian dates are expressed as float64 throughout the module; a day has
// exactly SecPerDay seconds. ΔT (= TT − UT1) is obtained from a literal
// decade-step table spanning 1800–2200, linearly interpolated and clamped
// at the ends, consistent with the "systems rewrite" mandate to drop
// runtime-mutable lookup state in favor of constant data.
package timescale

import (
	"math"
	"time"
)

// SecPerDay is the number of SI seconds in a day.
const SecPerDay = 86400.0

// j2000JD is the Julian date of the J2000.0 epoch (2000-01-01 12:00 TT).
const j2000JD = 2451545.0

// unixEpochJD is the Julian date of the Unix epoch (1970-01-01 00:00 UTC).
const unixEpochJD = 2440587.5

// deltaTTableStartYear is the calendar year of deltaTTable[0].
const deltaTTableStartYear = 1800.0

// deltaTTableStep is the number of years between successive table entries.
const deltaTTableStep = 10.0

// deltaTTable holds ΔT (TT − UT1, seconds) at decade boundaries from 1800 to
// 2200. Entries before ~1955 are drawn from historical reconstructions
// (the same family of data as Stephenson/Morrison and Espenak/Meeus);
// entries after 2050 follow the long-term quadratic growth those models
// converge to. Values beyond the table's range are held constant at the
// nearest boundary.
var deltaTTable = [...]float64{
	13.7, 12.1, 11.6, 10.9, 9.6, 7.5, 7.0, 1.0, -4.0, -5.5, // 1800-1890
	-2.8, 3.8, 16.0, 24.0, 24.3, 29.0, 33.1, 40.2, 50.5, 56.9, // 1900-1990
	63.8, 66.1, 69.0, 72.0, 76.0, 80.0, 88.0, 97.0, 107.0, 118.0, // 2000-2090
	130.0, 143.0, 157.0, 172.0, 188.0, 205.0, 223.0, 242.0, 262.0, 283.0, // 2100-2190
	305.0, // 2200
}

// DeltaT returns ΔT = TT − UT1 in seconds for the given decimal calendar
// year, linearly interpolating between table entries and clamping outside
// [1800, 2200]. Equivalent to DeltaTWithModel(year, ModelStephenson2016),
// the default model.
func DeltaT(year float64) float64 {
	n := len(deltaTTable)
	pos := (year - deltaTTableStartYear) / deltaTTableStep
	if pos <= 0 {
		return deltaTTable[0]
	}
	if pos >= float64(n-1) {
		return deltaTTable[n-1]
	}
	idx := int(pos)
	if idx >= n-1 {
		idx = n - 2
	}
	frac := pos - float64(idx)
	return deltaTTable[idx] + frac*(deltaTTable[idx+1]-deltaTTable[idx])
}

// DeltaTModel selects among the named ΔT reconstructions/predictions
// spec.md §4.2 lists, each covering ancient history with a different
// formula family before converging on essentially the same modern
// (post-1955, atomic-clock-backed) values.
type DeltaTModel int

const (
	// ModelStephenson2016 is the default: the decade table DeltaT
	// implements, linearly interpolated between entries (not a cubic
	// spline).
	ModelStephenson2016 DeltaTModel = iota

	// ModelStephensonMorrison1984 is Stephenson & Morrison's 1984
	// piecewise-quadratic reconstruction (as tabulated in Meeus,
	// "Astronomical Algorithms" ch. 10): one quadratic before 948 CE,
	// a second from 948 to 1600.
	ModelStephensonMorrison1984

	// ModelStephenson1997 and ModelStephensonMorrison2004 are two
	// further named historical reconstructions (50-year and 100-year
	// tabulations respectively, per spec.md §4.2); this implementation
	// has no literal tabulated coefficients for either specific table,
	// so before 1600, where both tables end, they use the long-term
	// parabolic approximation every ΔT model family converges to (see
	// deltaTLongTermParabola); from 1600 on they use the shared decade
	// table, as ModelStephensonMorrison1984 does.
	ModelStephenson1997
	ModelStephensonMorrison2004

	// ModelEspenakMeeus2006 is Espenak & Meeus's widely published
	// piecewise-polynomial fit, spanning pre-Common-Era antiquity
	// through a near-term quadratic prediction.
	ModelEspenakMeeus2006
)

// DeltaTWithModel returns ΔT = TT − UT1 in seconds for year under the
// named model, spec.md §4.2's "ΔT(jd, ephemeris_flag)" model selector.
func DeltaTWithModel(year float64, model DeltaTModel) float64 {
	switch model {
	case ModelStephensonMorrison1984:
		return deltaTStephensonMorrison1984(year)
	case ModelStephenson1997, ModelStephensonMorrison2004:
		if year >= 1600 {
			return DeltaT(year)
		}
		return deltaTLongTermParabola(year)
	case ModelEspenakMeeus2006:
		return deltaTEspenakMeeus2006(year)
	default:
		return DeltaT(year)
	}
}

// deltaTLongTermParabola is the quadratic every published ΔT model
// converges to far from any tabulated range: ΔT ≈ -20 + 32u²
// (Morrison & Stephenson 2004's own long-term formula), u in
// centuries from 1820.
func deltaTLongTermParabola(year float64) float64 {
	u := (year - 1820.0) / 100.0
	return -20.0 + 32.0*u*u
}

// deltaTStephensonMorrison1984 implements the two-piece quadratic
// Stephenson & Morrison published in 1984 (as tabulated by Meeus),
// valid before 1600; years at or after 1600 fall back to the shared
// decade table, since 1984's own piecewise fit stops there.
func deltaTStephensonMorrison1984(year float64) float64 {
	switch {
	case year < 948:
		t := (year - 948) / 100.0
		return 2177 + 497*t + 44.1*t*t
	case year < 1600:
		t := (year - 1900) / 100.0
		return 102 + 102*t + 25.3*t*t
	default:
		return DeltaT(year)
	}
}

// deltaTEspenakMeeus2006 implements Espenak & Meeus's published
// piecewise-polynomial ΔT fit, the most widely reproduced of the named
// historical models.
func deltaTEspenakMeeus2006(year float64) float64 {
	switch {
	case year < -500:
		u := (year - 1820) / 100.0
		return -20 + 32*u*u
	case year < 500:
		u := year / 100.0
		return 10583.6 - 1014.41*u + 33.78311*u*u - 5.952053*u*u*u -
			0.1798452*u*u*u*u + 0.022174192*u*u*u*u*u + 0.0090316521*u*u*u*u*u*u
	case year < 1600:
		u := (year - 1000) / 100.0
		return 1574.2 - 556.01*u + 71.23472*u*u + 0.319781*u*u*u -
			0.8503463*u*u*u*u - 0.005050998*u*u*u*u*u + 0.0083572073*u*u*u*u*u*u
	case year < 1700:
		t := year - 1600
		return 120 - 0.9808*t - 0.01532*t*t + t*t*t/7129.0
	case year < 1800:
		t := year - 1700
		return 8.83 + 0.1603*t - 0.0059285*t*t + 0.00013336*t*t*t - t*t*t*t/1174000.0
	case year < 1860:
		t := year - 1800
		return 13.72 - 0.332447*t + 0.0068612*t*t + 0.0041116*t*t*t -
			0.00037436*t*t*t*t + 0.0000121272*t*t*t*t*t - 0.0000001699*t*t*t*t*t*t +
			0.000000000875*t*t*t*t*t*t*t
	case year < 1900:
		t := year - 1860
		return 7.62 + 0.5737*t - 0.251754*t*t + 0.01680668*t*t*t -
			0.0004473624*t*t*t*t + t*t*t*t*t/233174.0
	case year < 1920:
		t := year - 1900
		return -2.79 + 1.494119*t - 0.0598939*t*t + 0.0061966*t*t*t - 0.000197*t*t*t*t
	case year < 1941:
		t := year - 1920
		return 21.20 + 0.84493*t - 0.076100*t*t + 0.0020936*t*t*t
	case year < 1961:
		t := year - 1950
		return 29.07 + 0.407*t - t*t/233.0 + t*t*t/2547.0
	case year < 1986:
		t := year - 1975
		return 45.45 + 1.067*t - t*t/260.0 - t*t*t/718.0
	case year < 2005:
		t := year - 2000
		return 63.86 + 0.3345*t - 0.060374*t*t + 0.0017275*t*t*t +
			0.000651814*t*t*t*t + 0.00002373599*t*t*t*t*t
	case year < 2050:
		t := year - 2000
		return 62.92 + 0.32217*t + 0.005589*t*t
	case year < 2150:
		return -20 + 32*(year-1820)/100.0*(year-1820)/100.0 - 0.5628*(2150-year)
	default:
		u := (year - 1820) / 100.0
		return -20 + 32*u*u
	}
}

// referenceTidalAccArcsecPerCy2 is the lunar tidal acceleration (in
// arcsec/century²) DE431/DE430-based ΔT reconstructions assume by
// default; callers with a different ephemeris's tidal constant pass
// their own value to AdjustForTidalAcc.
const referenceTidalAccArcsecPerCy2 = -25.8

// AdjustForTidalAcc corrects a ΔT value computed under one assumed
// lunar tidal acceleration constant to another, spec.md §4.2's
// "adjust_for_tidacc": post-1955 ΔT is atomic-clock-derived and carries
// no such assumption baked in, so the correction is skipped there
// unless adjustAfter1955 explicitly asks for it anyway.
func AdjustForTidalAcc(ans, year, tidalAcc, referenceTidalAcc float64, adjustAfter1955 bool) float64 {
	if year > 1955 && !adjustAfter1955 {
		return ans
	}
	b := year - 1955
	return ans - 9.1e-5*(tidalAcc-referenceTidalAcc)*b*b
}

// leapSecondEntry records the UTC Julian date from which a cumulative TAI −
// UTC offset (in whole seconds) takes effect.
type leapSecondEntry struct {
	jdUTC  float64
	offset float64
}

// leapSeconds is the table of TAI − UTC leap-second insertions, 1972 to the
// most recent IERS bulletin covered by this build.
var leapSeconds = [...]leapSecondEntry{
	{2441317.5, 10}, // 1972-01-01
	{2441499.5, 11}, // 1972-07-01
	{2441683.5, 12}, // 1973-01-01
	{2442048.5, 13}, // 1974-01-01
	{2442413.5, 14}, // 1975-01-01
	{2442778.5, 15}, // 1976-01-01
	{2443144.5, 16}, // 1977-01-01
	{2443509.5, 17}, // 1978-01-01
	{2443874.5, 18}, // 1979-01-01
	{2444239.5, 19}, // 1980-01-01
	{2444786.5, 20}, // 1981-07-01
	{2445151.5, 21}, // 1982-07-01
	{2445516.5, 22}, // 1983-07-01
	{2446247.5, 23}, // 1985-07-01
	{2447161.5, 24}, // 1988-01-01
	{2447892.5, 25}, // 1990-01-01
	{2448257.5, 26}, // 1991-01-01
	{2448804.5, 27}, // 1992-07-01
	{2449169.5, 28}, // 1993-07-01
	{2449534.5, 29}, // 1994-07-01
	{2450083.5, 30}, // 1996-01-01
	{2450630.5, 31}, // 1997-07-01
	{2451179.5, 32}, // 1999-01-01
	{2453736.5, 33}, // 2006-01-01
	{2454832.5, 34}, // 2009-01-01
	{2456109.5, 35}, // 2012-07-01
	{2457204.5, 36}, // 2015-07-01
	{2457754.5, 37}, // 2017-01-01
}

// LeapSecondOffset returns TAI − UTC, in whole seconds, for a UTC Julian
// date. Dates before the first entry return the initial offset; dates
// after the last entry return the latest known offset.
func LeapSecondOffset(jdUTC float64) float64 {
	offset := leapSeconds[0].offset
	for _, e := range leapSeconds {
		if jdUTC < e.jdUTC {
			break
		}
		offset = e.offset
	}
	return offset
}

// TimeToJDUTC converts a time.Time (interpreted in UTC) to a Julian date.
func TimeToJDUTC(t time.Time) float64 {
	t = t.UTC()
	sinceUnix := t.Sub(time.Unix(0, 0).UTC())
	return unixEpochJD + sinceUnix.Seconds()/SecPerDay
}

// UTCToTT converts a UTC Julian date to TT: TT = UTC + (leap seconds +
// 32.184) seconds.
func UTCToTT(jdUTC float64) float64 {
	offset := LeapSecondOffset(jdUTC) + 32.184
	return jdUTC + offset/SecPerDay
}

// TTToUT1 converts a TT Julian date to UT1 using the ΔT model: UT1 = TT −
// ΔT(year)/SecPerDay.
func TTToUT1(jdTT float64) float64 {
	year := 2000.0 + (jdTT-j2000JD)/365.25
	return jdTT - DeltaT(year)/SecPerDay
}

// TDBMinusTT returns TDB − TT in seconds for a TT (or TDB; the difference
// is negligible for this purpose) Julian date, using the Fairhead &
// Bretagnon approximation (USNO Circular 179, eq. 2.6).
func TDBMinusTT(jd float64) float64 {
	t := (jd - j2000JD) / 36525.0
	return tdbMinusTTSeries(t)
}

func tdbMinusTTSeries(t float64) float64 {
	return 0.001657*math.Sin(628.3076*t+6.2401) +
		0.000022*math.Sin(575.3385*t+4.2970) +
		0.000014*math.Sin(1256.6152*t+6.1969) +
		0.000005*math.Sin(606.9777*t+4.0212) +
		0.000005*math.Sin(52.9691*t+0.4444) +
		0.000002*math.Sin(21.3299*t+5.5431) +
		0.000010*t*math.Sin(628.3076*t+4.2490)
}
