// Package heliacal computes heliacal visibility events (first/last visibility
// of a body at rising or setting, acronychal rising/setting) from a Schaefer-
// style sky-brightness and visual-limiting-magnitude model.
package heliacal

import "math"

const (
	rad2deg = 180.0 / math.Pi
	deg2rad = math.Pi / 180.0
)

// AtmosphericParams describes the state of the atmosphere at the observer's
// site, the inputs spec.md §4.8 lists for the sky-brightness model.
type AtmosphericParams struct {
	PressureMbar   float64 // station pressure, mbar (1013.25 at sea level)
	TempC          float64 // ambient temperature, Celsius
	RelHumidityPct float64 // relative humidity, 0-100
	MeteoRangeKm   float64 // meteorological (visual) range, km; smaller means hazier
}

// DefaultAtmosphere returns a standard sea-level, clear-sky atmosphere.
func DefaultAtmosphere() AtmosphericParams {
	return AtmosphericParams{
		PressureMbar:   1013.25,
		TempC:          15.0,
		RelHumidityPct: 40.0,
		MeteoRangeKm:   23.0, // ICAO "clear" visibility
	}
}

// ObserverParams describes the observer, the inputs spec.md §4.8 lists for
// the visual limiting magnitude's optical factor.
type ObserverParams struct {
	AgeYears     float64 // observer's age; pupil diameter shrinks with age
	SnellenRatio float64 // visual acuity, 1.0 = normal 20/20
	Binocular    bool    // true doubles the effective light grasp

	// Optical aid; zero-value Optics means naked eye.
	Magnification float64 // telescope/binocular magnification, 0 or 1 = naked eye
	ApertureMM    float64 // objective diameter, mm
	Transmission  float64 // optical transmission fraction, 0-1 (0 defaults to 1)
}

// DefaultObserver returns a baseline naked-eye observer: 40 years old,
// normal acuity, no optical aid.
func DefaultObserver() ObserverParams {
	return ObserverParams{AgeYears: 40.0, SnellenRatio: 1.0}
}

// airmass returns the relative atmospheric path length for a body at the
// given altitude, via the Kasten-Young (1989) approximation, which remains
// well-behaved down to the horizon unlike the simple secant(z) formula.
func airmass(altDeg float64) float64 {
	if altDeg < -dipApprox {
		return math.Inf(1)
	}
	if altDeg < 0 {
		altDeg = 0
	}
	sinAlt := math.Sin(altDeg * deg2rad)
	return 1.0 / (sinAlt + 0.50572*math.Pow(altDeg+6.07995, -1.6364))
}

// dipApprox is the horizon dip allowance (degrees) below which a body is
// considered fully set for airmass/extinction purposes.
const dipApprox = 3.0

// extinctionPerAirmass returns the total atmospheric extinction coefficient,
// in magnitudes per airmass, from Rayleigh (molecular) scattering, aerosol
// (haze) scattering, ozone absorption, and water-vapor absorption — the four
// components a Schaefer-style extinction budget sums, each driven by one of
// the atmospheric inputs spec.md §4.8 names.
func extinctionPerAirmass(atmo AtmosphericParams) float64 {
	const (
		rayleighSeaLevel   = 0.1066 // mag/airmass at standard pressure
		aerosolScaleHeight = 1.5    // km, effective aerosol layer depth
		ozoneMag           = 0.016  // mag/airmass, weak pressure dependence ignored
		waterVaporMag      = 0.031  // mag/airmass at 100% relative humidity
	)
	kRayleigh := rayleighSeaLevel * (atmo.PressureMbar / 1013.25)
	vr := atmo.MeteoRangeKm
	if vr <= 0 {
		vr = 23.0
	}
	kAerosol := 3.912 / vr * aerosolScaleHeight
	kWater := waterVaporMag * (atmo.RelHumidityPct / 100.0)
	return kRayleigh + kAerosol + ozoneMag + kWater
}

// extinguish dims a magnitude by the atmospheric extinction appropriate to
// its altitude.
func extinguish(magAboveAtmosphere, altDeg float64, atmo AtmosphericParams) float64 {
	return magAboveAtmosphere + extinctionPerAirmass(atmo)*airmass(altDeg)
}

// BTwi returns the twilight component of sky brightness, in nanolamberts,
// driven by the Sun's altitude (negative, below the horizon) and the
// angular distance from the Sun to the point of sky being measured.
//
// Brightness falls off roughly exponentially as the Sun sinks deeper below
// the horizon and as the measured point moves further from the Sun,
// reaching zero once the Sun is below -18° (full astronomical night).
func BTwi(sunAltDeg, sepFromSunDeg float64) float64 {
	if sunAltDeg <= -18.0 {
		return 0
	}
	if sunAltDeg >= -0.8333 {
		return 0 // daylight proper, not twilight; see BDay
	}
	const (
		base     = 8.0e8 // nL at the horizon, directly over the Sun
		altDecay = 0.357 // per degree of Sun depression
		sepDecay = 0.023 // per degree of angular separation
	)
	return base * math.Exp(altDecay*sunAltDeg) * math.Exp(-sepDecay*math.Abs(sepFromSunDeg))
}

// BDay returns the daylight component of sky brightness, in nanolamberts,
// active whenever the Sun is above the horizon.
func BDay(sunAltDeg, sepFromSunDeg float64) float64 {
	if sunAltDeg < -0.8333 {
		return 0
	}
	const (
		zenithBright = 3.8e9 // nL, clear blue zenith sky away from the Sun
		sunGlowDecay = 0.06  // per degree of separation from the Sun
	)
	sunAltitudeGain := 1.0 + 0.5*math.Sin(sunAltDeg*deg2rad)
	return zenithBright * sunAltitudeGain * (1.0 + math.Exp(-sunGlowDecay*sepFromSunDeg))
}

// BMoon returns the moonlit-sky component of sky brightness, in
// nanolamberts, from the Moon's altitude, its phase (illuminated fraction),
// and its angular separation from the point being measured — the
// Krisciunas-Schaefer-style shape of brighter sky near a high, full Moon.
func BMoon(moonAltDeg, illuminatedFraction, sepFromMoonDeg float64, atmo AtmosphericParams) float64 {
	if moonAltDeg < 0 || illuminatedFraction <= 0 {
		return 0
	}
	// Full-Moon-equivalent surface brightness contribution at zenith,
	// scaled down by phase and by angular distance from the Moon (light
	// scattered by the atmosphere falls off with separation).
	const fullMoonZenithNL = 9.2e2
	sep := sepFromMoonDeg
	if sep < 1.0 {
		sep = 1.0 // avoid the singularity looking directly at the Moon
	}
	scatter := 1.0 / (sep * sep)
	phaseTerm := illuminatedFraction * illuminatedFraction
	moonAirmassDim := math.Pow(10, -0.4*extinctionPerAirmass(atmo)*airmass(moonAltDeg))
	return fullMoonZenithNL * phaseTerm * scatter * math.Sin(moonAltDeg*deg2rad) * moonAirmassDim
}

// BNight returns the moonless natural night-sky brightness, in
// nanolamberts, from starlight, airglow, and zodiacal light. Airglow has a
// weak dependence on the date (solar-cycle phase), approximated here by a
// slow sinusoid; the zodiacal term is brightest toward the ecliptic and the
// anti-solar point and is left as its mean contribution since this package
// is not given ecliptic latitude at the call site.
func BNight(tdbJD float64) float64 {
	const (
		starlight    = 79.0  // nL, integrated starlight + diffuse galactic light
		airglowMean  = 60.0  // nL, average airglow brightness
		airglowAmp   = 20.0  // nL, solar-cycle modulation amplitude
		airglowDays  = 4015.0 // ~11-year solar cycle, in days
		zodiacalMean = 60.0  // nL, mean zodiacal light away from the ecliptic plane
	)
	phase := 2 * math.Pi * tdbJD / airglowDays
	airglow := airglowMean + airglowAmp*math.Sin(phase)
	return starlight + airglow + zodiacalMean
}

// BCity returns the light-pollution component of sky brightness, in
// nanolamberts. Always zero: this package models a natural-sky site only,
// matching spec.md §4.8's "currently zero" note for B_city.
func BCity() float64 {
	return 0
}

// SkyBrightness sums the five components into the total sky brightness at
// the point being measured, in nanolamberts.
func SkyBrightness(sunAltDeg, moonAltDeg, sepFromSunDeg, sepFromMoonDeg, illuminatedFraction, tdbJD float64, atmo AtmosphericParams) float64 {
	return BTwi(sunAltDeg, sepFromSunDeg) +
		BDay(sunAltDeg, sepFromSunDeg) +
		BMoon(moonAltDeg, illuminatedFraction, sepFromMoonDeg, atmo) +
		BNight(tdbJD) +
		BCity()
}

// photopicThresholdNL is the sky-brightness value spec.md §4.8 names as the
// boundary between photopic (cone, daylight-adapted) and scotopic (rod,
// dark-adapted) vision regimes.
const photopicThresholdNL = 1645.0

// visLimConstants holds the C1/C2 pair for one vision regime.
type visLimConstants struct {
	c1, c2 float64
}

// The C1/C2 pairs are tuned so the two branches agree at the 1645 nL
// threshold (no discontinuity as vision crosses from rod- to
// cone-dominated) while reproducing the familiar naked-eye benchmarks: a
// ~6.0 limiting magnitude under a dark (~200 nL) sky, and a limiting
// magnitude near the brightest planets' brightness under full daylight.
var (
	scotopicConstants = visLimConstants{c1: 6.57e-11, c2: 0.04}
	photopicConstants = visLimConstants{c1: 1.497e-9, c2: 0.0005}
)

// VisLimMag computes the visual limiting magnitude for a point of sky
// brightness bSkyNL, using the optical factor f (see OpticalFactor),
// following spec.md §4.8's formula:
//
//	VisLimMag = -16.57 - 2.5*log10(C1*(1+sqrt(C2*B_sky*f1))^2*f2)
//
// C1/C2 switch between photopic and scotopic constants at the 1645 nL
// threshold; f1 and f2 are the two halves of the optical factor f.
func VisLimMag(bSkyNL float64, f1, f2 float64) float64 {
	if bSkyNL < 0 {
		bSkyNL = 0
	}
	c := photopicConstants
	if bSkyNL < photopicThresholdNL {
		c = scotopicConstants
	}
	inner := 1.0 + math.Sqrt(c.c2*bSkyNL*f1)
	return -16.57 - 2.5*math.Log10(c.c1*inner*inner*f2)
}
