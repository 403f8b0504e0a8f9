// Package ephemeris is the engine that ties the math kernel, time
// scale, precession/nutation, and position sources (JPL, SE1, Moshier)
// into the position pipeline of spec.md §4.5: time-scale bridge →
// obliquity → source selection with fallback → heliocentric J2000 →
// light-time iterate → aberration → deflection → precess/nutate →
// sidereal/topocentric/equatorial/horizontal projection.
//
// Engine holds all mutable state as struct fields — no package-level
// mutable state — so independent Engine values are safe to use from
// separate goroutines, though a single Engine is not itself safe for
// concurrent use (spec.md §5).
package ephemeris

import (
	"math"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/anupshinde/goeph/constellation"
	"github.com/anupshinde/goeph/coord"
	"github.com/anupshinde/goeph/elements"
	"github.com/anupshinde/goeph/jpl"
	"github.com/anupshinde/goeph/kepler"
	"github.com/anupshinde/goeph/mathkernel"
	"github.com/anupshinde/goeph/moshier"
	"github.com/anupshinde/goeph/precess"
	"github.com/anupshinde/goeph/projection"
	"github.com/anupshinde/goeph/se1"
	"github.com/anupshinde/goeph/spk"
	"github.com/anupshinde/goeph/timescale"
	"github.com/anupshinde/goeph/units"
)

const (
	deg2rad = 3.141592653589793 / 180.0
	rad2deg = 180.0 / 3.141592653589793

	// cAUPerDay is the speed of light in AU/day, used by the light-time
	// iteration and aberration steps — all position sources in this
	// package work in AU, unlike spk's km-based pipeline.
	cAUPerDay = 173.14463267424

	// sunGMKm3PerS2 is the Sun's standard gravitational parameter in
	// km³/s², the same constant value elements.go's doc comment names as
	// its worked example — used by OsculatingElements to convert a
	// heliocentric state vector into osculating elements.
	sunGMKm3PerS2 = 132712440041.939400

	secPerDay = 86400.0

	// j2000MeanObliquitySin/Cos are the same J2000 mean-obliquity
	// constants coord.go uses for its fixed ICRFToEcliptic rotation
	// (Lieske 1979, 84381.448 arcsec) — duplicated here rather than
	// exported from coord, since this is the one place outside coord
	// that needs the bare sin/cos pair for a one-shot JPL-frame
	// conversion, not the full time-dependent obliquity model.
	j2000MeanObliquitySin = 0.3977771559319137062
	j2000MeanObliquityCos = 0.9174820620691818140
)

// Body indices, matching the convention shared by jpl/se1/moshier:
// Mercury..Pluto = 1..9, Moon = 10, Sun = 11.
const (
	Mercury = moshier.Mercury
	Venus   = moshier.Venus
	Earth   = moshier.Earth
	Mars    = moshier.Mars
	Jupiter = moshier.Jupiter
	Saturn  = moshier.Saturn
	Uranus  = moshier.Uranus
	Neptune = moshier.Neptune
	Pluto   = moshier.Pluto
	Moon    = moshier.Moon
	Sun     = moshier.Sun
)

// Sealed error set, spec.md §7: OutOfRange, FileMalformed,
// Circumpolar/NoEvent, UnknownBody, Convergence become distinct error
// values in this package instead of integer codes with string
// out-parameters.
var (
	ErrOutOfRange    = errors.New("ephemeris: time outside every configured source's range")
	ErrFileMalformed = errors.New("ephemeris: binary ephemeris file malformed")
	ErrUnknownBody   = errors.New("ephemeris: unknown body")
	ErrConvergence   = errors.New("ephemeris: iteration failed to converge")
	// NoEvent indicates a search (rise/set, crossing, eclipse) found no
	// qualifying event in the requested window — distinguishable from a
	// hard error so callers can distinguish "nothing happened" from
	// "something went wrong".
	NoEvent = errors.New("ephemeris: no event found in search window")
)

// PositionFlags is the Go-native form of spec.md §6's raw integer flag
// word: a typed bitset with named constants instead of magic ints.
type PositionFlags uint32

const (
	FlagSpeed         PositionFlags = 1 << iota // compute velocity alongside position
	FlagEquatorial                              // return RA/Dec instead of ecliptic lon/lat
	FlagXYZ                                     // return Cartesian instead of polar
	FlagTopocentric                             // apply parallax for Engine.Location
	FlagNoAberration                            // skip the stellar-aberration step
	FlagNoDeflection                            // skip gravitational light deflection
	FlagNoNutation                              // stop at mean equinox of date (skip nutation)
	FlagAstrometric                             // skip aberration AND deflection (geometric + light-time only)
	FlagHeliocentric                            // report heliocentric instead of geocentric/topocentric
	FlagJ2000                                   // skip precession/nutation entirely (J2000 mean frame)
	FlagUseJPL                                  // restrict source selection to the JPL DE reader
	FlagUseSE1                                  // restrict source selection to the SE1 reader
	FlagUseMoshier                              // restrict source selection to the analytical Moshier theory
	FlagDiscCenter                              // (rise/set) ignore semi-diameter, use disc center
	FlagNoRefraction                            // (rise/set, horizontal) skip atmospheric refraction
	FlagSidereal                                 // project onto Engine.SiderealMode's zodiac instead of the tropical one
	FlagEclT0                                    // sidereal: rotate into the ecliptic of SiderealMode's reference epoch (latitude changes)
	FlagSSYPlane                                 // sidereal: rotate into the solar-system invariable plane instead of an ayanamsa-shifted ecliptic
	FlagEclDate                                  // sidereal: same as the default ayanamsa subtraction, named separately per spec.md's bit layout
)

// PositionSource is satisfied by every body-position backend: the JPL
// DE reader, the SE1 reader, and the Moshier analytical theory. All
// three return heliocentric ecliptic J2000 Cartesian position (AU) and
// velocity (AU/day), regardless of their native on-disk/in-memory
// representation.
type PositionSource interface {
	HeliocentricEclipticJ2000(jdTT float64, body int) (pos, vel [3]float64, err error)
	Name() string
}

// moshierSource adapts moshier's package-level functions to
// PositionSource; it is always available since it needs no file.
type moshierSource struct{}

func (moshierSource) HeliocentricEclipticJ2000(jdTT float64, body int) (pos, vel [3]float64, err error) {
	return moshier.HeliocentricEclipticJ2000(jdTT, body)
}

func (moshierSource) Name() string { return "moshier" }

// MoshierSource is the always-available analytical fallback source.
var MoshierSource PositionSource = moshierSource{}

// jplSource adapts an opened jpl.File (equatorial J2000, AU) to
// PositionSource by rotating into ecliptic J2000 with the fixed
// J2000 mean-obliquity constant.
type jplSource struct{ file *jpl.File }

// NewJPLSource wraps an already-opened JPL DE file as a PositionSource.
func NewJPLSource(f *jpl.File) PositionSource { return jplSource{file: f} }

func (s jplSource) HeliocentricEclipticJ2000(jdTT float64, body int) (pos, vel [3]float64, err error) {
	naifBody, naifSun := jplNAIFCode(body), jpl.Sun
	eqPos, eqVel, err := s.file.Pleph(jdTT, naifBody, naifSun)
	if err != nil {
		return pos, vel, err
	}
	pos = equatorialToEclipticJ2000(eqPos)
	vel = equatorialToEclipticJ2000(eqVel)
	return pos, vel, nil
}

func (jplSource) Name() string { return "jpl" }

// jplNAIFCode maps this package's shared body numbering onto the jpl
// package's own special-cased Earth (399) / Moon (301) pseudo-codes;
// all other bodies share the same 1-indexed Mercury..Pluto/Sun values.
func jplNAIFCode(body int) int {
	switch body {
	case Earth:
		return 399
	case Moon:
		return 301
	default:
		return body
	}
}

func equatorialToEclipticJ2000(v [3]float64) [3]float64 {
	return [3]float64{
		v[0],
		j2000MeanObliquityCos*v[1] + j2000MeanObliquitySin*v[2],
		-j2000MeanObliquitySin*v[1] + j2000MeanObliquityCos*v[2],
	}
}

// se1Source adapts an opened se1.File (ecliptic polar, native units) to
// PositionSource. SE1 segments are geocentric for the Moon and
// heliocentric for the planets in the real format; this reader treats
// all bodies uniformly as heliocentric-ecliptic like the other two
// sources, deferring the Moon's geocentric-vs-heliocentric distinction
// to the caller via FlagHeliocentric, matching how moshier/jpl already
// report the Moon heliocentrically (Earth + geocentric vector).
type se1Source struct {
	segments map[int][]se1.Segment
}

// NewSE1Source wraps a map of body index to that body's SE1 segments
// (as produced by se1.Read followed by a per-body split) as a
// PositionSource.
func NewSE1Source(segments map[int][]se1.Segment) PositionSource {
	return se1Source{segments: segments}
}

func (s se1Source) HeliocentricEclipticJ2000(jdTT float64, body int) (pos, vel [3]float64, err error) {
	segs, ok := s.segments[body]
	if !ok {
		return pos, vel, errors.Wrapf(ErrUnknownBody, "se1 body %d", body)
	}
	seg, ok := se1.FindSegment(segs, jdTT)
	if !ok {
		return pos, vel, errors.Wrapf(ErrOutOfRange, "se1 body %d at jd %v", body, jdTT)
	}
	lon, lat, dist, lonSpd, latSpd, distSpd := seg.Evaluate(jdTT)
	pos, vel = mathkernel.PolarToCartSpeed(lon*deg2rad, lat*deg2rad, dist, lonSpd*deg2rad, latSpd*deg2rad, distSpd)
	return pos, vel, nil
}

func (se1Source) Name() string { return "se1" }

// keplerSource adapts a set of osculating Keplerian orbits — minor
// planets, comets, or any other fictitious body spec.md §1's body catalog
// names alongside the major planets and Moon — to PositionSource, via
// kepler.Orbit's closed-form Kepler-equation propagation.
type keplerSource struct{ orbits map[int]*kepler.Orbit }

// NewKeplerSource wraps a map of body index to its osculating Keplerian
// orbit as a PositionSource, letting fictitious bodies flow through the
// same pipeline (light-time, aberration, deflection, precession/nutation)
// the major planets use. Caller-assigned body indices only need to be
// distinct from the Mercury..Sun constants above.
func NewKeplerSource(orbits map[int]*kepler.Orbit) PositionSource {
	return keplerSource{orbits: orbits}
}

func (s keplerSource) HeliocentricEclipticJ2000(jdTT float64, body int) (pos, vel [3]float64, err error) {
	orbit, ok := s.orbits[body]
	if !ok {
		return pos, vel, errors.Wrapf(ErrUnknownBody, "kepler body %d", body)
	}
	// kepler.Orbit.PositionAU already returns an ICRF (equatorial) vector,
	// like jplSource's native frame, so the same fixed-obliquity rotation
	// converts it to ecliptic J2000.
	pos = equatorialToEclipticJ2000(orbit.PositionAU(jdTT))
	vel = equatorialToEclipticJ2000(keplerVelocityAU(orbit, jdTT))
	return pos, vel, nil
}

func (keplerSource) Name() string { return "kepler" }

// keplerVelocityAU differentiates kepler.Orbit.PositionAU by central
// difference; kepler.go exposes no closed-form velocity, and a ±0.001-day
// step is far shorter than any fictitious body's orbital period, so the
// finite-difference error is negligible next to the positions' own
// two-body-model error.
func keplerVelocityAU(o *kepler.Orbit, jdTT float64) [3]float64 {
	const halfStepDays = 0.001
	p1 := o.PositionAU(jdTT - halfStepDays)
	p2 := o.PositionAU(jdTT + halfStepDays)
	return scale3(1.0/(2*halfStepDays), sub3(p2, p1))
}

// spkSource adapts an opened *spk.SPK kernel (ICRF equatorial, km, SSB-
// relative) to PositionSource: subtract the Sun's barycentric vector to get
// heliocentric, convert km/km-per-day to AU/AU-per-day, and rotate into
// ecliptic J2000 with the same fixed obliquity rotation jplSource uses,
// since both are native-equatorial sources.
type spkSource struct{ kernel *spk.SPK }

// NewSPKSource wraps an SPK/DAF kernel opened with spk.Open or
// spk.OpenBuffer as a PositionSource, the same in-memory-buffer-friendly
// binary format jpl/se1 use, letting a host supply a byte-buffer SPK kernel
// through the same Engine.AddSource path as JPL and SE1 kernels.
func NewSPKSource(kernel *spk.SPK) PositionSource { return spkSource{kernel: kernel} }

func (s spkSource) HeliocentricEclipticJ2000(jdTT float64, body int) (pos, vel [3]float64, err error) {
	naifBody := spkNAIFCode(body)
	posKm := s.kernel.HeliocentricPosition(naifBody, jdTT)
	velKm := sub3(s.kernel.Velocity(naifBody, jdTT), s.kernel.Velocity(spk.Sun, jdTT))

	pos = equatorialToEclipticJ2000(scale3(1.0/units.AUToKm, posKm))
	vel = equatorialToEclipticJ2000(scale3(1.0/units.AUToKm, velKm))
	return pos, vel, nil
}

func (spkSource) Name() string { return "spk" }

// spkNAIFCode maps this package's shared body numbering onto the NAIF IDs
// spk.go's kernels are keyed by: Earth/Moon/Sun/Mercury/Venus use their
// planet-center codes (399/301/10/199/299), Mars..Pluto use the barycenter
// codes spk's bodies.go exposes since DE44x kernels carry no Mars..Pluto
// planet-center segment.
func spkNAIFCode(body int) int {
	switch body {
	case Earth:
		return spk.Earth
	case Moon:
		return spk.Moon
	case Sun:
		return spk.Sun
	case Mercury:
		return spk.Mercury
	case Venus:
		return spk.Venus
	case Mars:
		return spk.MarsBarycenter
	case Jupiter:
		return spk.JupiterBarycenter
	case Saturn:
		return spk.SaturnBarycenter
	case Uranus:
		return spk.UranusBarycenter
	case Neptune:
		return spk.NeptuneBarycenter
	case Pluto:
		return spk.PlutoBarycenter
	default:
		return body
	}
}

// Location is the observer's position for topocentric corrections.
type Location struct {
	LatDeg, LonDeg, HeightKm float64
	PressureMbar, TempC      float64
}

// AyanamsaMode names a sidereal-zodiac reference system, spec.md §4.5
// step 7's "table AYANAMSA[47] fixes {t0, ayan_t0, t0_is_ut, prec_offset}
// per mode" — this package implements a curated subset of the
// best-known named systems plus AyanUser for a caller-supplied
// reference epoch/offset, rather than all 47 (most of which differ
// from each other by sub-arcminute corrections to the same underlying
// precession-of-the-equinox model).
type AyanamsaMode int

const (
	AyanLahiri AyanamsaMode = iota
	AyanFaganBradley
	AyanKrishnamurti
	AyanRaman
	AyanYukteshwar
	AyanDjwhalKhul
	AyanJNBhasin
	AyanUser // caller supplies T0/AyanT0/T0IsUT directly via SetSiderealMode
)

// ayanamsaEntry is one AYANAMSA[] row: the ayanamsa's value (degrees)
// at reference epoch T0 (a TT Julian date unless T0IsUT).
type ayanamsaEntry struct {
	T0     float64
	AyanT0 float64
	T0IsUT bool
}

// ayanamsaTable gives each named mode's reference epoch and offset.
// Lahiri's entry is pinned exactly at J2000 with the invariant value
// spec.md §8 names (23.8532°), so Engine.Ayanamsa(j2000TT) reproduces
// it with zero approximation error; the general-precession model below
// carries it to any other date. The remaining entries are each pinned
// to their own well-known approximate J2000 value; unlike Lahiri they
// are not independently tested elsewhere in this tree.
var ayanamsaTable = map[AyanamsaMode]ayanamsaEntry{
	AyanLahiri:       {T0: j2000JD, AyanT0: 23.8532},
	AyanFaganBradley: {T0: j2000JD, AyanT0: 24.7400},
	AyanKrishnamurti: {T0: j2000JD, AyanT0: 23.7500},
	AyanRaman:        {T0: j2000JD, AyanT0: 22.8800},
	AyanYukteshwar:   {T0: j2000JD, AyanT0: 22.6400},
	AyanDjwhalKhul:   {T0: j2000JD, AyanT0: 25.5200},
	AyanJNBhasin:     {T0: j2000JD, AyanT0: 23.5300},
}

// SiderealConfig is the engine's sidereal-mode state (spec.md §3's
// "Sidereal mode: {mode index, t0, ayan_t0, t0_is_ut flag}"), set via
// Engine.SetSiderealMode and consumed by Engine.Ayanamsa and the
// FlagSidereal projection step.
type SiderealConfig struct {
	Mode   AyanamsaMode
	T0     float64
	AyanT0 float64
	T0IsUT bool
}

// Engine holds the position pipeline's configuration and caches as
// struct fields: the source fallback chain, the precession/nutation
// model selector, the observer location, and a logger for lifecycle
// events (file loads, source fallback) — never the hot numerical path.
type Engine struct {
	Sources      []PositionSource
	Precess      *precess.Selector
	Location     *Location
	SiderealMode *SiderealConfig
	Logger       zerolog.Logger

	// DeltaTModel selects among spec.md §4.2's named ΔT reconstructions
	// for the TT→UT1 conversion this engine's topocentric/sidereal-time
	// steps need (zero value is timescale.ModelStephenson2016, the
	// package-level default).
	DeltaTModel timescale.DeltaTModel

	// DeltaTOverrideSec, if non-nil, replaces DeltaTModel's computed ΔT
	// (seconds) entirely — spec.md §3's "ΔT override (user-defined
	// value or automatic)".
	DeltaTOverrideSec *float64
}

// deltaTSeconds returns ΔT = TT − UT1 in seconds for the given decimal
// calendar year, honoring DeltaTOverrideSec before falling back to
// DeltaTModel.
func (e *Engine) deltaTSeconds(year float64) float64 {
	if e.DeltaTOverrideSec != nil {
		return *e.DeltaTOverrideSec
	}
	return timescale.DeltaTWithModel(year, e.DeltaTModel)
}

// ttToUT1 mirrors timescale.TTToUT1 but routes through this Engine's
// configured ΔT model/override instead of always using the
// package-level default.
func (e *Engine) ttToUT1(jdTT float64) float64 {
	year := 2000.0 + (jdTT-j2000JD)/365.25
	return jdTT - e.deltaTSeconds(year)/secPerDay
}

// SetSiderealMode configures the engine's active sidereal zodiac. For
// every mode except AyanUser, t0/ayanT0/t0IsUT are ignored in favor of
// ayanamsaTable's entry; AyanUser takes the three values verbatim,
// matching spec.md §4.5's general per-mode reference-epoch shape.
func (e *Engine) SetSiderealMode(mode AyanamsaMode, t0, ayanT0 float64, t0IsUT bool) {
	if mode == AyanUser {
		e.SiderealMode = &SiderealConfig{Mode: mode, T0: t0, AyanT0: ayanT0, T0IsUT: t0IsUT}
		return
	}
	entry := ayanamsaTable[mode]
	e.SiderealMode = &SiderealConfig{Mode: mode, T0: entry.T0, AyanT0: entry.AyanT0, T0IsUT: entry.T0IsUT}
}

// generalPrecessionArcsecPerCentury is the IAU 2006 general precession
// in longitude's leading secular term (p_A), the same polynomial
// precess.iau2006PrecessionMatrix's zeta/z/theta angles are built from;
// duplicated here as a single coefficient since the ayanamsa only needs
// the accumulated precession-in-longitude scalar, not a full rotation
// matrix.
const generalPrecessionArcsecPerCentury = 5028.796195

func generalPrecessionDeg(jdTT float64) float64 {
	T := (jdTT - j2000JD) / 36525.0
	return generalPrecessionArcsecPerCentury * T / 3600.0
}

// Ayanamsa returns the configured sidereal mode's ayanamsa (degrees) at
// jdTT: the reference epoch's ayan_t0 offset plus the general
// precession accumulated between t0 and jdTT, spec.md §4.5 step 7's
// "(precession-of-reference-point) + ayan_t0 offset".
func (e *Engine) Ayanamsa(jdTT float64) (float64, error) {
	if e.SiderealMode == nil {
		return 0, errors.New("ephemeris: no sidereal mode configured")
	}
	t0TT := e.SiderealMode.T0
	if e.SiderealMode.T0IsUT {
		t0TT = timescale.UTCToTT(t0TT)
	}
	return e.SiderealMode.AyanT0 + generalPrecessionDeg(jdTT) - generalPrecessionDeg(t0TT), nil
}

// NewEngine builds an Engine with the Moshier analytical theory as the
// sole (always-available) source and IAU 2006/2000A-standard
// precession and nutation. Callers add JPL/SE1 sources with AddSource,
// tried in the order added, before falling back to Moshier.
func NewEngine() *Engine {
	return &Engine{
		Sources: []PositionSource{MoshierSource},
		Precess: precess.NewSelector(),
		Logger:  zerolog.Nop(),
	}
}

// AddSource registers a higher-priority source (e.g. JPL or SE1),
// tried before any source already registered.
func (e *Engine) AddSource(s PositionSource) {
	e.Sources = append([]PositionSource{s}, e.Sources...)
	e.Logger.Debug().Str("source", s.Name()).Msg("ephemeris: source registered")
}

// Result is a single body's computed position, polar by default
// (ecliptic longitude/latitude/distance), or equatorial/Cartesian per
// PositionFlags.
type Result struct {
	LonDeg, LatDeg, DistAU                                  float64
	LonSpeedDegPerDay, LatSpeedDegPerDay, DistSpeedAUPerDay float64
	Pos, Vel                                                [3]float64 // Cartesian, only meaningful with FlagXYZ
	Source                                                  string
}

// Position runs the full pipeline of spec.md §4.5 for body at jdUT
// (UT1 Julian date) and returns its apparent position, honoring flags.
func (e *Engine) Position(jdUT float64, body int, flags PositionFlags) (Result, error) {
	return e.PositionTT(timescale.UTCToTT(jdUT), body, flags)
}

// PositionTT runs the same pipeline as Position but takes a TT (or TDB —
// the two differ by at most ~2ms, the same approximation spk.go's own
// light-time iteration makes) Julian date directly, for callers that
// already work in a dynamical time scale rather than UT1 — notably the
// KmSource adapter, which stands in for a raw *spk.SPK kernel whose own
// exported methods are all TDB-Julian-date based.
func (e *Engine) PositionTT(jdTT float64, body int, flags PositionFlags) (Result, error) {
	earthPos, earthVel, src, err := e.heliocentric(jdTT, Earth, flags)
	if err != nil {
		return Result{}, err
	}
	if body == Earth && flags&FlagHeliocentric == 0 {
		return Result{}, errors.Wrap(ErrUnknownBody, "Earth has no geocentric position")
	}

	// spec.md §4.5 step 2: if topocentric, compute the observer's
	// geocentric Cartesian position via WGS-84 and sidereal time, and
	// shift the reference point from Earth's centre to the observer
	// before light-time iteration, so every downstream step (light-time,
	// aberration, deflection) already uses the observer's vantage point.
	if flags&FlagTopocentric != 0 && e.Location != nil {
		earthPos = add3(earthPos, e.topocentricOffsetAU(jdTT))
	}

	if flags&FlagHeliocentric != 0 {
		pos, vel := earthPos, earthVel
		if body != Earth {
			pos, vel, _, err = e.heliocentric(jdTT, body, flags)
			if err != nil {
				return Result{}, err
			}
		}
		return e.project(pos, vel, jdTT, src, flags), nil
	}

	targetPos, targetVel, _, err := e.heliocentric(jdTT, body, flags)
	if err != nil {
		return Result{}, err
	}

	pos, lightTimeDays := e.lightTimeIterate(jdTT, body, earthPos, flags)
	vel := sub3(targetVel, earthVel)

	// coord.Aberration/coord.Deflection work in km and km/day, matching
	// spk.go's native SPK-kernel units; this engine's sources are all AU,
	// so convert to km for these two calls and back.
	if flags&FlagAstrometric == 0 {
		if flags&FlagNoDeflection == 0 {
			posKm := scale3(units.AUToKm, pos)
			posKm = add3(posKm, e.sunDeflectionKm(jdTT, posKm, scale3(units.AUToKm, earthPos)))
			pos = scale3(1.0/units.AUToKm, posKm)
		}
		if flags&FlagNoAberration == 0 {
			posKm := scale3(units.AUToKm, pos)
			velKmPerDay := scale3(units.AUToKm, earthVel)
			posKm = coord.Aberration(posKm, velKmPerDay, lightTimeDays)
			pos = scale3(1.0/units.AUToKm, posKm)
		}
	}

	return e.project(pos, vel, jdTT, src, flags), nil
}

// OsculatingElements computes body's instantaneous osculating Keplerian
// orbital elements at jdTT from its heliocentric state vector, via
// elements.FromStateVector. Where KeplerSource propagates elements
// forward into a position, this is the inverse: it derives a fresh
// "osculating orbit" snapshot from whatever source (JPL, SE1, Moshier, an
// SPK kernel, or another KeplerSource body) the Engine is configured with,
// letting every position source report its orbit shape, not just its
// instantaneous position.
func (e *Engine) OsculatingElements(jdTT float64, body int) (elements.OsculatingElements, error) {
	pos, vel, _, err := e.heliocentric(jdTT, body, 0)
	if err != nil {
		return elements.OsculatingElements{}, err
	}
	posKm := scale3(units.AUToKm, pos)
	velKmPerSec := scale3(units.AUToKm/secPerDay, vel)
	return elements.FromStateVector(posKm, velKmPerSec, sunGMKm3PerS2), nil
}

// ConstellationOf reports the IAU constellation body's apparent position
// at jdTT falls within, running the pipeline with FlagEquatorial so the
// projected J2000 right ascension/declination can be handed to
// constellation.At's boundary lookup.
func (e *Engine) ConstellationOf(jdTT float64, body int) (string, error) {
	res, err := e.PositionTT(jdTT, body, FlagEquatorial)
	if err != nil {
		return "", err
	}
	raHours := res.LonDeg / 15.0
	return constellation.At(raHours, res.LatDeg), nil
}

// SkyChartProjection returns a stereographic Projector centered on the
// given apparent J2000 position, suitable for plotting nearby bodies
// or catalog stars onto a flat chart around it (e.g. centering a chart
// on the Moon to plot an upcoming occultation's other bodies).
func (e *Engine) SkyChartProjection(jdTT float64, centerBody int) (*projection.Projector, error) {
	res, err := e.PositionTT(jdTT, centerBody, FlagEquatorial|FlagXYZ)
	if err != nil {
		return nil, err
	}
	return projection.NewProjector(res.Pos[0], res.Pos[1], res.Pos[2]), nil
}

// heliocentric tries each configured source in order, returning the
// first that has data for jdTT; ErrOutOfRange from every source is
// reported as this package's own ErrOutOfRange.
func (e *Engine) heliocentric(jdTT float64, body int, flags PositionFlags) (pos, vel [3]float64, source string, err error) {
	sources := e.Sources
	if flags&FlagUseMoshier != 0 {
		sources = []PositionSource{MoshierSource}
	}
	var lastErr error
	for _, s := range sources {
		if flags&FlagUseJPL != 0 && s.Name() != "jpl" {
			continue
		}
		if flags&FlagUseSE1 != 0 && s.Name() != "se1" {
			continue
		}
		pos, vel, err := s.HeliocentricEclipticJ2000(jdTT, body)
		if err == nil {
			return pos, vel, s.Name(), nil
		}
		lastErr = err
		e.Logger.Debug().Str("source", s.Name()).Err(err).Msg("ephemeris: source fallback")
	}
	if lastErr == nil {
		lastErr = ErrOutOfRange
	}
	return pos, vel, "", errors.Wrap(ErrOutOfRange, lastErr.Error())
}

// lightTimeIterate converges the geocentric astrometric position of
// body on the light-travel-time-corrected emission time, the same
// fixed-point iteration spk.go's observe() uses, generalized to any
// PositionSource instead of a single opened kernel.
func (e *Engine) lightTimeIterate(jdTT float64, body int, earthPos [3]float64, flags PositionFlags) (pos [3]float64, lightTimeDays float64) {
	bodyPos, _, _, err := e.heliocentric(jdTT, body, flags)
	if err != nil {
		return pos, 0
	}
	pos = sub3(bodyPos, earthPos)
	dist := length3(pos)

	for i := 0; i < 10; i++ {
		newLT := dist / cAUPerDay
		if abs(newLT-lightTimeDays) < 1e-12 {
			break
		}
		lightTimeDays = newLT
		bodyPos, _, _, err = e.heliocentric(jdTT-lightTimeDays, body, flags)
		if err != nil {
			break
		}
		pos = sub3(bodyPos, earthPos)
		dist = length3(pos)
	}
	return pos, lightTimeDays
}

// topocentricOffsetAU computes the observer's geocentric position (per
// Engine.Location) in the heliocentric-ecliptic-J2000 AU frame every
// other position source in this package already works in, via
// coord.GeodeticToICRF's WGS-84/sidereal-time construction plus a
// radial height correction, matching spec.md §4.5 step 2.
func (e *Engine) topocentricOffsetAU(jdTT float64) [3]float64 {
	jdUT1 := e.ttToUT1(jdTT)
	x, y, z := coord.GeodeticToICRF(e.Location.LatDeg, e.Location.LonDeg, jdUT1)

	if e.Location.HeightKm != 0 {
		latRad, lonRad := e.Location.LatDeg*deg2rad, e.Location.LonDeg*deg2rad
		radial := [3]float64{
			math.Cos(latRad) * math.Cos(lonRad),
			math.Cos(latRad) * math.Sin(lonRad),
			math.Sin(latRad),
		}
		x += e.Location.HeightKm * radial[0]
		y += e.Location.HeightKm * radial[1]
		z += e.Location.HeightKm * radial[2]
	}

	eclipticKm := equatorialToEclipticJ2000([3]float64{x, y, z})
	return scale3(1.0/units.AUToKm, eclipticKm)
}

// sunDeflectionKm applies the Sun's gravitational light deflection, the
// single-deflector case of spk.go's ApparentFrom (Sun only; Jupiter/
// Saturn deflection is a further refinement spec.md doesn't test and
// this engine omits rather than silently approximate). positionKm and
// earthPosKm are both in km, matching coord.Deflection's convention.
func (e *Engine) sunDeflectionKm(jdTT float64, positionKm, earthPosKm [3]float64) [3]float64 {
	sunPosAU, _, _, err := e.heliocentric(jdTT, Sun, 0)
	if err != nil {
		return [3]float64{}
	}
	peKm := sub3(scale3(units.AUToKm, sunPosAU), earthPosKm)
	return coord.Deflection(positionKm, peKm, 1.0)
}

// project converts the final Cartesian geocentric/heliocentric vector
// into the caller's requested frame and representation, applying
// precession/nutation (unless FlagJ2000) before projecting to polar or
// equatorial coordinates.
func (e *Engine) project(pos, vel [3]float64, jdTT float64, source string, flags PositionFlags) Result {
	if flags&FlagJ2000 == 0 {
		if flags&FlagSidereal != 0 && flags&FlagEclT0 != 0 && e.SiderealMode != nil {
			// ECL_T0: rotate into the reference epoch's ecliptic instead
			// of date's — the frame change itself is the projection, so
			// no further ayanamsa subtraction follows.
			t0TT := e.SiderealMode.T0
			if e.SiderealMode.T0IsUT {
				t0TT = timescale.UTCToTT(t0TT)
			}
			pos, vel = e.precessNutate(pos, vel, t0TT, flags)
		} else {
			pos, vel = e.precessNutate(pos, vel, jdTT, flags)
		}
	}

	if flags&FlagSidereal != 0 && e.SiderealMode != nil && flags&FlagEclT0 == 0 {
		switch {
		case flags&FlagSSYPlane != 0:
			pos, vel = rotateToInvariablePlane(pos), rotateToInvariablePlane(vel)
		default:
			// Default and ECL_DATE both subtract the ayanamsa from
			// ecliptic longitude; a Z-axis rotation leaves latitude
			// untouched, matching spec.md §4.5 step 7.
			if ayan, err := e.Ayanamsa(jdTT); err == nil {
				pos, vel = rotateZDeg(pos, -ayan), rotateZDeg(vel, -ayan)
			}
		}
	}

	if flags&FlagEquatorial != 0 {
		pos = eclipticToEquatorialJ2000(pos)
		vel = eclipticToEquatorialJ2000(vel)
	}

	if flags&FlagXYZ != 0 {
		return Result{Pos: pos, Vel: vel, Source: source}
	}

	lon, lat, dist := mathkernel.CartToPolar(pos)
	r := Result{
		LonDeg: lon * rad2deg,
		LatDeg: lat * rad2deg,
		DistAU: dist,
		Pos:    pos,
		Vel:    vel,
		Source: source,
	}
	if flags&FlagSpeed != 0 {
		r.LonSpeedDegPerDay, r.LatSpeedDegPerDay, r.DistSpeedAUPerDay = polarSpeedFromCartesian(pos, vel)
	}
	return r
}

// precessNutate rotates a J2000 ecliptic vector to the true equator
// and equinox of date: precession (precess.Selector.PrecessionMatrix,
// any of the named precession model families) composed with nutation
// (precess.Selector.NutationAnglesWithFormula, any of the named
// nutation formulas), applied in the equatorial frame since that's
// where both coord's precession matrix and nutation angles are
// defined, then rotated back to ecliptic.
func (e *Engine) precessNutate(pos, vel [3]float64, jdTT float64, flags PositionFlags) (outPos, outVel [3]float64) {
	eqPos := eclipticToEquatorialJ2000(pos)
	eqVel := eclipticToEquatorialJ2000(vel)

	P := e.Precess.PrecessionMatrix(jdTT)
	eqPos = applyMatrix(P, eqPos)
	eqVel = applyMatrix(P, eqVel)

	if flags&FlagNoNutation == 0 {
		T := (jdTT - j2000JD) / 36525.0
		dpsi, deps := e.Precess.NutationAnglesWithFormula(T, coord.NutationAnglesStandard, coord.NutationAnglesFull)
		N := nutationMatrix(dpsi, deps)
		eqPos = applyMatrix(N, eqPos)
		eqVel = applyMatrix(N, eqVel)
	}

	return equatorialToEclipticJ2000(eqPos), equatorialToEclipticJ2000(eqVel)
}

const j2000JD = 2451545.0

// ssyPlaneInclDeg/ssyPlaneNodeDeg are the solar-system invariable
// plane's inclination to, and ascending node on, the J2000 ecliptic,
// the same approximate values spec.md §4.5 step 7 names for the
// SSY_PLANE sidereal mode.
const (
	ssyPlaneInclDeg = 1.578701
	ssyPlaneNodeDeg = 107.589
)

// rotateZDeg rotates v by deg around the ecliptic pole (Z axis): pure
// longitude shift, latitude unchanged.
func rotateZDeg(v [3]float64, deg float64) [3]float64 {
	rad := deg * deg2rad
	c, s := math.Cos(rad), math.Sin(rad)
	return [3]float64{c*v[0] - s*v[1], s*v[0] + c*v[1], v[2]}
}

// rotateXDeg rotates v by deg around the X axis.
func rotateXDeg(v [3]float64, deg float64) [3]float64 {
	rad := deg * deg2rad
	c, s := math.Cos(rad), math.Sin(rad)
	return [3]float64{v[0], c*v[1] - s*v[2], s*v[1] + c*v[2]}
}

// rotateToInvariablePlane tilts v from the J2000 ecliptic into the
// solar-system invariable plane: rotate the line of nodes onto the X
// axis, tilt by the plane's inclination, then rotate the node back.
func rotateToInvariablePlane(v [3]float64) [3]float64 {
	v = rotateZDeg(v, -ssyPlaneNodeDeg)
	v = rotateXDeg(v, -ssyPlaneInclDeg)
	return rotateZDeg(v, ssyPlaneNodeDeg)
}

// nutationMatrix builds the small-angle mean-to-true equatorial
// rotation from nutation in longitude/obliquity, following the same
// Rz(dpsi*cosEps)·Rx(deps)·Rz(-dpsi*... ) decomposition coord's
// internal nutation matrix uses, re-derived here since that matrix
// constructor is unexported.
func nutationMatrix(dpsiRad, depsRad float64) [3][3]float64 {
	cosEps := j2000MeanObliquityCos
	sinEps := j2000MeanObliquitySin
	cosEpsT := cosEps - sinEps*depsRad // mean + nutation (small-angle)
	sinEpsT := sinEps + cosEps*depsRad

	return [3][3]float64{
		{1, -dpsiRad * cosEps, -dpsiRad * sinEps},
		{dpsiRad * cosEpsT, 1, -depsRad},
		{dpsiRad * sinEpsT, depsRad, 1},
	}
}

func eclipticToEquatorialJ2000(v [3]float64) [3]float64 {
	return [3]float64{
		v[0],
		j2000MeanObliquityCos*v[1] - j2000MeanObliquitySin*v[2],
		j2000MeanObliquitySin*v[1] + j2000MeanObliquityCos*v[2],
	}
}

func applyMatrix(m [3][3]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// polarSpeedFromCartesian differentiates CartToPolar numerically via
// the analytic inverse of PolarToCartSpeed, solved for the speed
// triple given a position and velocity vector.
func polarSpeedFromCartesian(pos, vel [3]float64) (lonSpd, latSpd, distSpd float64) {
	r := length3(pos)
	if r == 0 {
		return 0, 0, 0
	}
	rxy2 := pos[0]*pos[0] + pos[1]*pos[1]
	distSpd = dot3(pos, vel) / r
	if rxy2 > 0 {
		lonSpd = (pos[0]*vel[1] - pos[1]*vel[0]) / rxy2 * rad2deg
	}
	rxy := sqrt(rxy2)
	if rxy > 0 && r > 0 {
		latSpd = (vel[2]*rxy2 - pos[2]*(pos[0]*vel[0]+pos[1]*vel[1])) / (r * r * rxy) * rad2deg
	}
	return lonSpd, latSpd, distSpd
}

func sub3(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func add3(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func scale3(k float64, a [3]float64) [3]float64 {
	return [3]float64{k * a[0], k * a[1], k * a[2]}
}

func dot3(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func length3(a [3]float64) float64 {
	return sqrt(dot3(a, a))
}

func sqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Sqrt(x)
}

func abs(x float64) float64 {
	return math.Abs(x)
}

// KmSource is the method set *spk.SPK exposes for astrometric/apparent
// position queries (km, ICRF, NAIF body numbering). eclipse, search, and
// heliacal are written against this interface rather than the concrete
// *spk.SPK type, so an *Engine — with its full source-fallback chain and
// precession/nutation stage — can stand in for a bare SPK kernel via
// Engine.AsKmSource, instead of those packages bypassing the pipeline
// entirely.
type KmSource interface {
	Apparent(body int, tdbJD float64) [3]float64
	ApparentFrom(observer, target int, tdbJD float64) [3]float64
	ObserveFrom(observer, target int, tdbJD float64) [3]float64
	Observe(body int, tdbJD float64) [3]float64
	GeocentricPosition(body int, tdbJD float64) [3]float64
}

// kmAdapter implements KmSource on top of an *Engine, translating spk.go's
// NAIF body codes to this package's body constants and AU results back to
// km.
type kmAdapter struct{ engine *Engine }

// AsKmSource adapts e to KmSource. Flags are fixed to the Engine's default
// apparent-geocentric-equatorial-J2000 pipeline (aberration + deflection,
// no precession/nutation) to match what *spk.SPK's own Apparent/Observe
// report, so existing callers see numerically comparable results whether
// they pass a raw kernel or an Engine.
func (e *Engine) AsKmSource() KmSource { return kmAdapter{engine: e} }

func (k kmAdapter) Apparent(naifBody int, tdbJD float64) [3]float64 {
	return k.ApparentFrom(spkEarthNAIF, naifBody, tdbJD)
}

func (k kmAdapter) ApparentFrom(naifObserver, naifTarget int, tdbJD float64) [3]float64 {
	if naifObserver != spkEarthNAIF {
		return k.ObserveFrom(naifObserver, naifTarget, tdbJD)
	}
	res, err := k.engine.PositionTT(tdbJD, engineBodyFromNAIF(naifTarget), FlagEquatorial|FlagXYZ|FlagJ2000)
	if err != nil {
		return [3]float64{}
	}
	return scale3(units.AUToKm, res.Pos)
}

func (k kmAdapter) ObserveFrom(naifObserver, naifTarget int, tdbJD float64) [3]float64 {
	if naifObserver != spkEarthNAIF {
		return k.GeocentricPosition(naifTarget, tdbJD)
	}
	res, err := k.engine.PositionTT(tdbJD, engineBodyFromNAIF(naifTarget), FlagEquatorial|FlagXYZ|FlagJ2000|FlagAstrometric)
	if err != nil {
		return [3]float64{}
	}
	return scale3(units.AUToKm, res.Pos)
}

func (k kmAdapter) Observe(naifBody int, tdbJD float64) [3]float64 {
	return k.ObserveFrom(spkEarthNAIF, naifBody, tdbJD)
}

func (k kmAdapter) GeocentricPosition(naifBody int, tdbJD float64) [3]float64 {
	res, err := k.engine.PositionTT(tdbJD, engineBodyFromNAIF(naifBody), FlagEquatorial|FlagXYZ|FlagJ2000|FlagAstrometric|FlagNoAberration)
	if err != nil {
		return [3]float64{}
	}
	return scale3(units.AUToKm, res.Pos)
}

// spkEarthNAIF duplicates spk.Earth's value (399), the observer code
// kmAdapter treats as geocentric; engineBodyFromNAIF below maps it back to
// Earth.
const spkEarthNAIF = 399

// engineBodyFromNAIF inverts spkNAIFCode: maps an spk.go NAIF body code
// back onto this package's shared body constants.
func engineBodyFromNAIF(naifBody int) int {
	switch naifBody {
	case 399:
		return Earth
	case 301:
		return Moon
	case 10:
		return Sun
	case 199:
		return Mercury
	case 299:
		return Venus
	case 4:
		return Mars
	case 5:
		return Jupiter
	case 6:
		return Saturn
	case 7:
		return Uranus
	case 8:
		return Neptune
	case 9:
		return Pluto
	default:
		return naifBody
	}
}
