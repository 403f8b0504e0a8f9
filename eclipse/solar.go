package eclipse

import (
	"math"

	"github.com/anupshinde/goeph/coord"
	"github.com/anupshinde/goeph/ephemeris"
	"github.com/anupshinde/goeph/geometry"
	"github.com/anupshinde/goeph/search"
	"github.com/anupshinde/goeph/spk"
	"github.com/anupshinde/goeph/timescale"
)

// Solar eclipse kind constants returned in SolarEclipse.Kind, per spec.md
// §4.7's classification (central: umbra or antumbra reaches Earth; partial:
// only the penumbra does; hybrid: the same event is total along part of its
// path and annular along the rest, because Earth's curvature lets the
// umbra's tip graze the surface).
const (
	SolarPartial = 1 // penumbra reaches Earth, umbra/antumbra does not
	Annular      = 2 // antumbra reaches Earth (Moon's apparent disc smaller than Sun's)
	SolarTotal   = 3 // umbra reaches Earth (Moon's apparent disc larger than Sun's)
	Hybrid       = 4 // umbra tip grazes Earth's surface: total in places, annular in others
)

// SolarEclipse describes a solar eclipse event, mirroring the tret/attr
// shape spec.md §4.7 describes for sol_eclipse_when_glob.
type SolarEclipse struct {
	T float64 // TDB Julian date of greatest eclipse (maximum shadow/Earth-centre closeness)
	Kind int

	// Magnitude is the fraction of the Sun's diameter covered at greatest
	// eclipse (>1 for total, <1 for partial/annular).
	Magnitude float64

	// Ratio is the ratio of the Moon's apparent angular diameter to the
	// Sun's at greatest eclipse; >1 favors totality, <1 favors annularity.
	Ratio float64

	// CentralLatDeg, CentralLonDeg are the geographic sub-shadow-point
	// coordinates at greatest eclipse (meaningful only when Kind is
	// Annular, SolarTotal, or Hybrid).
	CentralLatDeg, CentralLonDeg float64

	// GreatestSepKm is the perpendicular distance from Earth's centre to
	// the Sun-Moon shadow axis at greatest eclipse, in km.
	GreatestSepKm float64
}

// FindSolarEclipses finds all solar eclipses in the given TDB Julian date
// range, following spec.md §4.7's sol_eclipse_when_glob shape: step to the
// conjunction instant, then refine a parabolic/golden-section extremum on
// the shadow-axis/Earth-centre distance, then classify.
func FindSolarEclipses(eph ephemeris.KmSource, startJD, endJD float64) ([]SolarEclipse, error) {
	phaseFunc := func(tdbJD float64) int {
		sunPos := eph.Apparent(spk.Sun, tdbJD)
		moonPos := eph.Apparent(spk.Moon, tdbJD)
		elong := eclipticElongation(moonPos, sunPos)
		if elong < 0 {
			elong += 360
		}
		return int(math.Floor(elong/90.0)) % 4
	}

	transitions, err := search.FindDiscrete(startJD, endJD, 5.0, phaseFunc, 0)
	if err != nil {
		return nil, err
	}

	var newMoons []float64
	for _, e := range transitions {
		if e.NewValue == 0 {
			newMoons = append(newMoons, e.T)
		}
	}

	sepFunc := func(tdbJD float64) float64 {
		return sunMoonShadowSeparation(eph, tdbJD)
	}

	var eclipses []SolarEclipse
	for _, nm := range newMoons {
		window := 1.0
		minima, err := search.FindMinima(nm-window, nm+window, 0.02, sepFunc, 0)
		if err != nil || len(minima) == 0 {
			continue
		}

		best := minima[0]
		for _, m := range minima[1:] {
			if math.Abs(m.T-nm) < math.Abs(best.T-nm) {
				best = m
			}
		}

		ecl := classifySolarEclipse(eph, best.T)
		if ecl.Kind > 0 {
			eclipses = append(eclipses, ecl)
		}
	}

	return eclipses, nil
}

// sunMoonShadowSeparation returns the perpendicular distance (km) from
// Earth's centre to the Sun-Moon shadow axis (the line through the Moon
// extended away from the Sun) at the given time.
func sunMoonShadowSeparation(eph ephemeris.KmSource, tdbJD float64) float64 {
	sunPos := eph.GeocentricPosition(spk.Sun, tdbJD)
	moonPos := eph.GeocentricPosition(spk.Moon, tdbJD)
	sep, _, _, _ := shadowAxisGeometry(sunPos, moonPos)
	return sep
}

// shadowAxisGeometry computes the Sun-Moon shadow axis at one instant and
// Earth's centre's relationship to it. axis is the unit vector from the
// Sun through the Moon (the direction the umbra/antumbra/penumbra extends);
// tAlong is the signed distance from the Moon to Earth's centre's
// projection onto the axis (positive means Earth is on the far side of the
// Moon from the Sun, as required for an eclipse); sep is the perpendicular
// distance from Earth's centre to the axis.
func shadowAxisGeometry(sunPos, moonPos [3]float64) (sep, tAlong, sunMoonDistKm float64, axis [3]float64) {
	moonToSun := [3]float64{sunPos[0] - moonPos[0], sunPos[1] - moonPos[1], sunPos[2] - moonPos[2]}
	sunMoonDistKm = math.Sqrt(moonToSun[0]*moonToSun[0] + moonToSun[1]*moonToSun[1] + moonToSun[2]*moonToSun[2])
	axis = [3]float64{-moonToSun[0] / sunMoonDistKm, -moonToSun[1] / sunMoonDistKm, -moonToSun[2] / sunMoonDistKm}

	// Earth's centre relative to the Moon: -moonPos.
	earthFromMoon := [3]float64{-moonPos[0], -moonPos[1], -moonPos[2]}
	tAlong = earthFromMoon[0]*axis[0] + earthFromMoon[1]*axis[1] + earthFromMoon[2]*axis[2]

	perp := [3]float64{
		earthFromMoon[0] - tAlong*axis[0],
		earthFromMoon[1] - tAlong*axis[1],
		earthFromMoon[2] - tAlong*axis[2],
	}
	sep = math.Sqrt(perp[0]*perp[0] + perp[1]*perp[1] + perp[2]*perp[2])
	return
}

// classifySolarEclipse computes the full shadow geometry at a given time
// and classifies the eclipse, or returns Kind 0 if no part of any shadow
// cone reaches Earth.
func classifySolarEclipse(eph ephemeris.KmSource, tdbJD float64) SolarEclipse {
	sunPos := eph.GeocentricPosition(spk.Sun, tdbJD)
	moonPos := eph.GeocentricPosition(spk.Moon, tdbJD)

	sep, tAlong, sunMoonDistKm, _ := shadowAxisGeometry(sunPos, moonPos)

	// Umbra/antumbra cone radius at distance tAlong from the Moon, along
	// the shadow axis (negative once past the cone's apex — magnitude is
	// still the physically meaningful antumbra radius there).
	rUmbra := moonRadiusKm - tAlong*(sunRadiusKm-moonRadiusKm)/sunMoonDistKm
	rPenumbra := moonRadiusKm + tAlong*(sunRadiusKm+moonRadiusKm)/sunMoonDistKm

	moonDistKm := math.Sqrt(moonPos[0]*moonPos[0] + moonPos[1]*moonPos[1] + moonPos[2]*moonPos[2])
	sunDistKm := math.Sqrt(sunPos[0]*sunPos[0] + sunPos[1]*sunPos[1] + sunPos[2]*sunPos[2])
	moonAngRad := moonRadiusKm / moonDistKm
	sunAngRad := sunRadiusKm / sunDistKm
	ratio := moonAngRad / sunAngRad

	ecl := SolarEclipse{
		T:             tdbJD,
		Ratio:         ratio,
		GreatestSepKm: sep,
	}

	switch {
	case sep <= math.Abs(rUmbra):
		switch {
		case math.Abs(rUmbra) < earthRadiusKm*0.01:
			// The umbra/antumbra boundary sits within Earth's own
			// radius of the geocentric path: Earth's curvature carries
			// the eclipse from total to annular (or back) along its
			// track, a hybrid (annular-total) event.
			ecl.Kind = Hybrid
		case rUmbra > 0:
			ecl.Kind = SolarTotal
		default:
			ecl.Kind = Annular
		}
		ecl.Magnitude = ratio
		lat, lon := subShadowPoint(moonPos, tdbJD)
		ecl.CentralLatDeg, ecl.CentralLonDeg = lat, lon
	case sep <= rPenumbra:
		ecl.Kind = SolarPartial
		ecl.Magnitude = (rPenumbra - sep) / (2 * (moonRadiusKm * 2 * sunAngRad / moonAngRad))
	default:
		ecl.Kind = 0
	}

	return ecl
}

// subShadowPoint converts the Sun-Moon shadow axis direction (as seen from
// Earth's centre, i.e. the point on Earth nearest the axis lies roughly
// along -axis from Earth's centre towards the Moon) into geographic
// latitude/longitude at the given TDB instant (converted to UT1 for
// Earth's rotation).
func subShadowPoint(moonPos [3]float64, tdbJD float64) (latDeg, lonDeg float64) {
	// The point on Earth's surface closest to the shadow axis lies in the
	// direction from Earth's centre towards the Moon (the shadow falls on
	// the hemisphere facing the Moon/Sun).
	jdUT1 := timescale.TTToUT1(tdbJD)
	ha0, decDeg := coord.HourAngleDec(moonPos, 0.0, jdUT1)
	lonDeg = wrapLon180(-ha0)
	latDeg = decDeg
	return
}

func wrapLon180(d float64) float64 {
	for d <= -180 {
		d += 360
	}
	for d > 180 {
		d -= 360
	}
	return d
}

// OccultedBody identifies the body being occulted by the Moon, resolving
// spec.md §9's open question about branching on (planet, starname): it is
// a first-class discriminated parameter instead of a pair of special cases
// threaded through the search internals.
type OccultedBody struct {
	// IsStar selects between a planet (NAIFBody) and a fixed star
	// (StarRAHours/StarDecDeg).
	IsStar bool

	// NAIFBody is the occulted planet's NAIF id (e.g. spk.Venus), valid
	// when !IsStar.
	NAIFBody int

	// StarName, StarRAHours, StarDecDeg identify a fixed star by its J2000
	// catalog position, valid when IsStar. Proper motion is ignored over
	// the short span of a single occultation search, consistent with
	// spec.md §4.7's geometry-only scope.
	StarName                string
	StarRAHours, StarDecDeg float64

	// AngularRadiusDeg is the occulted body's apparent angular radius in
	// degrees (0 for a star, a planet's physical radius / distance for a
	// planet) used to size the occultation's partial/total threshold.
	AngularRadiusDeg float64
}

// Occultation kind constants returned in Occultation.Kind.
const (
	OccultationPartial = 1 // occulted body's disc only partially covered by the Moon
	OccultationTotal   = 2 // occulted body's disc fully covered by the Moon
)

// Occultation describes a lunar occultation event.
type Occultation struct {
	T          float64 // TDB Julian date of closest approach
	Kind       int     // OccultationPartial or OccultationTotal
	SepDeg     float64 // Moon-body angular separation at closest approach, degrees
	MoonRadDeg float64 // Moon's apparent angular radius at closest approach, degrees
}

// FindOccultations finds times when the Moon occults the given body
// (planet or fixed star) in the given TDB Julian date range, generalizing
// FindLunarEclipses'/FindSolarEclipses' bracket-then-refine shape to an
// arbitrary occulted body's Besselian-style apparent-separation geometry.
func FindOccultations(eph ephemeris.KmSource, body OccultedBody, startJD, endJD float64) ([]Occultation, error) {
	bodyDir := func(tdbJD float64) [3]float64 {
		if body.IsStar {
			x, y, z := coord.RADecToICRF(body.StarRAHours, body.StarDecDeg)
			return [3]float64{x, y, z}
		}
		return eph.Apparent(body.NAIFBody, tdbJD)
	}

	sepFunc := func(tdbJD float64) float64 {
		moonPos := eph.Apparent(spk.Moon, tdbJD)
		return angularSeparationDeg(moonPos, bodyDir(tdbJD))
	}

	// Coarse scan: the Moon moves ~13°/day, so a step of 0.5 days cannot
	// skip a whole approach-and-recede cycle relative to any body slower
	// than the Moon itself.
	minima, err := search.FindMinima(startJD, endJD, 0.5, sepFunc, 0)
	if err != nil {
		return nil, err
	}

	var occultations []Occultation
	for _, m := range minima {
		moonPos := eph.Apparent(spk.Moon, m.T)
		moonDistKm := math.Sqrt(moonPos[0]*moonPos[0] + moonPos[1]*moonPos[1] + moonPos[2]*moonPos[2])
		moonRadDeg := math.Asin(moonRadiusKm/moonDistKm) * 180.0 / math.Pi

		// Coarse angular filter: cheap rejection of minima nowhere near the
		// Moon's disc before the exact geometric test below.
		threshold := moonRadDeg + body.AngularRadiusDeg
		if m.Value > threshold {
			continue
		}

		// Exact test: the observer's sight line toward the occulted body,
		// run through the Moon's physical sphere. A star's sight line is a
		// true ray from the origin; a planet's is a chord ending at the
		// planet itself, but since the Moon sits far closer to the observer
		// than any occulted planet, treating it the same way as
		// IntersectLineSphere's origin-through-endpoint line is equivalent
		// for the geometry that matters here.
		near, far := geometry.IntersectLineSphere(bodyDir(m.T), moonPos, moonRadiusKm)
		if math.IsNaN(near) {
			// The coarse angular filter can pass minima the exact line/sphere
			// test rejects near its own threshold boundary.
			continue
		}

		kind := OccultationPartial
		if near > 0 && far > 0 {
			kind = OccultationTotal
		}

		occultations = append(occultations, Occultation{
			T:          m.T,
			Kind:       kind,
			SepDeg:     m.Value,
			MoonRadDeg: moonRadDeg,
		})
	}

	return occultations, nil
}

// angularSeparationDeg returns the angle in degrees between two direction
// vectors (any consistent units; only direction matters).
func angularSeparationDeg(a, b [3]float64) float64 {
	aLen := math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])
	bLen := math.Sqrt(b[0]*b[0] + b[1]*b[1] + b[2]*b[2])
	if aLen == 0 || bLen == 0 {
		return 0
	}
	cosTheta := (a[0]*b[0] + a[1]*b[1] + a[2]*b[2]) / (aLen * bLen)
	if cosTheta > 1 {
		cosTheta = 1
	} else if cosTheta < -1 {
		cosTheta = -1
	}
	return math.Acos(cosTheta) * 180.0 / math.Pi
}
