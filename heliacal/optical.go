package heliacal

import "math"

// PupilDia returns the dark-adapted pupil diameter, in mm, for an observer
// of the given age. Pupil diameter shrinks roughly linearly with age past
// young adulthood; this follows the commonly cited rule of thumb that a
// 20-year-old dilates to about 7.5 mm and an 80-year-old to about 5 mm.
func PupilDia(ageYears float64) float64 {
	const (
		youngDia    = 7.5
		perYearDrop = 7.5 - 5.0 // mm lost between age 20 and age 80
		span        = 60.0
	)
	d := youngDia - perYearDrop*(ageYears-20.0)/span
	if d < 2.0 {
		d = 2.0
	}
	if d > youngDia {
		d = youngDia
	}
	return d
}

// telescopeExitPupil returns a telescope's exit pupil diameter in mm.
func telescopeExitPupil(apertureMM, magnification float64) float64 {
	if magnification <= 0 {
		return 0
	}
	return apertureMM / magnification
}

// OpticalFactor packages an observer's visual acuity, optical aid, and
// contrast sensitivity into the f1/f2 pair VisLimMag needs, per spec.md
// §4.8's "telescope magnification, pupil diameter vs age, contrast
// threshold, and Snellen ratio" description.
//
// Both f1 and f2 are threshold multipliers: smaller is better (a fainter
// limiting magnitude). f1 scales the background-brightness term inside
// VisLimMag's square root — magnification spreads the sky background over
// more retinal area without dimming a point source, so f1 shrinks with the
// square of magnification. f2 scales the overall threshold — degraded
// acuity (Snellen below 1.0) raises it, while light grasp from a larger
// aperture and binocular summation lower it.
func OpticalFactor(obs ObserverParams) (f1, f2 float64) {
	snellen := obs.SnellenRatio
	if snellen <= 0 {
		snellen = 1.0
	}

	// Contrast threshold degrades (requires a brighter target relative to
	// background) as acuity falls below normal.
	contrastThreshold := 1.0 / (snellen * snellen)

	pupil := PupilDia(obs.AgeYears)

	f1 = contrastThreshold
	f2 = contrastThreshold

	if obs.Magnification > 1.0 && obs.ApertureMM > 0 {
		transmission := obs.Transmission
		if transmission <= 0 {
			transmission = 0.85 // typical coated-optics transmission
		}

		// Light grasp scales with the square of the aperture-to-pupil
		// ratio. Once the exit pupil exceeds the eye's own, the excess
		// light misses the iris, so the ratio is capped at unity rather
		// than growing further.
		exitRatio := telescopeExitPupil(obs.ApertureMM, obs.Magnification) / pupil
		if exitRatio > 1.0 {
			exitRatio = 1.0
		}
		lightGrasp := math.Pow(obs.ApertureMM/pupil, 2) * exitRatio * transmission

		f1 = contrastThreshold / (obs.Magnification * obs.Magnification)
		f2 = contrastThreshold / lightGrasp
	}

	if obs.Binocular {
		f2 /= math.Sqrt2 // two-eye summation gains roughly 0.4 mag
	}

	return f1, f2
}
