package heliacal

import (
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anupshinde/goeph/spk"
)

var testEph *spk.SPK

func TestMain(m *testing.M) {
	var err error
	testEph, err = spk.Open("../data/de440s.bsp")
	if err != nil {
		panic("failed to load ephemeris: " + err.Error())
	}
	os.Exit(m.Run())
}

func TestBTwi_ZeroOutsideWindow(t *testing.T) {
	if b := BTwi(-19.0, 30.0); b != 0 {
		t.Errorf("BTwi below -18° = %v, want 0", b)
	}
	if b := BTwi(0.0, 30.0); b != 0 {
		t.Errorf("BTwi at Sun above horizon = %v, want 0 (daylight, not twilight)", b)
	}
}

func TestBTwi_BrighterNearerSunAndHorizon(t *testing.T) {
	near := BTwi(-3.0, 10.0)
	far := BTwi(-3.0, 90.0)
	if near <= far {
		t.Errorf("BTwi near Sun (%v) should exceed BTwi far from Sun (%v)", near, far)
	}

	shallow := BTwi(-2.0, 30.0)
	deep := BTwi(-12.0, 30.0)
	if shallow <= deep {
		t.Errorf("BTwi at -2° Sun altitude (%v) should exceed BTwi at -12° (%v)", shallow, deep)
	}
}

func TestBDay_ZeroAtNight(t *testing.T) {
	if b := BDay(-5.0, 90.0); b != 0 {
		t.Errorf("BDay with Sun below horizon = %v, want 0", b)
	}
}

func TestBDay_PositiveInDaylight(t *testing.T) {
	if b := BDay(45.0, 90.0); b <= 0 {
		t.Errorf("BDay at Sun alt 45° = %v, want positive", b)
	}
}

func TestBMoon_ZeroBelowHorizonOrNewMoon(t *testing.T) {
	atmo := DefaultAtmosphere()
	if b := BMoon(-5.0, 1.0, 90.0, atmo); b != 0 {
		t.Errorf("BMoon with Moon below horizon = %v, want 0", b)
	}
	if b := BMoon(45.0, 0.0, 90.0, atmo); b != 0 {
		t.Errorf("BMoon at new Moon = %v, want 0", b)
	}
}

func TestBMoon_BrighterFullAndHigh(t *testing.T) {
	atmo := DefaultAtmosphere()
	full := BMoon(60.0, 1.0, 90.0, atmo)
	quarter := BMoon(60.0, 0.5, 90.0, atmo)
	if full <= quarter {
		t.Errorf("BMoon at full phase (%v) should exceed quarter phase (%v)", full, quarter)
	}

	high := BMoon(80.0, 1.0, 90.0, atmo)
	low := BMoon(10.0, 1.0, 90.0, atmo)
	if high <= low {
		t.Errorf("BMoon high in the sky (%v) should exceed low near the horizon (%v)", high, low)
	}
}

func TestBNight_Positive(t *testing.T) {
	if b := BNight(2451545.0); b <= 0 {
		t.Errorf("BNight = %v, want positive", b)
	}
}

func TestBCity_AlwaysZero(t *testing.T) {
	if b := BCity(); b != 0 {
		t.Errorf("BCity = %v, want 0", b)
	}
}

func TestVisLimMag_DarkerSkyIsFainterLimit(t *testing.T) {
	// A darker sky (lower B_sky) should let the eye see fainter stars, so
	// the limiting magnitude should be numerically larger.
	f1, f2 := OpticalFactor(DefaultObserver())
	darkLimit := VisLimMag(100.0, f1, f2)
	brightLimit := VisLimMag(10000.0, f1, f2)
	if darkLimit <= brightLimit {
		t.Errorf("dark-sky limit (%v) should exceed bright-sky limit (%v)", darkLimit, brightLimit)
	}
}

func TestVisLimMag_RegimeSwitchIsContinuousish(t *testing.T) {
	// The photopic/scotopic constants switch at 1645 nL; verify the
	// formula doesn't produce a wild discontinuity right at the boundary.
	f1, f2 := OpticalFactor(DefaultObserver())
	below := VisLimMag(1644.0, f1, f2)
	above := VisLimMag(1646.0, f1, f2)
	if math.Abs(below-above) > 2.0 {
		t.Errorf("VisLimMag jumps from %v to %v across the 1645 nL threshold, too large a discontinuity", below, above)
	}
}

func TestPupilDia_ShrinksWithAge(t *testing.T) {
	young := PupilDia(20)
	old := PupilDia(80)
	if young <= old {
		t.Errorf("PupilDia(20)=%v should exceed PupilDia(80)=%v", young, old)
	}
}

func TestOpticalFactor_BinocularGainsOverNakedEye(t *testing.T) {
	// f2 is an inverse threshold: smaller means a fainter (better) limit.
	obs := DefaultObserver()
	_, f2Naked := OpticalFactor(obs)
	obs.Binocular = true
	_, f2Bino := OpticalFactor(obs)
	if f2Bino >= f2Naked {
		t.Errorf("binocular f2 (%v) should be smaller than naked-eye f2 (%v)", f2Bino, f2Naked)
	}
}

func TestOpticalFactor_TelescopeGainsOverNakedEye(t *testing.T) {
	obs := DefaultObserver()
	_, f2Naked := OpticalFactor(obs)
	obs.Magnification = 50
	obs.ApertureMM = 200
	obs.Transmission = 0.9
	f1Scope, f2Scope := OpticalFactor(obs)
	if f2Scope >= f2Naked {
		t.Errorf("200mm scope f2 (%v) should be smaller than naked-eye f2 (%v)", f2Scope, f2Naked)
	}
	_, f1Naked := OpticalFactor(DefaultObserver())
	if f1Scope >= f1Naked {
		t.Errorf("200mm scope f1 (%v) should be smaller than naked-eye f1 (%v)", f1Scope, f1Naked)
	}
}

func TestFindEvent_VenusMorningApparition(t *testing.T) {
	// Venus has roughly annual apparitions as a morning or evening "star";
	// scanning a year from an arbitrary start should usually find one
	// first/last-visibility transition in either direction.
	target := Target{NAIFBody: spk.Venus}
	startJD := 2451545.0
	endJD := startJD + 365.25

	event, err := FindEvent(testEph, target, MorningFirst, 0.0, 0.0, startJD, endJD, DefaultAtmosphere(), DefaultObserver())
	require.NoError(t, err)

	t.Logf("Venus morning-first: found=%v start=%.4f best=%.4f end=%.4f regime=%v",
		event.Found, event.StartVisible, event.BestVisible, event.EndVisible, event.Regime)

	if event.Found {
		require.LessOrEqual(t, event.StartVisible, event.BestVisible, "StartVisible must not follow BestVisible")
		require.LessOrEqual(t, event.BestVisible, event.EndVisible, "BestVisible must not follow EndVisible")
		require.GreaterOrEqual(t, event.StartVisible, startJD-30, "event window starts unreasonably far before the search range")
		require.LessOrEqual(t, event.EndVisible, endJD+30, "event window ends unreasonably far after the search range")
	}
}

func TestFindEvent_Star(t *testing.T) {
	// Sirius: RA 6h45m09s, Dec -16°42'58", mag -1.46.
	target := Target{
		IsStar:        true,
		StarName:      "Sirius",
		StarRAHours:   6.7525,
		StarDecDeg:    -16.7161,
		StarMagnitude: -1.46,
	}
	startJD := 2451545.0
	endJD := startJD + 365.25

	event, err := FindEvent(testEph, target, MorningFirst, 30.0, 0.0, startJD, endJD, DefaultAtmosphere(), DefaultObserver())
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("Sirius morning-first: found=%v regime=%v", event.Found, event.Regime)
}

func TestFindEvent_NoneFoundOutsideRange(t *testing.T) {
	// A one-day window is too short to bracket any yearly apparition.
	target := Target{NAIFBody: spk.MarsBarycenter}
	event, err := FindEvent(testEph, target, MorningFirst, 0.0, 0.0, 2451545.0, 2451546.0, DefaultAtmosphere(), DefaultObserver())
	if err != nil {
		t.Fatal(err)
	}
	if event.Found {
		t.Logf("unexpectedly found an event in a 1-day window: %+v", event)
	}
}
