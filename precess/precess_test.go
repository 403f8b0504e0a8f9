package precess

import (
	"math"
	"testing"
)

func TestNewSelectorDefaults(t *testing.T) {
	s := NewSelector()
	if s.Model != ModelIAU2006 {
		t.Errorf("default Model = %v, want ModelIAU2006", s.Model)
	}
	if s.Nutation != NutationStandard {
		t.Errorf("default Nutation = %v, want NutationStandard", s.Nutation)
	}
}

func TestActiveModelSwitchesFarFromJ2000(t *testing.T) {
	s := NewSelector()
	near := j2000JD + 365.25*100 // ~1 century out
	if got := s.ActiveModel(near); got != ModelIAU2006 {
		t.Errorf("ActiveModel near J2000 = %v, want ModelIAU2006", got)
	}
	far := j2000JD + 365.25*100*5000 // ~5000 centuries out
	if got := s.ActiveModel(far); got != ModelVondrak {
		t.Errorf("ActiveModel far from J2000 = %v, want ModelVondrak", got)
	}
}

func TestForceModelPinsChoice(t *testing.T) {
	s := &Selector{Model: ModelIAU2006, ForceModel: true}
	far := j2000JD + 365.25*100*5000
	if got := s.ActiveModel(far); got != ModelIAU2006 {
		t.Errorf("ForceModel did not pin choice, got %v", got)
	}
}

func TestPrecessionMatrixIdentityAtJ2000(t *testing.T) {
	s := NewSelector()
	P := s.PrecessionMatrix(j2000JD)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(P[i][j]-want) > 1e-9 {
				t.Errorf("P[%d][%d] at J2000 = %v, want %v", i, j, P[i][j], want)
			}
		}
	}
}

func TestPrecessionMatrixIsOrthogonal(t *testing.T) {
	s := NewSelector()
	P := s.PrecessionMatrix(j2000JD + 36525.0*10) // T=10 centuries
	// P * P^T should be the identity for a proper rotation matrix.
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += P[i][k] * P[j][k]
			}
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(sum-want) > 1e-8 {
				t.Errorf("P*P^T[%d][%d] = %v, want %v", i, j, sum, want)
			}
		}
	}
}

func TestVondrakPrecessionMatrixBounded(t *testing.T) {
	// Far from J2000 the Vondrak path must stay a valid rotation (bounded,
	// orthogonal), unlike the IAU 2006 polynomial which diverges there.
	T := 3000.0 // 300,000 years
	P := vondrakPrecessionMatrix(T)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.IsNaN(P[i][j]) || math.IsInf(P[i][j], 0) {
				t.Fatalf("vondrakPrecessionMatrix produced non-finite entry at [%d][%d]", i, j)
			}
		}
	}
}

func TestPrecessionMatrixOrthogonalAcrossModels(t *testing.T) {
	models := []Model{
		ModelIAU2006, ModelIAU1976, ModelIAU2000, ModelBretagnon2003,
		ModelNewcomb, ModelLaskar1986, ModelSimon1994, ModelWilliams1994,
		ModelVondrak, ModelOwen1990,
	}
	s := &Selector{ForceModel: true}
	for _, m := range models {
		s.Model = m
		P := s.PrecessionMatrix(j2000JD + 36525.0*5) // T=5 centuries
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				var sum float64
				for k := 0; k < 3; k++ {
					sum += P[i][k] * P[j][k]
				}
				want := 0.0
				if i == j {
					want = 1.0
				}
				if math.Abs(sum-want) > 1e-8 {
					t.Errorf("model %v: P*P^T[%d][%d] = %v, want %v", m, i, j, sum, want)
				}
			}
		}
	}
}

func TestPrecessionMatrixIdentityAtJ2000AllModels(t *testing.T) {
	models := []Model{
		ModelIAU1976, ModelNewcomb, ModelLaskar1986, ModelVondrak, ModelOwen1990,
	}
	s := &Selector{ForceModel: true}
	for _, m := range models {
		s.Model = m
		P := s.PrecessionMatrix(j2000JD)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				want := 0.0
				if i == j {
					want = 1.0
				}
				if math.Abs(P[i][j]-want) > 1e-6 {
					t.Errorf("model %v: P[%d][%d] at J2000 = %v, want %v", m, i, j, P[i][j], want)
				}
			}
		}
	}
}

func TestNutationAnglesWithFormulaDispatch(t *testing.T) {
	s := &Selector{NutationFormula: FormulaIAU1980}
	calledStandard, calledFull := false, false
	standard := func(float64) (float64, float64) { calledStandard = true; return 1, 2 }
	full := func(float64) (float64, float64) { calledFull = true; return 3, 4 }

	dpsi, deps := s.NutationAnglesWithFormula(0, standard, full)
	if !calledStandard || calledFull {
		t.Error("expected FormulaIAU1980 to dispatch to standard")
	}
	if dpsi != 1 || deps != 2 {
		t.Errorf("got (%v,%v), want (1,2)", dpsi, deps)
	}

	s.NutationFormula = FormulaIAU2000A
	calledStandard, calledFull = false, false
	dpsi, deps = s.NutationAnglesWithFormula(0, standard, full)
	if calledStandard || !calledFull {
		t.Error("expected FormulaIAU2000A to dispatch to full")
	}
	if dpsi != 3 || deps != 4 {
		t.Errorf("got (%v,%v), want (3,4)", dpsi, deps)
	}

	s.NutationFormula = FormulaIAU2000B
	calledStandard, calledFull = false, false
	s.NutationAnglesWithFormula(0, standard, full)
	if !calledStandard || calledFull {
		t.Error("expected FormulaIAU2000B to fall back to standard")
	}
}

func TestWoolardNutationAnglesBounded(t *testing.T) {
	dpsi, deps := woolardNutationAngles(0)
	maxDpsi := 18.0 * arcsec2rad
	maxDeps := 10.0 * arcsec2rad
	if math.Abs(dpsi) > maxDpsi || math.Abs(deps) > maxDeps {
		t.Errorf("woolardNutationAngles(0) = (%v,%v) rad, exceeds expected single-term amplitude", dpsi, deps)
	}

	dpsi2, _ := woolardNutationAngles(1.0) // one century later
	if dpsi == dpsi2 {
		t.Error("woolardNutationAngles did not vary with T")
	}
}

func TestNutationAnglesDispatch(t *testing.T) {
	s := &Selector{Nutation: NutationStandard}
	calledStandard, calledFull := false, false
	standard := func(float64) (float64, float64) { calledStandard = true; return 1, 2 }
	full := func(float64) (float64, float64) { calledFull = true; return 3, 4 }

	dpsi, deps := s.NutationAngles(0, standard, full)
	if !calledStandard || calledFull {
		t.Error("expected standard dispatch")
	}
	if dpsi != 1 || deps != 2 {
		t.Errorf("got (%v,%v), want (1,2)", dpsi, deps)
	}

	s.Nutation = NutationFull
	calledStandard, calledFull = false, false
	dpsi, deps = s.NutationAngles(0, standard, full)
	if calledStandard || !calledFull {
		t.Error("expected full dispatch")
	}
	if dpsi != 3 || deps != 4 {
		t.Errorf("got (%v,%v), want (3,4)", dpsi, deps)
	}
}
