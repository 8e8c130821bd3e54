package interpretation

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func bloodIn(m BloodMetrics, sex Sex) Input {
	return Input{Blood: &m, Patient: PatientRef{Sex: sex, Age: 45}}
}

func urineIn(m UrineMetrics) Input {
	return Input{Urine: &m, Patient: PatientRef{Sex: SexFemale, Age: 45}}
}

func TestGlucoseEvaluator_Bands(t *testing.T) {
	tests := []struct {
		glucose  float64
		severity int
		risk     RiskLevel
		desc     string
	}{
		{55, 3, RiskHigh, "Blood glucose is low at 55 mg/dL"},
		{69.9, 3, RiskHigh, "Blood glucose is low at 69.9 mg/dL"},
		{70, 0, "", "Blood glucose is normal at 70 mg/dL"},
		{100, 0, "", "Blood glucose is normal at 100 mg/dL"},
		{100.5, 1, RiskModerate, "Blood glucose is elevated at 100.5 mg/dL (prediabetic range)"},
		{125, 1, RiskModerate, "Blood glucose is elevated at 125 mg/dL (prediabetic range)"},
		{126, 2, RiskHigh, "Blood glucose is high at 126 mg/dL (diabetic range)"},
	}
	for _, tt := range tests {
		frag, ok := GlucoseEvaluator.Evaluate(bloodIn(BloodMetrics{Glucose: f64(tt.glucose)}, SexMale))
		if !ok {
			t.Fatalf("glucose %v: expected evaluation", tt.glucose)
		}
		if frag.Severity != tt.severity {
			t.Errorf("glucose %v: expected severity %d, got %d", tt.glucose, tt.severity, frag.Severity)
		}
		if frag.Description != tt.desc {
			t.Errorf("glucose %v: expected %q, got %q", tt.glucose, tt.desc, frag.Description)
		}
		if tt.risk == "" && len(frag.Risks) != 0 {
			t.Errorf("glucose %v: expected no risks, got %v", tt.glucose, frag.Risks)
		}
		if tt.risk != "" && (len(frag.Risks) != 1 || frag.Risks[0].Level != tt.risk) {
			t.Errorf("glucose %v: expected one %s risk, got %v", tt.glucose, tt.risk, frag.Risks)
		}
	}
}

func TestGlucoseEvaluator_HypoglycemiaFragment(t *testing.T) {
	frag, _ := GlucoseEvaluator.Evaluate(bloodIn(BloodMetrics{Glucose: f64(60)}, SexFemale))
	want := Fragment{
		Description: "Blood glucose is low at 60 mg/dL",
		Risks:       []RiskEntry{{Level: RiskHigh, Description: "Hypoglycemia detected"}},
		Advisories: []string{
			"Consume 15-20g of fast-acting carbohydrates immediately",
			"Retest in 15 minutes and seek medical attention if symptoms persist",
		},
		Severity: 3,
	}
	if diff := cmp.Diff(want, frag); diff != "" {
		t.Errorf("fragment mismatch (-want +got):\n%s", diff)
	}
}

func TestGlucoseEvaluator_Absent(t *testing.T) {
	if _, ok := GlucoseEvaluator.Evaluate(bloodIn(BloodMetrics{}, SexMale)); ok {
		t.Error("expected skip when glucose is absent")
	}
	if _, ok := GlucoseEvaluator.Evaluate(Input{}); ok {
		t.Error("expected skip without a blood panel")
	}
}

func TestGlucoseEvaluator_ZeroIsAReading(t *testing.T) {
	frag, ok := GlucoseEvaluator.Evaluate(bloodIn(BloodMetrics{Glucose: f64(0)}, SexMale))
	if !ok {
		t.Fatal("expected a zero reading to be evaluated")
	}
	if frag.Severity != 3 {
		t.Errorf("expected severity 3, got %d", frag.Severity)
	}
}

func TestHbA1cEvaluator_Bands(t *testing.T) {
	tests := []struct {
		hba1c    float64
		severity int
		desc     string
	}{
		{5.6, 0, "HbA1c is normal at 5.6%"},
		{5.7, 1, "HbA1c indicates prediabetes at 5.7%"},
		{6.4, 1, "HbA1c indicates prediabetes at 6.4%"},
		{6.45, 1, "HbA1c indicates prediabetes at 6.45%"},
		{6.5, 2, "HbA1c indicates diabetes at 6.5%"},
		{9.1, 2, "HbA1c indicates diabetes at 9.1%"},
	}
	for _, tt := range tests {
		frag, ok := HbA1cEvaluator.Evaluate(bloodIn(BloodMetrics{HbA1c: f64(tt.hba1c)}, SexMale))
		if !ok {
			t.Fatalf("hba1c %v: expected evaluation", tt.hba1c)
		}
		if frag.Severity != tt.severity {
			t.Errorf("hba1c %v: expected severity %d, got %d", tt.hba1c, tt.severity, frag.Severity)
		}
		if frag.Description != tt.desc {
			t.Errorf("hba1c %v: expected %q, got %q", tt.hba1c, tt.desc, frag.Description)
		}
	}
}

func TestCountEvaluators_Bands(t *testing.T) {
	tests := []struct {
		name     string
		ev       Evaluator
		in       Input
		severity int
		desc     string
	}{
		{"wbc low", WBCEvaluator, bloodIn(BloodMetrics{WBCCount: f64(4.4)}, SexMale), 1, "WBC count is low at 4.4 x10³/μL (leukopenia)"},
		{"wbc floor", WBCEvaluator, bloodIn(BloodMetrics{WBCCount: f64(4.5)}, SexMale), 0, "WBC count is normal at 4.5 x10³/μL"},
		{"wbc ceiling", WBCEvaluator, bloodIn(BloodMetrics{WBCCount: f64(11)}, SexMale), 0, "WBC count is normal at 11 x10³/μL"},
		{"wbc high", WBCEvaluator, bloodIn(BloodMetrics{WBCCount: f64(11.2)}, SexMale), 1, "WBC count is elevated at 11.2 x10³/μL (leukocytosis)"},
		{"platelets low", PlateletEvaluator, bloodIn(BloodMetrics{PlateletCount: f64(149)}, SexMale), 1, "Platelet count is low at 149 x10³/μL (thrombocytopenia)"},
		{"platelets floor", PlateletEvaluator, bloodIn(BloodMetrics{PlateletCount: f64(150)}, SexMale), 0, "Platelet count is normal at 150 x10³/μL"},
		{"platelets ceiling", PlateletEvaluator, bloodIn(BloodMetrics{PlateletCount: f64(400)}, SexMale), 0, "Platelet count is normal at 400 x10³/μL"},
		{"platelets high", PlateletEvaluator, bloodIn(BloodMetrics{PlateletCount: f64(401)}, SexMale), 1, "Platelet count is elevated at 401 x10³/μL (thrombocytosis)"},
		{"ph acidic", UrinePHEvaluator, urineIn(UrineMetrics{PH: f64(4.4)}), 1, "Urine pH is very acidic at 4.4"},
		{"ph floor", UrinePHEvaluator, urineIn(UrineMetrics{PH: f64(4.5)}), 0, "Urine pH is normal at 4.5"},
		{"ph ceiling", UrinePHEvaluator, urineIn(UrineMetrics{PH: f64(8)}), 0, "Urine pH is normal at 8"},
		{"ph alkaline", UrinePHEvaluator, urineIn(UrineMetrics{PH: f64(8.5)}), 1, "Urine pH is very alkaline at 8.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frag, ok := tt.ev.Evaluate(tt.in)
			if !ok {
				t.Fatal("expected evaluation")
			}
			if frag.Severity != tt.severity {
				t.Errorf("expected severity %d, got %d", tt.severity, frag.Severity)
			}
			if frag.Description != tt.desc {
				t.Errorf("expected %q, got %q", tt.desc, frag.Description)
			}
		})
	}
}

func TestGradeEvaluators(t *testing.T) {
	tests := []struct {
		name     string
		ev       Evaluator
		m        UrineMetrics
		severity int
		risk     RiskLevel
		desc     string
	}{
		{"protein negative", ProteinEvaluator, UrineMetrics{ProteinLevel: "negative"}, 0, "", "No protein detected in urine"},
		{"protein trace", ProteinEvaluator, UrineMetrics{ProteinLevel: "trace"}, 0, "", "Trace amounts of protein detected"},
		{"protein 2+", ProteinEvaluator, UrineMetrics{ProteinLevel: "2+"}, 1, RiskModerate, "Moderate protein levels detected (2+)"},
		{"protein 3+", ProteinEvaluator, UrineMetrics{ProteinLevel: "3+"}, 2, RiskHigh, "High protein levels detected (3+)"},
		{"protein case", ProteinEvaluator, UrineMetrics{ProteinLevel: "Negative"}, 0, "", "No protein detected in urine"},
		{"glucose negative", UrineGlucoseEvaluator, UrineMetrics{Glucose: "negative"}, 0, "", "No glucose detected in urine"},
		{"glucose trace", UrineGlucoseEvaluator, UrineMetrics{Glucose: "trace"}, 2, RiskHigh, "Glucose detected in urine (trace)"},
		{"glucose 4+", UrineGlucoseEvaluator, UrineMetrics{Glucose: "4+"}, 2, RiskHigh, "Glucose detected in urine (4+)"},
		{"ketones negative", KetoneEvaluator, UrineMetrics{Ketones: "negative"}, 0, "", "No ketones detected"},
		{"ketones small", KetoneEvaluator, UrineMetrics{Ketones: "small"}, 0, "", "Small amounts of ketones detected (small)"},
		{"ketones large", KetoneEvaluator, UrineMetrics{Ketones: "large"}, 2, RiskHigh, "Significant ketones detected (large)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frag, ok := tt.ev.Evaluate(urineIn(tt.m))
			if !ok {
				t.Fatal("expected evaluation")
			}
			if frag.Severity != tt.severity {
				t.Errorf("expected severity %d, got %d", tt.severity, frag.Severity)
			}
			if frag.Description != tt.desc {
				t.Errorf("expected %q, got %q", tt.desc, frag.Description)
			}
			if tt.risk == "" && len(frag.Risks) != 0 {
				t.Errorf("expected no risk, got %v", frag.Risks)
			}
			if tt.risk != "" && (len(frag.Risks) != 1 || frag.Risks[0].Level != tt.risk) {
				t.Errorf("expected %s risk, got %v", tt.risk, frag.Risks)
			}
			if len(frag.Advisories) == 0 {
				t.Error("expected at least one advisory")
			}
		})
	}
}

func TestGradeEvaluators_Absent(t *testing.T) {
	for _, ev := range []Evaluator{ProteinEvaluator, UrineGlucoseEvaluator, KetoneEvaluator} {
		if _, ok := ev.Evaluate(urineIn(UrineMetrics{})); ok {
			t.Errorf("%s: expected skip when grade is absent", ev.Name())
		}
	}
}

func TestAnemiaEvaluator(t *testing.T) {
	t.Run("single low marker", func(t *testing.T) {
		frag, ok := AnemiaEvaluator.Evaluate(bloodIn(BloodMetrics{
			Hemoglobin: f64(12.0), Hematocrit: f64(40), RBCCount: f64(5.0),
		}, SexMale))
		if !ok {
			t.Fatal("expected evaluation")
		}
		want := Fragment{
			Description: "Anemia indicators detected: low hemoglobin (12 g/dL)",
			Risks:       []RiskEntry{{Level: RiskModerate, Description: "Possible anemia"}},
			Advisories: []string{
				"Iron studies and complete blood count evaluation recommended",
				"Consult healthcare provider for proper diagnosis and treatment",
			},
			Severity: 1,
		}
		if diff := cmp.Diff(want, frag); diff != "" {
			t.Errorf("fragment mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("all low markers merge into one fragment", func(t *testing.T) {
		frag, _ := AnemiaEvaluator.Evaluate(bloodIn(BloodMetrics{
			Hemoglobin: f64(10.5), Hematocrit: f64(30), RBCCount: f64(3.5),
		}, SexFemale))
		want := "Anemia indicators detected: low hemoglobin (10.5 g/dL), low hematocrit (30%), low RBC count (3.5 x10⁶/μL)"
		if frag.Description != want {
			t.Errorf("expected %q, got %q", want, frag.Description)
		}
		if len(frag.Risks) != 1 || frag.Severity != 1 {
			t.Errorf("expected one risk with severity 1, got %v / %d", frag.Risks, frag.Severity)
		}
	})

	t.Run("female thresholds", func(t *testing.T) {
		frag, _ := AnemiaEvaluator.Evaluate(bloodIn(BloodMetrics{Hemoglobin: f64(12.5)}, SexFemale))
		if frag.Severity != 0 {
			t.Errorf("12.5 g/dL is normal for a female patient, got severity %d", frag.Severity)
		}
		if frag.Description != "Hemoglobin level is normal at 12.5 g/dL" {
			t.Errorf("unexpected description %q", frag.Description)
		}
	})

	t.Run("normal description from supplied marker", func(t *testing.T) {
		frag, _ := AnemiaEvaluator.Evaluate(bloodIn(BloodMetrics{Hematocrit: f64(42)}, SexMale))
		if frag.Description != "Hematocrit is normal at 42%" {
			t.Errorf("unexpected description %q", frag.Description)
		}
	})

	t.Run("unknown sex never triggers", func(t *testing.T) {
		frag, ok := AnemiaEvaluator.Evaluate(bloodIn(BloodMetrics{Hemoglobin: f64(8)}, SexOther))
		if !ok {
			t.Fatal("expected evaluation")
		}
		if frag.Severity != 0 || len(frag.Risks) != 0 {
			t.Errorf("expected neutral fragment, got %+v", frag)
		}
	})

	t.Run("absent", func(t *testing.T) {
		if _, ok := AnemiaEvaluator.Evaluate(bloodIn(BloodMetrics{Glucose: f64(90)}, SexMale)); ok {
			t.Error("expected skip without red cell markers")
		}
	})
}

func TestKidneyEvaluator(t *testing.T) {
	tests := []struct {
		name      string
		egfr      float64
		proteinMg *float64
		severity  int
		risk      string
		desc      string
	}{
		{"stage 5", 7.84, nil, 3, "Kidney failure detected", "eGFR at 7.84 mL/min/1.73m² indicates kidney failure (Stage 5 CKD)"},
		{"stage 4", 26.96, nil, 2, "Severe kidney disease", "eGFR at 26.96 mL/min/1.73m² indicates severe reduction in kidney function (Stage 4 CKD)"},
		{"stage 3", 51.35, nil, 1, "Chronic kidney disease detected", "eGFR at 51.35 mL/min/1.73m² indicates moderate reduction in kidney function (Stage 3 CKD)"},
		{"mild", 73.67, nil, 0, "", "eGFR at 73.67 mL/min/1.73m² indicates mild reduction in kidney function"},
		{"mild low protein", 73.67, f64(29.9), 0, "", "eGFR at 73.67 mL/min/1.73m² indicates mild reduction in kidney function"},
		{"mild with proteinuria", 73.67, f64(30), 1, "Mild kidney disease with proteinuria", "eGFR at 73.67 mL/min/1.73m² indicates mild reduction in kidney function"},
		{"normal", 91.69, f64(500), 0, "", "eGFR at 91.69 mL/min/1.73m² indicates normal kidney function"},
		{"boundary 60", 60, f64(30), 1, "Mild kidney disease with proteinuria", "eGFR at 60.00 mL/min/1.73m² indicates mild reduction in kidney function"},
		{"boundary 90", 90, nil, 0, "", "eGFR at 90.00 mL/min/1.73m² indicates normal kidney function"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := urineIn(UrineMetrics{ProteinMg: tt.proteinMg})
			in.EGFR = EGFR{Value: tt.egfr, Determined: true}
			frag, ok := KidneyEvaluator.Evaluate(in)
			if !ok {
				t.Fatal("expected evaluation")
			}
			if frag.Severity != tt.severity {
				t.Errorf("expected severity %d, got %d", tt.severity, frag.Severity)
			}
			if frag.Description != tt.desc {
				t.Errorf("expected %q, got %q", tt.desc, frag.Description)
			}
			if tt.risk == "" && len(frag.Risks) != 0 {
				t.Errorf("expected no risk, got %v", frag.Risks)
			}
			if tt.risk != "" && (len(frag.Risks) != 1 || frag.Risks[0].Description != tt.risk) {
				t.Errorf("expected risk %q, got %v", tt.risk, frag.Risks)
			}
		})
	}
}

func TestKidneyEvaluator_UndeterminedSkips(t *testing.T) {
	in := urineIn(UrineMetrics{ProteinMg: f64(400)})
	if _, ok := KidneyEvaluator.Evaluate(in); ok {
		t.Error("expected skip when eGFR is undetermined")
	}
}

func TestInfectionEvaluator(t *testing.T) {
	tests := []struct {
		name       string
		nitrite    Ordinal
		leukocytes Ordinal
		severity   int
		desc       string
	}{
		{"both", "positive", "2+", 2, "Both nitrite and leukocytes positive - UTI likely"},
		{"nitrite only", "positive", "", 1, "Possible urinary tract infection indicators present"},
		{"leukocytes only", "negative", "1+", 1, "Possible urinary tract infection indicators present"},
		{"trace leukocytes do not count", "negative", "trace", 0, "No infection markers detected"},
		{"neither", "negative", "negative", 0, "No infection markers detected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frag, ok := InfectionEvaluator.Evaluate(urineIn(UrineMetrics{Nitrite: tt.nitrite, Leukocytes: tt.leukocytes}))
			if !ok {
				t.Fatal("expected evaluation")
			}
			if frag.Severity != tt.severity {
				t.Errorf("expected severity %d, got %d", tt.severity, frag.Severity)
			}
			if frag.Description != tt.desc {
				t.Errorf("expected %q, got %q", tt.desc, frag.Description)
			}
		})
	}
	if _, ok := InfectionEvaluator.Evaluate(urineIn(UrineMetrics{PH: f64(6)})); ok {
		t.Error("expected skip when neither marker was measured")
	}
}

func TestBands_Lookup(t *testing.T) {
	b := Bands{
		{Upper: 10, Outcome: Outcome{Summary: "low"}},
		{Upper: 20, Inclusive: true, Outcome: Outcome{Summary: "mid"}},
	}
	tests := []struct {
		v    float64
		want string
		ok   bool
	}{
		{9.99, "low", true},
		{10, "mid", true},
		{20, "mid", true},
		{20.01, "", false},
	}
	for _, tt := range tests {
		got, ok := b.Lookup(tt.v)
		if ok != tt.ok || got.Summary != tt.want {
			t.Errorf("Lookup(%v) = %q/%v, want %q/%v", tt.v, got.Summary, ok, tt.want, tt.ok)
		}
	}
}

func TestOutcome_FragmentDoesNotAliasTable(t *testing.T) {
	frag, _ := GlucoseEvaluator.Evaluate(bloodIn(BloodMetrics{Glucose: f64(90)}, SexMale))
	frag.Advisories[0] = "changed"
	again, _ := GlucoseEvaluator.Evaluate(bloodIn(BloodMetrics{Glucose: f64(90)}, SexMale))
	if again.Advisories[0] != "Maintain healthy diet and regular exercise" {
		t.Errorf("table advisory mutated: %q", again.Advisories[0])
	}
}
