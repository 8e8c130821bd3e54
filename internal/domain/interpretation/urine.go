package interpretation

import "strconv"

var urinePHBands = Bands{
	{Upper: 4.5, Outcome: Outcome{
		Summary:    "Urine pH is very acidic at %s",
		Risk:       risk(RiskModerate, "Very acidic urine"),
		Advisories: []string{"Consider dietary modifications to reduce acidity"},
		Severity:   1,
	}},
	{Upper: 8.0, Inclusive: true, Outcome: Outcome{
		Summary:    "Urine pH is normal at %s",
		Advisories: []string{"pH level is within normal range"},
	}},
	{Upper: inf, Outcome: Outcome{
		Summary:    "Urine pH is very alkaline at %s",
		Risk:       risk(RiskModerate, "Very alkaline urine"),
		Advisories: []string{"May indicate urinary tract infection or kidney issues"},
		Severity:   1,
	}},
}

var proteinGrades = GradeBands{
	{Grades: []Ordinal{OrdinalNegative}, Outcome: Outcome{
		Summary:    "No protein detected in urine",
		Advisories: []string{"Normal finding - no proteinuria"},
	}},
	{Grades: []Ordinal{OrdinalTrace}, Outcome: Outcome{
		Summary:    "Trace amounts of protein detected",
		Advisories: []string{"May be due to exercise or minor inflammation"},
	}},
	{Grades: []Ordinal{Ordinal1Plus, Ordinal2Plus}, Outcome: Outcome{
		Summary:    "Moderate protein levels detected (%s)",
		Risk:       risk(RiskModerate, "Moderate proteinuria"),
		Advisories: []string{"Follow-up testing recommended to rule out kidney disease"},
		Severity:   1,
	}},
	{Grades: []Ordinal{Ordinal3Plus, Ordinal4Plus}, Outcome: Outcome{
		Summary:    "High protein levels detected (%s)",
		Risk:       risk(RiskHigh, "Significant proteinuria"),
		Advisories: []string{"Immediate medical evaluation for kidney function recommended"},
		Severity:   2,
	}},
}

var urineGlucoseGrades = GradeBands{
	{Grades: []Ordinal{OrdinalNegative}, Outcome: Outcome{
		Summary:    "No glucose detected in urine",
		Advisories: []string{"Normal finding"},
	}},
	{Grades: []Ordinal{OrdinalTrace, Ordinal1Plus, Ordinal2Plus, Ordinal3Plus, Ordinal4Plus}, Outcome: Outcome{
		Summary:    "Glucose detected in urine (%s)",
		Risk:       risk(RiskHigh, "Glucosuria detected"),
		Advisories: []string{"May indicate diabetes - blood glucose testing recommended"},
		Severity:   2,
	}},
}

var ketoneGrades = GradeBands{
	{Grades: []Ordinal{OrdinalNegative}, Outcome: Outcome{
		Summary:    "No ketones detected",
		Advisories: []string{"Normal finding"},
	}},
	{Grades: []Ordinal{OrdinalTrace, OrdinalSmall}, Outcome: Outcome{
		Summary:    "Small amounts of ketones detected (%s)",
		Advisories: []string{"May indicate fasting, low-carb diet, or early diabetic ketoacidosis"},
	}},
	{Grades: []Ordinal{OrdinalModerate, OrdinalLarge}, Outcome: Outcome{
		Summary:    "Significant ketones detected (%s)",
		Risk:       risk(RiskHigh, "Significant ketonuria"),
		Advisories: []string{"May indicate diabetic ketoacidosis - immediate medical attention recommended"},
		Severity:   2,
	}},
}

// kidneyBands stage kidney function by eGFR.
var kidneyBands = Bands{
	{Upper: 15, Outcome: Outcome{
		Summary: "eGFR at %s mL/min/1.73m² indicates kidney failure (Stage 5 CKD)",
		Risk:    risk(RiskHigh, "Kidney failure detected"),
		Advisories: []string{
			"Immediate nephrology consultation required",
			"Dialysis or kidney transplant may be necessary",
		},
		Severity: 3,
	}},
	{Upper: 30, Outcome: Outcome{
		Summary: "eGFR at %s mL/min/1.73m² indicates severe reduction in kidney function (Stage 4 CKD)",
		Risk:    risk(RiskHigh, "Severe kidney disease"),
		Advisories: []string{
			"Urgent nephrology referral recommended",
			"Prepare for possible renal replacement therapy",
		},
		Severity: 2,
	}},
	{Upper: 60, Outcome: Outcome{
		Summary: "eGFR at %s mL/min/1.73m² indicates moderate reduction in kidney function (Stage 3 CKD)",
		Risk:    risk(RiskModerate, "Chronic kidney disease detected"),
		Advisories: []string{
			"Medical consultation recommended for CKD management",
			"Monitor kidney function regularly and control underlying conditions",
		},
		Severity: 1,
	}},
	{Upper: 90, Outcome: Outcome{
		Summary:    "eGFR at %s mL/min/1.73m² indicates mild reduction in kidney function",
		Advisories: []string{"Kidney function is mildly reduced but generally acceptable"},
	}},
	{Upper: inf, Outcome: Outcome{
		Summary:    "eGFR at %s mL/min/1.73m² indicates normal kidney function",
		Advisories: []string{"Kidney function is within normal range"},
	}},
}

// mildWithProteinuria replaces the mild band when protein is at least
// proteinuriaMg.
var mildWithProteinuria = Outcome{
	Summary:    "eGFR at %s mL/min/1.73m² indicates mild reduction in kidney function",
	Risk:       risk(RiskModerate, "Mild kidney disease with proteinuria"),
	Advisories: []string{"Follow-up recommended to monitor kidney function"},
	Severity:   1,
}

const (
	mildKidneyFloor = 60.0
	mildKidneyCeil  = 90.0
	proteinuriaMg   = 30.0
)

var (
	UrinePHEvaluator Evaluator = numericEvaluator{
		name:    "urine_ph",
		reading: urineReading(func(m *UrineMetrics) *float64 { return m.PH }),
		bands:   urinePHBands,
	}
	ProteinEvaluator Evaluator = gradeEvaluator{
		name:    "protein",
		reading: urineGrade(func(m *UrineMetrics) Ordinal { return m.ProteinLevel }),
		bands:   proteinGrades,
	}
	UrineGlucoseEvaluator Evaluator = gradeEvaluator{
		name:    "urine_glucose",
		reading: urineGrade(func(m *UrineMetrics) Ordinal { return m.Glucose }),
		bands:   urineGlucoseGrades,
	}
	KetoneEvaluator Evaluator = gradeEvaluator{
		name:    "ketones",
		reading: urineGrade(func(m *UrineMetrics) Ordinal { return m.Ketones }),
		bands:   ketoneGrades,
	}
	KidneyEvaluator    Evaluator = kidneyEvaluator{}
	InfectionEvaluator Evaluator = infectionEvaluator{}
)

type kidneyEvaluator struct{}

func (kidneyEvaluator) Name() string { return "kidney_function" }

// Evaluate stages the derived eGFR. An undetermined eGFR is skipped.
func (kidneyEvaluator) Evaluate(in Input) (Fragment, bool) {
	if !in.EGFR.Determined {
		return Fragment{}, false
	}
	v := in.EGFR.Value
	reading := strconv.FormatFloat(v, 'f', 2, 64)

	if v >= mildKidneyFloor && v < mildKidneyCeil && in.Urine != nil &&
		in.Urine.ProteinMg != nil && *in.Urine.ProteinMg >= proteinuriaMg {
		return mildWithProteinuria.fragment(reading), true
	}
	band, ok := kidneyBands.Lookup(v)
	if !ok {
		return Fragment{}, false
	}
	return band.fragment(reading), true
}

// hasNitrite and hasLeukocytes are the two urinary infection markers.
func hasNitrite(m *UrineMetrics) bool {
	return m != nil && m.Nitrite.normalized() == OrdinalPositive
}

func hasLeukocytes(m *UrineMetrics) bool {
	if m == nil {
		return false
	}
	return oneOf(m.Leukocytes.normalized(), []Ordinal{Ordinal1Plus, Ordinal2Plus, Ordinal3Plus})
}

type infectionEvaluator struct{}

func (infectionEvaluator) Name() string { return "infection_markers" }

// Evaluate runs only when nitrite or leukocytes was measured.
func (infectionEvaluator) Evaluate(in Input) (Fragment, bool) {
	m := in.Urine
	if m == nil || (!m.Nitrite.Present() && !m.Leukocytes.Present()) {
		return Fragment{}, false
	}
	nitrite, leuko := hasNitrite(m), hasLeukocytes(m)
	switch {
	case nitrite && leuko:
		return Fragment{
			Description: "Both nitrite and leukocytes positive - UTI likely",
			Risks:       []RiskEntry{{Level: RiskHigh, Description: "Urinary tract infection probable"}},
			Advisories:  []string{"Medical evaluation and possible antibiotic treatment recommended"},
			Severity:    2,
		}, true
	case nitrite || leuko:
		return Fragment{
			Description: "Possible urinary tract infection indicators present",
			Risks:       []RiskEntry{{Level: RiskModerate, Description: "Possible UTI"}},
			Advisories:  []string{"Consider medical evaluation and urine culture"},
			Severity:    1,
		}, true
	}
	return Fragment{
		Description: "No infection markers detected",
		Advisories:  []string{"No evidence of urinary tract infection"},
	}, true
}
