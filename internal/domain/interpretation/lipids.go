package interpretation

import (
	"fmt"
	"strings"
)

var triglycerideBands = Bands{
	{Upper: 150, Outcome: Outcome{
		Summary:    "Triglycerides are normal at %s mg/dL",
		Advisories: []string{"Continue current dietary habits"},
	}},
	{Upper: 199, Inclusive: true, Outcome: Outcome{
		Summary:    "Triglycerides are borderline high at %s mg/dL",
		Risk:       risk(RiskModerate, "Borderline high triglycerides"),
		Advisories: []string{"Reduce refined carbohydrates and increase omega-3 fatty acids"},
		Severity:   1,
	}},
	{Upper: 499, Inclusive: true, Outcome: Outcome{
		Summary:    "Triglycerides are high at %s mg/dL",
		Risk:       risk(RiskHigh, "High triglycerides detected"),
		Advisories: []string{"Significant dietary modifications and possible medication needed"},
		Severity:   2,
	}},
	{Upper: inf, Outcome: Outcome{
		Summary:    "Triglycerides are very high at %s mg/dL",
		Risk:       risk(RiskHigh, "Very high triglycerides - pancreatitis risk"),
		Advisories: []string{"Immediate medical attention required"},
		Severity:   3,
	}},
}

// Each cholesterol band contributes a phrase; the fragment severity is the
// worst band seen.
var totalCholesterolBands = Bands{
	{Upper: 200, Outcome: Outcome{Summary: "Total cholesterol is desirable at %s mg/dL"}},
	{Upper: 239, Inclusive: true, Outcome: Outcome{Summary: "Total cholesterol is borderline high at %s mg/dL", Severity: 1}},
	{Upper: inf, Outcome: Outcome{Summary: "Total cholesterol is high at %s mg/dL", Severity: 2}},
}

var ldlBands = Bands{
	{Upper: 100, Outcome: Outcome{Summary: "LDL is optimal at %s mg/dL"}},
	{Upper: 129, Inclusive: true, Outcome: Outcome{Summary: "LDL is near optimal at %s mg/dL"}},
	{Upper: 159, Inclusive: true, Outcome: Outcome{Summary: "LDL is borderline high at %s mg/dL", Severity: 1}},
	{Upper: inf, Outcome: Outcome{Summary: "LDL is high at %s mg/dL", Severity: 2}},
}

// hdlBands is relative to the sex-specific HDL floor.
func hdlBands(sex Sex) Bands {
	floor := 40.0
	if sex == SexFemale {
		floor = 50
	}
	return Bands{
		{Upper: floor, Outcome: Outcome{Summary: "HDL is low at %s mg/dL", Severity: 1}},
		{Upper: floor + 10, Outcome: Outcome{Summary: "HDL is adequate at %s mg/dL"}},
		{Upper: inf, Outcome: Outcome{Summary: "HDL is good at %s mg/dL"}},
	}
}

var (
	TriglycerideEvaluator Evaluator = numericEvaluator{
		name:    "triglycerides",
		reading: bloodReading(func(m *BloodMetrics) *float64 { return m.Triglycerides }),
		bands:   triglycerideBands,
	}
	CholesterolEvaluator Evaluator = cholesterolEvaluator{}
)

type cholesterolEvaluator struct{}

func (cholesterolEvaluator) Name() string { return "cholesterol" }

func (cholesterolEvaluator) Evaluate(in Input) (Fragment, bool) {
	m := in.Blood
	if m == nil || (m.CholesterolTotal == nil && m.LDL == nil && m.HDL == nil) {
		return Fragment{}, false
	}

	readings := []struct {
		v     *float64
		bands Bands
	}{
		{m.CholesterolTotal, totalCholesterolBands},
		{m.LDL, ldlBands},
		{m.HDL, hdlBands(in.Patient.Sex)},
	}

	var parts []string
	worst := 0
	for _, r := range readings {
		if r.v == nil {
			continue
		}
		band, ok := r.bands.Lookup(*r.v)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf(band.Summary, formatReading(*r.v)))
		if band.Severity > worst {
			worst = band.Severity
		}
	}

	f := Fragment{Description: strings.Join(parts, "; "), Severity: worst}
	switch {
	case worst >= 2:
		f.Risks = []RiskEntry{{Level: RiskHigh, Description: "Elevated cardiovascular risk"}}
		f.Advisories = []string{
			"Immediate lifestyle modifications recommended",
			"Consider statin therapy evaluation with physician",
		}
	case worst == 1:
		f.Risks = []RiskEntry{{Level: RiskModerate, Description: "Moderate cardiovascular risk"}}
		f.Advisories = []string{
			"Dietary changes and regular exercise recommended",
			"Recheck levels in 6-12 weeks",
		}
	default:
		f.Advisories = []string{"Maintain heart-healthy diet and regular exercise"}
	}
	return f, true
}
