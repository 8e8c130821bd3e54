package interpretation

import (
	"fmt"
	"math"
	"strings"
)

var inf = math.Inf(1)

var glucoseBands = Bands{
	{Upper: 70, Outcome: Outcome{
		Summary: "Blood glucose is low at %s mg/dL",
		Risk:    risk(RiskHigh, "Hypoglycemia detected"),
		Advisories: []string{
			"Consume 15-20g of fast-acting carbohydrates immediately",
			"Retest in 15 minutes and seek medical attention if symptoms persist",
		},
		Severity: 3,
	}},
	{Upper: 100, Inclusive: true, Outcome: Outcome{
		Summary:    "Blood glucose is normal at %s mg/dL",
		Advisories: []string{"Maintain healthy diet and regular exercise"},
	}},
	{Upper: 125, Inclusive: true, Outcome: Outcome{
		Summary: "Blood glucose is elevated at %s mg/dL (prediabetic range)",
		Risk:    risk(RiskModerate, "Prediabetes range detected"),
		Advisories: []string{
			"Consider lifestyle modifications: diet and exercise",
			"Follow up with healthcare provider for diabetes screening",
		},
		Severity: 1,
	}},
	{Upper: inf, Outcome: Outcome{
		Summary: "Blood glucose is high at %s mg/dL (diabetic range)",
		Risk:    risk(RiskHigh, "Diabetes range detected"),
		Advisories: []string{
			"Immediate medical consultation recommended",
			"Consider dietary modifications and medication evaluation",
		},
		Severity: 2,
	}},
}

// Values strictly between 6.4 and 6.5 stay in the prediabetes band.
var hba1cBands = Bands{
	{Upper: 5.7, Outcome: Outcome{
		Summary:    "HbA1c is normal at %s%%",
		Advisories: []string{"Continue current healthy lifestyle habits"},
	}},
	{Upper: 6.5, Outcome: Outcome{
		Summary: "HbA1c indicates prediabetes at %s%%",
		Risk:    risk(RiskModerate, "Prediabetes detected"),
		Advisories: []string{
			"Implement lifestyle interventions to prevent diabetes",
			"Regular monitoring recommended every 3-6 months",
		},
		Severity: 1,
	}},
	{Upper: inf, Outcome: Outcome{
		Summary: "HbA1c indicates diabetes at %s%%",
		Risk:    risk(RiskHigh, "Diabetes detected"),
		Advisories: []string{
			"Comprehensive diabetes management plan needed",
			"Regular medical follow-up and medication management essential",
		},
		Severity: 2,
	}},
}

var wbcBands = Bands{
	{Upper: 4.5, Outcome: Outcome{
		Summary: "WBC count is low at %s x10³/μL (leukopenia)",
		Risk:    risk(RiskModerate, "Low white blood cell count detected"),
		Advisories: []string{
			"May indicate weakened immune system or bone marrow issues",
			"Consult healthcare provider for further evaluation",
		},
		Severity: 1,
	}},
	{Upper: 11.0, Inclusive: true, Outcome: Outcome{
		Summary:    "WBC count is normal at %s x10³/μL",
		Advisories: []string{"White blood cell count within normal range"},
	}},
	{Upper: inf, Outcome: Outcome{
		Summary: "WBC count is elevated at %s x10³/μL (leukocytosis)",
		Risk:    risk(RiskModerate, "Elevated white blood cell count"),
		Advisories: []string{
			"May indicate infection, inflammation, or other conditions",
			"Medical evaluation recommended to determine cause",
		},
		Severity: 1,
	}},
}

var plateletBands = Bands{
	{Upper: 150, Outcome: Outcome{
		Summary: "Platelet count is low at %s x10³/μL (thrombocytopenia)",
		Risk:    risk(RiskModerate, "Low platelet count detected"),
		Advisories: []string{
			"Increased bleeding risk - avoid activities with injury risk",
			"Medical evaluation needed to determine cause",
		},
		Severity: 1,
	}},
	{Upper: 400, Inclusive: true, Outcome: Outcome{
		Summary:    "Platelet count is normal at %s x10³/μL",
		Advisories: []string{"Platelet count within normal range"},
	}},
	{Upper: inf, Outcome: Outcome{
		Summary: "Platelet count is elevated at %s x10³/μL (thrombocytosis)",
		Risk:    risk(RiskModerate, "Elevated platelet count"),
		Advisories: []string{
			"May increase blood clot risk",
			"Consult healthcare provider for evaluation",
		},
		Severity: 1,
	}},
}

var (
	GlucoseEvaluator Evaluator = numericEvaluator{
		name:    "glucose",
		reading: bloodReading(func(m *BloodMetrics) *float64 { return m.Glucose }),
		bands:   glucoseBands,
	}
	HbA1cEvaluator Evaluator = numericEvaluator{
		name:    "hba1c",
		reading: bloodReading(func(m *BloodMetrics) *float64 { return m.HbA1c }),
		bands:   hba1cBands,
	}
	WBCEvaluator Evaluator = numericEvaluator{
		name:    "wbc",
		reading: bloodReading(func(m *BloodMetrics) *float64 { return m.WBCCount }),
		bands:   wbcBands,
	}
	PlateletEvaluator Evaluator = numericEvaluator{
		name:    "platelets",
		reading: bloodReading(func(m *BloodMetrics) *float64 { return m.PlateletCount }),
		bands:   plateletBands,
	}
	AnemiaEvaluator Evaluator = anemiaEvaluator{}
)

// anemiaThreshold holds the lower limit of normal per sex.
type anemiaThreshold struct {
	male, female float64
}

func (t anemiaThreshold) low(v float64, sex Sex) bool {
	switch sex {
	case SexMale:
		return v < t.male
	case SexFemale:
		return v < t.female
	}
	return false
}

var (
	hemoglobinLimit = anemiaThreshold{male: 13.5, female: 12.0}
	hematocritLimit = anemiaThreshold{male: 38.8, female: 34.9}
	rbcLimit        = anemiaThreshold{male: 4.5, female: 4.0}
)

// anemiaMarker is one of the three red cell readings. label is the short
// reason used by the detector; detail formats the reading for the summary.
type anemiaMarker struct {
	label  string
	detail string
	normal string
	limit  anemiaThreshold
	get    func(*BloodMetrics) *float64
}

var anemiaMarkers = []anemiaMarker{
	{
		label:  "low hemoglobin",
		detail: "low hemoglobin (%s g/dL)",
		normal: "Hemoglobin level is normal at %s g/dL",
		limit:  hemoglobinLimit,
		get:    func(m *BloodMetrics) *float64 { return m.Hemoglobin },
	},
	{
		label:  "low hematocrit",
		detail: "low hematocrit (%s%%)",
		normal: "Hematocrit is normal at %s%%",
		limit:  hematocritLimit,
		get:    func(m *BloodMetrics) *float64 { return m.Hematocrit },
	},
	{
		label:  "low RBC count",
		detail: "low RBC count (%s x10⁶/μL)",
		normal: "RBC count is normal at %s x10⁶/μL",
		limit:  rbcLimit,
		get:    func(m *BloodMetrics) *float64 { return m.RBCCount },
	},
}

// lowAnemiaMarkers returns the markers below the sex-specific limit.
// An unknown sex never triggers.
func lowAnemiaMarkers(m *BloodMetrics, sex Sex) []anemiaMarker {
	var low []anemiaMarker
	for _, mk := range anemiaMarkers {
		if v := mk.get(m); v != nil && mk.limit.low(*v, sex) {
			low = append(low, mk)
		}
	}
	return low
}

type anemiaEvaluator struct{}

func (anemiaEvaluator) Name() string { return "anemia" }

// Evaluate merges hemoglobin, hematocrit and RBC count into one fragment.
func (anemiaEvaluator) Evaluate(in Input) (Fragment, bool) {
	m := in.Blood
	if m == nil || (m.Hemoglobin == nil && m.Hematocrit == nil && m.RBCCount == nil) {
		return Fragment{}, false
	}

	low := lowAnemiaMarkers(m, in.Patient.Sex)
	if len(low) > 0 {
		reasons := make([]string, 0, len(low))
		for _, mk := range low {
			reasons = append(reasons, fmt.Sprintf(mk.detail, formatReading(*mk.get(m))))
		}
		return Fragment{
			Description: "Anemia indicators detected: " + strings.Join(reasons, ", "),
			Risks:       []RiskEntry{{Level: RiskModerate, Description: "Possible anemia"}},
			Advisories: []string{
				"Iron studies and complete blood count evaluation recommended",
				"Consult healthcare provider for proper diagnosis and treatment",
			},
			Severity: 1,
		}, true
	}

	if in.Patient.Sex != SexMale && in.Patient.Sex != SexFemale {
		return Fragment{Description: "Anemia markers were not assessed without patient sex"}, true
	}
	for _, mk := range anemiaMarkers {
		if v := mk.get(m); v != nil {
			return Fragment{Description: fmt.Sprintf(mk.normal, formatReading(*v))}, true
		}
	}
	return Fragment{}, false
}
