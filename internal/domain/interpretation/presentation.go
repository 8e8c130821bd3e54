package interpretation

import (
	"strconv"
	"time"
)

const neutralColor = "#6c757d"

var riskColors = map[RiskLevel]string{
	RiskLow:      "#28a745",
	RiskModerate: "#ffc107",
	RiskHigh:     "#dc3545",
}

var conditionColors = map[ConditionRisk]string{
	ConditionLow:      "#28a745",
	ConditionModerate: "#ffc107",
	ConditionHigh:     "#dc3545",
}

// Color returns the display color for a risk level.
func (l RiskLevel) Color() string {
	if c, ok := riskColors[l]; ok {
		return c
	}
	return neutralColor
}

func (r ConditionRisk) Color() string {
	if c, ok := conditionColors[r]; ok {
		return c
	}
	return neutralColor
}

// Elevated reports whether the condition warrants an alert.
func (c Condition) Elevated() bool {
	return c.RiskLevel == ConditionModerate || c.RiskLevel == ConditionHigh
}

var education = map[string]string{
	ConditionDiabetes:      "Diabetes is a chronic condition affecting blood sugar regulation. Key management strategies include monitoring blood glucose, maintaining a balanced diet, regular physical activity, and medication as prescribed. Regular HbA1c testing helps track long-term control.",
	ConditionHyperglycemia: "High blood sugar can result from insufficient insulin, stress, illness, or dietary factors. Short-term effects include increased thirst and frequent urination. Long-term hyperglycemia can lead to complications affecting eyes, kidneys, nerves, and cardiovascular system.",
	ConditionHypoglycemia:  "Low blood sugar requires immediate treatment with 15-20g of fast-acting carbohydrates (juice, glucose tablets). Symptoms include shakiness, sweating, confusion, and dizziness. Always recheck blood sugar after 15 minutes.",
	ConditionAnemia:        "Anemia occurs when blood lacks sufficient healthy red blood cells to carry oxygen. Common causes include iron deficiency, vitamin B12 deficiency, chronic disease, or blood loss. Treatment depends on the underlying cause and may include dietary changes or supplements.",
	ConditionCKD:           "CKD involves gradual loss of kidney function over time. Management includes blood pressure control, blood sugar management (if diabetic), dietary modifications (reduced sodium and protein), and regular monitoring of kidney function.",
	ConditionPossibleCKD:   "Proteinuria can be an early sign of kidney damage. Causes include diabetes, hypertension, infections, or autoimmune diseases. Early detection and treatment can slow progression of kidney disease.",
	ConditionUTI:           "UTIs are bacterial infections of the urinary system. Symptoms include burning during urination, frequent urination, and cloudy urine. Treatment typically involves antibiotics. Increased fluid intake and proper hygiene help prevent recurrence.",
}

// Education returns patient-facing background for a condition name.
func Education(name string) (string, bool) {
	text, ok := education[name]
	return text, ok
}

type ReportRisk struct {
	Level       RiskLevel `json:"level"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
}

type ReportCondition struct {
	Condition
	Color     string `json:"color"`
	Education string `json:"education,omitempty"`
}

// Report is the renderer-facing view of an analysis.
type Report struct {
	Summary         string            `json:"summary"`
	Risks           []ReportRisk      `json:"risks"`
	Recommendations []string          `json:"recommendations"`
	Confidence      string            `json:"confidence"`
	Timestamp       string            `json:"timestamp"`
	Citations       []string          `json:"citations"`
	Conditions      []ReportCondition `json:"conditions"`
}

// NewReport combines an aggregator result and detected conditions for display.
func NewReport(res AnalysisResult, conditions []Condition) Report {
	r := Report{
		Summary:         res.Summary,
		Risks:           make([]ReportRisk, 0, len(res.Risks)),
		Recommendations: res.Advisories,
		Confidence:      strconv.FormatFloat(res.Confidence, 'f', -1, 64) + "%",
		Timestamp:       res.Timestamp.Format(time.RFC1123),
		Citations:       res.Citations,
		Conditions:      make([]ReportCondition, 0, len(conditions)),
	}
	for _, risk := range res.Risks {
		r.Risks = append(r.Risks, ReportRisk{Level: risk.Level, Description: risk.Description, Color: risk.Level.Color()})
	}
	for _, c := range conditions {
		text, _ := Education(c.Name)
		r.Conditions = append(r.Conditions, ReportCondition{Condition: c, Color: c.RiskLevel.Color(), Education: text})
	}
	return r
}
