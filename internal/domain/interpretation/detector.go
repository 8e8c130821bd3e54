package interpretation

import (
	"fmt"
	"strings"
)

// Condition names.
const (
	ConditionDiabetes      = "Diabetes"
	ConditionHyperglycemia = "Hyperglycemia"
	ConditionHypoglycemia  = "Hypoglycemia"
	ConditionAnemia        = "Anemia"
	ConditionCKD           = "Chronic Kidney Disease (CKD)"
	ConditionPossibleCKD   = "Possible CKD"
	ConditionUTI           = "Urinary Tract Infection (UTI)"
)

// detectionRule inspects raw readings and emits at most one condition, so
// a rule owns the precedence between the names it can produce.
type detectionRule func(in Input) *Condition

var detectionRules = map[FluidType][]detectionRule{
	FluidBlood: {glycemicRule, anemiaRule},
	FluidUrine: {kidneyRule, utiRule},
}

// DetectConditions derives eGFR from urine creatinine and the patient, then
// applies the detection rules. Unknown fluid types yield no conditions.
func DetectConditions(m Metrics, fluid FluidType, patient PatientRef) []Condition {
	egfr := Undetermined
	if u, ok := m.(*UrineMetrics); ok && u != nil && u.Creatinine != nil {
		egfr = EstimateEGFR(*u.Creatinine, patient.Age, patient.Sex)
	}
	return Detect(m, fluid, patient, egfr)
}

// Detect applies the rule table for fluid using a precomputed eGFR. It never
// fails: missing or mismatched readings simply do not trigger a rule, and a
// panel the aggregator would reject as invalid (negative or non-finite
// numbers, unknown grades) yields no conditions.
func Detect(m Metrics, fluid FluidType, patient PatientRef, egfr EGFR) []Condition {
	conditions := []Condition{}
	rules, ok := detectionRules[fluid]
	if !ok {
		return conditions
	}

	in := Input{Patient: patient, EGFR: egfr}
	switch v := m.(type) {
	case *BloodMetrics:
		if v != nil && v.Validate() != nil {
			return conditions
		}
		in.Blood = v
	case *UrineMetrics:
		if v != nil && v.Validate() != nil {
			return conditions
		}
		in.Urine = v
	}

	for _, rule := range rules {
		if c := rule(in); c != nil {
			conditions = append(conditions, *c)
		}
	}
	return conditions
}

// glycemicRule prefers a combined Diabetes finding when glucose and HbA1c
// both reach the diabetic range. Otherwise glucose alone decides; HbA1c by
// itself never names a condition.
func glycemicRule(in Input) *Condition {
	m := in.Blood
	if m == nil || m.Glucose == nil {
		return nil
	}
	g := *m.Glucose
	if m.HbA1c != nil && g > 125 && *m.HbA1c >= 6.5 {
		return &Condition{
			Name:        ConditionDiabetes,
			RiskLevel:   ConditionHigh,
			Explanation: "Both fasting glucose and HbA1c levels indicate diabetes. These sustained high blood sugar levels require immediate medical attention and management.",
			Source:      "American Diabetes Association (ADA) 2023",
		}
	}
	switch {
	case g > 125:
		return &Condition{
			Name:        ConditionHyperglycemia,
			RiskLevel:   ConditionHigh,
			Explanation: "Elevated blood glucose levels detected. This may indicate diabetes or prediabetes and requires medical evaluation.",
			Source:      "WHO Diagnostic Criteria",
		}
	case g < 70:
		return &Condition{
			Name:        ConditionHypoglycemia,
			RiskLevel:   ConditionHigh,
			Explanation: "Low blood glucose detected. Immediate consumption of fast-acting carbohydrates recommended. If symptoms persist, seek medical attention.",
			Source:      "Endocrine Society Guidelines",
		}
	}
	return nil
}

func anemiaRule(in Input) *Condition {
	if in.Blood == nil {
		return nil
	}
	low := lowAnemiaMarkers(in.Blood, in.Patient.Sex)
	if len(low) == 0 {
		return nil
	}
	reasons := make([]string, 0, len(low))
	for _, mk := range low {
		reasons = append(reasons, mk.label)
	}
	return &Condition{
		Name:      ConditionAnemia,
		RiskLevel: ConditionModerate,
		Explanation: fmt.Sprintf("Indicators suggest possible anemia (%s). This condition may cause fatigue and weakness. Consult a physician for iron studies and further evaluation.",
			strings.Join(reasons, ", ")),
		Source: "WHO Anemia Guidelines",
	}
}

// kidneyRule reports CKD from eGFR first and falls back to heavy proteinuria.
func kidneyRule(in Input) *Condition {
	if in.EGFR.Determined && in.EGFR.Value < 60 {
		return &Condition{
			Name:        ConditionCKD,
			RiskLevel:   ConditionHigh,
			Explanation: "eGFR below 60 mL/min/1.73m² indicates reduced kidney function. This requires immediate medical evaluation and monitoring.",
			Source:      "KDIGO Clinical Practice Guidelines",
		}
	}
	if in.Urine != nil && in.Urine.ProteinMg != nil && *in.Urine.ProteinMg >= 300 {
		return &Condition{
			Name:        ConditionPossibleCKD,
			RiskLevel:   ConditionModerate,
			Explanation: "Significant protein in urine (proteinuria) may indicate kidney damage. Follow-up testing and medical consultation recommended.",
			Source:      "National Kidney Foundation",
		}
	}
	return nil
}

func utiRule(in Input) *Condition {
	nitrite, leuko := hasNitrite(in.Urine), hasLeukocytes(in.Urine)
	if !nitrite && !leuko {
		return nil
	}
	c := &Condition{
		Name:        ConditionUTI,
		RiskLevel:   ConditionModerate,
		Explanation: "Infection markers detected in urine. Consider medical evaluation and urine culture for confirmation.",
		Source:      "European Association of Urology",
	}
	if nitrite && leuko {
		c.RiskLevel = ConditionHigh
		c.Explanation = "Both nitrite and leukocytes positive strongly suggest bacterial UTI. Medical evaluation and antibiotic treatment recommended."
	}
	return c
}
