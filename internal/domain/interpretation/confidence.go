package interpretation

import "math"

// PanelSize is the expected number of readings per panel.
const PanelSize = 9

// Confidence is the share of the expected panel that was supplied, 0 to 100.
// It measures completeness, not statistical confidence.
func Confidence(supplied int) float64 {
	if supplied <= 0 {
		return 0
	}
	return math.Min(100, float64(supplied)/PanelSize*100)
}

var citations = map[FluidType][]string{
	FluidBlood: {
		"American Diabetes Association. Standards of Medical Care in Diabetes—2023",
		"ACC/AHA Guideline on the Management of Blood Cholesterol (2019)",
		"WHO Guidelines on Diagnostic Criteria for Diabetes Mellitus",
		"WHO Haemoglobin Concentrations for the Diagnosis of Anaemia (2011)",
	},
	FluidUrine: {
		"European Association of Urology Guidelines on Urological Infections",
		"American Family Physician. Urinalysis: A Comprehensive Review (2019)",
		"KDIGO 2021 Clinical Practice Guideline for CKD Evaluation and Management",
		"National Kidney Foundation Clinical Practice Guidelines",
	},
}

// Citations returns the fixed reference list for a fluid type.
func Citations(fluid FluidType) []string {
	return append([]string{}, citations[fluid]...)
}
