package interpretation

import (
	"math"
	"strconv"
)

// EGFR is an estimated glomerular filtration rate in mL/min/1.73m².
// A zero EGFR is undetermined: one of its inputs was missing or unusable.
type EGFR struct {
	Value      float64
	Determined bool
}

// Undetermined is the EGFR returned when the inputs cannot produce an estimate.
var Undetermined = EGFR{}

func (e EGFR) String() string {
	if !e.Determined {
		return "undetermined"
	}
	return strconv.FormatFloat(e.Value, 'f', 2, 64)
}

// Ptr returns the value as a pointer, nil when undetermined.
func (e EGFR) Ptr() *float64 {
	if !e.Determined {
		return nil
	}
	v := e.Value
	return &v
}

// EstimateEGFR applies the 2021 race-free CKD-EPI creatinine equation and
// rounds the result to two decimals. Creatinine is in mg/dL.
func EstimateEGFR(creatinine float64, age int, sex Sex) EGFR {
	if math.IsNaN(creatinine) || math.IsInf(creatinine, 0) || creatinine <= 0 || age <= 0 {
		return Undetermined
	}

	var k, alpha, sexFactor float64
	switch sex {
	case SexFemale:
		k, alpha, sexFactor = 0.7, -0.241, 1.012
	case SexMale:
		k, alpha, sexFactor = 0.9, -0.302, 1.0
	default:
		return Undetermined
	}

	ratio := creatinine / k
	egfr := 142 *
		math.Pow(math.Min(ratio, 1), alpha) *
		math.Pow(math.Max(ratio, 1), -1.200) *
		math.Pow(0.9938, float64(age)) *
		sexFactor

	return EGFR{Value: math.Round(egfr*100) / 100, Determined: true}
}

// EstimateForSample derives eGFR from a urine sample's creatinine and the
// patient reference. Blood samples and missing creatinine are undetermined.
func EstimateForSample(s Sample) EGFR {
	u, ok := s.Metrics.(*UrineMetrics)
	if !ok || u == nil || u.Creatinine == nil {
		return Undetermined
	}
	return EstimateEGFR(*u.Creatinine, s.Patient.Age, s.Patient.Sex)
}
