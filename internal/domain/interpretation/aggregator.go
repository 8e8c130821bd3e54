package interpretation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnsupportedFluidType is returned for samples that are neither blood nor urine.
var ErrUnsupportedFluidType = errors.New("unsupported fluid type")

// SystemVersion is cited by the placeholder result.
const SystemVersion = "1.0.0"

type Options struct {
	// IncludeLipids appends the cholesterol and triglyceride evaluators to
	// the blood panel.
	IncludeLipids bool
	// Now stamps results; time.Now when nil.
	Now func() time.Time
}

// Aggregator runs a panel of evaluators over a sample and folds their
// fragments into one AnalysisResult. It holds no mutable state.
type Aggregator struct {
	blood []Evaluator
	urine []Evaluator
	now   func() time.Time
}

func NewAggregator(opts Options) *Aggregator {
	a := &Aggregator{
		blood: BloodPanel(opts.IncludeLipids),
		urine: UrinePanel(),
		now:   opts.Now,
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// BloodPanel lists blood evaluators in evaluation order.
func BloodPanel(includeLipids bool) []Evaluator {
	panel := []Evaluator{
		GlucoseEvaluator,
		HbA1cEvaluator,
		AnemiaEvaluator,
		WBCEvaluator,
		PlateletEvaluator,
	}
	if includeLipids {
		panel = append(panel, CholesterolEvaluator, TriglycerideEvaluator)
	}
	return panel
}

// UrinePanel lists urine evaluators in evaluation order.
func UrinePanel() []Evaluator {
	return []Evaluator{
		UrinePHEvaluator,
		ProteinEvaluator,
		KidneyEvaluator,
		UrineGlucoseEvaluator,
		KetoneEvaluator,
		InfectionEvaluator,
	}
}

var closings = map[FluidType][3]string{
	FluidBlood: {
		"Overall, blood parameters appear within acceptable ranges.",
		"Some parameters require attention and lifestyle modifications.",
		"Several parameters indicate significant health risks requiring medical attention.",
	},
	FluidUrine: {
		"Urine analysis shows no significant abnormalities.",
		"Some findings warrant follow-up or monitoring.",
		"Abnormal findings detected that require medical evaluation.",
	},
}

// closing picks the final sentence by composite severity.
func closing(fluid FluidType, score int) string {
	c := closings[fluid]
	switch {
	case score <= 0:
		return c[0]
	case score <= 2:
		return c[1]
	}
	return c[2]
}

// EvaluateSample derives eGFR from the sample and runs the default panels.
func EvaluateSample(s Sample) (AnalysisResult, error) {
	return NewAggregator(Options{}).Evaluate(s, EstimateForSample(s))
}

// Evaluate aggregates the panel for s. egfr must be the value the caller
// derived for this sample; it is not recomputed. Only an unsupported fluid
// type is returned as an error. Every other failure yields DefaultAnalysis
// with the cause in its Error field.
func (a *Aggregator) Evaluate(s Sample, egfr EGFR) (res AnalysisResult, err error) {
	var panel []Evaluator
	switch s.FluidType {
	case FluidBlood:
		panel = a.blood
	case FluidUrine:
		panel = a.urine
	default:
		return AnalysisResult{}, fmt.Errorf("%w: %q", ErrUnsupportedFluidType, string(s.FluidType))
	}

	defer func() {
		if r := recover(); r != nil {
			res = DefaultAnalysis(fmt.Sprintf("evaluation failed: %v", r), a.now())
			err = nil
		}
	}()

	in, supplied, ierr := buildInput(s, egfr)
	if ierr != nil {
		return DefaultAnalysis(ierr.Error(), a.now()), nil
	}

	res = AnalysisResult{
		Risks:      []RiskEntry{},
		Advisories: []string{},
		Citations:  Citations(s.FluidType),
		Confidence: Confidence(supplied),
		Timestamp:  a.now(),
	}

	var parts []string
	score := 0
	for _, ev := range panel {
		frag, ok := ev.Evaluate(in)
		if !ok {
			continue
		}
		if frag.Description != "" {
			parts = append(parts, frag.Description)
		}
		res.Risks = append(res.Risks, frag.Risks...)
		res.Advisories = append(res.Advisories, frag.Advisories...)
		score += frag.Severity
	}

	res.Summary = closing(s.FluidType, score)
	if len(parts) > 0 {
		res.Summary = strings.Join(parts, ". ") + ". " + res.Summary
	}
	return res, nil
}

// buildInput validates the panel against the fluid type and counts the
// supplied readings. A determined eGFR counts as a urine reading.
func buildInput(s Sample, egfr EGFR) (Input, int, error) {
	in := Input{Patient: s.Patient, EGFR: egfr}
	switch s.FluidType {
	case FluidBlood:
		m := &BloodMetrics{}
		if s.Metrics != nil {
			b, ok := s.Metrics.(*BloodMetrics)
			if !ok {
				return in, 0, fmt.Errorf("%s sample carries %s metrics", s.FluidType, s.Metrics.FluidType())
			}
			if b != nil {
				m = b
			}
		}
		if err := m.Validate(); err != nil {
			return in, 0, err
		}
		in.Blood = m
		return in, m.Supplied(), nil
	default:
		m := &UrineMetrics{}
		if s.Metrics != nil {
			u, ok := s.Metrics.(*UrineMetrics)
			if !ok {
				return in, 0, fmt.Errorf("%s sample carries %s metrics", s.FluidType, s.Metrics.FluidType())
			}
			if u != nil {
				m = u
			}
		}
		if err := m.Validate(); err != nil {
			return in, 0, err
		}
		in.Urine = m
		n := m.Supplied()
		if egfr.Determined {
			n++
		}
		return in, n, nil
	}
}

// DefaultAnalysis is the placeholder returned when evaluation cannot finish.
func DefaultAnalysis(cause string, at time.Time) AnalysisResult {
	return AnalysisResult{
		Summary: "Analysis could not be completed due to insufficient or invalid data. Please verify your input values and try again.",
		Risks:   []RiskEntry{{Level: RiskLow, Description: "Unable to assess risk - data insufficient"}},
		Advisories: []string{
			"Please ensure all measurements are accurate and complete",
			"Consult with a healthcare provider for proper testing",
			"Consider retesting with verified equipment",
		},
		Citations:  []string{"GalPal AI Analysis System v" + SystemVersion},
		Confidence: 0,
		Timestamp:  at,
		Error:      cause,
	}
}
