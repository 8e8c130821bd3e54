package interpretation

import (
	"fmt"
	"strconv"
	"strings"
)

// Input is everything an evaluator may read for one sample.
type Input struct {
	Blood   *BloodMetrics
	Urine   *UrineMetrics
	Patient PatientRef
	EGFR    EGFR
}

// Evaluator maps the readings it cares about to a Fragment. It reports
// ok=false when a required reading is absent so the caller can skip it.
type Evaluator interface {
	Name() string
	Evaluate(in Input) (frag Fragment, ok bool)
}

// Outcome is the fixed text and severity attached to one band of a table.
// Summary may contain a single %s verb that receives the formatted reading.
type Outcome struct {
	Summary    string
	Risk       *RiskEntry
	Advisories []string
	Severity   int
}

func (o Outcome) fragment(reading string) Fragment {
	desc := o.Summary
	if strings.Contains(desc, "%s") {
		desc = fmt.Sprintf(desc, reading)
	}
	f := Fragment{Description: desc, Severity: o.Severity}
	if o.Risk != nil {
		f.Risks = []RiskEntry{*o.Risk}
	}
	if len(o.Advisories) > 0 {
		f.Advisories = append([]string(nil), o.Advisories...)
	}
	return f
}

func risk(level RiskLevel, desc string) *RiskEntry {
	return &RiskEntry{Level: level, Description: desc}
}

// Band is one row of a numeric threshold table. A reading belongs to the
// first band whose upper bound it stays under (or meets, when Inclusive).
type Band struct {
	Upper     float64
	Inclusive bool
	Outcome
}

type Bands []Band

// Lookup returns the band containing v.
func (b Bands) Lookup(v float64) (Band, bool) {
	for _, band := range b {
		if v < band.Upper || (band.Inclusive && v == band.Upper) {
			return band, true
		}
	}
	return Band{}, false
}

// GradeBand is one row of an ordinal table.
type GradeBand struct {
	Grades []Ordinal
	Outcome
}

type GradeBands []GradeBand

func (b GradeBands) Lookup(o Ordinal) (GradeBand, bool) {
	o = o.normalized()
	for _, band := range b {
		if oneOf(o, band.Grades) {
			return band, true
		}
	}
	return GradeBand{}, false
}

func formatReading(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type numericEvaluator struct {
	name    string
	reading func(Input) *float64
	format  func(float64) string
	bands   Bands
}

func (e numericEvaluator) Name() string { return e.name }

func (e numericEvaluator) Evaluate(in Input) (Fragment, bool) {
	v := e.reading(in)
	if v == nil {
		return Fragment{}, false
	}
	band, ok := e.bands.Lookup(*v)
	if !ok {
		return Fragment{}, false
	}
	format := e.format
	if format == nil {
		format = formatReading
	}
	return band.fragment(format(*v)), true
}

type gradeEvaluator struct {
	name    string
	reading func(Input) Ordinal
	bands   GradeBands
}

func (e gradeEvaluator) Name() string { return e.name }

func (e gradeEvaluator) Evaluate(in Input) (Fragment, bool) {
	o := e.reading(in)
	if !o.Present() {
		return Fragment{}, false
	}
	band, ok := e.bands.Lookup(o)
	if !ok {
		return Fragment{}, false
	}
	return band.fragment(string(o.normalized())), true
}

func bloodReading(get func(*BloodMetrics) *float64) func(Input) *float64 {
	return func(in Input) *float64 {
		if in.Blood == nil {
			return nil
		}
		return get(in.Blood)
	}
}

func urineReading(get func(*UrineMetrics) *float64) func(Input) *float64 {
	return func(in Input) *float64 {
		if in.Urine == nil {
			return nil
		}
		return get(in.Urine)
	}
}

func urineGrade(get func(*UrineMetrics) Ordinal) func(Input) Ordinal {
	return func(in Input) Ordinal {
		if in.Urine == nil {
			return ""
		}
		return get(in.Urine)
	}
}
