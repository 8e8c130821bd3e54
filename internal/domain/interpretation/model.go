package interpretation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

type FluidType string

const (
	FluidBlood FluidType = "blood"
	FluidUrine FluidType = "urine"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

// PatientRef carries the patient attributes that select thresholds.
type PatientRef struct {
	Sex Sex `json:"sex" yaml:"sex"`
	Age int `json:"age" yaml:"age"`
}

// Ordinal is a dipstick grade such as "negative", "trace" or "2+".
// The empty value means the grade was not measured.
type Ordinal string

const (
	OrdinalNegative Ordinal = "negative"
	OrdinalPositive Ordinal = "positive"
	OrdinalTrace    Ordinal = "trace"
	OrdinalSmall    Ordinal = "small"
	OrdinalModerate Ordinal = "moderate"
	OrdinalLarge    Ordinal = "large"
	Ordinal1Plus    Ordinal = "1+"
	Ordinal2Plus    Ordinal = "2+"
	Ordinal3Plus    Ordinal = "3+"
	Ordinal4Plus    Ordinal = "4+"
)

func (o Ordinal) normalized() Ordinal {
	return Ordinal(strings.ToLower(strings.TrimSpace(string(o))))
}

// Present reports whether the grade was measured.
func (o Ordinal) Present() bool { return o.normalized() != "" }

// Metrics is either *BloodMetrics or *UrineMetrics.
type Metrics interface {
	FluidType() FluidType
	// Supplied counts the readings that were actually measured.
	Supplied() int
	Validate() error
}

// BloodMetrics holds a blood panel. Nil pointers are readings that were not taken.
type BloodMetrics struct {
	Glucose          *float64 `json:"glucose,omitempty"`
	HbA1c            *float64 `json:"hba1c,omitempty"`
	Hemoglobin       *float64 `json:"hemoglobin,omitempty"`
	Hematocrit       *float64 `json:"hematocrit,omitempty"`
	RBCCount         *float64 `json:"rbc_count,omitempty"`
	WBCCount         *float64 `json:"wbc_count,omitempty"`
	PlateletCount    *float64 `json:"platelet_count,omitempty"`
	CholesterolTotal *float64 `json:"cholesterol_total,omitempty"`
	LDL              *float64 `json:"ldl,omitempty"`
	HDL              *float64 `json:"hdl,omitempty"`
	Triglycerides    *float64 `json:"triglycerides,omitempty"`
}

func (m *BloodMetrics) FluidType() FluidType { return FluidBlood }

func (m *BloodMetrics) numbers() map[string]*float64 {
	return map[string]*float64{
		"glucose":           m.Glucose,
		"hba1c":             m.HbA1c,
		"hemoglobin":        m.Hemoglobin,
		"hematocrit":        m.Hematocrit,
		"rbc_count":         m.RBCCount,
		"wbc_count":         m.WBCCount,
		"platelet_count":    m.PlateletCount,
		"cholesterol_total": m.CholesterolTotal,
		"ldl":               m.LDL,
		"hdl":               m.HDL,
		"triglycerides":     m.Triglycerides,
	}
}

func (m *BloodMetrics) Supplied() int {
	n := 0
	for _, v := range m.numbers() {
		if v != nil {
			n++
		}
	}
	return n
}

func (m *BloodMetrics) Validate() error {
	return validateNumbers(m.numbers())
}

// UrineMetrics holds a urinalysis panel. eGFR is not part of it: it is
// always derived from creatinine, age and sex.
type UrineMetrics struct {
	PH              *float64 `json:"ph,omitempty"`
	ProteinLevel    Ordinal  `json:"protein_level,omitempty"`
	ProteinMg       *float64 `json:"protein_mg,omitempty"`
	Creatinine      *float64 `json:"creatinine,omitempty"`
	Glucose         Ordinal  `json:"glucose,omitempty"`
	Ketones         Ordinal  `json:"ketones,omitempty"`
	SpecificGravity *float64 `json:"specific_gravity,omitempty"`
	Nitrite         Ordinal  `json:"nitrite,omitempty"`
	Leukocytes      Ordinal  `json:"leukocytes,omitempty"`
}

func (m *UrineMetrics) FluidType() FluidType { return FluidUrine }

func (m *UrineMetrics) numbers() map[string]*float64 {
	return map[string]*float64{
		"ph":               m.PH,
		"protein_mg":       m.ProteinMg,
		"creatinine":       m.Creatinine,
		"specific_gravity": m.SpecificGravity,
	}
}

func (m *UrineMetrics) Supplied() int {
	n := 0
	for _, v := range m.numbers() {
		if v != nil {
			n++
		}
	}
	for _, o := range []Ordinal{m.ProteinLevel, m.Glucose, m.Ketones, m.Nitrite, m.Leukocytes} {
		if o.Present() {
			n++
		}
	}
	return n
}

var (
	gradeScale     = []Ordinal{OrdinalNegative, OrdinalTrace, Ordinal1Plus, Ordinal2Plus, Ordinal3Plus, Ordinal4Plus}
	ketoneScale    = []Ordinal{OrdinalNegative, OrdinalTrace, OrdinalSmall, OrdinalModerate, OrdinalLarge}
	nitriteScale   = []Ordinal{OrdinalNegative, OrdinalPositive}
	leukocyteScale = []Ordinal{OrdinalNegative, OrdinalTrace, Ordinal1Plus, Ordinal2Plus, Ordinal3Plus}
)

func (m *UrineMetrics) Validate() error {
	if err := validateNumbers(m.numbers()); err != nil {
		return err
	}
	grades := []struct {
		key   string
		val   Ordinal
		scale []Ordinal
	}{
		{"protein_level", m.ProteinLevel, gradeScale},
		{"glucose", m.Glucose, gradeScale},
		{"ketones", m.Ketones, ketoneScale},
		{"nitrite", m.Nitrite, nitriteScale},
		{"leukocytes", m.Leukocytes, leukocyteScale},
	}
	for _, g := range grades {
		if !g.val.Present() {
			continue
		}
		if !oneOf(g.val.normalized(), g.scale) {
			return fmt.Errorf("invalid %s grade: %q", g.key, string(g.val))
		}
	}
	return nil
}

func oneOf(o Ordinal, scale []Ordinal) bool {
	for _, s := range scale {
		if o == s {
			return true
		}
	}
	return false
}

func validateNumbers(nums map[string]*float64) error {
	for key, v := range nums {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return fmt.Errorf("invalid %s value: not a finite number", key)
		}
		if *v < 0 {
			return fmt.Errorf("invalid %s value: %v is negative", key, *v)
		}
	}
	return nil
}

// Sample is one lab submission for a patient.
type Sample struct {
	FluidType FluidType  `json:"fluid_type"`
	TestDate  time.Time  `json:"test_date"`
	Metrics   Metrics    `json:"metrics"`
	Patient   PatientRef `json:"patient"`
	Notes     string     `json:"notes,omitempty"`
}

// UnmarshalJSON decodes metrics into the panel type selected by fluid_type.
// Unknown fluid types leave Metrics nil so evaluation can report them.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var aux struct {
		FluidType FluidType       `json:"fluid_type"`
		TestDate  string          `json:"test_date"`
		Metrics   json.RawMessage `json:"metrics"`
		Patient   PatientRef      `json:"patient"`
		Notes     string          `json:"notes"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.FluidType = FluidType(strings.ToLower(string(aux.FluidType)))
	s.Patient = aux.Patient
	s.Notes = aux.Notes
	s.Metrics = nil

	if aux.TestDate != "" {
		t, err := ParseDate(aux.TestDate)
		if err != nil {
			return fmt.Errorf("test_date: %w", err)
		}
		s.TestDate = t
	}

	var m Metrics
	switch s.FluidType {
	case FluidBlood:
		m = &BloodMetrics{}
	case FluidUrine:
		m = &UrineMetrics{}
	default:
		return nil
	}
	if len(aux.Metrics) > 0 && string(aux.Metrics) != "null" {
		if err := json.Unmarshal(aux.Metrics, m); err != nil {
			return fmt.Errorf("decode %s metrics: %w", s.FluidType, err)
		}
	}
	s.Metrics = m
	return nil
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func ParseDate(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", v)
	}
	return t, nil
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
)

type RiskEntry struct {
	Level       RiskLevel `json:"level"`
	Description string    `json:"description"`
}

// Fragment is the output of a single evaluator.
type Fragment struct {
	Description string      `json:"description"`
	Risks       []RiskEntry `json:"risks,omitempty"`
	Advisories  []string    `json:"advisories,omitempty"`
	Severity    int         `json:"severity"`
}

// AnalysisResult is the aggregated panel report.
type AnalysisResult struct {
	Summary    string      `json:"summary"`
	Risks      []RiskEntry `json:"risks"`
	Advisories []string    `json:"advisories"`
	Citations  []string    `json:"citations"`
	Confidence float64     `json:"confidence"`
	Timestamp  time.Time   `json:"timestamp"`
	Error      string      `json:"error,omitempty"`
}

type ConditionRisk string

const (
	ConditionLow      ConditionRisk = "Low"
	ConditionModerate ConditionRisk = "Moderate"
	ConditionHigh     ConditionRisk = "High"
)

// Condition is a named clinical label emitted by the detector.
type Condition struct {
	Name        string        `json:"name"`
	RiskLevel   ConditionRisk `json:"risk_level"`
	Explanation string        `json:"explanation"`
	Source      string        `json:"source"`
}
