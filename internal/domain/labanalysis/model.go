package labanalysis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KyaptainJoyboy/Galpal/internal/domain/interpretation"
)

// Analysis is the stored outcome of one sample. Records are write-once.
type Analysis struct {
	ID         uuid.UUID                  `json:"id"`
	PatientID  uuid.UUID                  `json:"patient_id"`
	FluidType  interpretation.FluidType   `json:"fluid_type"`
	TestDate   time.Time                  `json:"test_date"`
	Metrics    json.RawMessage            `json:"metrics"`
	EGFR       *float64                   `json:"egfr,omitempty"`
	Summary    string                     `json:"summary"`
	Risks      []interpretation.RiskEntry `json:"risks"`
	Advisories []string                   `json:"advisories"`
	Citations  []string                   `json:"citations"`
	Confidence float64                    `json:"confidence"`
	Conditions []interpretation.Condition `json:"conditions"`
	Error      *string                    `json:"error,omitempty"`
	Notes      *string                    `json:"notes,omitempty"`
	AnalyzedAt time.Time                  `json:"analyzed_at"`
	CreatedAt  time.Time                  `json:"created_at"`
}

// Result rebuilds the aggregator output held by the record.
func (a *Analysis) Result() interpretation.AnalysisResult {
	res := interpretation.AnalysisResult{
		Summary:    a.Summary,
		Risks:      a.Risks,
		Advisories: a.Advisories,
		Citations:  a.Citations,
		Confidence: a.Confidence,
		Timestamp:  a.AnalyzedAt,
	}
	if a.Error != nil {
		res.Error = *a.Error
	}
	return res
}

// Evaluation bundles the two independent engine outputs for one sample.
type Evaluation struct {
	Result     interpretation.AnalysisResult `json:"result"`
	Conditions []interpretation.Condition    `json:"conditions"`
	EGFR       *float64                      `json:"egfr,omitempty"`
}

// ConditionRecord is one detected condition in a patient's history.
type ConditionRecord struct {
	interpretation.Condition
	AnalysisID uuid.UUID                `json:"analysis_id"`
	PatientID  uuid.UUID                `json:"patient_id"`
	FluidType  interpretation.FluidType `json:"fluid_type"`
	TestDate   time.Time                `json:"test_date"`
	DetectedAt time.Time                `json:"detected_at"`
}

func newAnalysis(patientID uuid.UUID, s interpretation.Sample, ev *Evaluation) (*Analysis, error) {
	metrics := json.RawMessage("{}")
	if s.Metrics != nil {
		b, err := json.Marshal(s.Metrics)
		if err != nil {
			return nil, fmt.Errorf("encode metrics: %w", err)
		}
		metrics = b
	}
	a := &Analysis{
		PatientID:  patientID,
		FluidType:  s.FluidType,
		TestDate:   s.TestDate,
		Metrics:    metrics,
		EGFR:       ev.EGFR,
		Summary:    ev.Result.Summary,
		Risks:      ev.Result.Risks,
		Advisories: ev.Result.Advisories,
		Citations:  ev.Result.Citations,
		Confidence: ev.Result.Confidence,
		Conditions: ev.Conditions,
		AnalyzedAt: ev.Result.Timestamp,
	}
	if ev.Result.Error != "" {
		cause := ev.Result.Error
		a.Error = &cause
	}
	if s.Notes != "" {
		notes := s.Notes
		a.Notes = &notes
	}
	return a, nil
}
