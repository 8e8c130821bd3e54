package cdshooks

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KyaptainJoyboy/Galpal/internal/domain/interpretation"
)

const (
	LabFindingsID   = "galpal-lab-findings"
	HookPatientView = "patient-view"
)

var indicators = map[interpretation.ConditionRisk]string{
	interpretation.ConditionHigh:     "critical",
	interpretation.ConditionModerate: "warning",
	interpretation.ConditionLow:      "info",
}

// LabFindingsService is the discovery entry for the lab findings service.
var LabFindingsService = Service{
	Hook:        HookPatientView,
	Title:       "Lab findings",
	Description: "Flags conditions suggested by the patient's most recent blood or urine panel",
	ID:          LabFindingsID,
	Prefetch:    map[string]string{"sample": "Observation?patient={{context.patientId}}&category=laboratory&_sort=-date&_count=1"},
}

// RegisterLabFindings registers the lab findings service and a feedback
// handler that logs card outcomes.
func RegisterLabFindings(h *Handler, logger zerolog.Logger) {
	h.RegisterService(LabFindingsService, LabFindings)
	h.RegisterFeedbackHandler(LabFindingsID, func(_ context.Context, serviceID string, fb Feedback) error {
		logger.Info().
			Str("service", serviceID).
			Str("card", fb.Card).
			Str("outcome", fb.Outcome).
			Msg("cds feedback")
		return nil
	})
}

// LabFindings runs the condition detector over the prefetched sample and
// returns one card per condition. patientSex and patientAge in the hook
// context take precedence over the sample's own patient fields.
func LabFindings(_ context.Context, req Request) (*Response, error) {
	raw, ok := req.Prefetch["sample"]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: prefetch sample is required", ErrInvalidRequest)
	}
	var s interpretation.Sample
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: prefetch sample: %v", ErrInvalidRequest, err)
	}

	if v, ok := req.Context["patientSex"].(string); ok && v != "" {
		s.Patient.Sex = interpretation.Sex(strings.ToLower(v))
	}
	switch v := req.Context["patientAge"].(type) {
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: patientAge must be a whole number of years", ErrInvalidRequest)
		}
		s.Patient.Age = int(v)
	case nil:
	default:
		return nil, fmt.Errorf("%w: patientAge must be a number", ErrInvalidRequest)
	}

	conditions := interpretation.Detect(s.Metrics, s.FluidType, s.Patient, interpretation.EstimateForSample(s))
	resp := &Response{Cards: make([]Card, 0, len(conditions))}
	for _, c := range conditions {
		resp.Cards = append(resp.Cards, card(c))
	}
	return resp, nil
}

func card(c interpretation.Condition) Card {
	indicator, ok := indicators[c.RiskLevel]
	if !ok {
		indicator = "info"
	}
	return Card{
		UUID:      uuid.NewString(),
		Summary:   fmt.Sprintf("%s (%s risk)", c.Name, c.RiskLevel),
		Detail:    c.Explanation,
		Indicator: indicator,
		Source:    Source{Label: c.Source},
	}
}
