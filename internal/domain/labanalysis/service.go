package labanalysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/KyaptainJoyboy/Galpal/internal/domain/interpretation"
	"github.com/KyaptainJoyboy/Galpal/internal/domain/patient"
)

// ErrInvalidSample marks a sample rejected before evaluation.
var ErrInvalidSample = errors.New("invalid sample")

// PatientLookup resolves the patient a sample belongs to.
type PatientLookup interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// Service runs the interpretation engine and stores its findings.
type Service struct {
	analyses Repository
	patients PatientLookup
	engine   *interpretation.Aggregator
	timeout  time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService wires the service. A zero timeout disables the per-call deadline.
func NewService(r Repository, patients PatientLookup, engine *interpretation.Aggregator, timeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		analyses: r,
		patients: patients,
		engine:   engine,
		timeout:  timeout,
		logger:   logger.With().Str("component", "labanalysis").Logger(),
		now:      time.Now,
	}
}

// Evaluate runs the aggregator and detector over s without persisting
// anything. s.Patient must already be populated.
func (s *Service) Evaluate(ctx context.Context, sample interpretation.Sample) (*Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	egfr := interpretation.EstimateForSample(sample)

	var (
		ev Evaluation
		g  errgroup.Group
	)
	g.Go(func() error {
		res, err := s.engine.Evaluate(sample, egfr)
		if err != nil {
			return err
		}
		ev.Result = res
		return nil
	})
	g.Go(func() error {
		ev.Conditions = interpretation.Detect(sample.Metrics, sample.FluidType, sample.Patient, egfr)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	ev.EGFR = egfr.Ptr()

	if ev.Result.Error != "" {
		s.logger.Warn().
			Str("fluid_type", string(sample.FluidType)).
			Str("cause", ev.Result.Error).
			Msg("analysis degraded to default result")
	}
	return &ev, nil
}

// Analyze evaluates a sample for a stored patient and records the outcome.
func (s *Service) Analyze(ctx context.Context, patientID uuid.UUID, sample interpretation.Sample) (*Analysis, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	now := s.now()
	if sample.TestDate.IsZero() {
		sample.TestDate = now.UTC()
	} else if sample.TestDate.After(now) {
		return nil, fmt.Errorf("%w: test_date is in the future", ErrInvalidSample)
	}

	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	sample.Patient = p.PatientRef(sample.TestDate)

	ev, err := s.Evaluate(ctx, sample)
	if err != nil {
		return nil, err
	}
	a, err := newAnalysis(patientID, sample, ev)
	if err != nil {
		return nil, err
	}
	if err := s.analyses.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("store analysis: %w", err)
	}

	s.logger.Info().
		Str("analysis_id", a.ID.String()).
		Str("patient_id", patientID.String()).
		Str("fluid_type", string(a.FluidType)).
		Int("conditions", len(a.Conditions)).
		Float64("confidence", a.Confidence).
		Msg("analysis recorded")
	return a, nil
}

func (s *Service) GetAnalysis(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	return s.analyses.GetByID(ctx, id)
}

// ListAnalyses lists every analysis, or one patient's when patientID is set.
func (s *Service) ListAnalyses(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Analysis, int, error) {
	if patientID == uuid.Nil {
		return s.analyses.List(ctx, limit, offset)
	}
	return s.analyses.ListByPatient(ctx, patientID, limit, offset)
}

// ListPatientAnalyses is ListAnalyses for a patient that must exist.
func (s *Service) ListPatientAnalyses(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Analysis, int, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.analyses.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) DeleteAnalysis(ctx context.Context, id uuid.UUID) error {
	return s.analyses.Delete(ctx, id)
}

// ConditionHistory lists the conditions detected across a patient's analyses.
func (s *Service) ConditionHistory(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ConditionRecord, int, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.analyses.ListConditions(ctx, patientID, limit, offset)
}
