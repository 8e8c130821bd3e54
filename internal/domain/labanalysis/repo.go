package labanalysis

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no analysis has the requested id.
var ErrNotFound = errors.New("analysis not found")

// Repository defines persistence for analysis records.
type Repository interface {
	// Create stores the analysis and its conditions atomically.
	Create(ctx context.Context, a *Analysis) error
	GetByID(ctx context.Context, id uuid.UUID) (*Analysis, error)
	List(ctx context.Context, limit, offset int) ([]*Analysis, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Analysis, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListConditions returns a patient's detected conditions, newest test first.
	ListConditions(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ConditionRecord, int, error)
}
