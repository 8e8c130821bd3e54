package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no patient has the requested id.
var ErrNotFound = errors.New("patient not found")

// Repository defines persistence for patient records.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	// Search matches q against name and MRN, case-insensitively.
	Search(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error)
}
