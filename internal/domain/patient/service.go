package patient

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service provides business logic for patient records.
type Service struct {
	patients Repository
	now      func() time.Time
}

func NewService(r Repository) *Service {
	return &Service{patients: r, now: time.Now}
}

var validSexes = map[string]bool{"male": true, "female": true, "other": true}

const maxAge = 150

func (s *Service) validate(p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	p.Sex = strings.ToLower(strings.TrimSpace(p.Sex))
	if p.Sex == "" {
		return fmt.Errorf("sex is required")
	}
	if !validSexes[p.Sex] {
		return fmt.Errorf("invalid sex: %s", p.Sex)
	}
	if p.DateOfBirth != nil {
		if p.DateOfBirth.After(s.now()) {
			return fmt.Errorf("date_of_birth is in the future")
		}
		p.Age = p.AgeAt(s.now())
	}
	if p.Age < 0 || p.Age > maxAge {
		return fmt.Errorf("age must be between 0 and %d", maxAge)
	}
	if p.ContactEmail != nil && *p.ContactEmail != "" {
		if _, err := mail.ParseAddress(*p.ContactEmail); err != nil {
			return fmt.Errorf("invalid contact_email: %s", *p.ContactEmail)
		}
	}
	return nil
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("id is required")
	}
	if err := s.validate(p); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

// ListPatients pages through all patients, or those whose name or MRN
// contains q when q is non-empty.
func (s *Service) ListPatients(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	if q = strings.TrimSpace(q); q != "" {
		return s.patients.Search(ctx, q, limit, offset)
	}
	return s.patients.List(ctx, limit, offset)
}
