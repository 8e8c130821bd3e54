package patient

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KyaptainJoyboy/Galpal/internal/domain/interpretation"
)

// Patient maps to the patient table.
type Patient struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	MRN                *string    `db:"mrn" json:"mrn,omitempty"`
	Name               string     `db:"name" json:"name"`
	Age                int        `db:"age" json:"age"`
	Sex                string     `db:"sex" json:"sex"`
	DateOfBirth        *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	ContactEmail       *string    `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone       *string    `db:"contact_phone" json:"contact_phone,omitempty"`
	MedicalHistory     *string    `db:"medical_history" json:"medical_history,omitempty"`
	CurrentMedications *string    `db:"current_medications" json:"current_medications,omitempty"`
	Allergies          *string    `db:"allergies" json:"allergies,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// AgeAt returns the patient's age in whole years at t. The recorded age is
// used when no date of birth is on file.
func (p *Patient) AgeAt(t time.Time) int {
	if p.DateOfBirth == nil {
		return p.Age
	}
	dob := p.DateOfBirth.UTC()
	t = t.UTC()
	age := t.Year() - dob.Year()
	if t.Month() < dob.Month() || (t.Month() == dob.Month() && t.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// PatientRef projects the record onto the demographics the engine reads,
// with age taken on the sample's test date.
func (p *Patient) PatientRef(testDate time.Time) interpretation.PatientRef {
	if testDate.IsZero() {
		testDate = time.Now()
	}
	return interpretation.PatientRef{
		Sex: interpretation.Sex(p.Sex),
		Age: p.AgeAt(testDate),
	}
}

// UnmarshalJSON accepts date_of_birth as either 2006-01-02 or RFC 3339.
func (p *Patient) UnmarshalJSON(data []byte) error {
	type plain Patient
	aux := struct {
		*plain
		DateOfBirth *string `json:"date_of_birth"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.DateOfBirth = nil
	if aux.DateOfBirth != nil && *aux.DateOfBirth != "" {
		t, err := interpretation.ParseDate(*aux.DateOfBirth)
		if err != nil {
			return fmt.Errorf("invalid date_of_birth: %w", err)
		}
		p.DateOfBirth = &t
	}
	return nil
}
