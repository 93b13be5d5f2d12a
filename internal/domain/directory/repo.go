package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Lookup failures surfaced by the directories.
var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrRoleMismatch    = errors.New("record does not hold the required role")
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
}

// PatientResolver is the narrow lookup the booking engine consumes: it
// confirms the id exists and holds the patient role.
type PatientResolver interface {
	ResolvePatient(ctx context.Context, id uuid.UUID) (*Patient, error)
}

// DoctorResolver confirms the id exists and holds the doctor role.
type DoctorResolver interface {
	ResolveDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
}
