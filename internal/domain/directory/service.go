package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service exposes patient and doctor profiles plus the resolver lookups the
// booking engine depends on.
type Service struct {
	patients PatientRepository
	doctors  DoctorRepository
}

func NewService(patients PatientRepository, doctors DoctorRepository) *Service {
	return &Service{patients: patients, doctors: doctors}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if p.Role == "" {
		p.Role = RolePatient
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.FirstName == "" || d.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if d.Role == "" {
		d.Role = RoleDoctor
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

// ResolvePatient implements PatientResolver.
func (s *Service) ResolvePatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role != RolePatient {
		return nil, fmt.Errorf("patient %s: %w", id, ErrRoleMismatch)
	}
	return p, nil
}

// ResolveDoctor implements DoctorResolver.
func (s *Service) ResolveDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Role != RoleDoctor {
		return nil, fmt.Errorf("doctor %s: %w", id, ErrRoleMismatch)
	}
	return d, nil
}
