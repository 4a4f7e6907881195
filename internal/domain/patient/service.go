package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rcm/rcm/internal/platform/session"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, ident session.Identity, p *Patient) error {
	p.CompanyID = ident.CompanyID
	if p.PatientID == "" {
		p.PatientID = NewPatientID(time.Now())
	}
	p.Active = true
	if err := p.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, companyID uuid.UUID, patientID string) (*Patient, error) {
	return s.repo.GetByPatientID(ctx, companyID, patientID)
}

func (s *Service) List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, companyID, f, limit, offset)
}

// PatientUpdate carries the client-writable fields.
type PatientUpdate struct {
	Demographics *Demographics `json:"demographics,omitempty"`
	Insurance    *Insurance    `json:"insurance,omitempty"`
}

func (s *Service) Update(ctx context.Context, ident session.Identity, patientID string, upd PatientUpdate) (*Patient, error) {
	p, err := s.repo.GetByPatientID(ctx, ident.CompanyID, patientID)
	if err != nil {
		return nil, err
	}
	if upd.Demographics != nil {
		p.Demographics = *upd.Demographics
	}
	if upd.Insurance != nil {
		p.Insurance = *upd.Insurance
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Deactivate soft-deletes; rows are never removed.
func (s *Service) Deactivate(ctx context.Context, ident session.Identity, patientID string) (*Patient, error) {
	p, err := s.repo.GetByPatientID(ctx, ident.CompanyID, patientID)
	if err != nil {
		return nil, err
	}
	p.Active = false
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
