package employee

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

func (s *Service) Create(ctx context.Context, ident session.Identity, e *Employee) error {
	e.CompanyID = ident.CompanyID
	if e.EmployeeID == "" {
		e.EmployeeID = NewEmployeeID(time.Now())
	}
	e.Active = true
	if err := e.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, companyID uuid.UUID, employeeID string) (*Employee, error) {
	return s.repo.GetByEmployeeID(ctx, companyID, employeeID)
}

func (s *Service) List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*Employee, int, error) {
	return s.repo.List(ctx, companyID, f, limit, offset)
}

// EmployeeUpdate carries the client-writable fields.
type EmployeeUpdate struct {
	FirstName      *string   `json:"firstName,omitempty"`
	LastName       *string   `json:"lastName,omitempty"`
	Email          *string   `json:"email,omitempty"`
	Role           *string   `json:"role,omitempty"`
	Skills         *[]string `json:"skills,omitempty"`
	Certifications *[]string `json:"certifications,omitempty"`
}

func (s *Service) Update(ctx context.Context, ident session.Identity, employeeID string, upd EmployeeUpdate) (*Employee, error) {
	e, err := s.repo.GetByEmployeeID(ctx, ident.CompanyID, employeeID)
	if err != nil {
		return nil, err
	}
	if upd.FirstName != nil {
		e.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		e.LastName = *upd.LastName
	}
	if upd.Email != nil {
		e.Email = *upd.Email
	}
	if upd.Role != nil {
		e.Role = *upd.Role
	}
	if upd.Skills != nil {
		e.Skills = *upd.Skills
	}
	if upd.Certifications != nil {
		e.Certifications = *upd.Certifications
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Deactivate soft-deletes; rows are never removed.
func (s *Service) Deactivate(ctx context.Context, ident session.Identity, employeeID string) (*Employee, error) {
	e, err := s.repo.GetByEmployeeID(ctx, ident.CompanyID, employeeID)
	if err != nil {
		return nil, err
	}
	e.Active = false
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}
