package claim

import (
	"context"
	"fmt"
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

func (s *Service) Create(ctx context.Context, ident session.Identity, c *Claim) error {
	c.CompanyID = ident.CompanyID
	if c.ClaimID == "" {
		c.ClaimID = NewClaimID(time.Now())
	}
	if c.Status == "" {
		c.Status = StatusReceived
	}
	if err := c.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, companyID uuid.UUID, claimID string) (*Claim, error) {
	return s.repo.GetByClaimID(ctx, companyID, claimID)
}

func (s *Service) List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*Claim, int, error) {
	return s.repo.List(ctx, companyID, f, limit, offset)
}

// ClaimUpdate carries the client-writable fields of a claim. Status changes
// go through UpdateStatus instead.
type ClaimUpdate struct {
	PatientName      *string    `json:"patientName,omitempty"`
	Payer            *string    `json:"payer,omitempty"`
	Amount           *float64   `json:"amount,omitempty"`
	ServiceDate      *time.Time `json:"serviceDate,omitempty"`
	AssignedEmployee *uuid.UUID `json:"assignedEmployee,omitempty"`
}

func (s *Service) Update(ctx context.Context, ident session.Identity, claimID string, upd ClaimUpdate) (*Claim, error) {
	c, err := s.repo.GetByClaimID(ctx, ident.CompanyID, claimID)
	if err != nil {
		return nil, err
	}
	if upd.PatientName != nil {
		c.PatientName = *upd.PatientName
	}
	if upd.Payer != nil {
		c.Payer = *upd.Payer
	}
	if upd.Amount != nil {
		c.Amount = *upd.Amount
	}
	if upd.ServiceDate != nil {
		c.ServiceDate = upd.ServiceDate
	}
	if upd.AssignedEmployee != nil {
		c.AssignedEmployee = upd.AssignedEmployee
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// StatusChange moves a claim along the denial workflow. Denial detail is
// only accepted when the target status is Denied.
type StatusChange struct {
	Status string     `json:"status"`
	Denial DenialInfo `json:"denialInfo,omitempty"`
}

func (s *Service) UpdateStatus(ctx context.Context, ident session.Identity, claimID string, change StatusChange) (*Claim, error) {
	if !ValidStatuses[change.Status] {
		return nil, fmt.Errorf("invalid claim status: %s", change.Status)
	}
	c, err := s.repo.GetByClaimID(ctx, ident.CompanyID, claimID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(c.Status, change.Status) {
		return nil, fmt.Errorf("cannot move claim from %s to %s", c.Status, change.Status)
	}

	c.Status = change.Status
	if change.Status == StatusDenied {
		c.Denial = change.Denial
		if c.Denial.DeniedAt == nil {
			now := time.Now()
			c.Denial.DeniedAt = &now
		}
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("claim_id", claimID).
		Str("status", change.Status).
		Str("employee_id", ident.EmployeeID.String()).
		Msg("claim status changed")
	return c, nil
}

// BulkInsert inserts rows independently; one bad row does not block the
// rest.
func (s *Service) BulkInsert(ctx context.Context, ident session.Identity, rows []*Claim) (int, []string) {
	inserted := 0
	var rowErrors []string
	for i, c := range rows {
		if err := c.Validate(); err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		if err := s.Create(ctx, ident, c); err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		inserted++
	}
	return inserted, rowErrors
}
