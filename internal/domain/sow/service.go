package sow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rcm/rcm/internal/domain/client"
	"github.com/rcm/rcm/internal/platform/session"
)

// TxRunner executes fn atomically; the SOW insert and the client backlink
// must commit or roll back together.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// updatableSections are the top-level request keys PUT /sow/:id may touch.
// Company, client and audit fields are never client-writable.
var updatableSections = map[string]bool{
	"serviceDetails":     true,
	"contractDetails":    true,
	"performanceTargets": true,
	"volumeForecasting":  true,
	"resourcePlanning":   true,
	"workflowConfig":     true,
	"status":             true,
	"startDate":          true,
	"endDate":            true,
}

type Service struct {
	repo    Repository
	clients client.Repository
	tx      TxRunner
	logger  zerolog.Logger
}

func NewService(repo Repository, clients client.Repository, tx TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, clients: clients, tx: tx, logger: logger}
}

// Create verifies client ownership, inserts the SOW and appends its id to
// the client's active-SOW list in one transaction.
func (s *Service) Create(ctx context.Context, ident session.Identity, sw *SOW) error {
	sw.CompanyID = ident.CompanyID
	if sw.SOWID == "" {
		sw.SOWID = NewSOWID(time.Now())
	}
	if sw.Status == "" {
		sw.Status = StatusDraft
	}

	now := time.Now()
	sw.Audit.CreatedBy = &ident.EmployeeID
	sw.Audit.CreatedAt = &now
	sw.Audit.LastModifiedBy = &ident.EmployeeID
	sw.Audit.LastModifiedAt = &now

	sw.Normalize()
	if err := sw.Validate(); err != nil {
		return err
	}

	return s.tx(ctx, func(ctx context.Context) error {
		if _, err := s.clients.GetByID(ctx, ident.CompanyID, sw.ClientID); err != nil {
			return fmt.Errorf("client %s: %w", sw.ClientID, err)
		}
		if err := s.repo.Create(ctx, sw); err != nil {
			return err
		}
		return s.clients.AppendActiveSOW(ctx, sw.ClientID, sw.ID)
	})
}

func (s *Service) Get(ctx context.Context, companyID uuid.UUID, sowID string) (*SOW, error) {
	return s.repo.GetBySOWID(ctx, companyID, sowID)
}

func (s *Service) List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*WithClient, int, error) {
	return s.repo.List(ctx, companyID, f, limit, offset)
}

// UpdateSections merges an allow-listed subset of the request body onto the
// stored SOW. Unknown top-level keys are ignored.
func (s *Service) UpdateSections(ctx context.Context, ident session.Identity, sowID string, body map[string]json.RawMessage) (*SOW, error) {
	sw, err := s.repo.GetBySOWID(ctx, ident.CompanyID, sowID)
	if err != nil {
		return nil, err
	}

	for key, raw := range body {
		if !updatableSections[key] {
			continue
		}
		var dst interface{}
		switch key {
		case "serviceDetails":
			dst = &sw.ServiceDetails
		case "contractDetails":
			dst = &sw.ContractDetails
		case "performanceTargets":
			dst = &sw.Targets
		case "volumeForecasting":
			dst = &sw.Forecast
		case "resourcePlanning":
			dst = &sw.Resources
		case "workflowConfig":
			dst = &sw.Workflow
		case "status":
			dst = &sw.Status
		case "startDate":
			dst = &sw.StartDate
		case "endDate":
			dst = &sw.EndDate
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	s.stamp(sw, ident.EmployeeID)
	sw.Normalize()
	if err := sw.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sw); err != nil {
		return nil, err
	}
	return sw, nil
}

// Delete removes the SOW and pulls its id from the owning client's
// active-SOW list, atomically.
func (s *Service) Delete(ctx context.Context, ident session.Identity, sowID string) error {
	sw, err := s.repo.GetBySOWID(ctx, ident.CompanyID, sowID)
	if err != nil {
		return err
	}
	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, ident.CompanyID, sw.ID); err != nil {
			return err
		}
		return s.clients.RemoveActiveSOW(ctx, sw.ClientID, sw.ID)
	})
}

// AssignmentResult reports which employees were newly assigned and which
// were skipped as already assigned.
type AssignmentResult struct {
	Assigned []uuid.UUID `json:"assigned"`
	Skipped  []uuid.UUID `json:"skipped,omitempty"`
}

// Assign adds employees to the SOW. Assignment is idempotent per
// (sow, employee); duplicates in the request or in storage are skipped.
func (s *Service) Assign(ctx context.Context, ident session.Identity, sowID string, employeeIDs []uuid.UUID) (*AssignmentResult, error) {
	sw, err := s.repo.GetBySOWID(ctx, ident.CompanyID, sowID)
	if err != nil {
		return nil, err
	}

	existing := make(map[uuid.UUID]bool, len(sw.AssignedEmployees))
	for _, id := range sw.AssignedEmployees {
		existing[id] = true
	}

	result := &AssignmentResult{}
	for _, id := range employeeIDs {
		if existing[id] {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		existing[id] = true
		sw.AssignedEmployees = append(sw.AssignedEmployees, id)
		result.Assigned = append(result.Assigned, id)
	}

	if len(result.Assigned) > 0 {
		s.stamp(sw, ident.EmployeeID)
		if err := s.repo.Update(ctx, sw); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UpdateStatus changes the lifecycle status, restricted to the enum.
func (s *Service) UpdateStatus(ctx context.Context, ident session.Identity, sowID, status string) (*SOW, error) {
	if !ValidStatuses[status] {
		return nil, fmt.Errorf("invalid sow status: %s", status)
	}
	sw, err := s.repo.GetBySOWID(ctx, ident.CompanyID, sowID)
	if err != nil {
		return nil, err
	}
	sw.Status = status
	s.stamp(sw, ident.EmployeeID)
	if err := s.repo.Update(ctx, sw); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("sow_id", sowID).
		Str("status", status).
		Str("employee_id", ident.EmployeeID.String()).
		Msg("sow status changed")
	return sw, nil
}

// Metrics returns the stored metrics with all derived figures.
func (s *Service) Metrics(ctx context.Context, companyID uuid.UUID, sowID string) (*MetricsSnapshot, error) {
	sw, err := s.repo.GetBySOWID(ctx, companyID, sowID)
	if err != nil {
		return nil, err
	}
	snap := Snapshot(sw, time.Now())
	return &snap, nil
}

// AddTrend records a monthly trend entry, replacing any existing entry for
// the same (year, month) and keeping at most 24 entries.
func (s *Service) AddTrend(ctx context.Context, ident session.Identity, sowID string, entry MonthlyTrend) (*SOW, error) {
	if entry.Year < 2000 || entry.Month < 1 || entry.Month > 12 {
		return nil, fmt.Errorf("invalid trend period %d-%d", entry.Year, entry.Month)
	}
	sw, err := s.repo.GetBySOWID(ctx, ident.CompanyID, sowID)
	if err != nil {
		return nil, err
	}
	sw.AddMonthlyTrend(entry)
	s.stamp(sw, ident.EmployeeID)
	if err := s.repo.Update(ctx, sw); err != nil {
		return nil, err
	}
	return sw, nil
}

func (s *Service) stamp(sw *SOW, employeeID uuid.UUID) {
	now := time.Now()
	sw.Audit.LastModifiedBy = &employeeID
	sw.Audit.LastModifiedAt = &now
}
