package sow

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("sow not found")

// ListFilter narrows List. Zero values are no-ops.
type ListFilter struct {
	Status   string
	ClientID uuid.UUID
}

// WithClient is a list row joined with the owning client's display name.
type WithClient struct {
	SOW
	ClientName string `json:"clientName,omitempty"`
}

type Repository interface {
	Create(ctx context.Context, s *SOW) error
	GetBySOWID(ctx context.Context, companyID uuid.UUID, sowID string) (*SOW, error)
	Update(ctx context.Context, s *SOW) error
	Delete(ctx context.Context, companyID uuid.UUID, id uuid.UUID) error
	List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*WithClient, int, error)
}
