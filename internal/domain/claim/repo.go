package claim

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("claim not found")

// ListFilter narrows List. Zero values are no-ops.
type ListFilter struct {
	Status   string
	ClientID uuid.UUID
	Payer    string
}

type Repository interface {
	Create(ctx context.Context, c *Claim) error
	GetByClaimID(ctx context.Context, companyID uuid.UUID, claimID string) (*Claim, error)
	Update(ctx context.Context, c *Claim) error
	List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*Claim, int, error)
}
