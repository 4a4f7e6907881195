package employee

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("employee not found")

type ListFilter struct {
	Role       string
	OnlyActive bool
}

type Repository interface {
	Create(ctx context.Context, e *Employee) error
	GetByEmployeeID(ctx context.Context, companyID uuid.UUID, employeeID string) (*Employee, error)
	Update(ctx context.Context, e *Employee) error
	List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*Employee, int, error)
}
