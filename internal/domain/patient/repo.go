package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("patient not found")

type ListFilter struct {
	ClientID   uuid.UUID
	OnlyActive bool
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByPatientID(ctx context.Context, companyID uuid.UUID, patientID string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*Patient, int, error)
}
