package client

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a client does not exist or is not owned by
// the acting company.
var ErrNotFound = errors.New("client not found")

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Status          string
	EHRSystem       string
	WorkflowType    string
	Search          string // substring over name, legal name, primary email
	OnlyActive      bool
	PendingGoLive   bool // onboarding status not yet "Go Live"
}

// Repository persists clients. Get methods scrub encrypted credential
// fields; GetWithCredentials is the single projection that includes them.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	GetByClientID(ctx context.Context, companyID uuid.UUID, clientID string) (*Client, error)
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*Client, error)
	GetWithCredentials(ctx context.Context, companyID uuid.UUID, clientID string) (*Client, error)
	Update(ctx context.Context, c *Client) error
	UpdateCredentials(ctx context.Context, id uuid.UUID, apiCredentials, sftpPassword string) error
	List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*Client, int, error)
	// Both keep totalSowCount equal to len(activeSows) in the same write.
	AppendActiveSOW(ctx context.Context, clientID, sowID uuid.UUID) error
	RemoveActiveSOW(ctx context.Context, clientID, sowID uuid.UUID) error
}
