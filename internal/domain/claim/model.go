package claim

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Claim working statuses.
const (
	StatusReceived   = "Received"
	StatusInProgress = "In Progress"
	StatusSubmitted  = "Submitted"
	StatusPaid       = "Paid"
	StatusDenied     = "Denied"
	StatusAppealed   = "Appealed"
	StatusClosed     = "Closed"
)

var ValidStatuses = map[string]bool{
	StatusReceived: true, StatusInProgress: true, StatusSubmitted: true,
	StatusPaid: true, StatusDenied: true, StatusAppealed: true, StatusClosed: true,
}

// allowedTransitions is the denial-workflow state machine. A claim can only
// move along these edges; anything else is rejected.
var allowedTransitions = map[string][]string{
	StatusReceived:   {StatusInProgress, StatusClosed},
	StatusInProgress: {StatusSubmitted, StatusClosed},
	StatusSubmitted:  {StatusPaid, StatusDenied},
	StatusDenied:     {StatusAppealed, StatusClosed},
	StatusAppealed:   {StatusPaid, StatusDenied, StatusClosed},
	StatusPaid:       {StatusClosed},
	StatusClosed:     nil,
}

// CanTransition reports whether from→to is an allowed status change.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DenialInfo is populated when a claim is denied and drives the appeal
// workflow.
type DenialInfo struct {
	Code           string     `json:"code,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	DeniedAt       *time.Time `json:"deniedAt,omitempty"`
	AppealDeadline *time.Time `json:"appealDeadline,omitempty"`
}

type Claim struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	ClaimID          string     `db:"claim_id" json:"claimId"`
	CompanyID        uuid.UUID  `db:"company_id" json:"companyId"`
	ClientID         uuid.UUID  `db:"client_id" json:"clientId"`
	PatientName      string     `db:"patient_name" json:"patientName"`
	Payer            string     `db:"payer" json:"payer,omitempty"`
	Amount           float64    `db:"amount" json:"amount"`
	Status           string     `db:"status" json:"status"`
	ServiceDate      *time.Time `db:"service_date" json:"serviceDate,omitempty"`
	Denial           DenialInfo `db:"denial_info" json:"denialInfo,omitempty"`
	AssignedEmployee *uuid.UUID `db:"assigned_employee" json:"assignedEmployee,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

func (c *Claim) Validate() error {
	if strings.TrimSpace(c.PatientName) == "" {
		return fmt.Errorf("patientName is required")
	}
	if c.ClientID == uuid.Nil {
		return fmt.Errorf("clientId is required")
	}
	if c.Amount < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	if c.Status != "" && !ValidStatuses[c.Status] {
		return fmt.Errorf("invalid claim status: %s", c.Status)
	}
	return nil
}

// NewClaimID generates a human-readable identifier like CLM-2025-3FA2B1.
func NewClaimID(now time.Time) string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("CLM-%d-%s", now.Year(), strings.ToUpper(hex.EncodeToString(b[:])))
}
