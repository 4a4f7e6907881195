package patient

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Demographics struct {
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
}

type Insurance struct {
	Payer    string `json:"payer,omitempty"`
	MemberID string `json:"memberId,omitempty"`
	GroupID  string `json:"groupId,omitempty"`
}

type Patient struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	PatientID    string       `db:"patient_id" json:"patientId"`
	CompanyID    uuid.UUID    `db:"company_id" json:"companyId"`
	ClientID     uuid.UUID    `db:"client_id" json:"clientId"`
	Demographics Demographics `db:"demographics" json:"demographics"`
	Insurance    Insurance    `db:"insurance" json:"insurance"`
	Active       bool         `db:"active" json:"active"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}

func (p *Patient) Validate() error {
	if strings.TrimSpace(p.Demographics.FirstName) == "" || strings.TrimSpace(p.Demographics.LastName) == "" {
		return fmt.Errorf("demographics.firstName and demographics.lastName are required")
	}
	if p.ClientID == uuid.Nil {
		return fmt.Errorf("clientId is required")
	}
	if p.Demographics.Email != "" {
		at := strings.Index(p.Demographics.Email, "@")
		dot := strings.LastIndex(p.Demographics.Email, ".")
		if at < 1 || dot < at+2 || dot == len(p.Demographics.Email)-1 {
			return fmt.Errorf("invalid email: %s", p.Demographics.Email)
		}
	}
	return nil
}

// NewPatientID generates a human-readable identifier like PAT-2025-3FA2B1.
func NewPatientID(now time.Time) string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("PAT-%d-%s", now.Year(), strings.ToUpper(hex.EncodeToString(b[:])))
}
