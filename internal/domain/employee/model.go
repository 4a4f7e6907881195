package employee

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Employee struct {
	ID             uuid.UUID `db:"id" json:"id"`
	EmployeeID     string    `db:"employee_id" json:"employeeId"`
	CompanyID      uuid.UUID `db:"company_id" json:"companyId"`
	FirstName      string    `db:"first_name" json:"firstName"`
	LastName       string    `db:"last_name" json:"lastName"`
	Email          string    `db:"email" json:"email"`
	Role           string    `db:"role" json:"role,omitempty"`
	Skills         []string  `db:"skills" json:"skills,omitempty"`
	Certifications []string  `db:"certifications" json:"certifications,omitempty"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

func (e *Employee) Validate() error {
	if strings.TrimSpace(e.FirstName) == "" || strings.TrimSpace(e.LastName) == "" {
		return fmt.Errorf("firstName and lastName are required")
	}
	if err := validEmail(e.Email); err != nil {
		return err
	}
	return nil
}

func validEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	at := strings.Index(email, "@")
	dot := strings.LastIndex(email, ".")
	if at < 1 || dot < at+2 || dot == len(email)-1 {
		return fmt.Errorf("invalid email: %s", email)
	}
	return nil
}

// NewEmployeeID generates a human-readable identifier like EMP-2025-3FA2B1.
func NewEmployeeID(now time.Time) string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("EMP-%d-%s", now.Year(), strings.ToUpper(hex.EncodeToString(b[:])))
}
