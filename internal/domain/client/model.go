package client

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Workflow types a client can be integrated under.
const (
	WorkflowManualOnly = "Manual Only"
	WorkflowAPIOnly    = "API Integration Only"
	WorkflowSFTP       = "SFTP Integration"
	WorkflowHybrid     = "Hybrid"
)

var ValidWorkflowTypes = map[string]bool{
	WorkflowManualOnly: true,
	WorkflowAPIOnly:    true,
	WorkflowSFTP:       true,
	WorkflowHybrid:     true,
}

// Client lifecycle statuses.
const (
	StatusPending    = "Pending"
	StatusActive     = "Active"
	StatusOnHold     = "On Hold"
	StatusTerminated = "Terminated"
)

var ValidStatuses = map[string]bool{
	StatusPending: true, StatusActive: true, StatusOnHold: true, StatusTerminated: true,
}

// onboardingProgressTable maps onboarding status to its fixed progress
// percentage. Unknown statuses reset progress to 0.
var onboardingProgressTable = map[string]int{
	"Not Started":   0,
	"Documentation": 20,
	"System Setup":  40,
	"Testing":       60,
	"Training":      80,
	"Go Live":       100,
}

// OnboardingProgressFor resolves the progress percentage for a status.
func OnboardingProgressFor(status string) int {
	return onboardingProgressTable[status]
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Title string `json:"title,omitempty"`
}

type ClientInfo struct {
	Name      string `json:"name"`
	LegalName string `json:"legalName,omitempty"`
	Type      string `json:"type,omitempty"`
	TaxID     string `json:"taxId,omitempty"`
	NPI       string `json:"npi,omitempty"`
	Website   string `json:"website,omitempty"`
	Specialty string `json:"specialty,omitempty"`
}

type ContactInfo struct {
	Primary    Contact `json:"primary"`
	Billing    Contact `json:"billing,omitempty"`
	Technical  Contact `json:"technical,omitempty"`
	Escalation Contact `json:"escalation,omitempty"`
}

type Address struct {
	Line1   string `json:"line1,omitempty"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

type BillingAddress struct {
	Address
	SameAsBusinessAddress bool `json:"sameAsBusinessAddress"`
}

type AddressInfo struct {
	Business Address        `json:"business"`
	Billing  BillingAddress `json:"billing"`
}

// APIConfig carries API integration settings. EncryptedCredentials holds
// AES-GCM ciphertext and is never serialized in API responses; the reveal
// endpoint returns decrypted credentials explicitly.
type APIConfig struct {
	Vendor               string `json:"vendor,omitempty"`
	BaseURL              string `json:"baseUrl,omitempty"`
	AuthType             string `json:"authType,omitempty"`
	EncryptedCredentials string `json:"-"`
}

type SFTPConfig struct {
	Host              string `json:"host,omitempty"`
	Port              int    `json:"port,omitempty"`
	Username          string `json:"username,omitempty"`
	RemotePath        string `json:"remotePath,omitempty"`
	EncryptedPassword string `json:"-"`
}

type ManualConfig struct {
	AllowedFormats []string `json:"allowedFormats,omitempty"`
	MaxFileSizeMB  int      `json:"maxFileSizeMb,omitempty"`
	Schedule       string   `json:"schedule,omitempty"`
}

type IntegrationStrategy struct {
	WorkflowType string       `json:"workflowType,omitempty"`
	API          APIConfig    `json:"apiConfig,omitempty"`
	SFTP         SFTPConfig   `json:"sftpConfig,omitempty"`
	Manual       ManualConfig `json:"manualConfig,omitempty"`
}

type ComplianceDocument struct {
	Name       string     `json:"name"`
	URL        string     `json:"url,omitempty"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
}

type ServiceAgreements struct {
	MSASigned           bool                 `json:"msaSigned"`
	MSASignedAt         *time.Time           `json:"msaSignedAt,omitempty"`
	HIPAABAASigned      bool                 `json:"hipaaBaaSigned"`
	HIPAABAASignedAt    *time.Time           `json:"hipaaBaaSignedAt,omitempty"`
	ComplianceDocuments []ComplianceDocument `json:"complianceDocuments,omitempty"`
	ActiveSOWs          []uuid.UUID          `json:"activeSows,omitempty"`
	TotalSOWCount       int                  `json:"totalSowCount"`
}

type FinancialInfo struct {
	Currency         string  `json:"currency,omitempty"`
	PaymentTerms     string  `json:"paymentTerms,omitempty"`
	CreditLimit      float64 `json:"creditLimit,omitempty"`
	RevenueThisMonth float64 `json:"revenueThisMonth,omitempty"`
}

type PerformanceMetrics struct {
	QualityScore  float64 `json:"qualityScore,omitempty"`
	SLACompliance float64 `json:"slaCompliance,omitempty"`
	DenialRate    float64 `json:"denialRate,omitempty"`
	MonthlyVolume int     `json:"monthlyVolume,omitempty"`
}

type SystemInfo struct {
	BusinessHours string     `json:"businessHours,omitempty"`
	Timezone      string     `json:"timezone,omitempty"`
	SyncStatus    string     `json:"syncStatus,omitempty"`
	LastSyncAt    *time.Time `json:"lastSyncAt,omitempty"`
}

type AuditInfo struct {
	CreatedBy      *uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	LastModifiedBy *uuid.UUID `json:"lastModifiedBy,omitempty"`
	LastModifiedAt *time.Time `json:"lastModifiedAt,omitempty"`
	OnboardedBy    *uuid.UUID `json:"onboardedBy,omitempty"`
	OnboardedAt    *time.Time `json:"onboardedAt,omitempty"`
	ReviewedBy     *uuid.UUID `json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
}

// Client is a billing/provider organization contracting RCM services.
// Nested section groups are stored as JSONB; the scalar columns exist for
// filtering and are kept in sync by Normalize.
type Client struct {
	ID                 uuid.UUID           `db:"id" json:"id"`
	ClientID           string              `db:"client_id" json:"clientId"`
	CompanyID          uuid.UUID           `db:"company_id" json:"companyId"`
	Status             string              `db:"status" json:"status"`
	OnboardingStatus   string              `db:"onboarding_status" json:"onboardingStatus"`
	OnboardingProgress int                 `db:"onboarding_progress" json:"onboardingProgress"`
	EHRSystem          string              `db:"ehr_system" json:"ehrSystem,omitempty"`
	WorkflowType       string              `db:"workflow_type" json:"workflowType,omitempty"`
	Active             bool                `db:"active" json:"active"`
	ClientInfo         ClientInfo          `db:"client_info" json:"clientInfo"`
	ContactInfo        ContactInfo         `db:"contact_info" json:"contactInfo"`
	AddressInfo        AddressInfo         `db:"address_info" json:"addressInfo"`
	Integration        IntegrationStrategy `db:"integration_strategy" json:"integrationStrategy"`
	Agreements         ServiceAgreements   `db:"service_agreements" json:"serviceAgreements"`
	Financial          FinancialInfo       `db:"financial_info" json:"financialInfo"`
	Metrics            PerformanceMetrics  `db:"performance_metrics" json:"performanceMetrics"`
	SystemInfo         SystemInfo          `db:"system_info" json:"systemInfo"`
	Audit              AuditInfo           `db:"audit_info" json:"auditInfo"`
	CreatedAt          time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updatedAt"`
}

// Normalize enforces the save-time invariants: onboarding progress is a
// pure function of onboarding status, the billing address mirrors the
// business address when flagged, and the filter columns track their
// section sources. Called before every insert and update.
func (c *Client) Normalize() {
	c.OnboardingProgress = OnboardingProgressFor(c.OnboardingStatus)

	if c.AddressInfo.Billing.SameAsBusinessAddress {
		c.AddressInfo.Billing.Address = c.AddressInfo.Business
	}

	c.WorkflowType = c.Integration.WorkflowType
	c.Agreements.TotalSOWCount = len(c.Agreements.ActiveSOWs)

	// A Terminated client is never active, whichever path set the status.
	if c.Status == StatusTerminated {
		c.Active = false
	}
}

// Validate checks required fields and enum membership.
func (c *Client) Validate() error {
	if strings.TrimSpace(c.ClientInfo.Name) == "" {
		return fmt.Errorf("clientInfo.name is required")
	}
	if c.Status != "" && !ValidStatuses[c.Status] {
		return fmt.Errorf("invalid client status: %s", c.Status)
	}
	if c.Integration.WorkflowType != "" && !ValidWorkflowTypes[c.Integration.WorkflowType] {
		return fmt.Errorf("invalid workflow type: %s", c.Integration.WorkflowType)
	}
	if err := validEmail(c.ContactInfo.Primary.Email); err != nil {
		return fmt.Errorf("contactInfo.primary: %w", err)
	}
	if c.ContactInfo.Billing.Email != "" {
		if err := validEmail(c.ContactInfo.Billing.Email); err != nil {
			return fmt.Errorf("contactInfo.billing: %w", err)
		}
	}
	if c.ContactInfo.Technical.Email != "" {
		if err := validEmail(c.ContactInfo.Technical.Email); err != nil {
			return fmt.Errorf("contactInfo.technical: %w", err)
		}
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

// NewClientID generates a human-readable identifier like CL-2025-3FA2B1.
func NewClientID(now time.Time) string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("CL-%d-%s", now.Year(), strings.ToUpper(hex.EncodeToString(b[:])))
}

// SOWReadiness details the four conditions a client must satisfy before a
// statement of work can be opened against it.
type SOWReadiness struct {
	Ready            bool `json:"ready"`
	MSASigned        bool `json:"msaSigned"`
	HIPAABAASigned   bool `json:"hipaaBaaSigned"`
	WorkflowTypeSet  bool `json:"workflowTypeSet"`
	OnboardingGoLive bool `json:"onboardingGoLive"`
}

// Readiness evaluates SOW readiness from a snapshot. All four conditions
// must hold; any single missing one makes the client not ready.
func Readiness(c *Client) SOWReadiness {
	r := SOWReadiness{
		MSASigned:        c.Agreements.MSASigned,
		HIPAABAASigned:   c.Agreements.HIPAABAASigned,
		WorkflowTypeSet:  c.Integration.WorkflowType != "",
		OnboardingGoLive: c.OnboardingStatus == "Go Live",
	}
	r.Ready = r.MSASigned && r.HIPAABAASigned && r.WorkflowTypeSet && r.OnboardingGoLive
	return r
}

// IsIntegrationReady reports whether the configured workflow type has the
// configuration it needs to move files.
func IsIntegrationReady(c *Client) bool {
	switch c.Integration.WorkflowType {
	case WorkflowManualOnly:
		return len(c.Integration.Manual.AllowedFormats) > 0
	case WorkflowAPIOnly:
		return c.Integration.API.BaseURL != "" && c.Integration.API.EncryptedCredentials != ""
	case WorkflowSFTP:
		return c.Integration.SFTP.Host != "" && c.Integration.SFTP.Username != "" && c.Integration.SFTP.EncryptedPassword != ""
	case WorkflowHybrid:
		apiReady := c.Integration.API.BaseURL != "" && c.Integration.API.EncryptedCredentials != ""
		sftpReady := c.Integration.SFTP.Host != "" && c.Integration.SFTP.Username != "" && c.Integration.SFTP.EncryptedPassword != ""
		return apiReady || sftpReady
	default:
		return false
	}
}

// RevenueThisMonth is a passthrough over the stored financial snapshot.
func RevenueThisMonth(c *Client) float64 {
	return c.Financial.RevenueThisMonth
}
