package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rcm/rcm/internal/platform/secrets"
	"github.com/rcm/rcm/internal/platform/session"
)

// updatableSections are the top-level request keys PUT /clients/:id may
// touch. Anything else in the body is ignored.
var updatableSections = map[string]bool{
	"clientInfo":       true,
	"contactInfo":      true,
	"addressInfo":      true,
	"financialInfo":    true,
	"systemInfo":       true,
	"status":           true,
	"onboardingStatus": true,
	"ehrSystem":        true,
}

type Service struct {
	repo   Repository
	enc    *secrets.Encryptor
	logger zerolog.Logger
}

// NewService builds the client service. enc may be nil in development;
// integration-credential operations then refuse.
func NewService(repo Repository, enc *secrets.Encryptor, logger zerolog.Logger) *Service {
	return &Service{repo: repo, enc: enc, logger: logger}
}

func (s *Service) Create(ctx context.Context, ident session.Identity, c *Client) error {
	c.CompanyID = ident.CompanyID
	if c.ClientID == "" {
		c.ClientID = NewClientID(time.Now())
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	if c.OnboardingStatus == "" {
		c.OnboardingStatus = "Not Started"
	}
	c.Active = c.Status != StatusTerminated

	now := time.Now()
	c.Audit.CreatedBy = &ident.EmployeeID
	c.Audit.CreatedAt = &now
	c.Audit.LastModifiedBy = &ident.EmployeeID
	c.Audit.LastModifiedAt = &now

	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, companyID uuid.UUID, clientID string) (*Client, error) {
	return s.repo.GetByClientID(ctx, companyID, clientID)
}

func (s *Service) List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*Client, int, error) {
	return s.repo.List(ctx, companyID, f, limit, offset)
}

// UpdateSections merges an allow-listed subset of the request body onto the
// stored client. Unknown top-level keys are ignored, audit info is
// re-stamped, and invariants re-applied.
func (s *Service) UpdateSections(ctx context.Context, ident session.Identity, clientID string, body map[string]json.RawMessage) (*Client, error) {
	c, err := s.repo.GetByClientID(ctx, ident.CompanyID, clientID)
	if err != nil {
		return nil, err
	}

	for key, raw := range body {
		if !updatableSections[key] {
			continue
		}
		var dst interface{}
		switch key {
		case "clientInfo":
			dst = &c.ClientInfo
		case "contactInfo":
			dst = &c.ContactInfo
		case "addressInfo":
			dst = &c.AddressInfo
		case "financialInfo":
			dst = &c.Financial
		case "systemInfo":
			dst = &c.SystemInfo
		case "status":
			dst = &c.Status
		case "onboardingStatus":
			dst = &c.OnboardingStatus
		case "ehrSystem":
			dst = &c.EHRSystem
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	s.stamp(c, ident.EmployeeID)
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// IntegrationUpdate carries an integration config change. Credential
// plaintext arrives only here and is encrypted before anything is stored.
type IntegrationUpdate struct {
	WorkflowType   string            `json:"workflowType"`
	API            APIConfig         `json:"apiConfig"`
	APICredentials map[string]string `json:"apiCredentials,omitempty"`
	SFTP           SFTPConfig        `json:"sftpConfig"`
	SFTPPassword   string            `json:"sftpPassword,omitempty"`
	Manual         ManualConfig      `json:"manualConfig"`
}

func (s *Service) UpdateIntegration(ctx context.Context, ident session.Identity, clientID string, upd IntegrationUpdate) (*Client, error) {
	if upd.WorkflowType != "" && !ValidWorkflowTypes[upd.WorkflowType] {
		return nil, fmt.Errorf("invalid workflow type: %s", upd.WorkflowType)
	}
	if (len(upd.APICredentials) > 0 || upd.SFTPPassword != "") && s.enc == nil {
		return nil, fmt.Errorf("credential encryption is not configured")
	}

	c, err := s.repo.GetByClientID(ctx, ident.CompanyID, clientID)
	if err != nil {
		return nil, err
	}

	if upd.WorkflowType != "" {
		c.Integration.WorkflowType = upd.WorkflowType
	}
	c.Integration.API.Vendor = upd.API.Vendor
	c.Integration.API.BaseURL = upd.API.BaseURL
	c.Integration.API.AuthType = upd.API.AuthType
	c.Integration.SFTP.Host = upd.SFTP.Host
	c.Integration.SFTP.Port = upd.SFTP.Port
	c.Integration.SFTP.Username = upd.SFTP.Username
	c.Integration.SFTP.RemotePath = upd.SFTP.RemotePath
	c.Integration.Manual = upd.Manual

	var apiEnc, sftpEnc string
	if len(upd.APICredentials) > 0 {
		apiEnc, err = s.enc.EncryptMap(upd.APICredentials)
		if err != nil {
			return nil, err
		}
	}
	if upd.SFTPPassword != "" {
		sftpEnc, err = s.enc.Encrypt(upd.SFTPPassword)
		if err != nil {
			return nil, err
		}
	}

	s.stamp(c, ident.EmployeeID)
	c.Normalize()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	if apiEnc != "" || sftpEnc != "" {
		if err := s.repo.UpdateCredentials(ctx, c.ID, apiEnc, sftpEnc); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (s *Service) UpdateFinancial(ctx context.Context, ident session.Identity, clientID string, fin FinancialInfo) (*Client, error) {
	c, err := s.repo.GetByClientID(ctx, ident.CompanyID, clientID)
	if err != nil {
		return nil, err
	}
	c.Financial = fin
	s.stamp(c, ident.EmployeeID)
	c.Normalize()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) UpdateSyncStatus(ctx context.Context, ident session.Identity, clientID, syncStatus string) (*Client, error) {
	c, err := s.repo.GetByClientID(ctx, ident.CompanyID, clientID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	c.SystemInfo.SyncStatus = syncStatus
	c.SystemInfo.LastSyncAt = &now
	s.stamp(c, ident.EmployeeID)
	c.Normalize()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AgreementsUpdate toggles signature flags and appends compliance documents.
type AgreementsUpdate struct {
	MSASigned      *bool                `json:"msaSigned,omitempty"`
	HIPAABAASigned *bool                `json:"hipaaBaaSigned,omitempty"`
	Documents      []ComplianceDocument `json:"documents,omitempty"`
}

func (s *Service) UpdateAgreements(ctx context.Context, ident session.Identity, clientID string, upd AgreementsUpdate) (*Client, error) {
	c, err := s.repo.GetByClientID(ctx, ident.CompanyID, clientID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if upd.MSASigned != nil {
		c.Agreements.MSASigned = *upd.MSASigned
		if *upd.MSASigned {
			c.Agreements.MSASignedAt = &now
		}
	}
	if upd.HIPAABAASigned != nil {
		c.Agreements.HIPAABAASigned = *upd.HIPAABAASigned
		if *upd.HIPAABAASigned {
			c.Agreements.HIPAABAASignedAt = &now
		}
	}
	for _, doc := range upd.Documents {
		if doc.UploadedAt == nil {
			doc.UploadedAt = &now
		}
		c.Agreements.ComplianceDocuments = append(c.Agreements.ComplianceDocuments, doc)
	}
	s.stamp(c, ident.EmployeeID)
	c.Normalize()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Deactivate soft-deletes: status Terminated plus inactive flag. Rows are
// never physically removed.
func (s *Service) Deactivate(ctx context.Context, ident session.Identity, clientID string) (*Client, error) {
	c, err := s.repo.GetByClientID(ctx, ident.CompanyID, clientID)
	if err != nil {
		return nil, err
	}
	c.Status = StatusTerminated
	c.Active = false
	s.stamp(c, ident.EmployeeID)
	c.Normalize()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// BulkInsert inserts rows independently so one bad row does not block the
// rest. Returns the inserted count and per-row error detail.
func (s *Service) BulkInsert(ctx context.Context, ident session.Identity, rows []*Client) (int, []string) {
	inserted := 0
	var rowErrors []string
	for i, c := range rows {
		if err := s.Create(ctx, ident, c); err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		inserted++
	}
	return inserted, rowErrors
}

func (s *Service) SOWReady(ctx context.Context, companyID uuid.UUID, clientID string) (SOWReadiness, error) {
	c, err := s.repo.GetByClientID(ctx, companyID, clientID)
	if err != nil {
		return SOWReadiness{}, err
	}
	return Readiness(c), nil
}

// RevealedCredentials is the decrypted payload of the explicit reveal call.
type RevealedCredentials struct {
	APICredentials map[string]string `json:"apiCredentials,omitempty"`
	SFTPPassword   string            `json:"sftpPassword,omitempty"`
}

// RevealCredentials decrypts stored integration credentials. This is the
// only call path that returns plaintext; every call is logged with the
// acting employee.
func (s *Service) RevealCredentials(ctx context.Context, ident session.Identity, clientID string) (*RevealedCredentials, error) {
	if s.enc == nil {
		return nil, fmt.Errorf("credential encryption is not configured")
	}
	c, err := s.repo.GetWithCredentials(ctx, ident.CompanyID, clientID)
	if err != nil {
		return nil, err
	}

	out := &RevealedCredentials{}
	if c.Integration.API.EncryptedCredentials != "" {
		out.APICredentials, err = s.enc.DecryptMap(c.Integration.API.EncryptedCredentials)
		if err != nil {
			return nil, err
		}
	}
	if c.Integration.SFTP.EncryptedPassword != "" {
		out.SFTPPassword, err = s.enc.Decrypt(c.Integration.SFTP.EncryptedPassword)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Warn().
		Str("client_id", clientID).
		Str("employee_id", ident.EmployeeID.String()).
		Msg("integration credentials revealed")
	return out, nil
}

func (s *Service) stamp(c *Client, employeeID uuid.UUID) {
	now := time.Now()
	c.Audit.LastModifiedBy = &employeeID
	c.Audit.LastModifiedAt = &now
}
