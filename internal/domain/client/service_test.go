package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rcm/rcm/internal/platform/secrets"
	"github.com/rcm/rcm/internal/platform/session"
)

// -- Mock Repository --

type mockRepo struct {
	items map[uuid.UUID]*Client
	creds map[uuid.UUID][2]string // api, sftp ciphertexts
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Client), creds: make(map[uuid.UUID][2]string)}
}

func (m *mockRepo) Create(_ context.Context, c *Client) error {
	for _, existing := range m.items {
		if existing.ClientID == c.ClientID && existing.CompanyID == c.CompanyID {
			return fmt.Errorf("duplicate key: %s", c.ClientID)
		}
	}
	c.ID = uuid.New()
	m.items[c.ID] = c
	return nil
}

func (m *mockRepo) GetByClientID(_ context.Context, companyID uuid.UUID, clientID string) (*Client, error) {
	for _, c := range m.items {
		if c.CompanyID == companyID && c.ClientID == clientID {
			cp := *c
			cp.Integration.API.EncryptedCredentials = ""
			cp.Integration.SFTP.EncryptedPassword = ""
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByID(_ context.Context, companyID, id uuid.UUID) (*Client, error) {
	c, ok := m.items[id]
	if !ok || c.CompanyID != companyID {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockRepo) GetWithCredentials(_ context.Context, companyID uuid.UUID, clientID string) (*Client, error) {
	for _, c := range m.items {
		if c.CompanyID == companyID && c.ClientID == clientID {
			cp := *c
			stored := m.creds[c.ID]
			cp.Integration.API.EncryptedCredentials = stored[0]
			cp.Integration.SFTP.EncryptedPassword = stored[1]
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, c *Client) error {
	for id, existing := range m.items {
		if existing.ClientID == c.ClientID && existing.CompanyID == c.CompanyID {
			c.ID = id
			m.items[id] = c
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockRepo) UpdateCredentials(_ context.Context, id uuid.UUID, apiCreds, sftpPassword string) error {
	stored := m.creds[id]
	if apiCreds != "" {
		stored[0] = apiCreds
	}
	if sftpPassword != "" {
		stored[1] = sftpPassword
	}
	m.creds[id] = stored
	return nil
}

func (m *mockRepo) List(_ context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*Client, int, error) {
	var result []*Client
	for _, c := range m.items {
		if c.CompanyID != companyID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.OnlyActive && !c.Active {
			continue
		}
		if f.PendingGoLive && (!c.Active || c.OnboardingStatus == "Go Live") {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.ClientInfo.Name), strings.ToLower(f.Search)) {
			continue
		}
		result = append(result, c)
	}
	return result, len(result), nil
}

func (m *mockRepo) AppendActiveSOW(_ context.Context, clientID, sowID uuid.UUID) error {
	c, ok := m.items[clientID]
	if !ok {
		return ErrNotFound
	}
	c.Agreements.ActiveSOWs = append(c.Agreements.ActiveSOWs, sowID)
	c.Agreements.TotalSOWCount = len(c.Agreements.ActiveSOWs)
	return nil
}

func (m *mockRepo) RemoveActiveSOW(_ context.Context, clientID, sowID uuid.UUID) error {
	c, ok := m.items[clientID]
	if !ok {
		return ErrNotFound
	}
	var kept []uuid.UUID
	for _, id := range c.Agreements.ActiveSOWs {
		if id != sowID {
			kept = append(kept, id)
		}
	}
	c.Agreements.ActiveSOWs = kept
	c.Agreements.TotalSOWCount = len(c.Agreements.ActiveSOWs)
	return nil
}

// -- Helpers --

func testIdentity() session.Identity {
	return session.Identity{CompanyID: uuid.New(), EmployeeID: uuid.New(), Roles: []string{"admin"}}
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	enc, _ := secrets.NewEncryptor(bytes.Repeat([]byte{0x11}, 32))
	return NewService(repo, enc, zerolog.Nop()), repo
}

func validClient(name string) *Client {
	return &Client{
		ClientInfo:  ClientInfo{Name: name},
		ContactInfo: ContactInfo{Primary: Contact{Email: "ops@example.com"}},
	}
}

// -- Tests --

func TestCreate_StampsAuditAndDefaults(t *testing.T) {
	svc, _ := newTestService()
	ident := testIdentity()
	c := validClient("Acme Health")
	if err := svc.Create(context.Background(), ident, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.CompanyID != ident.CompanyID {
		t.Error("company not taken from session identity")
	}
	if c.ClientID == "" {
		t.Error("client id not generated")
	}
	if c.Status != StatusPending {
		t.Errorf("expected default status Pending, got %s", c.Status)
	}
	if c.Audit.CreatedBy == nil || *c.Audit.CreatedBy != ident.EmployeeID {
		t.Error("audit created_by not stamped")
	}
	if c.OnboardingStatus != "Not Started" || c.OnboardingProgress != 0 {
		t.Errorf("onboarding defaults wrong: %s/%d", c.OnboardingStatus, c.OnboardingProgress)
	}
}

func TestCreate_RejectsInvalid(t *testing.T) {
	svc, _ := newTestService()
	c := validClient("Acme")
	c.ContactInfo.Primary.Email = "bad"
	if err := svc.Create(context.Background(), testIdentity(), c); err == nil {
		t.Error("expected validation error")
	}
}

func TestUpdateSections_AllowListAndIgnoreUnknown(t *testing.T) {
	svc, _ := newTestService()
	ident := testIdentity()
	c := validClient("Acme Health")
	if err := svc.Create(context.Background(), ident, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	body := map[string]json.RawMessage{
		"clientInfo":       json.RawMessage(`{"name":"Acme Health Renamed"}`),
		"onboardingStatus": json.RawMessage(`"Testing"`),
		"companyId":        json.RawMessage(`"` + uuid.New().String() + `"`),
		"auditInfo":        json.RawMessage(`{"createdBy":"` + uuid.New().String() + `"}`),
	}
	updated, err := svc.UpdateSections(context.Background(), ident, c.ClientID, body)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ClientInfo.Name != "Acme Health Renamed" {
		t.Errorf("name not updated: %s", updated.ClientInfo.Name)
	}
	if updated.OnboardingProgress != 60 {
		t.Errorf("progress should follow onboarding status: %d", updated.OnboardingProgress)
	}
	if updated.CompanyID != ident.CompanyID {
		t.Error("companyId must not be client-writable")
	}
	if updated.Audit.CreatedBy == nil || *updated.Audit.CreatedBy != ident.EmployeeID {
		t.Error("auditInfo must not be client-writable")
	}
	if updated.Audit.LastModifiedBy == nil || *updated.Audit.LastModifiedBy != ident.EmployeeID {
		t.Error("lastModifiedBy not re-stamped")
	}
}

func TestUpdateSections_TerminatedStatusDeactivates(t *testing.T) {
	svc, _ := newTestService()
	ident := testIdentity()
	c := validClient("Acme Health")
	if err := svc.Create(context.Background(), ident, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	body := map[string]json.RawMessage{
		"status": json.RawMessage(`"Terminated"`),
	}
	updated, err := svc.UpdateSections(context.Background(), ident, c.ClientID, body)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != StatusTerminated || updated.Active {
		t.Errorf("expected Terminated/inactive, got %s/%v", updated.Status, updated.Active)
	}
}

func TestDeactivate_SoftDelete(t *testing.T) {
	svc, repo := newTestService()
	ident := testIdentity()
	c := validClient("Acme")
	if err := svc.Create(context.Background(), ident, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.Deactivate(context.Background(), ident, c.ClientID)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if got.Status != StatusTerminated || got.Active {
		t.Errorf("expected Terminated/inactive, got %s/%v", got.Status, got.Active)
	}
	if len(repo.items) != 1 {
		t.Error("soft delete must not remove the row")
	}
}

func TestBulkInsert_PartialFailure(t *testing.T) {
	svc, _ := newTestService()
	ident := testIdentity()

	rows := make([]*Client, 0, 5)
	for i := 0; i < 5; i++ {
		c := validClient(fmt.Sprintf("Client %d", i))
		c.ClientID = fmt.Sprintf("CL-2025-%06d", i)
		rows = append(rows, c)
	}
	rows[3].ClientID = rows[1].ClientID // duplicate key

	inserted, rowErrors := svc.BulkInsert(context.Background(), ident, rows)
	if inserted != 4 {
		t.Errorf("insertedCount = %d, want 4", inserted)
	}
	if len(rowErrors) != 1 || !strings.Contains(rowErrors[0], "row 4") {
		t.Errorf("unexpected row errors: %v", rowErrors)
	}
}

func TestUpdateIntegration_EncryptsAndReveals(t *testing.T) {
	svc, repo := newTestService()
	ident := testIdentity()
	c := validClient("Acme")
	if err := svc.Create(context.Background(), ident, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.UpdateIntegration(context.Background(), ident, c.ClientID, IntegrationUpdate{
		WorkflowType:   WorkflowSFTP,
		SFTP:           SFTPConfig{Host: "sftp.example.com", Port: 22, Username: "acme"},
		SFTPPassword:   "hunter2",
		APICredentials: map[string]string{"api_key": "k-1"},
		API:            APIConfig{BaseURL: "https://api.example.com"},
	})
	if err != nil {
		t.Fatalf("update integration: %v", err)
	}

	stored := repo.creds[c.ID]
	if stored[1] == "" || stored[1] == "hunter2" {
		t.Error("sftp password must be stored encrypted")
	}

	// Default read never exposes ciphertext.
	fetched, _ := svc.Get(context.Background(), ident.CompanyID, c.ClientID)
	if fetched.Integration.SFTP.EncryptedPassword != "" {
		t.Error("default projection leaked encrypted password")
	}

	revealed, err := svc.RevealCredentials(context.Background(), ident, c.ClientID)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if revealed.SFTPPassword != "hunter2" {
		t.Errorf("revealed password = %q", revealed.SFTPPassword)
	}
	if revealed.APICredentials["api_key"] != "k-1" {
		t.Errorf("revealed api creds = %v", revealed.APICredentials)
	}
}

func TestUpdateIntegration_RejectsInvalidWorkflow(t *testing.T) {
	svc, _ := newTestService()
	ident := testIdentity()
	c := validClient("Acme")
	if err := svc.Create(context.Background(), ident, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.UpdateIntegration(context.Background(), ident, c.ClientID, IntegrationUpdate{WorkflowType: "Fax"})
	if err == nil {
		t.Error("expected error for invalid workflow type")
	}
}

func TestRevealCredentials_RequiresEncryptor(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, zerolog.Nop())
	ident := testIdentity()
	c := validClient("Acme")
	if err := svc.Create(context.Background(), ident, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.RevealCredentials(context.Background(), ident, c.ClientID); err == nil {
		t.Error("expected error when encryption is not configured")
	}
}

func TestGet_WrongCompanyIsNotFound(t *testing.T) {
	svc, _ := newTestService()
	ident := testIdentity()
	c := validClient("Acme")
	if err := svc.Create(context.Background(), ident, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	other := testIdentity()
	if _, err := svc.Get(context.Background(), other.CompanyID, c.ClientID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for foreign company, got %v", err)
	}
}
