package sow

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rcm/rcm/internal/domain/client"
	"github.com/rcm/rcm/internal/platform/session"
)

// -- Mocks --

type mockRepo struct {
	items      map[uuid.UUID]*SOW
	failCreate bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*SOW)}
}

func (m *mockRepo) Create(_ context.Context, s *SOW) error {
	if m.failCreate {
		return fmt.Errorf("insert failed")
	}
	s.ID = uuid.New()
	m.items[s.ID] = s
	return nil
}

func (m *mockRepo) GetBySOWID(_ context.Context, companyID uuid.UUID, sowID string) (*SOW, error) {
	for _, s := range m.items {
		if s.CompanyID == companyID && s.SOWID == sowID {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, s *SOW) error {
	if _, ok := m.items[s.ID]; !ok {
		return ErrNotFound
	}
	m.items[s.ID] = s
	return nil
}

func (m *mockRepo) Delete(_ context.Context, companyID, id uuid.UUID) error {
	s, ok := m.items[id]
	if !ok || s.CompanyID != companyID {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*WithClient, int, error) {
	var result []*WithClient
	for _, s := range m.items {
		if s.CompanyID != companyID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.ClientID != uuid.Nil && s.ClientID != f.ClientID {
			continue
		}
		result = append(result, &WithClient{SOW: *s})
	}
	return result, len(result), nil
}

// clientRepoStub covers the pieces of the client repository the sow service
// touches: ownership lookups and backlink maintenance.
type clientRepoStub struct {
	clients map[uuid.UUID]*client.Client
}

func newClientRepoStub() *clientRepoStub {
	return &clientRepoStub{clients: make(map[uuid.UUID]*client.Client)}
}

func (c *clientRepoStub) add(companyID uuid.UUID) *client.Client {
	cl := &client.Client{ID: uuid.New(), CompanyID: companyID}
	c.clients[cl.ID] = cl
	return cl
}

func (c *clientRepoStub) GetByID(_ context.Context, companyID, id uuid.UUID) (*client.Client, error) {
	cl, ok := c.clients[id]
	if !ok || cl.CompanyID != companyID {
		return nil, client.ErrNotFound
	}
	return cl, nil
}

func (c *clientRepoStub) AppendActiveSOW(_ context.Context, clientID, sowID uuid.UUID) error {
	cl, ok := c.clients[clientID]
	if !ok {
		return client.ErrNotFound
	}
	cl.Agreements.ActiveSOWs = append(cl.Agreements.ActiveSOWs, sowID)
	cl.Agreements.TotalSOWCount = len(cl.Agreements.ActiveSOWs)
	return nil
}

func (c *clientRepoStub) RemoveActiveSOW(_ context.Context, clientID, sowID uuid.UUID) error {
	cl, ok := c.clients[clientID]
	if !ok {
		return client.ErrNotFound
	}
	var kept []uuid.UUID
	for _, id := range cl.Agreements.ActiveSOWs {
		if id != sowID {
			kept = append(kept, id)
		}
	}
	cl.Agreements.ActiveSOWs = kept
	cl.Agreements.TotalSOWCount = len(cl.Agreements.ActiveSOWs)
	return nil
}

func (c *clientRepoStub) Create(context.Context, *client.Client) error { return nil }
func (c *clientRepoStub) GetByClientID(context.Context, uuid.UUID, string) (*client.Client, error) {
	return nil, client.ErrNotFound
}
func (c *clientRepoStub) GetWithCredentials(context.Context, uuid.UUID, string) (*client.Client, error) {
	return nil, client.ErrNotFound
}
func (c *clientRepoStub) Update(context.Context, *client.Client) error { return nil }
func (c *clientRepoStub) UpdateCredentials(context.Context, uuid.UUID, string, string) error {
	return nil
}
func (c *clientRepoStub) List(context.Context, uuid.UUID, client.ListFilter, int, int) ([]*client.Client, int, error) {
	return nil, 0, nil
}

// passthroughTx mimics transactional semantics for mocks: the rollback of
// in-memory state is asserted indirectly by checking no partial writes.
func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testIdentity() session.Identity {
	return session.Identity{CompanyID: uuid.New(), EmployeeID: uuid.New(), Roles: []string{"admin"}}
}

func newTestService() (*Service, *mockRepo, *clientRepoStub) {
	repo := newMockRepo()
	clients := newClientRepoStub()
	return NewService(repo, clients, passthroughTx, zerolog.Nop()), repo, clients
}

func validSOW(clientID uuid.UUID) *SOW {
	return &SOW{
		ClientID:       clientID,
		ServiceDetails: ServiceDetails{Name: "Coding Services"},
		Forecast:       VolumeForecasting{ExpectedDailyVolume: 50},
	}
}

// -- Tests --

func TestCreate_AppendsBacklink(t *testing.T) {
	svc, _, clients := newTestService()
	ident := testIdentity()
	cl := clients.add(ident.CompanyID)

	sw := validSOW(cl.ID)
	if err := svc.Create(context.Background(), ident, sw); err != nil {
		t.Fatalf("create: %v", err)
	}
	if sw.SOWID == "" || sw.Status != StatusDraft {
		t.Errorf("defaults not applied: %q %q", sw.SOWID, sw.Status)
	}
	if sw.Forecast.ExpectedWeeklyVolume != 250 || sw.Forecast.ExpectedMonthlyVolume != 1100 {
		t.Errorf("volumes not derived: %+v", sw.Forecast)
	}
	if len(cl.Agreements.ActiveSOWs) != 1 || cl.Agreements.ActiveSOWs[0] != sw.ID {
		t.Errorf("backlink missing: %v", cl.Agreements.ActiveSOWs)
	}
	if cl.Agreements.TotalSOWCount != 1 {
		t.Errorf("sow count not kept in step: %d", cl.Agreements.TotalSOWCount)
	}
}

func TestCreate_RejectsForeignClient(t *testing.T) {
	svc, repo, clients := newTestService()
	ident := testIdentity()
	foreign := clients.add(uuid.New()) // different company

	err := svc.Create(context.Background(), ident, validSOW(foreign.ID))
	if err == nil {
		t.Fatal("expected ownership error")
	}
	if len(repo.items) != 0 {
		t.Error("sow must not be inserted when ownership check fails")
	}
}

func TestCreate_InsertFailureLeavesNoBacklink(t *testing.T) {
	svc, repo, clients := newTestService()
	ident := testIdentity()
	cl := clients.add(ident.CompanyID)
	repo.failCreate = true

	if err := svc.Create(context.Background(), ident, validSOW(cl.ID)); err == nil {
		t.Fatal("expected insert error")
	}
	if len(cl.Agreements.ActiveSOWs) != 0 {
		t.Error("backlink must not survive a failed insert")
	}
}

func TestDelete_RemovesBacklink(t *testing.T) {
	svc, repo, clients := newTestService()
	ident := testIdentity()
	cl := clients.add(ident.CompanyID)
	sw := validSOW(cl.ID)
	if err := svc.Create(context.Background(), ident, sw); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), ident, sw.SOWID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.items) != 0 {
		t.Error("sow row not deleted")
	}
	if len(cl.Agreements.ActiveSOWs) != 0 {
		t.Errorf("backlink not removed: %v", cl.Agreements.ActiveSOWs)
	}
	if cl.Agreements.TotalSOWCount != 0 {
		t.Errorf("sow count not kept in step: %d", cl.Agreements.TotalSOWCount)
	}
}

func TestAssign_IdempotentPerEmployee(t *testing.T) {
	svc, _, clients := newTestService()
	ident := testIdentity()
	cl := clients.add(ident.CompanyID)
	sw := validSOW(cl.ID)
	if err := svc.Create(context.Background(), ident, sw); err != nil {
		t.Fatalf("create: %v", err)
	}

	a, b := uuid.New(), uuid.New()
	result, err := svc.Assign(context.Background(), ident, sw.SOWID, []uuid.UUID{a, b})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(result.Assigned) != 2 || len(result.Skipped) != 0 {
		t.Errorf("first assign: %+v", result)
	}

	c := uuid.New()
	result, err = svc.Assign(context.Background(), ident, sw.SOWID, []uuid.UUID{a, c, c})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(result.Assigned) != 1 || result.Assigned[0] != c {
		t.Errorf("re-assign should add only the new employee: %+v", result)
	}
	if len(result.Skipped) != 2 {
		t.Errorf("duplicates not reported: %+v", result)
	}
	if len(sw.AssignedEmployees) != 3 {
		t.Errorf("assigned count = %d, want 3", len(sw.AssignedEmployees))
	}
}

func TestUpdateStatus_EnumRestricted(t *testing.T) {
	svc, _, clients := newTestService()
	ident := testIdentity()
	cl := clients.add(ident.CompanyID)
	sw := validSOW(cl.ID)
	if err := svc.Create(context.Background(), ident, sw); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), ident, sw.SOWID, "Archived"); err == nil {
		t.Error("invalid status must be rejected")
	}
	got, err := svc.UpdateStatus(context.Background(), ident, sw.SOWID, StatusActive)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if got.Status != StatusActive {
		t.Errorf("status = %s", got.Status)
	}
}

func TestUpdateSections_IgnoresProtectedKeys(t *testing.T) {
	svc, _, clients := newTestService()
	ident := testIdentity()
	cl := clients.add(ident.CompanyID)
	sw := validSOW(cl.ID)
	if err := svc.Create(context.Background(), ident, sw); err != nil {
		t.Fatalf("create: %v", err)
	}

	body := map[string]json.RawMessage{
		"volumeForecasting": json.RawMessage(`{"expectedDailyVolume":80}`),
		"companyId":         json.RawMessage(`"` + uuid.New().String() + `"`),
		"clientId":          json.RawMessage(`"` + uuid.New().String() + `"`),
	}
	updated, err := svc.UpdateSections(context.Background(), ident, sw.SOWID, body)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Forecast.ExpectedMonthlyVolume != 80*22 {
		t.Errorf("forecast not recomputed: %+v", updated.Forecast)
	}
	if updated.CompanyID != ident.CompanyID || updated.ClientID != cl.ID {
		t.Error("protected keys must not be client-writable")
	}
}

func TestAddTrend_ThroughService(t *testing.T) {
	svc, _, clients := newTestService()
	ident := testIdentity()
	cl := clients.add(ident.CompanyID)
	sw := validSOW(cl.ID)
	if err := svc.Create(context.Background(), ident, sw); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AddTrend(context.Background(), ident, sw.SOWID, MonthlyTrend{Year: 2025, Month: 13}); err == nil {
		t.Error("invalid month must be rejected")
	}
	got, err := svc.AddTrend(context.Background(), ident, sw.SOWID, MonthlyTrend{Year: 2025, Month: 6, Volume: 900})
	if err != nil {
		t.Fatalf("add trend: %v", err)
	}
	if len(got.Metrics.MonthlyTrends) != 1 || got.Metrics.MonthlyTrends[0].Volume != 900 {
		t.Errorf("trend not recorded: %+v", got.Metrics.MonthlyTrends)
	}
}

func TestMetrics_Snapshot(t *testing.T) {
	svc, _, clients := newTestService()
	ident := testIdentity()
	cl := clients.add(ident.CompanyID)
	sw := validSOW(cl.ID)
	sw.Resources.PlannedHeadcount = 10
	sw.Metrics.Performance = PerformanceMetrics{QualityScore: 75, SLACompliance: 80, ProductivityScore: 90}
	end := time.Now().Add(10 * 24 * time.Hour)
	sw.StartDate = func() *time.Time { t := time.Now().Add(-time.Hour); return &t }()
	sw.EndDate = &end
	if err := svc.Create(context.Background(), ident, sw); err != nil {
		t.Fatalf("create: %v", err)
	}

	snap, err := svc.Metrics(context.Background(), ident.CompanyID, sw.SOWID)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if !snap.IsExpiringSoon {
		t.Error("expected expiring soon")
	}
	if snap.RiskScore != 30+25 {
		t.Errorf("risk score = %d, want 55", snap.RiskScore)
	}
}
