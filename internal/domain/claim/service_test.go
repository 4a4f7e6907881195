package claim

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rcm/rcm/internal/platform/session"
)

type mockRepo struct {
	items map[uuid.UUID]*Claim
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Claim)}
}

func (m *mockRepo) Create(_ context.Context, c *Claim) error {
	c.ID = uuid.New()
	m.items[c.ID] = c
	return nil
}

func (m *mockRepo) GetByClaimID(_ context.Context, companyID uuid.UUID, claimID string) (*Claim, error) {
	for _, c := range m.items {
		if c.CompanyID == companyID && c.ClaimID == claimID {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, c *Claim) error {
	if _, ok := m.items[c.ID]; !ok {
		return ErrNotFound
	}
	m.items[c.ID] = c
	return nil
}

func (m *mockRepo) List(_ context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*Claim, int, error) {
	var result []*Claim
	for _, c := range m.items {
		if c.CompanyID != companyID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		result = append(result, c)
	}
	return result, len(result), nil
}

func testIdentity() session.Identity {
	return session.Identity{CompanyID: uuid.New(), EmployeeID: uuid.New()}
}

func validClaim() *Claim {
	return &Claim{ClientID: uuid.New(), PatientName: "Jane Roe", Payer: "Aetna", Amount: 420.50}
}

func TestCreate_Defaults(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	ident := testIdentity()
	c := validClaim()
	if err := svc.Create(context.Background(), ident, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != StatusReceived {
		t.Errorf("default status = %s, want Received", c.Status)
	}
	if c.ClaimID == "" || c.CompanyID != ident.CompanyID {
		t.Errorf("defaults not applied: %+v", c)
	}
}

func TestCreate_RejectsInvalid(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	c := validClaim()
	c.Amount = -1
	if err := svc.Create(context.Background(), testIdentity(), c); err == nil {
		t.Error("negative amount must be rejected")
	}
}

func TestCanTransition_DenialWorkflow(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusReceived, StatusInProgress, true},
		{StatusInProgress, StatusSubmitted, true},
		{StatusSubmitted, StatusPaid, true},
		{StatusSubmitted, StatusDenied, true},
		{StatusDenied, StatusAppealed, true},
		{StatusAppealed, StatusPaid, true},
		{StatusPaid, StatusClosed, true},

		{StatusReceived, StatusPaid, false},
		{StatusPaid, StatusDenied, false},
		{StatusClosed, StatusReceived, false},
		{StatusDenied, StatusSubmitted, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestUpdateStatus_EnforcesTransitions(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	ident := testIdentity()
	c := validClaim()
	if err := svc.Create(context.Background(), ident, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), ident, c.ClaimID, StatusChange{Status: StatusPaid}); err == nil {
		t.Error("Received -> Paid must be rejected")
	}

	for _, status := range []string{StatusInProgress, StatusSubmitted, StatusDenied} {
		if _, err := svc.UpdateStatus(context.Background(), ident, c.ClaimID, StatusChange{
			Status: status,
			Denial: DenialInfo{Code: "CO-97", Reason: "bundled service"},
		}); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	got, err := svc.Get(context.Background(), ident.CompanyID, c.ClaimID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusDenied {
		t.Errorf("status = %s", got.Status)
	}
	if got.Denial.Code != "CO-97" || got.Denial.DeniedAt == nil {
		t.Errorf("denial info not recorded: %+v", got.Denial)
	}
}

func TestBulkInsert_PartialFailure(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	ident := testIdentity()

	rows := []*Claim{validClaim(), validClaim(), validClaim(), validClaim(), validClaim()}
	rows[2].PatientName = "" // invalid

	inserted, rowErrors := svc.BulkInsert(context.Background(), ident, rows)
	if inserted != 4 {
		t.Errorf("insertedCount = %d, want 4", inserted)
	}
	if len(rowErrors) != 1 || !strings.Contains(rowErrors[0], "row 3") {
		t.Errorf("rowErrors = %v", rowErrors)
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	ident := testIdentity()
	c := validClaim()
	if err := svc.Create(context.Background(), ident, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	amount := 999.99
	got, err := svc.Update(context.Background(), ident, c.ClaimID, ClaimUpdate{Amount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Amount != 999.99 {
		t.Errorf("amount = %v", got.Amount)
	}
	if got.PatientName != "Jane Roe" {
		t.Errorf("untouched field changed: %s", got.PatientName)
	}
}
