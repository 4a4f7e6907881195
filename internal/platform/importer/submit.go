package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/rcm/rcm/internal/domain/claim"
	"github.com/rcm/rcm/internal/domain/client"
	"github.com/rcm/rcm/internal/platform/session"
)

// Submitter turns mapped records into inserted rows. One implementation
// per import target.
type Submitter interface {
	Submit(ctx context.Context, ident session.Identity, records []map[string]interface{}) (inserted int, rowErrors []string)
}

func str(record map[string]interface{}, key string) string {
	v, _ := record[key].(string)
	return v
}

func num(record map[string]interface{}, key string) float64 {
	v, _ := record[key].(float64)
	return v
}

// ClientSubmitter feeds client records through the client bulk path.
type ClientSubmitter struct {
	svc *client.Service
}

func NewClientSubmitter(svc *client.Service) *ClientSubmitter {
	return &ClientSubmitter{svc: svc}
}

func (s *ClientSubmitter) Submit(ctx context.Context, ident session.Identity, records []map[string]interface{}) (int, []string) {
	rows := make([]*client.Client, 0, len(records))
	for _, record := range records {
		rows = append(rows, &client.Client{
			EHRSystem: str(record, "ehrSystem"),
			ClientInfo: client.ClientInfo{
				Name:      str(record, "name"),
				LegalName: str(record, "legalName"),
				TaxID:     str(record, "taxId"),
				NPI:       str(record, "npi"),
				Specialty: str(record, "specialty"),
			},
			ContactInfo: client.ContactInfo{
				Primary: client.Contact{
					Email: str(record, "email"),
					Phone: str(record, "phone"),
				},
			},
			Financial: client.FinancialInfo{
				CreditLimit: num(record, "creditLimit"),
			},
		})
	}
	return s.svc.BulkInsert(ctx, ident, rows)
}

// ClaimSubmitter feeds claim records through the claim bulk path. The
// spreadsheet carries the human-readable client id, resolved per row.
type ClaimSubmitter struct {
	svc     *claim.Service
	clients client.Repository
}

func NewClaimSubmitter(svc *claim.Service, clients client.Repository) *ClaimSubmitter {
	return &ClaimSubmitter{svc: svc, clients: clients}
}

func (s *ClaimSubmitter) Submit(ctx context.Context, ident session.Identity, records []map[string]interface{}) (int, []string) {
	inserted := 0
	var rowErrors []string
	for i, record := range records {
		cl, err := s.clients.GetByClientID(ctx, ident.CompanyID, str(record, "clientId"))
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: client %q: %v", i+1, str(record, "clientId"), err))
			continue
		}
		c := &claim.Claim{
			ClientID:    cl.ID,
			PatientName: str(record, "patientName"),
			Payer:       str(record, "payer"),
			Amount:      num(record, "amount"),
			Status:      str(record, "status"),
		}
		if d, ok := record["serviceDate"].(time.Time); ok {
			c.ServiceDate = &d
		}
		if err := s.svc.Create(ctx, ident, c); err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		inserted++
	}
	return inserted, rowErrors
}
