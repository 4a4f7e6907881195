package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcm/rcm/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Default projection deliberately omits api_credentials_enc and
// sftp_password_enc; only credentialCols adds them.
const clientCols = `id, client_id, company_id, status, onboarding_status, onboarding_progress,
	ehr_system, workflow_type, active,
	client_info, contact_info, address_info, integration_strategy,
	service_agreements, financial_info, performance_metrics, system_info, audit_info,
	created_at, updated_at`

const credentialCols = clientCols + `, api_credentials_enc, sftp_password_enc`

func (r *repoPG) scan(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.ClientID, &c.CompanyID, &c.Status, &c.OnboardingStatus, &c.OnboardingProgress,
		&c.EHRSystem, &c.WorkflowType, &c.Active,
		&c.ClientInfo, &c.ContactInfo, &c.AddressInfo, &c.Integration,
		&c.Agreements, &c.Financial, &c.Metrics, &c.SystemInfo, &c.Audit,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *repoPG) scanWithCredentials(row pgx.Row) (*Client, error) {
	var c Client
	var apiCreds, sftpPass *string
	err := row.Scan(&c.ID, &c.ClientID, &c.CompanyID, &c.Status, &c.OnboardingStatus, &c.OnboardingProgress,
		&c.EHRSystem, &c.WorkflowType, &c.Active,
		&c.ClientInfo, &c.ContactInfo, &c.AddressInfo, &c.Integration,
		&c.Agreements, &c.Financial, &c.Metrics, &c.SystemInfo, &c.Audit,
		&c.CreatedAt, &c.UpdatedAt, &apiCreds, &sftpPass)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if apiCreds != nil {
		c.Integration.API.EncryptedCredentials = *apiCreds
	}
	if sftpPass != nil {
		c.Integration.SFTP.EncryptedPassword = *sftpPass
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clients (id, client_id, company_id, status, onboarding_status, onboarding_progress,
			ehr_system, workflow_type, active,
			client_info, contact_info, address_info, integration_strategy,
			service_agreements, financial_info, performance_metrics, system_info, audit_info)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		c.ID, c.ClientID, c.CompanyID, c.Status, c.OnboardingStatus, c.OnboardingProgress,
		c.EHRSystem, c.WorkflowType, c.Active,
		c.ClientInfo, c.ContactInfo, c.AddressInfo, c.Integration,
		c.Agreements, c.Financial, c.Metrics, c.SystemInfo, c.Audit)
	return err
}

func (r *repoPG) GetByClientID(ctx context.Context, companyID uuid.UUID, clientID string) (*Client, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+clientCols+` FROM clients WHERE company_id = $1 AND client_id = $2`, companyID, clientID))
}

func (r *repoPG) GetByID(ctx context.Context, companyID, id uuid.UUID) (*Client, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+clientCols+` FROM clients WHERE company_id = $1 AND id = $2`, companyID, id))
}

func (r *repoPG) GetWithCredentials(ctx context.Context, companyID uuid.UUID, clientID string) (*Client, error) {
	return r.scanWithCredentials(r.conn(ctx).QueryRow(ctx,
		`SELECT `+credentialCols+` FROM clients WHERE company_id = $1 AND client_id = $2`, companyID, clientID))
}

func (r *repoPG) Update(ctx context.Context, c *Client) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clients SET status=$2, onboarding_status=$3, onboarding_progress=$4,
			ehr_system=$5, workflow_type=$6, active=$7,
			client_info=$8, contact_info=$9, address_info=$10, integration_strategy=$11,
			service_agreements=$12, financial_info=$13, performance_metrics=$14,
			system_info=$15, audit_info=$16, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Status, c.OnboardingStatus, c.OnboardingProgress,
		c.EHRSystem, c.WorkflowType, c.Active,
		c.ClientInfo, c.ContactInfo, c.AddressInfo, c.Integration,
		c.Agreements, c.Financial, c.Metrics, c.SystemInfo, c.Audit)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateCredentials(ctx context.Context, id uuid.UUID, apiCredentials, sftpPassword string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clients SET
			api_credentials_enc = CASE WHEN $2 <> '' THEN $2 ELSE api_credentials_enc END,
			sftp_password_enc   = CASE WHEN $3 <> '' THEN $3 ELSE sftp_password_enc END,
			updated_at = NOW()
		WHERE id = $1`, id, apiCredentials, sftpPassword)
	return err
}

func (r *repoPG) List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*Client, int, error) {
	where := []string{"company_id = $1"}
	args := []interface{}{companyID}

	add := func(clause string, val interface{}) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.EHRSystem != "" {
		add("ehr_system = $%d", f.EHRSystem)
	}
	if f.WorkflowType != "" {
		add("workflow_type = $%d", f.WorkflowType)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			`(client_info->>'name' ILIKE $%d OR client_info->>'legalName' ILIKE $%d OR contact_info->'primary'->>'email' ILIKE $%d)`,
			n, n, n))
	}
	if f.OnlyActive {
		where = append(where, "active = TRUE")
	}
	if f.PendingGoLive {
		where = append(where, "active = TRUE AND onboarding_status <> 'Go Live'")
	}

	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM clients WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+clientCols+` FROM clients WHERE `+whereSQL+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Client
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) AppendActiveSOW(ctx context.Context, clientID, sowID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clients SET service_agreements = jsonb_set(
			jsonb_set(
				service_agreements,
				'{activeSows}',
				COALESCE(service_agreements->'activeSows', '[]'::jsonb) || to_jsonb($2::text)
			),
			'{totalSowCount}',
			to_jsonb(jsonb_array_length(COALESCE(service_agreements->'activeSows', '[]'::jsonb) || to_jsonb($2::text)))
		), updated_at = NOW()
		WHERE id = $1`, clientID, sowID.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) RemoveActiveSOW(ctx context.Context, clientID, sowID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clients SET service_agreements = jsonb_set(
			jsonb_set(
				service_agreements,
				'{activeSows}',
				COALESCE(service_agreements->'activeSows', '[]'::jsonb) - $2::text
			),
			'{totalSowCount}',
			to_jsonb(jsonb_array_length(COALESCE(service_agreements->'activeSows', '[]'::jsonb) - $2::text))
		), updated_at = NOW()
		WHERE id = $1`, clientID, sowID.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
