package claim

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

const claimCols = `id, claim_id, company_id, client_id, patient_name, payer, amount, status,
	service_date, denial_info, assigned_employee, created_at, updated_at`

func scan(row pgx.Row, c *Claim) error {
	err := row.Scan(&c.ID, &c.ClaimID, &c.CompanyID, &c.ClientID, &c.PatientName, &c.Payer,
		&c.Amount, &c.Status, &c.ServiceDate, &c.Denial, &c.AssignedEmployee,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) Create(ctx context.Context, c *Claim) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO claims (id, claim_id, company_id, client_id, patient_name, payer, amount,
			status, service_date, denial_info, assigned_employee)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		c.ID, c.ClaimID, c.CompanyID, c.ClientID, c.PatientName, c.Payer, c.Amount,
		c.Status, c.ServiceDate, c.Denial, c.AssignedEmployee)
	return err
}

func (r *repoPG) GetByClaimID(ctx context.Context, companyID uuid.UUID, claimID string) (*Claim, error) {
	var c Claim
	err := scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+claimCols+` FROM claims WHERE company_id = $1 AND claim_id = $2`, companyID, claimID), &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) Update(ctx context.Context, c *Claim) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE claims SET patient_name=$2, payer=$3, amount=$4, status=$5,
			service_date=$6, denial_info=$7, assigned_employee=$8, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.PatientName, c.Payer, c.Amount, c.Status,
		c.ServiceDate, c.Denial, c.AssignedEmployee)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*Claim, int, error) {
	where := []string{"company_id = $1"}
	args := []interface{}{companyID}

	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.ClientID != uuid.Nil {
		args = append(args, f.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if f.Payer != "" {
		args = append(args, f.Payer)
		where = append(where, fmt.Sprintf("payer = $%d", len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM claims WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+claimCols+` FROM claims WHERE `+whereSQL+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Claim
	for rows.Next() {
		var c Claim
		if err := scan(rows, &c); err != nil {
			return nil, 0, err
		}
		items = append(items, &c)
	}
	return items, total, rows.Err()
}
