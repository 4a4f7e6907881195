package employee

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

const employeeCols = `id, employee_id, company_id, first_name, last_name, email, role,
	skills, certifications, active, created_at, updated_at`

func scan(row pgx.Row, e *Employee) error {
	err := row.Scan(&e.ID, &e.EmployeeID, &e.CompanyID, &e.FirstName, &e.LastName, &e.Email,
		&e.Role, &e.Skills, &e.Certifications, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) Create(ctx context.Context, e *Employee) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO employees (id, employee_id, company_id, first_name, last_name, email,
			role, skills, certifications, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.EmployeeID, e.CompanyID, e.FirstName, e.LastName, e.Email,
		e.Role, e.Skills, e.Certifications, e.Active)
	return err
}

func (r *repoPG) GetByEmployeeID(ctx context.Context, companyID uuid.UUID, employeeID string) (*Employee, error) {
	var e Employee
	err := scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+employeeCols+` FROM employees WHERE company_id = $1 AND employee_id = $2`,
		companyID, employeeID), &e)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repoPG) Update(ctx context.Context, e *Employee) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE employees SET first_name=$2, last_name=$3, email=$4, role=$5,
			skills=$6, certifications=$7, active=$8, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.FirstName, e.LastName, e.Email, e.Role,
		e.Skills, e.Certifications, e.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*Employee, int, error) {
	where := []string{"company_id = $1"}
	args := []interface{}{companyID}

	if f.Role != "" {
		args = append(args, f.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.OnlyActive {
		where = append(where, "active = TRUE")
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM employees WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+employeeCols+` FROM employees WHERE `+whereSQL+
			fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Employee
	for rows.Next() {
		var e Employee
		if err := scan(rows, &e); err != nil {
			return nil, 0, err
		}
		items = append(items, &e)
	}
	return items, total, rows.Err()
}
