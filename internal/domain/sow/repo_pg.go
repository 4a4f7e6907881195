package sow

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

const sowCols = `id, sow_id, company_id, client_id, status, start_date, end_date,
	service_details, contract_details, performance_targets, volume_forecasting,
	resource_planning, activity_metrics, rcm_metrics, workflow_config,
	system_info, audit_info, assigned_employees, created_at, updated_at`

// Same projection qualified for the client join.
const sowColsJoined = `s.id, s.sow_id, s.company_id, s.client_id, s.status, s.start_date, s.end_date,
	s.service_details, s.contract_details, s.performance_targets, s.volume_forecasting,
	s.resource_planning, s.activity_metrics, s.rcm_metrics, s.workflow_config,
	s.system_info, s.audit_info, s.assigned_employees, s.created_at, s.updated_at`

func scan(row pgx.Row, s *SOW) error {
	err := row.Scan(&s.ID, &s.SOWID, &s.CompanyID, &s.ClientID, &s.Status, &s.StartDate, &s.EndDate,
		&s.ServiceDetails, &s.ContractDetails, &s.Targets, &s.Forecast,
		&s.Resources, &s.Activity, &s.Metrics, &s.Workflow,
		&s.SystemInfo, &s.Audit, &s.AssignedEmployees, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) Create(ctx context.Context, s *SOW) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO sows (id, sow_id, company_id, client_id, status, start_date, end_date,
			service_details, contract_details, performance_targets, volume_forecasting,
			resource_planning, activity_metrics, rcm_metrics, workflow_config,
			system_info, audit_info, assigned_employees)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		s.ID, s.SOWID, s.CompanyID, s.ClientID, s.Status, s.StartDate, s.EndDate,
		s.ServiceDetails, s.ContractDetails, s.Targets, s.Forecast,
		s.Resources, s.Activity, s.Metrics, s.Workflow,
		s.SystemInfo, s.Audit, s.AssignedEmployees)
	return err
}

func (r *repoPG) GetBySOWID(ctx context.Context, companyID uuid.UUID, sowID string) (*SOW, error) {
	var s SOW
	err := scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sowCols+` FROM sows WHERE company_id = $1 AND sow_id = $2`, companyID, sowID), &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) Update(ctx context.Context, s *SOW) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE sows SET status=$2, start_date=$3, end_date=$4,
			service_details=$5, contract_details=$6, performance_targets=$7,
			volume_forecasting=$8, resource_planning=$9, activity_metrics=$10,
			rcm_metrics=$11, workflow_config=$12, system_info=$13, audit_info=$14,
			assigned_employees=$15, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Status, s.StartDate, s.EndDate,
		s.ServiceDetails, s.ContractDetails, s.Targets,
		s.Forecast, s.Resources, s.Activity,
		s.Metrics, s.Workflow, s.SystemInfo, s.Audit,
		s.AssignedEmployees)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, companyID uuid.UUID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM sows WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, companyID uuid.UUID, f ListFilter, limit, offset int) ([]*WithClient, int, error) {
	where := []string{"s.company_id = $1"}
	args := []interface{}{companyID}

	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("s.status = $%d", len(args)))
	}
	if f.ClientID != uuid.Nil {
		args = append(args, f.ClientID)
		where = append(where, fmt.Sprintf("s.client_id = $%d", len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM sows s WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+sowColsJoined+`, COALESCE(c.client_info->>'name', '')
		FROM sows s LEFT JOIN clients c ON c.id = s.client_id
		WHERE `+whereSQL+
		fmt.Sprintf(` ORDER BY s.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*WithClient
	for rows.Next() {
		var item WithClient
		err := rows.Scan(&item.ID, &item.SOWID, &item.CompanyID, &item.ClientID, &item.Status,
			&item.StartDate, &item.EndDate,
			&item.ServiceDetails, &item.ContractDetails, &item.Targets, &item.Forecast,
			&item.Resources, &item.Activity, &item.Metrics, &item.Workflow,
			&item.SystemInfo, &item.Audit, &item.AssignedEmployees,
			&item.CreatedAt, &item.UpdatedAt, &item.ClientName)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, &item)
	}
	return items, total, rows.Err()
}
