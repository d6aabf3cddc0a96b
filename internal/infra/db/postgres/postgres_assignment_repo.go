package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mat-kinh-affiliate/internal/domain"
	"mat-kinh-affiliate/internal/domain/model"
	"mat-kinh-affiliate/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.AssignmentRepository = (*PostgresAssignmentRepo)(nil)

// PostgresAssignmentRepo persists grants. Uniqueness of the
// (f0_code, campaign_id, type) triple is enforced by a DB unique constraint,
// which makes Create atomic rather than check-then-insert.
type PostgresAssignmentRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAssignmentRepo(pool *pgxpool.Pool) *PostgresAssignmentRepo {
	return &PostgresAssignmentRepo{pool: pool}
}

func (r *PostgresAssignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	const sql = `
INSERT INTO assignments (id, f0_code, campaign_id, type, assigned_at)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := r.pool.Exec(ctx, sql, a.ID, a.F0Code, a.CampaignID, string(a.Type), a.AssignedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateAssignment
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

func (r *PostgresAssignmentRepo) Delete(ctx context.Context, id string) error {
	const sql = `DELETE FROM assignments WHERE id = $1;`
	ct, err := r.pool.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAssignmentRepo) FindByID(ctx context.Context, id string) (*model.Assignment, error) {
	const sql = `SELECT id, f0_code, campaign_id, type, assigned_at FROM assignments WHERE id = $1;`
	a, err := scanAssignment(r.pool.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return a, nil
}

func (r *PostgresAssignmentRepo) ListByF0(ctx context.Context, f0Code string) ([]*model.Assignment, error) {
	const sql = `SELECT id, f0_code, campaign_id, type, assigned_at FROM assignments WHERE f0_code = $1 ORDER BY assigned_at;`
	return r.list(ctx, sql, f0Code)
}

func (r *PostgresAssignmentRepo) ListByCampaign(ctx context.Context, campaignID string) ([]*model.Assignment, error) {
	const sql = `SELECT id, f0_code, campaign_id, type, assigned_at FROM assignments WHERE campaign_id = $1 ORDER BY assigned_at;`
	return r.list(ctx, sql, campaignID)
}

func (r *PostgresAssignmentRepo) list(ctx context.Context, sql string, arg interface{}) ([]*model.Assignment, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()
	var out []*model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAssignment(row pgx.Row) (*model.Assignment, error) {
	var a model.Assignment
	var typ string
	if err := row.Scan(&a.ID, &a.F0Code, &a.CampaignID, &typ, &a.AssignedAt); err != nil {
		return nil, err
	}
	a.Type = model.AssignmentType(typ)
	return &a, nil
}

// isUniqueViolation reports SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
