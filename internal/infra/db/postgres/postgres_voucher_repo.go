package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mat-kinh-affiliate/internal/domain"
	"mat-kinh-affiliate/internal/domain/model"
	"mat-kinh-affiliate/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.VoucherRepository = (*PostgresVoucherRepo)(nil)

type PostgresVoucherRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresVoucherRepo(pool *pgxpool.Pool) *PostgresVoucherRepo {
	return &PostgresVoucherRepo{pool: pool}
}

const voucherColumns = `id, code, campaign_id, f0_code, f1_phone, f1_name, f1_email, issued_via, status, issued_at, expires_at, used_at`

func (r *PostgresVoucherRepo) Save(ctx context.Context, v *model.Voucher) error {
	const sql = `
INSERT INTO vouchers (id, code, campaign_id, f0_code, f1_phone, f1_name, f1_email, issued_via, status, issued_at, expires_at, used_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE
  SET status  = EXCLUDED.status,
      used_at = EXCLUDED.used_at;
`
	_, err := r.pool.Exec(ctx, sql,
		v.ID, v.Code, v.CampaignID, v.F0Code, v.F1Phone, nullable(v.F1Name), nullable(v.F1Email),
		string(v.IssuedVia), string(v.Status), v.IssuedAt, v.ExpiresAt, v.UsedAt,
	)
	if err != nil {
		return fmt.Errorf("save voucher: %w", err)
	}
	return nil
}

func (r *PostgresVoucherRepo) FindByCode(ctx context.Context, code string) (*model.Voucher, error) {
	const sql = `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1;`
	v, err := scanVoucher(r.pool.QueryRow(ctx, sql, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find voucher: %w", err)
	}
	return v, nil
}

func (r *PostgresVoucherRepo) ListByF0(ctx context.Context, f0Code string) ([]*model.Voucher, error) {
	const sql = `SELECT ` + voucherColumns + ` FROM vouchers WHERE f0_code = $1 ORDER BY issued_at DESC;`
	return r.list(ctx, sql, f0Code)
}

func (r *PostgresVoucherRepo) ListByCampaign(ctx context.Context, campaignID string) ([]*model.Voucher, error) {
	const sql = `SELECT ` + voucherColumns + ` FROM vouchers WHERE campaign_id = $1 ORDER BY issued_at DESC;`
	return r.list(ctx, sql, campaignID)
}

// TransitionUsed performs the monotonic sent->used move as a single
// conditional UPDATE so concurrent redemptions cannot both transition.
func (r *PostgresVoucherRepo) TransitionUsed(ctx context.Context, code string, usedAt time.Time) (bool, error) {
	const sql = `
UPDATE vouchers SET status = 'used', used_at = $1
 WHERE code = $2 AND status = 'sent';
`
	ct, err := r.pool.Exec(ctx, sql, usedAt, code)
	if err != nil {
		return false, fmt.Errorf("transition voucher used: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *PostgresVoucherRepo) CountByStatus(ctx context.Context, campaignID string) (map[model.VoucherStatus]int, error) {
	const sql = `SELECT status, COUNT(1) FROM vouchers WHERE campaign_id = $1 GROUP BY status;`
	rows, err := r.pool.Query(ctx, sql, campaignID)
	if err != nil {
		return nil, fmt.Errorf("count vouchers: %w", err)
	}
	defer rows.Close()
	out := make(map[model.VoucherStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[model.VoucherStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *PostgresVoucherRepo) list(ctx context.Context, sql string, arg interface{}) ([]*model.Voucher, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()
	var out []*model.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVoucher(row pgx.Row) (*model.Voucher, error) {
	var v model.Voucher
	var name, email *string
	var via, status string
	if err := row.Scan(&v.ID, &v.Code, &v.CampaignID, &v.F0Code, &v.F1Phone, &name, &email, &via, &status, &v.IssuedAt, &v.ExpiresAt, &v.UsedAt); err != nil {
		return nil, err
	}
	if name != nil {
		v.F1Name = *name
	}
	if email != nil {
		v.F1Email = *email
	}
	v.IssuedVia = model.Channel(via)
	v.Status = model.VoucherStatus(status)
	return &v, nil
}
