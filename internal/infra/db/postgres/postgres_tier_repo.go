package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mat-kinh-affiliate/internal/domain"
	"mat-kinh-affiliate/internal/domain/model"
	"mat-kinh-affiliate/internal/domain/ports/repository"
)

// Ensure interface compliance
var (
	_ repository.TierConfigRepository   = (*PostgresTierRepo)(nil)
	_ repository.PartnerStatsRepository = (*PostgresPartnerStatsRepo)(nil)
)

// PostgresTierRepo serves the tier ladder. Rows carry a rank column so the
// ascending order is explicit rather than inferred from thresholds.
type PostgresTierRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTierRepo(pool *pgxpool.Pool) *PostgresTierRepo {
	return &PostgresTierRepo{pool: pool}
}

func (r *PostgresTierRepo) ListAll(ctx context.Context) ([]*model.Tier, error) {
	const sql = `SELECT code, name, min_referrals, min_revenue, benefits FROM tier_configs ORDER BY rank;`
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()
	var out []*model.Tier
	for rows.Next() {
		var t model.Tier
		if err := rows.Scan(&t.Code, &t.Name, &t.MinReferrals, &t.MinRevenue, &t.Benefits); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *PostgresTierRepo) FindByCode(ctx context.Context, code string) (*model.Tier, error) {
	const sql = `SELECT code, name, min_referrals, min_revenue, benefits FROM tier_configs WHERE code = $1;`
	var t model.Tier
	err := r.pool.QueryRow(ctx, sql, code).Scan(&t.Code, &t.Name, &t.MinReferrals, &t.MinRevenue, &t.Benefits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find tier: %w", err)
	}
	return &t, nil
}

// PostgresPartnerStatsRepo reads the aggregates maintained by order
// ingestion. A partner with no row simply has zero progress.
type PostgresPartnerStatsRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPartnerStatsRepo(pool *pgxpool.Pool) *PostgresPartnerStatsRepo {
	return &PostgresPartnerStatsRepo{pool: pool}
}

func (r *PostgresPartnerStatsRepo) FindByF0(ctx context.Context, f0Code string) (model.PartnerTierStats, error) {
	const sql = `SELECT referrals_period, f1_revenue FROM partner_stats WHERE f0_code = $1;`
	var s model.PartnerTierStats
	err := r.pool.QueryRow(ctx, sql, f0Code).Scan(&s.TotalReferralsThisPeriod, &s.TotalF1Revenue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PartnerTierStats{}, nil
		}
		return model.PartnerTierStats{}, fmt.Errorf("find partner stats: %w", err)
	}
	return s, nil
}
