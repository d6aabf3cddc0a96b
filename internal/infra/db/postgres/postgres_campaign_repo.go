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
var _ repository.CampaignRepository = (*PostgresCampaignRepo)(nil)

type PostgresCampaignRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCampaignRepo(pool *pgxpool.Pool) *PostgresCampaignRepo {
	return &PostgresCampaignRepo{pool: pool}
}

const campaignColumns = `id, code, name, value_vnd, validity_days, external_id, status, created_at, updated_at`

func (r *PostgresCampaignRepo) Save(ctx context.Context, c *model.Campaign) error {
	return r.SaveTx(ctx, repository.NoTX, c)
}

func (r *PostgresCampaignRepo) SaveTx(ctx context.Context, tx repository.Tx, c *model.Campaign) error {
	// Code is immutable: the upsert never touches it.
	const sql = `
INSERT INTO campaigns (id, code, name, value_vnd, validity_days, external_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE
  SET name          = EXCLUDED.name,
      value_vnd     = EXCLUDED.value_vnd,
      validity_days = EXCLUDED.validity_days,
      external_id   = EXCLUDED.external_id,
      status        = EXCLUDED.status,
      updated_at    = EXCLUDED.updated_at;
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, sql,
		c.ID, c.Code, c.Name, c.ValueVND, c.ValidityDays, nullable(c.ExternalID), string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("campaign code %s: %w", c.Code, domain.ErrInvalidArgument)
		}
		return fmt.Errorf("save campaign: %w", err)
	}
	return nil
}

func (r *PostgresCampaignRepo) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	const sql = `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1;`
	return r.scanOne(r.pool.QueryRow(ctx, sql, id))
}

func (r *PostgresCampaignRepo) FindByCode(ctx context.Context, code string) (*model.Campaign, error) {
	return r.FindByCodeTx(ctx, repository.NoTX, code)
}

func (r *PostgresCampaignRepo) FindByCodeTx(ctx context.Context, tx repository.Tx, code string) (*model.Campaign, error) {
	const sql = `SELECT ` + campaignColumns + ` FROM campaigns WHERE code = $1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return r.scanOne(ex.QueryRow(ctx, sql, code))
}

func (r *PostgresCampaignRepo) FindByExternalID(ctx context.Context, externalID string) (*model.Campaign, error) {
	const sql = `SELECT ` + campaignColumns + ` FROM campaigns WHERE external_id = $1;`
	return r.scanOne(r.pool.QueryRow(ctx, sql, externalID))
}

func (r *PostgresCampaignRepo) ListAll(ctx context.Context) ([]*model.Campaign, error) {
	const sql = `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY created_at;`
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()
	var out []*model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresCampaignRepo) scanOne(row pgx.Row) (*model.Campaign, error) {
	c, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find campaign: %w", err)
	}
	return c, nil
}

func scanCampaign(row pgx.Row) (*model.Campaign, error) {
	var c model.Campaign
	var external *string
	var status string
	if err := row.Scan(&c.ID, &c.Code, &c.Name, &c.ValueVND, &c.ValidityDays, &external, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if external != nil {
		c.ExternalID = *external
	}
	c.Status = model.CampaignStatus(status)
	return &c, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
