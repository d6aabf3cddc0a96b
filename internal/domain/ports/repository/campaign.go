package repository

import (
	"context"

	"mat-kinh-affiliate/internal/domain/model"
)

// CampaignRepository is the port for campaign persistence. The Tx variants
// exist for the sync path, which reconciles by code under a caller-owned
// transaction; the plain methods run against the pool.
type CampaignRepository interface {
	Save(ctx context.Context, c *model.Campaign) error
	SaveTx(ctx context.Context, tx Tx, c *model.Campaign) error
	FindByID(ctx context.Context, id string) (*model.Campaign, error)
	FindByCode(ctx context.Context, code string) (*model.Campaign, error)
	FindByCodeTx(ctx context.Context, tx Tx, code string) (*model.Campaign, error)
	FindByExternalID(ctx context.Context, externalID string) (*model.Campaign, error)
	ListAll(ctx context.Context) ([]*model.Campaign, error)
}
