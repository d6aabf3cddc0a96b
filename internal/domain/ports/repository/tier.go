package repository

import (
	"context"

	"mat-kinh-affiliate/internal/domain/model"
)

// TierConfigRepository serves the ordered tier ladder. Read-only reference
// data; ordering is ascending by thresholds.
type TierConfigRepository interface {
	ListAll(ctx context.Context) ([]*model.Tier, error)
	FindByCode(ctx context.Context, code string) (*model.Tier, error)
}

// PartnerStatsRepository serves the aggregate statistics feeding tier
// progression. The aggregates are maintained outside this core (order
// ingestion owns them); this port only reads.
type PartnerStatsRepository interface {
	FindByF0(ctx context.Context, f0Code string) (model.PartnerTierStats, error)
}
