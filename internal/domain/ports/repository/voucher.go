package repository

import (
	"context"
	"time"

	"mat-kinh-affiliate/internal/domain/model"
)

// VoucherRepository is the port for issued vouchers.
type VoucherRepository interface {
	Save(ctx context.Context, v *model.Voucher) error
	FindByCode(ctx context.Context, code string) (*model.Voucher, error)
	ListByF0(ctx context.Context, f0Code string) ([]*model.Voucher, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]*model.Voucher, error)

	// TransitionUsed atomically moves a sent voucher to used, setting usedAt.
	// Returns false when no row transitioned (unknown code or already used)
	// so the caller can distinguish via FindByCode.
	TransitionUsed(ctx context.Context, code string, usedAt time.Time) (bool, error)

	// CountByStatus returns voucher counts keyed by status for a campaign.
	CountByStatus(ctx context.Context, campaignID string) (map[model.VoucherStatus]int, error)
}
