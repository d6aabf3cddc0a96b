package repository

import (
	"context"

	"mat-kinh-affiliate/internal/domain/model"
)

// AssignmentRepository is the port for F0-to-campaign grants.
// Create must be atomic with the uniqueness check on
// (f0_code, campaign_id, type): implementations rely on a unique constraint,
// not check-then-insert, and return domain.ErrDuplicateAssignment on
// violation.
type AssignmentRepository interface {
	Create(ctx context.Context, a *model.Assignment) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Assignment, error)
	ListByF0(ctx context.Context, f0Code string) ([]*model.Assignment, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]*model.Assignment, error)
}
