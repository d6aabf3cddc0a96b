package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mat-kinh-affiliate/internal/domain"
	"mat-kinh-affiliate/internal/domain/model"
	"mat-kinh-affiliate/internal/domain/ports/repository"
)

// CampaignUseCase is the campaign registry: campaigns plus the grants that
// decide which partner may mint vouchers for which campaign via which
// channel.
type CampaignUseCase struct {
	campaigns   repository.CampaignRepository
	assignments repository.AssignmentRepository
	log         *zerolog.Logger
}

func NewCampaignUseCase(campaigns repository.CampaignRepository, assignments repository.AssignmentRepository, logger *zerolog.Logger) *CampaignUseCase {
	l := logger.With().Str("component", "CampaignUC").Logger()
	return &CampaignUseCase{campaigns: campaigns, assignments: assignments, log: &l}
}

// Create registers a new active campaign. Code is normalized to uppercase and
// immutable afterwards.
func (uc *CampaignUseCase) Create(ctx context.Context, code, name string, valueVND int64, validityDays int) (*model.Campaign, error) {
	c, err := model.NewCampaign(uuid.NewString(), code, name, valueVND, validityDays)
	if err != nil {
		return nil, err
	}
	if err := uc.campaigns.Save(ctx, c); err != nil {
		return nil, err
	}
	uc.log.Info().Str("campaign_id", c.ID).Str("code", c.Code).Msg("campaign created")
	return c, nil
}

// SetStatus toggles active/inactive. Soft delete only: vouchers already
// issued under a deactivated campaign stay valid.
func (uc *CampaignUseCase) SetStatus(ctx context.Context, id string, active bool) error {
	c, err := uc.campaigns.FindByID(ctx, id)
	if err != nil {
		return err
	}
	status := model.CampaignStatusInactive
	if active {
		status = model.CampaignStatusActive
	}
	if c.Status == status {
		return nil
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	if err := uc.campaigns.Save(ctx, c); err != nil {
		return err
	}
	uc.log.Info().Str("campaign_id", id).Str("status", string(status)).Msg("campaign status changed")
	return nil
}

func (uc *CampaignUseCase) Get(ctx context.Context, id string) (*model.Campaign, error) {
	return uc.campaigns.FindByID(ctx, id)
}

func (uc *CampaignUseCase) List(ctx context.Context) ([]*model.Campaign, error) {
	return uc.campaigns.ListAll(ctx)
}

// GrantAssignment creates a grant. The campaign must resolve and be active;
// duplicate triples surface as ErrDuplicateAssignment from the store's
// unique constraint, never from a separate lookup.
func (uc *CampaignUseCase) GrantAssignment(ctx context.Context, f0Code, campaignID string, typ model.AssignmentType) (*model.Assignment, error) {
	c, err := uc.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, err
	}
	if !c.IsActive() {
		return nil, domain.ErrCampaignNotFound
	}
	a, err := model.NewAssignment(uuid.NewString(), f0Code, campaignID, typ)
	if err != nil {
		return nil, err
	}
	if err := uc.assignments.Create(ctx, a); err != nil {
		return nil, err
	}
	uc.log.Info().Str("f0_code", f0Code).Str("campaign_id", campaignID).Str("type", string(typ)).Msg("assignment granted")
	return a, nil
}

// RevokeAssignment removes a grant. Vouchers already issued under it are
// untouched.
func (uc *CampaignUseCase) RevokeAssignment(ctx context.Context, id string) error {
	if err := uc.assignments.Delete(ctx, id); err != nil {
		return err
	}
	uc.log.Info().Str("assignment_id", id).Msg("assignment revoked")
	return nil
}

func (uc *CampaignUseCase) ListAssignments(ctx context.Context, f0Code string) ([]*model.Assignment, error) {
	return uc.assignments.ListByF0(ctx, f0Code)
}

// VisibleTo returns active campaigns the partner may issue for via the given
// channel: an assignment with type == channel or type == both must exist.
// A partner can only mint a voucher for a campaign this returns.
func (uc *CampaignUseCase) VisibleTo(ctx context.Context, f0Code string, channel model.Channel) ([]*model.Campaign, error) {
	if !channel.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	grants, err := uc.assignments.ListByF0(ctx, f0Code)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []*model.Campaign
	for _, g := range grants {
		if !g.Type.Allows(channel) || seen[g.CampaignID] {
			continue
		}
		seen[g.CampaignID] = true
		c, err := uc.campaigns.FindByID(ctx, g.CampaignID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if c.IsActive() {
			out = append(out, c)
		}
	}
	return out, nil
}
