package usecase

import (
	"context"

	"mat-kinh-affiliate/internal/domain/model"
	"mat-kinh-affiliate/internal/domain/ports/repository"
)

// Progress converts the two stat axes into a 0-100 progression toward next.
// Pure and deterministic; recomputed on every read, never cached across
// stats mutations. A nil next tier means the partner is at the top: 100.
func Progress(stats model.PartnerTierStats, next *model.Tier) model.TierProgress {
	if next == nil {
		return model.TierProgress{ReferralProgress: 100, RevenueProgress: 100, Overall: 100}
	}
	referral := axisProgress(float64(stats.TotalReferralsThisPeriod), float64(next.MinReferrals))
	revenue := axisProgress(float64(stats.TotalF1Revenue), float64(next.MinRevenue))
	return model.TierProgress{
		ReferralProgress: referral,
		RevenueProgress:  revenue,
		Overall:          0.5*referral + 0.5*revenue,
	}
}

// axisProgress clamps to 100; a threshold of zero or below counts as met.
func axisProgress(have, need float64) float64 {
	if need <= 0 {
		return 100
	}
	p := 100 * have / need
	if p > 100 {
		return 100
	}
	return p
}

// Evaluate returns the highest tier whose both thresholds the stats meet,
// or nil when not even the first tier is reached. Tiers must be ordered
// ascending.
func Evaluate(stats model.PartnerTierStats, tiers []*model.Tier) *model.Tier {
	var current *model.Tier
	for _, t := range tiers {
		if stats.Meets(t) {
			current = t
		}
	}
	return current
}

// TierUseCase resolves a partner's position on the tier ladder from the
// aggregate stats.
type TierUseCase struct {
	tiers repository.TierConfigRepository
	stats repository.PartnerStatsRepository
}

func NewTierUseCase(tiers repository.TierConfigRepository, stats repository.PartnerStatsRepository) *TierUseCase {
	return &TierUseCase{tiers: tiers, stats: stats}
}

// PartnerProgress is the full tier picture for one partner.
type PartnerProgress struct {
	Stats    model.PartnerTierStats
	Current  *model.Tier // nil below the first tier
	Next     *model.Tier // nil at the top
	Progress model.TierProgress
}

// ProgressFor computes the partner's current tier, next tier and progression
// in one pass over the ladder.
func (uc *TierUseCase) ProgressFor(ctx context.Context, f0Code string) (*PartnerProgress, error) {
	ladder, err := uc.tiers.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := uc.stats.FindByF0(ctx, f0Code)
	if err != nil {
		return nil, err
	}

	current := Evaluate(stats, ladder)
	var next *model.Tier
	if current == nil {
		if len(ladder) > 0 {
			next = ladder[0]
		}
	} else {
		for i, t := range ladder {
			if t.Code == current.Code && i+1 < len(ladder) {
				next = ladder[i+1]
				break
			}
		}
	}

	return &PartnerProgress{
		Stats:    stats,
		Current:  current,
		Next:     next,
		Progress: Progress(stats, next),
	}, nil
}

// Ladder exposes the ordered tier configuration.
func (uc *TierUseCase) Ladder(ctx context.Context) ([]*model.Tier, error) {
	return uc.tiers.ListAll(ctx)
}
