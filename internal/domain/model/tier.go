package model

// Tier is a partner rank unlocked by referral count and referred revenue.
// Tiers are read-only reference data, ordered ascending by thresholds.
type Tier struct {
	Code         string
	Name         string
	MinReferrals int
	MinRevenue   int64 // VND
	Benefits     []string
}

// PartnerTierStats are the two independent progress axes toward the next
// tier: referrals made this period and accumulated F1 revenue.
type PartnerTierStats struct {
	TotalReferralsThisPeriod int
	TotalF1Revenue           int64 // VND
}

// Meets reports whether the stats satisfy both thresholds of the tier.
func (s PartnerTierStats) Meets(t *Tier) bool {
	return s.TotalReferralsThisPeriod >= t.MinReferrals && s.TotalF1Revenue >= t.MinRevenue
}

// TierProgress is the computed 0-100 progression toward the next tier.
type TierProgress struct {
	ReferralProgress float64
	RevenueProgress  float64
	Overall          float64
}
