package model

import (
	"time"

	"mat-kinh-affiliate/internal/domain"
)

type VoucherStatus string

const (
	VoucherStatusSent VoucherStatus = "sent"
	VoucherStatusUsed VoucherStatus = "used"
)

// Voucher is a single issued referral voucher. Status only ever moves
// sent -> used. Expiry is derived at read time from ExpiresAt; there is no
// stored "expired" state and no background sweep.
type Voucher struct {
	ID         string // UUID
	Code       string // unique
	CampaignID string
	F0Code     string
	F1Phone    string
	F1Name     string
	F1Email    string
	IssuedVia  Channel
	Status     VoucherStatus
	IssuedAt   time.Time
	ExpiresAt  time.Time
	UsedAt     *time.Time // nil until used
}

// Expired reports whether the voucher is past its validity at the given time.
func (v *Voucher) Expired(now time.Time) bool { return now.After(v.ExpiresAt) }

// NewVoucher constructs a freshly issued (sent) voucher. issuedAt/expiresAt
// come verbatim from the POS response for externally minted vouchers, or are
// computed from the campaign validity for local ones.
func NewVoucher(id, code, campaignID, f0Code, f1Phone string, via Channel, issuedAt, expiresAt time.Time) (*Voucher, error) {
	if id == "" || code == "" || campaignID == "" || f0Code == "" || f1Phone == "" || !via.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	return &Voucher{
		ID:         id,
		Code:       code,
		CampaignID: campaignID,
		F0Code:     f0Code,
		F1Phone:    f1Phone,
		IssuedVia:  via,
		Status:     VoucherStatusSent,
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
	}, nil
}
