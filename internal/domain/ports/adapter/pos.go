package adapter

import (
	"context"
	"time"
)

// CustomerType is the POS classification of a phone number.
type CustomerType string

const (
	CustomerNew CustomerType = "new"
	CustomerOld CustomerType = "old"
)

// RemoteCampaign is a campaign as the POS system reports it.
type RemoteCampaign struct {
	ID           string
	Code         string
	Name         string
	ValueVND     int64
	ValidityDays int
	Active       bool
}

// IssueVoucherRequest carries everything the POS needs to mint a voucher.
// IdempotencyKey is client-generated so an abandoned-then-retried issuance
// cannot mint twice on the remote side.
type IssueVoucherRequest struct {
	CampaignExternalID string
	F0Phone            string
	F1Phone            string
	Channel            string
	CustomerType       CustomerType
	IdempotencyKey     string
}

// IssuedVoucher is the POS response to a mint. Code and timestamps are taken
// verbatim by the caller.
type IssuedVoucher struct {
	Code        string
	CreatedAt   time.Time
	ActivatedAt time.Time
	ExpiredAt   time.Time
}

// POSGateway is the hex port to the external voucher/campaign API. Every
// implementation owns credential handling, the single unauthorized-retry,
// and the AuthError/TransportError/RemoteError taxonomy.
type POSGateway interface {
	ListCampaigns(ctx context.Context) ([]RemoteCampaign, error)
	IssueVoucher(ctx context.Context, req IssueVoucherRequest) (*IssuedVoucher, error)
	ClassifyCustomer(ctx context.Context, phone string) (CustomerType, error)
}
