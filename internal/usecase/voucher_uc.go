package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mat-kinh-affiliate/internal/domain"
	"mat-kinh-affiliate/internal/domain/model"
	"mat-kinh-affiliate/internal/domain/ports/adapter"
	"mat-kinh-affiliate/internal/domain/ports/repository"
	"mat-kinh-affiliate/internal/infra/logging"
	"mat-kinh-affiliate/internal/infra/metrics"
	red "mat-kinh-affiliate/internal/infra/redis"
)

// IssueParams is everything needed to drive one voucher through
// Requested -> Sent. F0Phone comes from the caller's session; the POS needs
// it on externally minted vouchers.
type IssueParams struct {
	F0Code     string
	F0Phone    string
	CampaignID string
	F1Phone    string
	F1Name     string
	F1Email    string
	Channel    model.Channel
}

// VoucherUseCase is the issuance state machine. Requested is transient; only
// Sent and Used are persisted.
type VoucherUseCase struct {
	vouchers repository.VoucherRepository
	registry *CampaignUseCase
	pos      adapter.POSGateway
	locker   red.Locker
	lockTTL  time.Duration
	log      *zerolog.Logger

	now func() time.Time // injectable for tests
}

func NewVoucherUseCase(
	vouchers repository.VoucherRepository,
	registry *CampaignUseCase,
	pos adapter.POSGateway,
	locker red.Locker,
	lockTTL time.Duration,
	logger *zerolog.Logger,
) *VoucherUseCase {
	l := logger.With().Str("component", "VoucherUC").Logger()
	return &VoucherUseCase{
		vouchers: vouchers,
		registry: registry,
		pos:      pos,
		locker:   locker,
		lockTTL:  lockTTL,
		log:      &l,
		now:      time.Now,
	}
}

// Issue validates eligibility, mints (remotely or locally) and persists the
// voucher as Sent. The eligibility check and the mint run under a
// per-(campaign, recipient) lock so concurrent requests for the same
// recipient cannot both pass the gate.
func (uc *VoucherUseCase) Issue(ctx context.Context, p IssueParams) (*model.Voucher, error) {
	defer logging.TraceDuration(uc.log, "VoucherUC.Issue")()
	if p.F0Code == "" || p.CampaignID == "" || p.F1Phone == "" || !p.Channel.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	ctx = logging.WithF0Code(ctx, p.F0Code)

	campaign, err := uc.registry.Get(ctx, p.CampaignID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncIssuanceRejection("campaign_not_found")
			return nil, domain.ErrCampaignNotFound
		}
		return nil, err
	}
	if !campaign.IsActive() {
		metrics.IncIssuanceRejection("campaign_not_found")
		return nil, domain.ErrCampaignNotFound
	}

	visible, err := uc.registry.VisibleTo(ctx, p.F0Code, p.Channel)
	if err != nil {
		return nil, err
	}
	authorized := false
	for _, c := range visible {
		if c.ID == campaign.ID {
			authorized = true
			break
		}
	}
	if !authorized {
		metrics.IncIssuanceRejection("not_authorized")
		return nil, domain.ErrNotAuthorizedForCampaign
	}

	lockKey := red.IssuanceKey(campaign.ID, p.F1Phone)
	lockToken, err := uc.locker.TryLock(ctx, lockKey, uc.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := uc.locker.Unlock(context.Background(), lockKey, lockToken); err != nil {
			uc.log.Warn().Err(err).Str("key", lockKey).Msg("issuance lock release failed")
		}
	}()

	customerType, err := uc.pos.ClassifyCustomer(ctx, p.F1Phone)
	if err != nil {
		return nil, err
	}
	if customerType == adapter.CustomerOld {
		metrics.IncIssuanceRejection("ineligible_recipient")
		return nil, domain.ErrIneligibleRecipient
	}

	var voucher *model.Voucher
	source := "local"
	if campaign.HasExternalBinding() {
		source = "external"
		minted, err := uc.pos.IssueVoucher(ctx, adapter.IssueVoucherRequest{
			CampaignExternalID: campaign.ExternalID,
			F0Phone:            p.F0Phone,
			F1Phone:            p.F1Phone,
			Channel:            string(p.Channel),
			CustomerType:       customerType,
			IdempotencyKey:     uuid.NewString(),
		})
		if err != nil {
			return nil, err
		}
		// Code and timestamps come verbatim from the POS.
		issuedAt := minted.ActivatedAt
		if issuedAt.IsZero() {
			issuedAt = minted.CreatedAt
		}
		voucher, err = model.NewVoucher(uuid.NewString(), minted.Code, campaign.ID, p.F0Code, p.F1Phone, p.Channel, issuedAt, minted.ExpiredAt)
		if err != nil {
			return nil, err
		}
	} else {
		code, err := generateVoucherCode(campaign.Code)
		if err != nil {
			return nil, err
		}
		issuedAt := uc.now()
		expiresAt := issuedAt.AddDate(0, 0, campaign.ValidityDays)
		voucher, err = model.NewVoucher(uuid.NewString(), code, campaign.ID, p.F0Code, p.F1Phone, p.Channel, issuedAt, expiresAt)
		if err != nil {
			return nil, err
		}
	}
	voucher.F1Name = p.F1Name
	voucher.F1Email = p.F1Email

	if err := uc.vouchers.Save(ctx, voucher); err != nil {
		return nil, err
	}
	metrics.IncVoucherIssued(string(p.Channel), source)
	ctx = logging.WithVoucherCode(ctx, voucher.Code)
	logging.With(ctx, uc.log).Info().
		Str("campaign_id", campaign.ID).
		Str("f1_phone", logging.Redact(p.F1Phone)).
		Str("channel", string(p.Channel)).
		Str("source", source).
		Msg("voucher issued")
	return voucher, nil
}

// MarkUsed moves a Sent voucher to Used. Unknown codes return (false, nil).
// Calling it again on an already-used voucher is an idempotent no-op: it
// returns (true, nil) without touching usedAt.
func (uc *VoucherUseCase) MarkUsed(ctx context.Context, code string) (bool, error) {
	ctx = logging.WithVoucherCode(ctx, code)
	v, err := uc.vouchers.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if v.Status == model.VoucherStatusUsed {
		return true, nil
	}

	ok, err := uc.vouchers.TransitionUsed(ctx, code, uc.now())
	if err != nil {
		return false, err
	}
	if !ok {
		// Lost the race to a concurrent redemption; the voucher is used now.
		return true, nil
	}
	metrics.IncVoucherUsed()
	logging.With(ctx, uc.log).Info().Msg("voucher used")
	return true, nil
}

func (uc *VoucherUseCase) Find(ctx context.Context, code string) (*model.Voucher, error) {
	v, err := uc.vouchers.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrVoucherNotFound
		}
		return nil, err
	}
	return v, nil
}

func (uc *VoucherUseCase) ListByPartner(ctx context.Context, f0Code string) ([]*model.Voucher, error) {
	return uc.vouchers.ListByF0(ctx, f0Code)
}

// CampaignStats returns voucher counts by status for one campaign.
func (uc *VoucherUseCase) CampaignStats(ctx context.Context, campaignID string) (map[model.VoucherStatus]int, error) {
	return uc.vouchers.CountByStatus(ctx, campaignID)
}

// voucherAlphabet avoids ambiguous characters (0/O, 1/I/L).
const voucherAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func generateVoucherCode(campaignCode string) (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate voucher code: %w", err)
	}
	for i, b := range buf {
		buf[i] = voucherAlphabet[int(b)%len(voucherAlphabet)]
	}
	return campaignCode + "-" + string(buf), nil
}
