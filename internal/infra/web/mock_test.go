package web

import (
	"context"

	"mat-kinh-affiliate/internal/domain"
	"mat-kinh-affiliate/internal/domain/model"
	"mat-kinh-affiliate/internal/usecase"
)

// Scriptable fakes for the three services the server consumes.

type fakeCampaignService struct {
	createFn    func(code, name string, valueVND int64, validityDays int) (*model.Campaign, error)
	grantFn     func(f0Code, campaignID string, typ model.AssignmentType) (*model.Assignment, error)
	visibleFn   func(f0Code string, ch model.Channel) ([]*model.Campaign, error)
	setStatusFn func(id string, active bool) error
	campaigns   []*model.Campaign
}

func (f *fakeCampaignService) Create(_ context.Context, code, name string, valueVND int64, validityDays int) (*model.Campaign, error) {
	if f.createFn != nil {
		return f.createFn(code, name, valueVND, validityDays)
	}
	return model.NewCampaign("c-1", code, name, valueVND, validityDays)
}

func (f *fakeCampaignService) SetStatus(_ context.Context, id string, active bool) error {
	if f.setStatusFn != nil {
		return f.setStatusFn(id, active)
	}
	return nil
}

func (f *fakeCampaignService) Get(_ context.Context, id string) (*model.Campaign, error) {
	for _, c := range f.campaigns {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCampaignService) List(_ context.Context) ([]*model.Campaign, error) {
	return f.campaigns, nil
}

func (f *fakeCampaignService) GrantAssignment(_ context.Context, f0Code, campaignID string, typ model.AssignmentType) (*model.Assignment, error) {
	if f.grantFn != nil {
		return f.grantFn(f0Code, campaignID, typ)
	}
	return model.NewAssignment("a-1", f0Code, campaignID, typ)
}

func (f *fakeCampaignService) RevokeAssignment(_ context.Context, id string) error {
	return nil
}

func (f *fakeCampaignService) ListAssignments(_ context.Context, f0Code string) ([]*model.Assignment, error) {
	return nil, nil
}

func (f *fakeCampaignService) VisibleTo(_ context.Context, f0Code string, ch model.Channel) ([]*model.Campaign, error) {
	if f.visibleFn != nil {
		return f.visibleFn(f0Code, ch)
	}
	return f.campaigns, nil
}

type fakeVoucherService struct {
	issueFn    func(p usecase.IssueParams) (*model.Voucher, error)
	markUsedFn func(code string) (bool, error)
	vouchers   map[string]*model.Voucher
	stats      map[model.VoucherStatus]int
	lastIssue  usecase.IssueParams
	lastCtx    context.Context
}

func (f *fakeVoucherService) Issue(ctx context.Context, p usecase.IssueParams) (*model.Voucher, error) {
	f.lastCtx = ctx
	f.lastIssue = p
	if f.issueFn != nil {
		return f.issueFn(p)
	}
	return &model.Voucher{ID: "v-1", Code: "CODE-1", CampaignID: p.CampaignID, F0Code: p.F0Code, Status: model.VoucherStatusSent}, nil
}

func (f *fakeVoucherService) MarkUsed(_ context.Context, code string) (bool, error) {
	if f.markUsedFn != nil {
		return f.markUsedFn(code)
	}
	_, ok := f.vouchers[code]
	return ok, nil
}

func (f *fakeVoucherService) Find(_ context.Context, code string) (*model.Voucher, error) {
	v, ok := f.vouchers[code]
	if !ok {
		return nil, domain.ErrVoucherNotFound
	}
	return v, nil
}

func (f *fakeVoucherService) ListByPartner(_ context.Context, f0Code string) ([]*model.Voucher, error) {
	var out []*model.Voucher
	for _, v := range f.vouchers {
		if v.F0Code == f0Code {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVoucherService) CampaignStats(_ context.Context, campaignID string) (map[model.VoucherStatus]int, error) {
	return f.stats, nil
}

type fakeTierService struct {
	progress *usecase.PartnerProgress
	ladder   []*model.Tier
}

func (f *fakeTierService) ProgressFor(_ context.Context, f0Code string) (*usecase.PartnerProgress, error) {
	return f.progress, nil
}

func (f *fakeTierService) Ladder(_ context.Context) ([]*model.Tier, error) {
	return f.ladder, nil
}
