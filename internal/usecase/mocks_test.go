package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mat-kinh-affiliate/internal/domain"
	"mat-kinh-affiliate/internal/domain/model"
	"mat-kinh-affiliate/internal/domain/ports/adapter"
	"mat-kinh-affiliate/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memCampaignRepo is a small in-memory implementation used by unit tests.
type memCampaignRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Campaign
}

func newMemCampaignRepo() *memCampaignRepo {
	return &memCampaignRepo{store: make(map[string]*model.Campaign)}
}

func (m *memCampaignRepo) Save(ctx context.Context, c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *memCampaignRepo) SaveTx(ctx context.Context, tx repository.Tx, c *model.Campaign) error {
	return m.Save(ctx, c)
}

func (m *memCampaignRepo) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaignRepo) FindByCode(ctx context.Context, code string) (*model.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.store {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCampaignRepo) FindByCodeTx(ctx context.Context, tx repository.Tx, code string) (*model.Campaign, error) {
	return m.FindByCode(ctx, code)
}

func (m *memCampaignRepo) FindByExternalID(ctx context.Context, externalID string) (*model.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.store {
		if c.ExternalID == externalID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCampaignRepo) ListAll(ctx context.Context) ([]*model.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Campaign, 0, len(m.store))
	for _, c := range m.store {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// memAssignmentRepo enforces the unique (f0, campaign, type) triple like the
// real store's constraint does.
type memAssignmentRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Assignment
}

func newMemAssignmentRepo() *memAssignmentRepo {
	return &memAssignmentRepo{store: make(map[string]*model.Assignment)}
}

func (m *memAssignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.store {
		if ex.F0Code == a.F0Code && ex.CampaignID == a.CampaignID && ex.Type == a.Type {
			return domain.ErrDuplicateAssignment
		}
	}
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *memAssignmentRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *memAssignmentRepo) FindByID(ctx context.Context, id string) (*model.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAssignmentRepo) ListByF0(ctx context.Context, f0Code string) ([]*model.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Assignment
	for _, a := range m.store {
		if a.F0Code == f0Code {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memAssignmentRepo) ListByCampaign(ctx context.Context, campaignID string) ([]*model.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Assignment
	for _, a := range m.store {
		if a.CampaignID == campaignID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memVoucherRepo mirrors the conditional sent->used UPDATE.
type memVoucherRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Voucher // by code
}

func newMemVoucherRepo() *memVoucherRepo {
	return &memVoucherRepo{store: make(map[string]*model.Voucher)}
}

func (m *memVoucherRepo) Save(ctx context.Context, v *model.Voucher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.store[v.Code] = &cp
	return nil
}

func (m *memVoucherRepo) FindByCode(ctx context.Context, code string) (*model.Voucher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.store[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memVoucherRepo) ListByF0(ctx context.Context, f0Code string) ([]*model.Voucher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Voucher
	for _, v := range m.store {
		if v.F0Code == f0Code {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memVoucherRepo) ListByCampaign(ctx context.Context, campaignID string) ([]*model.Voucher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Voucher
	for _, v := range m.store {
		if v.CampaignID == campaignID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memVoucherRepo) TransitionUsed(ctx context.Context, code string, usedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.store[code]
	if !ok || v.Status != model.VoucherStatusSent {
		return false, nil
	}
	v.Status = model.VoucherStatusUsed
	at := usedAt
	v.UsedAt = &at
	return true, nil
}

func (m *memVoucherRepo) CountByStatus(ctx context.Context, campaignID string) (map[model.VoucherStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[model.VoucherStatus]int)
	for _, v := range m.store {
		if v.CampaignID == campaignID {
			out[v.Status]++
		}
	}
	return out, nil
}

func (m *memVoucherRepo) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

// memTierRepo serves a fixed ascending ladder.
type memTierRepo struct {
	ladder []*model.Tier
}

func (m *memTierRepo) ListAll(ctx context.Context) ([]*model.Tier, error) {
	return m.ladder, nil
}

func (m *memTierRepo) FindByCode(ctx context.Context, code string) (*model.Tier, error) {
	for _, t := range m.ladder {
		if t.Code == code {
			return t, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memStatsRepo struct {
	stats map[string]model.PartnerTierStats
}

func (m *memStatsRepo) FindByF0(ctx context.Context, f0Code string) (model.PartnerTierStats, error) {
	return m.stats[f0Code], nil
}

// fakePOSGateway lets tests script the remote side.
type fakePOSGateway struct {
	classify      func(phone string) (adapter.CustomerType, error)
	issue         func(req adapter.IssueVoucherRequest) (*adapter.IssuedVoucher, error)
	campaigns     []adapter.RemoteCampaign
	classifyCalls int
	issueCalls    int
	lastIssue     adapter.IssueVoucherRequest
}

func (f *fakePOSGateway) ListCampaigns(ctx context.Context) ([]adapter.RemoteCampaign, error) {
	return f.campaigns, nil
}

func (f *fakePOSGateway) IssueVoucher(ctx context.Context, req adapter.IssueVoucherRequest) (*adapter.IssuedVoucher, error) {
	f.issueCalls++
	f.lastIssue = req
	if f.issue != nil {
		return f.issue(req)
	}
	return &adapter.IssuedVoucher{Code: "EXT-CODE"}, nil
}

func (f *fakePOSGateway) ClassifyCustomer(ctx context.Context, phone string) (adapter.CustomerType, error) {
	f.classifyCalls++
	if f.classify != nil {
		return f.classify(phone)
	}
	return adapter.CustomerNew, nil
}

// fakeLocker always grants and remembers the keys it saw.
type fakeLocker struct {
	mu     sync.Mutex
	locked []string
}

func (f *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = append(f.locked, key)
	return "lock-token", nil
}

func (f *fakeLocker) Unlock(ctx context.Context, key, token string) error { return nil }
