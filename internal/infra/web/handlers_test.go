package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mat-kinh-affiliate/internal/domain"
	"mat-kinh-affiliate/internal/domain/model"
	"mat-kinh-affiliate/internal/infra/logging"
	"mat-kinh-affiliate/internal/usecase"
)

const testAdminKey = "ops-key"

type webFixture struct {
	srv       *httptest.Server
	auth      *AuthManager
	campaigns *fakeCampaignService
	vouchers  *fakeVoucherService
	tiers     *fakeTierService
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	log := zerolog.Nop()
	auth := NewAuthManager("test-secret", false, "", 30*time.Minute)
	campaigns := &fakeCampaignService{}
	vouchers := &fakeVoucherService{vouchers: map[string]*model.Voucher{}}
	tiers := &fakeTierService{}

	s := NewServer(campaigns, vouchers, tiers, auth, testAdminKey, &log)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &webFixture{srv: srv, auth: auth, campaigns: campaigns, vouchers: vouchers, tiers: tiers}
}

// mintToken signs a session directly, bypassing the session endpoint.
func (fx *webFixture) mintToken(t *testing.T, f0Code, role string) string {
	t.Helper()
	token, err := fx.auth.Mint(httptest.NewRecorder(), f0Code, role)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (fx *webFixture) request(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, fx.srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_RejectsMissingSession(t *testing.T) {
	t.Parallel()

	fx := newWebFixture(t)
	resp := fx.request(t, http.MethodGet, "/api/v1/partner/vouchers", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestServer_MintSession(t *testing.T) {
	t.Parallel()

	fx := newWebFixture(t)

	resp := fx.request(t, http.MethodPost, "/api/v1/auth/session", "",
		`{"admin_key":"wrong","role":"admin"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong key should be 403, got %d", resp.StatusCode)
	}

	resp = fx.request(t, http.MethodPost, "/api/v1/auth/session", "",
		`{"admin_key":"ops-key","role":"partner"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("partner session without f0_code should be 400, got %d", resp.StatusCode)
	}

	resp = fx.request(t, http.MethodPost, "/api/v1/auth/session", "",
		`{"admin_key":"ops-key","role":"partner","f0_code":"F0-001"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := fx.auth.parse(out["token"])
	if err != nil {
		t.Fatalf("minted token does not parse: %v", err)
	}
	if claims.F0Code != "F0-001" || claims.Role != RolePartner {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestServer_AdminRoutesRejectPartner(t *testing.T) {
	t.Parallel()

	fx := newWebFixture(t)
	token := fx.mintToken(t, "F0-001", RolePartner)

	resp := fx.request(t, http.MethodPost, "/api/v1/campaigns", token,
		`{"code":"TET2025","name":"Tet","value_vnd":100000,"validity_days":30}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("partner on admin route should be 403, got %d", resp.StatusCode)
	}
}

func TestServer_CreateCampaign(t *testing.T) {
	t.Parallel()

	fx := newWebFixture(t)
	token := fx.mintToken(t, "", RoleAdmin)

	resp := fx.request(t, http.MethodPost, "/api/v1/campaigns", token,
		`{"code":"tet2025","name":"Tet","value_vnd":100000,"validity_days":30}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var c model.Campaign
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Code != "TET2025" {
		t.Fatalf("expected normalized code, got %q", c.Code)
	}

	resp = fx.request(t, http.MethodPost, "/api/v1/campaigns", token,
		`{"code":"","name":"bad","value_vnd":0,"validity_days":0}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid campaign should be 400, got %d", resp.StatusCode)
	}
}

func TestServer_GrantAssignmentConflict(t *testing.T) {
	t.Parallel()

	fx := newWebFixture(t)
	fx.campaigns.grantFn = func(f0Code, campaignID string, typ model.AssignmentType) (*model.Assignment, error) {
		return nil, domain.ErrDuplicateAssignment
	}
	token := fx.mintToken(t, "", RoleAdmin)

	resp := fx.request(t, http.MethodPost, "/api/v1/assignments", token,
		`{"f0_code":"F0-001","campaign_id":"c-1","type":"direct"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate grant should be 409, got %d", resp.StatusCode)
	}
}

func TestServer_IssueVoucherUsesSessionF0(t *testing.T) {
	t.Parallel()

	fx := newWebFixture(t)
	token := fx.mintToken(t, "F0-007", RolePartner)

	resp := fx.request(t, http.MethodPost, "/api/v1/partner/vouchers", token,
		`{"campaign_id":"c-1","f0_phone":"0900000001","f1_phone":"0900000002","channel":"direct"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if fx.vouchers.lastIssue.F0Code != "F0-007" {
		t.Fatalf("issue must take f0 from session claims, got %q", fx.vouchers.lastIssue.F0Code)
	}
	if fx.vouchers.lastIssue.Channel != model.ChannelDirect {
		t.Fatalf("channel not forwarded, got %q", fx.vouchers.lastIssue.Channel)
	}
}

func TestServer_SessionEnrichesLogContextWithF0(t *testing.T) {
	t.Parallel()

	fx := newWebFixture(t)
	token := fx.mintToken(t, "F0-007", RolePartner)

	resp := fx.request(t, http.MethodPost, "/api/v1/partner/vouchers", token,
		`{"campaign_id":"c-1","f0_phone":"0900000001","f1_phone":"0900000002","channel":"direct"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	base := zerolog.New(&buf)
	logging.With(fx.vouchers.lastCtx, &base).Info().Msg("ok")
	out := buf.String()
	if !strings.Contains(out, `"f0_code":"F0-007"`) {
		t.Fatalf("request context must carry the session f0 code for logs, got %s", out)
	}
	if !strings.Contains(out, `"trace_id":"`) {
		t.Fatalf("request context must carry a trace id for logs, got %s", out)
	}
}

func TestServer_IssueVoucherErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"ineligible", domain.ErrIneligibleRecipient, http.StatusUnprocessableEntity},
		{"not authorized", domain.ErrNotAuthorizedForCampaign, http.StatusForbidden},
		{"unknown campaign", domain.ErrCampaignNotFound, http.StatusNotFound},
		{"lock contention", domain.ErrLockNotAcquired, http.StatusConflict},
		{"pos down", &domain.TransportError{Op: "issue"}, http.StatusBadGateway},
		{"pos rejected", &domain.RemoteError{Status: 422, Code: "CampaignBudgetExceeded"}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fx := newWebFixture(t)
			fx.vouchers.issueFn = func(p usecase.IssueParams) (*model.Voucher, error) {
				return nil, tc.err
			}
			token := fx.mintToken(t, "F0-001", RolePartner)
			resp := fx.request(t, http.MethodPost, "/api/v1/partner/vouchers", token,
				`{"campaign_id":"c-1","f1_phone":"0900000002","channel":"direct"}`)
			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestServer_MarkUsed(t *testing.T) {
	t.Parallel()

	fx := newWebFixture(t)
	fx.vouchers.vouchers["CODE-1"] = &model.Voucher{Code: "CODE-1", Status: model.VoucherStatusSent}
	token := fx.mintToken(t, "", RoleAdmin)

	resp := fx.request(t, http.MethodPost, "/api/v1/vouchers/CODE-1/use", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = fx.request(t, http.MethodPost, "/api/v1/vouchers/NOPE/use", token, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown code should be 404, got %d", resp.StatusCode)
	}
}

func TestServer_PartnerTier(t *testing.T) {
	t.Parallel()

	fx := newWebFixture(t)
	fx.tiers.progress = &usecase.PartnerProgress{
		Stats:    model.PartnerTierStats{TotalReferralsThisPeriod: 15, TotalF1Revenue: 20_000_000},
		Next:     &model.Tier{Code: "gold", MinReferrals: 30, MinRevenue: 50_000_000},
		Progress: model.TierProgress{ReferralProgress: 50, RevenueProgress: 40, Overall: 45},
	}
	token := fx.mintToken(t, "F0-001", RolePartner)

	resp := fx.request(t, http.MethodGet, "/api/v1/partner/tier", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out usecase.PartnerProgress
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Progress.Overall != 45 {
		t.Fatalf("overall = %v, want 45", out.Progress.Overall)
	}
}

func TestServer_HealthIsPublic(t *testing.T) {
	t.Parallel()

	fx := newWebFixture(t)
	resp := fx.request(t, http.MethodGet, "/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
