package pos

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"mat-kinh-affiliate/internal/domain"
	"mat-kinh-affiliate/internal/domain/ports/adapter"
	"mat-kinh-affiliate/internal/infra/metrics"
)

// Ensure interface compliance
var _ adapter.POSGateway = (*Gateway)(nil)

// Gateway implements adapter.POSGateway with the single-retry credential
// policy: one attempt with the cached token; on 401 one forced refresh and
// exactly one more attempt. A second 401 surfaces as AuthError. Nothing else
// is retried here.
type Gateway struct {
	client *Client
	tokens *TokenSource
	log    *zerolog.Logger
}

func NewGateway(client *Client, tokens *TokenSource, logger *zerolog.Logger) *Gateway {
	l := logger.With().Str("component", "POSGateway").Logger()
	return &Gateway{client: client, tokens: tokens, log: &l}
}

func (g *Gateway) call(ctx context.Context, op, method, path string, extra http.Header, in, out interface{}) error {
	start := time.Now()
	err := g.callOnceWithRetry(ctx, op, method, path, extra, in, out)
	metrics.ObserveGatewayLatency(op, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		metrics.IncGatewayCall(op, outcome(err))
		return err
	}
	metrics.IncGatewayCall(op, "ok")
	return nil
}

func (g *Gateway) callOnceWithRetry(ctx context.Context, op, method, path string, extra http.Header, in, out interface{}) error {
	token, err := g.tokens.Token(ctx)
	if err != nil {
		return err
	}
	err = g.client.do(ctx, method, path, token, extra, in, out)
	if !errors.Is(err, errUnauthorized) {
		return err
	}

	// The server rejected a token we believed valid; refresh once and retry
	// exactly once.
	metrics.IncGatewayRetry(op)
	g.log.Warn().Str("op", op).Msg("credential rejected, forcing refresh")
	token, err = g.tokens.ForceRefresh(ctx)
	if err != nil {
		return err
	}
	err = g.client.do(ctx, method, path, token, extra, in, out)
	if errors.Is(err, errUnauthorized) {
		return &domain.AuthError{Reason: "credential rejected after forced refresh"}
	}
	return err
}

func outcome(err error) string {
	var ae *domain.AuthError
	var te *domain.TransportError
	var re *domain.RemoteError
	switch {
	case errors.As(err, &ae):
		return "auth_error"
	case errors.As(err, &te):
		return "transport_error"
	case errors.As(err, &re):
		return "remote_error"
	}
	return "error"
}

// ---- wire types ----

type remoteCampaignItem struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Value        int64  `json:"value"`
	ValidityDays int    `json:"validityDays"`
	IsActive     bool   `json:"isActive"`
}

type listCampaignsResponse struct {
	Data []remoteCampaignItem `json:"data"`
}

type issueVoucherRequestBody struct {
	CampaignID   string `json:"campaignId"`
	F0Phone      string `json:"f0Phone"`
	F1Phone      string `json:"f1Phone"`
	Channel      string `json:"channel"`
	CustomerType string `json:"customerType"`
}

type issueVoucherResponseBody struct {
	Code          string    `json:"code"`
	CreatedDate   time.Time `json:"createdDate"`
	ActivatedDate time.Time `json:"activatedDate"`
	ExpiredDate   time.Time `json:"expiredDate"`
}

type classifyResponseBody struct {
	Type string `json:"type"` // "new" | "old"
}

// ---- operations ----

func (g *Gateway) ListCampaigns(ctx context.Context) ([]adapter.RemoteCampaign, error) {
	var resp listCampaignsResponse
	if err := g.call(ctx, "list_campaigns", http.MethodGet, "/campaigns?status=active", nil, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]adapter.RemoteCampaign, 0, len(resp.Data))
	for _, it := range resp.Data {
		out = append(out, adapter.RemoteCampaign{
			ID:           it.ID,
			Code:         it.Code,
			Name:         it.Name,
			ValueVND:     it.Value,
			ValidityDays: it.ValidityDays,
			Active:       it.IsActive,
		})
	}
	return out, nil
}

// IssueVoucher mints a voucher remotely. The idempotency key rides in a
// header so an abandoned call retried by the caller cannot double-mint.
func (g *Gateway) IssueVoucher(ctx context.Context, req adapter.IssueVoucherRequest) (*adapter.IssuedVoucher, error) {
	extra := http.Header{}
	if req.IdempotencyKey != "" {
		extra.Set("X-Idempotency-Key", req.IdempotencyKey)
	}
	body := issueVoucherRequestBody{
		CampaignID:   req.CampaignExternalID,
		F0Phone:      req.F0Phone,
		F1Phone:      req.F1Phone,
		Channel:      req.Channel,
		CustomerType: string(req.CustomerType),
	}
	var resp issueVoucherResponseBody
	if err := g.call(ctx, "issue_voucher", http.MethodPost, "/vouchers", extra, body, &resp); err != nil {
		return nil, err
	}
	return &adapter.IssuedVoucher{
		Code:        resp.Code,
		CreatedAt:   resp.CreatedDate,
		ActivatedAt: resp.ActivatedDate,
		ExpiredAt:   resp.ExpiredDate,
	}, nil
}

func (g *Gateway) ClassifyCustomer(ctx context.Context, phone string) (adapter.CustomerType, error) {
	var resp classifyResponseBody
	path := "/customers/classification?phone=" + url.QueryEscape(phone)
	if err := g.call(ctx, "classify_customer", http.MethodGet, path, nil, nil, &resp); err != nil {
		return "", err
	}
	if resp.Type == string(adapter.CustomerOld) {
		return adapter.CustomerOld, nil
	}
	return adapter.CustomerNew, nil
}
