package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mat-kinh-affiliate/internal/domain/model"
	"mat-kinh-affiliate/internal/infra/logging"
	"mat-kinh-affiliate/internal/usecase"
)

// CampaignService is the slice of the campaign registry the HTTP layer needs.
type CampaignService interface {
	Create(ctx context.Context, code, name string, valueVND int64, validityDays int) (*model.Campaign, error)
	SetStatus(ctx context.Context, id string, active bool) error
	Get(ctx context.Context, id string) (*model.Campaign, error)
	List(ctx context.Context) ([]*model.Campaign, error)
	GrantAssignment(ctx context.Context, f0Code, campaignID string, typ model.AssignmentType) (*model.Assignment, error)
	RevokeAssignment(ctx context.Context, id string) error
	ListAssignments(ctx context.Context, f0Code string) ([]*model.Assignment, error)
	VisibleTo(ctx context.Context, f0Code string, channel model.Channel) ([]*model.Campaign, error)
}

type VoucherService interface {
	Issue(ctx context.Context, p usecase.IssueParams) (*model.Voucher, error)
	MarkUsed(ctx context.Context, code string) (bool, error)
	Find(ctx context.Context, code string) (*model.Voucher, error)
	ListByPartner(ctx context.Context, f0Code string) ([]*model.Voucher, error)
	CampaignStats(ctx context.Context, campaignID string) (map[model.VoucherStatus]int, error)
}

type TierService interface {
	ProgressFor(ctx context.Context, f0Code string) (*usecase.PartnerProgress, error)
	Ladder(ctx context.Context) ([]*model.Tier, error)
}

type Server struct {
	campaigns CampaignService
	vouchers  VoucherService
	tiers     TierService
	auth      *AuthManager
	adminKey  string
	log       *zerolog.Logger
}

func NewServer(
	campaigns CampaignService,
	vouchers VoucherService,
	tiers TierService,
	auth *AuthManager,
	adminKey string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		campaigns: campaigns,
		vouchers:  vouchers,
		tiers:     tiers,
		auth:      auth,
		adminKey:  adminKey,
		log:       &l,
	}
}

// Router builds the full route tree with the middleware chain applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log), Timeout(30*time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/session", s.handleMintSession)
		r.Delete("/auth/session", s.handleClearSession)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			// Partner surface: everything keys off the session's f0 code.
			r.Get("/partner/campaigns", s.handleVisibleCampaigns)
			r.Get("/partner/assignments", s.handlePartnerAssignments)
			r.Post("/partner/vouchers", s.handleIssueVoucher)
			r.Get("/partner/vouchers", s.handlePartnerVouchers)
			r.Get("/partner/tier", s.handlePartnerTier)

			r.Get("/tiers", s.handleTierLadder)
			r.Get("/vouchers/{code}", s.handleGetVoucher)

			// Admin surface.
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)

				r.Post("/campaigns", s.handleCreateCampaign)
				r.Get("/campaigns", s.handleListCampaigns)
				r.Get("/campaigns/{id}", s.handleGetCampaign)
				r.Patch("/campaigns/{id}/status", s.handleSetCampaignStatus)
				r.Get("/campaigns/{id}/stats", s.handleCampaignStats)
				r.Post("/assignments", s.handleGrantAssignment)
				r.Delete("/assignments/{id}", s.handleRevokeAssignment)
				r.Post("/vouchers/{code}/use", s.handleMarkUsed)
			})
		})
	})

	return r
}

type ctxKey int

const claimsKey ctxKey = iota

func claimsFrom(ctx context.Context) *SessionClaims {
	c, _ := ctx.Value(claimsKey).(*SessionClaims)
	return c
}

// requireSession rejects requests without a valid JWT and stores the claims
// in the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		if claims.F0Code != "" {
			ctx = logging.WithF0Code(ctx, claims.F0Code)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil || !claims.IsAdmin() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
