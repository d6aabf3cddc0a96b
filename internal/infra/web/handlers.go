package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mat-kinh-affiliate/internal/domain"
	"mat-kinh-affiliate/internal/domain/model"
	"mat-kinh-affiliate/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP statuses. Gateway
// failures surface as 502 so callers can tell our fault from the POS's.
func writeError(w http.ResponseWriter, err error) {
	var remoteErr *domain.RemoteError
	var transportErr *domain.TransportError
	var authErr *domain.AuthError

	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrCampaignNotFound),
		errors.Is(err, domain.ErrVoucherNotFound),
		errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrNotAuthorizedForCampaign):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrDuplicateAssignment),
		errors.Is(err, domain.ErrLockNotAcquired):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrIneligibleRecipient):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &remoteErr), errors.As(err, &transportErr), errors.As(err, &authErr):
		http.Error(w, "upstream POS failure", http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// ===== Sessions =====

type sessionRequest struct {
	AdminKey string `json:"admin_key"`
	F0Code   string `json:"f0_code"`
	Role     string `json:"role"`
}

// handleMintSession trades the ops key for a JWT. The key lives in config;
// partner sessions carry the f0 code they were minted for.
func (s *Server) handleMintSession(w http.ResponseWriter, r *http.Request) {
	if s.adminKey == "" {
		s.log.Error().Msg("admin key is not configured")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AdminKey != s.adminKey {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if req.Role != RoleAdmin && req.Role != RolePartner {
		http.Error(w, "role must be admin or partner", http.StatusBadRequest)
		return
	}
	if req.Role == RolePartner && req.F0Code == "" {
		http.Error(w, "f0_code is required for partner sessions", http.StatusBadRequest)
		return
	}

	token, err := s.auth.Mint(w, req.F0Code, req.Role)
	if err != nil {
		http.Error(w, "Failed to mint session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (s *Server) handleClearSession(w http.ResponseWriter, _ *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// ===== Campaigns (admin) =====

type campaignCreateRequest struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	ValueVND     int64  `json:"value_vnd"`
	ValidityDays int    `json:"validity_days"`
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	c, err := s.campaigns.Create(r.Context(), req.Code, req.Name, req.ValueVND, req.ValidityDays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	list, err := s.campaigns.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.Campaign `json:"data"`
	}{Data: list})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.campaigns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type campaignStatusRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleSetCampaignStatus(w http.ResponseWriter, r *http.Request) {
	var req campaignStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.campaigns.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Active); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCampaignStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.campaigns.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	counts, err := s.vouchers.CampaignStats(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		CampaignID string `json:"campaign_id"`
		Sent       int    `json:"sent"`
		Used       int    `json:"used"`
	}{
		CampaignID: id,
		Sent:       counts[model.VoucherStatusSent],
		Used:       counts[model.VoucherStatusUsed],
	})
}

// ===== Assignments (admin) =====

type assignmentGrantRequest struct {
	F0Code     string `json:"f0_code"`
	CampaignID string `json:"campaign_id"`
	Type       string `json:"type"`
}

func (s *Server) handleGrantAssignment(w http.ResponseWriter, r *http.Request) {
	var req assignmentGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	a, err := s.campaigns.GrantAssignment(r.Context(), req.F0Code, req.CampaignID, model.AssignmentType(req.Type))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleRevokeAssignment(w http.ResponseWriter, r *http.Request) {
	if err := s.campaigns.RevokeAssignment(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Partner surface =====

func (s *Server) handleVisibleCampaigns(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	channel := model.Channel(r.URL.Query().Get("channel"))
	list, err := s.campaigns.VisibleTo(r.Context(), claims.F0Code, channel)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.Campaign `json:"data"`
	}{Data: list})
}

func (s *Server) handlePartnerAssignments(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	list, err := s.campaigns.ListAssignments(r.Context(), claims.F0Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.Assignment `json:"data"`
	}{Data: list})
}

type voucherIssueRequest struct {
	CampaignID string `json:"campaign_id"`
	F0Phone    string `json:"f0_phone"`
	F1Phone    string `json:"f1_phone"`
	F1Name     string `json:"f1_name"`
	F1Email    string `json:"f1_email"`
	Channel    string `json:"channel"`
}

func (s *Server) handleIssueVoucher(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req voucherIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	v, err := s.vouchers.Issue(r.Context(), usecase.IssueParams{
		F0Code:     claims.F0Code,
		F0Phone:    req.F0Phone,
		CampaignID: req.CampaignID,
		F1Phone:    req.F1Phone,
		F1Name:     req.F1Name,
		F1Email:    req.F1Email,
		Channel:    model.Channel(req.Channel),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handlePartnerVouchers(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	list, err := s.vouchers.ListByPartner(r.Context(), claims.F0Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.Voucher `json:"data"`
	}{Data: list})
}

func (s *Server) handlePartnerTier(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	progress, err := s.tiers.ProgressFor(r.Context(), claims.F0Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleTierLadder(w http.ResponseWriter, r *http.Request) {
	ladder, err := s.tiers.Ladder(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.Tier `json:"data"`
	}{Data: ladder})
}

// ===== Vouchers =====

func (s *Server) handleGetVoucher(w http.ResponseWriter, r *http.Request) {
	v, err := s.vouchers.Find(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleMarkUsed(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	ok, err := s.vouchers.MarkUsed(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code, "status": string(model.VoucherStatusUsed)})
}
