package pos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"mat-kinh-affiliate/internal/config"
	"mat-kinh-affiliate/internal/domain"
	"mat-kinh-affiliate/internal/infra/metrics"
)

// tokenExpiryBuffer keeps us from presenting a token that would expire
// mid-flight. Tunable, not a correctness requirement.
const tokenExpiryBuffer = 5 * time.Minute

type credential struct {
	token     string
	expiresAt time.Time
}

// TokenSource caches the POS bearer credential and refreshes it on demand.
// There is a single current credential; a successful refresh fully replaces
// it. Concurrent refreshes are collapsed into one fetch via singleflight.
type TokenSource struct {
	cfg    config.POSConfig
	client *http.Client
	log    *zerolog.Logger

	now func() time.Time // injectable for tests

	mu  sync.Mutex
	cur credential
	gen uint64 // bumped by ForceRefresh so superseded fetches cannot re-cache
	sf  singleflight.Group
}

func NewTokenSource(cfg config.POSConfig, logger *zerolog.Logger) *TokenSource {
	l := logger.With().Str("component", "TokenSource").Logger()
	return &TokenSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    &l,
		now:    time.Now,
	}
}

// Token returns the cached credential while it has more than the buffer left
// to live, otherwise fetches a fresh one.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.cur.token != "" && s.now().Before(s.cur.expiresAt.Add(-tokenExpiryBuffer)) {
		t := s.cur.token
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()
	return s.refresh(ctx, false)
}

// ForceRefresh discards the cached credential and fetches a new one. Used by
// the gateway after the server rejects a token we believed valid.
func (s *TokenSource) ForceRefresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.cur = credential{}
	s.gen++
	s.mu.Unlock()
	return s.refresh(ctx, true)
}

// refresh collapses concurrent fetches per kind. Forced refreshes use their
// own singleflight key: joining an expiry-driven fetch that began before the
// 401 would hand back the very credential the server just rejected. A fetch
// started before the last ForceRefresh returns its token to waiting callers
// but never re-caches it.
func (s *TokenSource) refresh(ctx context.Context, forced bool) (string, error) {
	key := "token"
	if forced {
		key = "token_forced"
	}
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		tok, exp, err := s.fetch(ctx)
		if err != nil {
			metrics.IncTokenRefresh(false, forced)
			return nil, err
		}
		s.mu.Lock()
		if s.gen == gen {
			s.cur = credential{token: tok, expiresAt: exp}
		}
		s.mu.Unlock()
		metrics.IncTokenRefresh(true, forced)
		s.log.Debug().Time("expires_at", exp).Bool("forced", forced).Msg("credential refreshed")
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // epoch milliseconds
}

func (s *TokenSource) fetch(ctx context.Context) (string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, &domain.AuthError{Reason: "build token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", time.Time{}, &domain.AuthError{Reason: "token endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, &domain.AuthError{Reason: "read token response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, &domain.AuthError{Reason: fmt.Sprintf("token endpoint status %d", resp.StatusCode)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", time.Time{}, &domain.AuthError{Reason: "decode token response", Err: err}
	}
	if tr.AccessToken == "" || tr.ExpiresAt <= 0 {
		return "", time.Time{}, &domain.AuthError{Reason: "token response missing access_token or expires_at"}
	}
	return tr.AccessToken, time.UnixMilli(tr.ExpiresAt), nil
}
