package metrics

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	tokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_token_refreshes_total",
			Help: "POS credential refreshes by outcome (success/failure) and trigger (expiry/forced).",
		},
		[]string{"outcome", "trigger"},
	)

	gatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_gateway_calls_total",
			Help: "POS gateway calls per operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	gatewayRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_gateway_unauthorized_retries_total",
			Help: "Count of single 401-triggered retries per operation.",
		},
		[]string{"op"},
	)

	gatewayLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pos_gateway_latency_ms",
			Help:    "POS call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"op", "success"},
	)

	vouchersIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vouchers_issued_total",
			Help: "Vouchers issued per channel and mint source (external/local).",
		},
		[]string{"channel", "source"},
	)

	vouchersUsed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vouchers_used_total",
			Help: "Vouchers transitioned sent->used.",
		},
	)

	issuanceRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voucher_issuance_rejections_total",
			Help: "Issuance attempts rejected before mint, by reason.",
		},
		[]string{"reason"},
	)

	campaignsSynced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaigns_synced_total",
			Help: "Remote campaigns upserted by the sync worker.",
		},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			tokenRefreshes, gatewayCalls, gatewayRetries, gatewayLatencyMs,
			vouchersIssued, vouchersUsed, issuanceRejections, campaignsSynced,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Gateway helpers --------

func IncTokenRefresh(success bool, forced bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	trigger := "expiry"
	if forced {
		trigger = "forced"
	}
	tokenRefreshes.WithLabelValues(outcome, trigger).Inc()
}

func IncGatewayCall(op, outcome string) {
	gatewayCalls.WithLabelValues(norm(op), norm(outcome)).Inc()
}

func IncGatewayRetry(op string) {
	gatewayRetries.WithLabelValues(norm(op)).Inc()
}

func ObserveGatewayLatency(op string, latencyMs int64, success bool) {
	gatewayLatencyMs.WithLabelValues(norm(op), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

// -------- Voucher helpers --------

func IncVoucherIssued(channel, source string) {
	vouchersIssued.WithLabelValues(norm(channel), norm(source)).Inc()
}

func IncVoucherUsed() { vouchersUsed.Inc() }

func IncIssuanceRejection(reason string) {
	issuanceRejections.WithLabelValues(norm(reason)).Inc()
}

// -------- Sync helpers --------

func AddCampaignsSynced(n int) { campaignsSynced.Add(float64(n)) }
