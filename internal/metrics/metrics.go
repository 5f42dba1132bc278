package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "daily_rewards"

// Claim outcomes.
const (
	OutcomeGranted = "granted"
	OutcomeRefused = "refused"
	OutcomeFailed  = "failed"
)

var (
	Claims = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "daily_login_claims_total",
		Help:      "Daily login claim attempts by variant and outcome.",
	}, []string{"variant", "outcome"})

	TxRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_tx_retries_total",
		Help:      "Store transactions re-run after a write conflict.",
	}, []string{"store"})

	VipGrants = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vip_grants_total",
		Help:      "VIP passes granted after a successful payment.",
	})
)

func init() {
	prometheus.MustRegister(Claims, TxRetries, VipGrants)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
