package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the auth core.
type Metrics struct {
	ChallengesIssued *prometheus.CounterVec
	Verifications    *prometheus.CounterVec
	Redemptions      *prometheus.CounterVec
	GateDenials      *prometheus.CounterVec
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates and registers all metrics on the given registerer.
func NewWith(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ChallengesIssued: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "walletgate_challenges_issued_total",
			Help: "Authentication challenges issued, by purpose.",
		}, []string{"purpose"}),
		Verifications: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "walletgate_verifications_total",
			Help: "Signature verification attempts, by result.",
		}, []string{"result"}),
		Redemptions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "walletgate_redemptions_total",
			Help: "Session-exchange token redemptions, by result.",
		}, []string{"result"}),
		GateDenials: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "walletgate_gate_denials_total",
			Help: "Access gate denials, by reason.",
		}, []string{"reason"}),
	}
}
