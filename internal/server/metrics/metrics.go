// Package metrics exposes Prometheus counters for authentication, token
// verification, breach lookups and vault operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gophguard"

// Login outcomes.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginLocked             = "locked"
	LoginError              = "error"
)

// Metrics holds the server counters. A nil *Metrics is valid and records
// nothing, so components can be built without a registry in tests.
type Metrics struct {
	logins        *prometheus.CounterVec
	lockouts      prometheus.Counter
	verifications *prometheus.CounterVec
	breach        *prometheus.CounterVec
	vault         *prometheus.CounterVec
}

// New creates the counters and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lockouts_total",
			Help:      "Identities locked after repeated failed logins.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_verifications_total",
			Help:      "Token verifications by result reason.",
		}, []string{"kind", "reason"}),
		breach: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breach_lookups_total",
			Help:      "Breach oracle lookups by kind, source and outcome.",
		}, []string{"kind", "source", "outcome"}),
		vault: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vault_operations_total",
			Help:      "Vault operations by operation and outcome.",
		}, []string{"op", "outcome"}),
	}

	for _, c := range []prometheus.Collector{m.logins, m.lockouts, m.verifications, m.breach, m.vault} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Login counts one login attempt.
func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// Lockout counts an identity transitioning into the locked state.
func (m *Metrics) Lockout() {
	if m == nil {
		return
	}
	m.lockouts.Inc()
}

// TokenVerification counts a verification; reason is "ok" on success.
func (m *Metrics) TokenVerification(kind, reason string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(kind, reason).Inc()
}

// BreachLookup counts one breach oracle lookup.
func (m *Metrics) BreachLookup(kind, source, outcome string) {
	if m == nil {
		return
	}
	m.breach.WithLabelValues(kind, source, outcome).Inc()
}

// VaultOperation counts one vault operation; err decides the outcome label.
func (m *Metrics) VaultOperation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.vault.WithLabelValues(op, outcome).Inc()
}

// Handler serves the exposition format for everything gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
