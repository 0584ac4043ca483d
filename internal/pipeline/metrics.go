package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes recorded in requests_total.
const (
	outcomeSuccess      = "success"
	outcomeRetried      = "retried_success"
	outcomeAuthExpired  = "auth_expired"
	outcomeClientError  = "client_error"
	outcomeNotFound     = "not_found"
	outcomeServerError  = "server_error"
	outcomeNetworkError = "network_error"
)

// Refresh results recorded in refresh_total.
const (
	refreshSuccess = "success"
	refreshFailure = "failure"
	refreshSkipped = "skipped"
)

// Metrics holds the pipeline counters.
type Metrics struct {
	Requests    *prometheus.CounterVec
	Refreshes   *prometheus.CounterVec
	AuthExpired prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonicvision",
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Backend requests by method and final outcome.",
		}, []string{"method", "outcome"}),
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonicvision",
			Subsystem: "pipeline",
			Name:      "refresh_total",
			Help:      "Token refresh attempts by result.",
		}, []string{"result"}),
		AuthExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: "sonicvision",
			Subsystem: "pipeline",
			Name:      "auth_expired_total",
			Help:      "Terminal authentication failures that cleared the stored credentials.",
		}),
	}
}

func outcomeOf(err error) string {
	switch err.(type) {
	case nil:
		return outcomeSuccess
	case *AuthExpiredError:
		return outcomeAuthExpired
	case *NotFoundError:
		return outcomeNotFound
	case *ServerError:
		return outcomeServerError
	case *NetworkError:
		return outcomeNetworkError
	default:
		return outcomeClientError
	}
}
