package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal *prometheus.CounterVec
	ballotsTotal      *prometheus.CounterVec
	tokensIssuedTotal prometheus.Counter
	votesRecorded     *prometheus.CounterVec
	registerOnce      sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cca_polling",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the polling API.",
		}, []string{"method", "path", "status"})

		ballotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cca_polling",
			Name:      "ballot_submissions_total",
			Help:      "Ballot submissions by outcome.",
		}, []string{"outcome"})

		tokensIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "cca_polling",
			Name:      "vote_tokens_issued_total",
			Help:      "Vote tokens issued or rotated for anonymous polls.",
		})

		votesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cca_polling",
			Name:      "vote_rows_recorded_total",
			Help:      "Vote rows written, split by poll kind.",
		}, []string{"kind"})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// IncBallot counts a submission attempt. outcome is "accepted" or an error code.
func IncBallot(outcome string) {
	if ballotsTotal == nil {
		return
	}
	ballotsTotal.WithLabelValues(outcome).Inc()
}

func IncTokenIssued() {
	if tokensIssuedTotal == nil {
		return
	}
	tokensIssuedTotal.Inc()
}

func AddVotesRecorded(anonymous bool, n int) {
	if votesRecorded == nil {
		return
	}
	kind := "attributable"
	if anonymous {
		kind = "anonymous"
	}
	votesRecorded.WithLabelValues(kind).Add(float64(n))
}
