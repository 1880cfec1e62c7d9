package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionMetrics counts reconciliation outcomes.
type SessionMetrics struct {
	listings  *prometheus.CounterVec
	transient prometheus.Counter
	discarded *prometheus.CounterVec
}

// NewSessionMetrics registers the session metrics on the provided registerer.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	if reg == nil {
		return &SessionMetrics{}
	}
	listings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plexo_listing_outcomes_total",
		Help: "Listing attempts by completed tier.",
	}, []string{"outcome"})
	transient := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plexo_transient_threads_total",
		Help: "Chat threads opened without persistence.",
	})
	discarded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plexo_stale_results_discarded_total",
		Help: "Async results dropped because their generation was superseded.",
	}, []string{"kind"})
	reg.MustRegister(listings, transient, discarded)
	return &SessionMetrics{
		listings:  listings,
		transient: transient,
		discarded: discarded,
	}
}

// IncListing increments the counter for a listing outcome.
func (s *SessionMetrics) IncListing(outcome string) {
	if s == nil || s.listings == nil {
		return
	}
	s.listings.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncTransientThread counts a thread that was opened in memory only.
func (s *SessionMetrics) IncTransientThread() {
	if s == nil || s.transient == nil {
		return
	}
	s.transient.Inc()
}

// IncDiscarded counts an async result dropped for a stale generation.
func (s *SessionMetrics) IncDiscarded(kind string) {
	if s == nil || s.discarded == nil {
		return
	}
	s.discarded.WithLabelValues(normalizeLabel(kind)).Inc()
}
