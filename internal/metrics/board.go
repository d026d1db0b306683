package metrics

import "github.com/prometheus/client_golang/prometheus"

// BoardMetrics holds Prometheus metrics for votes, submissions and rank upkeep.
type BoardMetrics struct {
	VotesCast       *prometheus.CounterVec
	PostsCreated    prometheus.Counter
	CommentOps      *prometheus.CounterVec
	RankCorrections prometheus.Counter
	StoreErrors     *prometheus.CounterVec
}

// NewBoardMetrics creates and registers board metrics on the given registry.
func NewBoardMetrics(reg prometheus.Registerer) *BoardMetrics {
	m := &BoardMetrics{
		VotesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Total vote attempts, by target kind, direction and result.",
		}, []string{"kind", "direction", "result"}),
		PostsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_created_total",
			Help:      "Total number of posts created.",
		}),
		CommentOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comment_operations_total",
			Help:      "Total comment writes, by operation.",
		}, []string{"op"}),
		RankCorrections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_corrections_total",
			Help:      "Total cached ranks rewritten on the read path.",
		}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Total store failures, by operation.",
		}, []string{"operation"}),
	}

	reg.MustRegister(m.VotesCast, m.PostsCreated, m.CommentOps, m.RankCorrections, m.StoreErrors)
	return m
}
