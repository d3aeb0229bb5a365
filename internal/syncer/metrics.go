package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gistfeed_syncs_total",
			Help: "Total number of user sync runs, by result",
		},
		[]string{"result"},
	)

	gistsFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gistfeed_gists_fetched_total",
			Help: "Total number of gists fetched from the GitHub API",
		},
	)

	fetchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gistfeed_remote_fetch_failures_total",
			Help: "Total number of gist fetches that failed and were skipped",
		},
	)
)
