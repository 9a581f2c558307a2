package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	automodVerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automod_verdicts_total",
			Help: "AutoMod evaluation outcomes by verdict",
		},
		[]string{"verdict"},
	)

	automodMutedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "automod_muted_users",
			Help: "Number of currently muted identities",
		},
	)

	sessionTokensSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_tokens_swept_total",
			Help: "Expired session tokens removed by the background sweep",
		},
	)
)
