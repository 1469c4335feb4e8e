package autograd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are created unregistered; hosts expose them with RegisterMetrics.
var (
	// viewRecomputations counts AsStridedBackward nodes built for stale views.
	viewRecomputations = promauto.With(nil).NewCounter(prometheus.CounterOpts{
		Name: "autograd_view_grad_fn_recomputations_total",
		Help: "Total grad_fn rebuilds of views whose base was modified in place",
	})

	// historyRebases counts in-place history rewrites by kind ("tensor" or "view").
	historyRebases = promauto.With(nil).NewCounterVec(prometheus.CounterOpts{
		Name: "autograd_history_rebases_total",
		Help: "Total history rebases after in-place operations, by tensor kind",
	}, []string{"kind"})

	gradAccumulatorsCreated = promauto.With(nil).NewCounter(prometheus.CounterOpts{
		Name: "autograd_grad_accumulators_created_total",
		Help: "Total gradient accumulators constructed for leaf tensors",
	})

	hooksRegistered = promauto.With(nil).NewCounter(prometheus.CounterOpts{
		Name: "autograd_hooks_registered_total",
		Help: "Total tensor hooks registered",
	})

	hooksRemoved = promauto.With(nil).NewCounter(prometheus.CounterOpts{
		Name: "autograd_hooks_removed_total",
		Help: "Total tensor hooks removed",
	})
)

// Collectors returns every metric of this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		viewRecomputations,
		historyRebases,
		gradAccumulatorsCreated,
		hooksRegistered,
		hooksRemoved,
	}
}

// RegisterMetrics registers the package metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
