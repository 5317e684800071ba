package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bars_total", Help: "Count of closed bars ingested"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Final signals emitted, by side"},
		[]string{"symbol", "side"},
	)
	SuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_suppressed_total", Help: "Raw breakouts held back by the cooldown"},
		[]string{"symbol"},
	)
	DroppedBarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bars_dropped_total", Help: "Bars dropped by the runner as duplicate or out of order"},
		[]string{"symbol"},
	)
	EvalSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "pipeline_eval_seconds", Help: "Time spent evaluating one bar", Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8)},
	)
)

func init() {
	prometheus.MustRegister(BarsTotal, SignalsTotal, SuppressedTotal, DroppedBarsTotal, EvalSeconds)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
