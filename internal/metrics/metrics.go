package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orderbook-aggregator/internal/depth"
)

var (
	SnapshotsTotal     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "depth_snapshots_total", Help: "Snapshots enqueued by venue"}, []string{"venue"})
	FramesIgnoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "depth_frames_ignored_total", Help: "WS frames that did not convert into a snapshot, by venue"}, []string{"venue"})
	WSReconnectsTotal  = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ws_reconnects_total", Help: "WS reconnects by venue"}, []string{"venue"})
	ViewsEmittedTotal  = prometheus.NewCounter(prometheus.CounterOpts{Name: "views_emitted_total", Help: "Consolidated views computed and published"})
	Spread             = prometheus.NewGauge(prometheus.GaugeOpts{Name: "consolidated_spread", Help: "Best ask minus best bid across venues"})
	BookLevels         = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "consolidated_levels", Help: "Levels in the latest view by side"}, []string{"side"})
	QueueDepth         = prometheus.NewGauge(prometheus.GaugeOpts{Name: "ingest_queue_depth", Help: "Snapshots waiting for the aggregator"})
	PublishErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "publish_errors_total", Help: "Downstream publish failures by sink"}, []string{"sink"})
)

func Init(logger *slog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		SnapshotsTotal, FramesIgnoredTotal, WSReconnectsTotal,
		ViewsEmittedTotal, Spread, BookLevels, QueueDepth, PublishErrorsTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info("prometheus metrics initialized")
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ObserveView records one emitted view.
func ObserveView(v depth.View) {
	ViewsEmittedTotal.Inc()
	Spread.Set(v.Spread.InexactFloat64())
	BookLevels.WithLabelValues("bid").Set(float64(len(v.Bids)))
	BookLevels.WithLabelValues("ask").Set(float64(len(v.Asks)))
}
