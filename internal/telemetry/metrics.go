package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Traffic: тики сэмплеров по доменам
	SamplesTotal *prometheus.CounterVec

	// Errors: изолированные отказы тиков (не фатальны для цикла)
	SampleFailures *prometheus.CounterVec

	// Угрозы по severity/type + исходы конвейера
	ThreatsDetected  *prometheus.CounterVec
	ThreatsMitigated prometheus.Counter
	SamplesBenign    prometheus.Counter // отброшено как шум до создания Threat

	// Push-канал: текущие зрители и снятые по backpressure соединения
	ConnectedViewers prometheus.Gauge
	BroadcastDropped prometheus.Counter

	// Saturation: заполненность буфера пакетного инжестора
	PacketBufferFill prometheus.Gauge

	// Saturation: состояние Circuit Breaker респондера митигации (0 - ок, 1 - выбило)
	MitigatorBreakerState prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		SamplesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "agisfl_samples_total",
			Help: "Total number of sampler ticks per telemetry domain.",
		}, []string{"domain"}),

		SampleFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "agisfl_sample_failures_total",
			Help: "Failed sampler ticks per telemetry domain (loop continues).",
		}, []string{"domain"}),

		ThreatsDetected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "agisfl_threats_detected_total",
			Help: "Flagged threats by severity and type.",
		}, []string{"severity", "type"}),

		ThreatsMitigated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "agisfl_threats_mitigated_total",
			Help: "Threats transitioned to mitigated state.",
		}),

		SamplesBenign: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "agisfl_samples_benign_total",
			Help: "Raw samples discarded as benign (score below flag threshold).",
		}),

		ConnectedViewers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "agisfl_connected_viewers",
			Help: "Number of currently open viewer connections.",
		}),

		BroadcastDropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "agisfl_broadcast_dropped_total",
			Help: "Viewer connections dropped because their send buffer was full.",
		}),

		PacketBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "agisfl_packet_buffer_utilization",
			Help: "Current number of packets queued in the ingest buffer.",
		}),

		MitigatorBreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "agisfl_mitigator_breaker_state",
			Help: "Current state of the mitigation circuit breaker (0=closed, 1=open).",
		}),
	}
}
