package scheduler

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"justapengu.in/pedal/internal/shm"
	"justapengu.in/pedal/internal/telemetry"
)

const namespace = "pedal"

type metrics struct {
	ticks          prometheus.Counter
	commits        prometheus.Counter
	duplicates     prometheus.Counter
	resets         prometheus.Counter
	decodeErrors   *prometheus.CounterVec
	attachAttempts *prometheus.CounterVec
	state          prometheus.Gauge
	tickDuration   prometheus.Histogram
}

func newMetrics() *metrics {
	return &metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Scheduler ticks run.",
		}),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Telemetry records committed to the snapshot store.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_frames_total",
			Help:      "Decoded frames skipped because the sequence counter had not advanced.",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_resets_total",
			Help:      "Times the snapshot history was cleared.",
		}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Frames that failed to decode, by kind.",
		}, []string{"kind"}),
		attachAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attach_attempts_total",
			Help:      "Attempts to attach to the shared memory region, by result.",
		}, []string{"result"}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_state",
			Help:      "Current source state (0 disconnected, 1 connecting, 2 live, 3 stale).",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent in one scheduler tick.",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		}),
	}
}

func (m *metrics) register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.ticks, m.commits, m.duplicates, m.resets, m.decodeErrors, m.attachAttempts, m.state, m.tickDuration} {
		if err := r.Register(c); err != nil {
			return err
		}
	}

	return nil
}

func decodeErrorKind(err error) string {
	if kind, ok := telemetry.KindOf(err); ok {
		return strings.ReplaceAll(kind.String(), " ", "_")
	}

	return "unknown"
}

func attachResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, shm.ErrNotFound):
		return "not_found"
	case errors.Is(err, shm.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, shm.ErrIncompatibleRegion):
		return "incompatible"
	case errors.Is(err, shm.ErrResourceExhausted):
		return "resource_exhausted"
	default:
		return "error"
	}
}
