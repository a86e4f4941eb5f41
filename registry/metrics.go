package registry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andaru/sdll/linkerr"
)

const namespace = "sdll"

type metrics struct {
	framesReceived  prometheus.Counter
	framesDiscarded prometheus.Counter
	framesSent      prometheus.Counter
	bytesSent       prometheus.Counter
	errors          *prometheus.CounterVec
	linksOpen       prometheus.Gauge
}

// newMetrics builds the registry collectors, registering them with reg
// if it is not nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames delivered to a receive handler.",
		}),
		framesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_discarded_total",
			Help:      "Complete frames rejected by a validator.",
		}),
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames fully accepted by a transport.",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Encoded frame bytes accepted by a transport.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failed registry operations by operation and error kind.",
		}, []string{"op", "kind"}),
		linksOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "links_open",
			Help:      "Currently open links.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.framesReceived, m.framesDiscarded, m.framesSent, m.bytesSent, m.errors, m.linksOpen)
	}
	return m
}

func (m *metrics) failed(err *linkerr.Error) {
	m.errors.WithLabelValues(err.Op, err.Kind.String()).Inc()
}
