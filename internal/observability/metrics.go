package observability

import (
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Failure classes recorded by RecordFailure.
const (
	ClassTransport  = "transport"
	ClassFraming    = "framing"
	ClassProtocol   = "protocol"
	ClassIncomplete = "incomplete"
	ClassCanceled   = "canceled"
	ClassOther      = "other"
)

// Message kinds recorded by RecordMessages.
const (
	KindData    = "data"
	KindAck     = "ack"
	KindNoop    = "noop"
	KindDone    = "done"
	KindSkipped = "skipped"
)

// Registry holds nlprobe metrics only, without the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var (
	registerOnce sync.Once

	exchangeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlprobe",
			Subsystem: "exchange",
			Name:      "requests_total",
			Help:      "Netlink requests sent.",
		},
		[]string{"type"},
	)
	exchangeReceives = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nlprobe",
			Subsystem: "exchange",
			Name:      "receives_total",
			Help:      "Receive calls issued on the netlink channel.",
		},
	)
	exchangeReceiveBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nlprobe",
			Subsystem: "exchange",
			Name:      "receive_bytes_total",
			Help:      "Bytes received from the netlink channel.",
		},
	)
	exchangeMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlprobe",
			Subsystem: "exchange",
			Name:      "messages_total",
			Help:      "Response messages by disposition.",
		},
		[]string{"kind"},
	)
	exchangeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlprobe",
			Subsystem: "exchange",
			Name:      "failures_total",
			Help:      "Failed exchanges by error class.",
		},
		[]string{"class"},
	)
	exchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nlprobe",
			Subsystem: "exchange",
			Name:      "duration_seconds",
			Help:      "Request/response exchange duration in seconds.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, 1},
		},
		[]string{"success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		Registry.MustRegister(
			exchangeRequests,
			exchangeReceives,
			exchangeReceiveBytes,
			exchangeMessages,
			exchangeFailures,
			exchangeDuration,
		)
	})
}

func RecordRequest(msgType string) {
	RegisterMetrics()
	exchangeRequests.WithLabelValues(msgType).Inc()
}

func RecordReceive(n int) {
	RegisterMetrics()
	exchangeReceives.Inc()
	exchangeReceiveBytes.Add(float64(n))
}

func RecordMessages(kind string, n int) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	exchangeMessages.WithLabelValues(kind).Add(float64(n))
}

func RecordFailure(class string) {
	RegisterMetrics()
	exchangeFailures.WithLabelValues(class).Inc()
}

func RecordExchange(duration time.Duration, success bool) {
	RegisterMetrics()
	exchangeDuration.WithLabelValues(strconv.FormatBool(success)).Observe(duration.Seconds())
}

// WriteText writes the registry in the Prometheus text exposition format.
func WriteText(w io.Writer) error {
	RegisterMetrics()
	families, err := Registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
