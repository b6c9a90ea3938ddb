package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "saga"

// Metrics 协调者的 prometheus 指标, nil 接收者上的方法都是空操作
type Metrics struct {
	created    prometheus.Counter
	outcomes   *prometheus.CounterVec
	evicted    prometheus.Counter
	expired    prometheus.Counter
	sweeps     prometheus.Counter
	live       prometheus.Gauge
	dispatches *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_created_total",
			Help:      "Transactions accepted by the coordinator.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participant_calls_total",
			Help:      "Confirm and abort calls by result.",
		}, []string{"op", "result"}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_evicted_total",
			Help:      "Transactions removed after the dead-letter horizon.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_expired_total",
			Help:      "Pending transactions marked expired.",
		}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Expiration sweeps run.",
		}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transactions_live",
			Help:      "Transactions currently held in memory.",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Message deliveries to participants by result.",
		}, []string{"service", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.created, m.outcomes, m.evicted, m.expired, m.sweeps, m.live, m.dispatches)
	}
	return m
}

func (m *Metrics) Created() {
	if m == nil {
		return
	}
	m.created.Inc()
}

// Outcome 记录一次 confirm/abort 的结果
func (m *Metrics) Outcome(op, result string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Swept(evicted, expired, live int) {
	if m == nil {
		return
	}
	m.sweeps.Inc()
	m.evicted.Add(float64(evicted))
	m.expired.Add(float64(expired))
	m.live.Set(float64(live))
}

func (m *Metrics) Dispatched(service string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.dispatches.WithLabelValues(service, result).Inc()
}
