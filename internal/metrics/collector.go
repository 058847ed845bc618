package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/san-kum/dyngraph/internal/dynamo"
	"github.com/san-kum/dyngraph/internal/sim"
)

// Collector counts signal pulls and entity steps. It observes the graph
// through dynamo.Observer and the host through sim.Observer.
type Collector struct {
	pulls    *prometheus.CounterVec
	incr     *prometheus.CounterVec
	duration prometheus.Histogram
}

var (
	_ dynamo.Observer = (*Collector)(nil)
	_ sim.Observer    = (*Collector)(nil)
)

// New registers the collector's metrics with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		pulls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dyngraph_signal_pulls_total",
				Help: "Signal pulls by outcome: hit (cached or held), miss (computed) or error.",
			},
			[]string{"result"},
		),
		incr: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dyngraph_incr_total",
				Help: "Entity steps by outcome.",
			},
			[]string{"entity", "result"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dyngraph_incr_duration_seconds",
			Help:    "Time to step an entity and pull its outputs.",
			Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01},
		}),
	}
	for _, col := range []prometheus.Collector{c.pulls, c.incr, c.duration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) OnHit(signal string, t dynamo.Time) {
	c.pulls.WithLabelValues("hit").Inc()
}

func (c *Collector) OnCompute(signal string, t dynamo.Time, err error) {
	if err != nil {
		c.pulls.WithLabelValues("error").Inc()
		return
	}
	c.pulls.WithLabelValues("miss").Inc()
}

func (c *Collector) OnStep(s sim.Step) {
	result := "ok"
	if s.Err != nil {
		result = "error"
	}
	c.incr.WithLabelValues(s.Entity, result).Inc()
	c.duration.Observe(s.Duration.Seconds())
}

// WriteText dumps every metric family gathered by g in the Prometheus text
// format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
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
