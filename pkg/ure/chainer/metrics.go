package chainer

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats summarizes the last run, after the inference records of a
// forward chainer: what was expanded, pruned and derived.
type Stats struct {
	Rounds            int
	Expansions        int
	CyclePrunes       int
	DepthCuts         int
	FactMatches       int
	RuleApplications  int
	EvaluatorCalls    int
	EvaluatorFailures int
	Candidates        int
	Accepted          int
	Exhausted         bool
	Duration          time.Duration
}

type counters struct {
	rounds            atomic.Int64
	expansions        atomic.Int64
	cyclePrunes       atomic.Int64
	depthCuts         atomic.Int64
	factMatches       atomic.Int64
	ruleApplications  atomic.Int64
	evaluatorCalls    atomic.Int64
	evaluatorFailures atomic.Int64
	candidates        atomic.Int64
	accepted          atomic.Int64
	exhausted         atomic.Bool
	duration          atomic.Int64
}

func (c *counters) reset() {
	for _, n := range []*atomic.Int64{
		&c.rounds, &c.expansions, &c.cyclePrunes, &c.depthCuts, &c.factMatches,
		&c.ruleApplications, &c.evaluatorCalls, &c.evaluatorFailures,
		&c.candidates, &c.accepted, &c.duration,
	} {
		n.Store(0)
	}
	c.exhausted.Store(false)
}

func (c *counters) snapshot() Stats {
	return Stats{
		Rounds:            int(c.rounds.Load()),
		Expansions:        int(c.expansions.Load()),
		CyclePrunes:       int(c.cyclePrunes.Load()),
		DepthCuts:         int(c.depthCuts.Load()),
		FactMatches:       int(c.factMatches.Load()),
		RuleApplications:  int(c.ruleApplications.Load()),
		EvaluatorCalls:    int(c.evaluatorCalls.Load()),
		EvaluatorFailures: int(c.evaluatorFailures.Load()),
		Candidates:        int(c.candidates.Load()),
		Accepted:          int(c.accepted.Load()),
		Exhausted:         c.exhausted.Load(),
		Duration:          time.Duration(c.duration.Load()),
	}
}

// metrics exports run statistics to Prometheus. A nil *metrics records
// nothing.
type metrics struct {
	runs             prometheus.Counter
	expansions       prometheus.Counter
	cyclePrunes      prometheus.Counter
	ruleApplications prometheus.Counter
	evaluatorCalls   prometheus.Counter
	results          prometheus.Counter
	exhausted        prometheus.Counter
	duration         prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ure",
			Subsystem: "chainer",
			Name:      name,
			Help:      help,
		})
	}
	m := &metrics{
		runs:             counter("runs_total", "Backward chaining runs started."),
		expansions:       counter("expansions_total", "Targets expanded."),
		cyclePrunes:      counter("cycle_prunes_total", "Branches pruned because their target was already on the ancestry."),
		ruleApplications: counter("rule_applications_total", "Rule applications attempted."),
		evaluatorCalls:   counter("evaluator_calls_total", "Virtual terms dispatched to evaluators."),
		results:          counter("results_total", "Results accepted by the aggregator."),
		exhausted:        counter("budget_exhausted_total", "Runs stopped by the iteration budget."),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ure",
			Subsystem: "chainer",
			Name:      "run_duration_seconds",
			Help:      "Wall time of backward chaining runs.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
	}

	var err error
	for _, c := range []*prometheus.Counter{&m.runs, &m.expansions, &m.cyclePrunes, &m.ruleApplications, &m.evaluatorCalls, &m.results, &m.exhausted} {
		if *c, err = register(reg, *c); err != nil {
			return nil, err
		}
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing a collector registered earlier under
// the same name, so several chainers can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) observe(s Stats) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.expansions.Add(float64(s.Expansions))
	m.cyclePrunes.Add(float64(s.CyclePrunes))
	m.ruleApplications.Add(float64(s.RuleApplications))
	m.evaluatorCalls.Add(float64(s.EvaluatorCalls))
	m.results.Add(float64(s.Accepted))
	if s.Exhausted {
		m.exhausted.Inc()
	}
	m.duration.Observe(s.Duration.Seconds())
}
