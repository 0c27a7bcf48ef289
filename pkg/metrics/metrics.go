// Package metrics exposes the service's Prometheus metrics.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/ai"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/query"
)

const namespace = "supplychain"

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

type stage struct {
	state   query.State
	entered time.Time
}

// Pipeline records answer outcomes and stage latencies. It implements
// query.Tracer.
type Pipeline struct {
	answers    *prometheus.CounterVec
	stages     *prometheus.HistogramVec
	candidates prometheus.Histogram
	rejections *prometheus.CounterVec
	inFlight   prometheus.Gauge

	mu      sync.Mutex
	current map[string]stage
}

func NewPipeline(reg prometheus.Registerer) (*Pipeline, error) {
	p := &Pipeline{
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answered requests by outcome (Done or failure kind).",
		}, []string{"outcome"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_stage_duration_seconds",
			Help:      "Time spent in each answer state.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_candidates",
			Help:      "Candidate queries produced per translation.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_rejections_total",
			Help:      "Rejected queries by reason.",
		}, []string{"reason"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "answers_in_flight",
			Help:      "Requests that have not reached a terminal state.",
		}),
		current: make(map[string]stage),
	}
	for _, c := range []prometheus.Collector{p.answers, p.stages, p.candidates, p.rejections, p.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Pipeline) Record(event query.TraceEvent) {
	switch event.Kind {
	case query.TraceEventCandidates:
		p.candidates.Observe(float64(len(event.Candidates)))
	case query.TraceEventVerdict:
		if !event.Accepted && event.Reason != "" {
			p.rejections.WithLabelValues(string(event.Reason)).Inc()
		}
	case query.TraceEventState:
		p.transition(event)
	}
}

func (p *Pipeline) transition(event query.TraceEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, known := p.current[event.RequestID]
	if !known {
		// events that arrive after the request finished are dropped
		if event.State != query.StateReceived {
			return
		}
		p.inFlight.Inc()
	} else {
		p.stages.WithLabelValues(string(prev.state)).Observe(event.At.Sub(prev.entered).Seconds())
	}

	if event.State.Terminal() {
		delete(p.current, event.RequestID)
		p.inFlight.Dec()
		outcome := string(event.State)
		if event.State == query.StateFailed {
			outcome = string(event.Failure)
		}
		p.answers.WithLabelValues(outcome).Inc()
		return
	}
	p.current[event.RequestID] = stage{state: event.State, entered: event.At}
}

// RegisterModel exposes the usage counters of an AI client under the given
// role, e.g. "chat".
func RegisterModel(reg prometheus.Registerer, role string, metrics func() ai.ModelMetrics) error {
	labels := prometheus.Labels{"role": role}
	fns := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "ai_requests_total", Help: "Requests sent to the model.",
			ConstLabels: labels,
		}, func() float64 { return float64(metrics().Requests) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "ai_input_tokens_total", Help: "Prompt tokens sent to the model.",
			ConstLabels: labels,
		}, func() float64 { return float64(metrics().InputTokens) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "ai_output_tokens_total", Help: "Tokens generated by the model.",
			ConstLabels: labels,
		}, func() float64 { return float64(metrics().OutputTokens) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ai_tokens_per_second", Help: "Generation speed of the model.",
			ConstLabels: labels,
		}, func() float64 { return float64(metrics().TokenPerSecond) }),
	}
	for _, c := range fns {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

var _ query.Tracer = (*Pipeline)(nil)
