// Package metrics holds the Prometheus collectors for a harvest run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawler. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry         *prometheus.Registry
	QueriesTotal     prometheus.Counter
	ResultPagesTotal prometheus.Counter
	SeedLinks        prometheus.Gauge
	ArticlesTotal    *prometheus.CounterVec
	TemplateMatches  *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	SessionRecycles  prometheus.Counter
	PageLoadDuration prometheus.Histogram
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	queries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvest_queries_total",
		Help: "Search query URLs visited.",
	})
	pages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvest_result_pages_total",
		Help: "Search result pages read.",
	})
	seedLinks := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "harvest_seed_links",
		Help: "Distinct article links in the seed set.",
	})
	articles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_articles_total",
			Help: "Processed article URLs by outcome.",
		},
		[]string{"outcome"},
	)
	templates := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_template_matches_total",
			Help: "Successful extractions per page template.",
		},
		[]string{"template"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_errors_total",
			Help: "Navigation and session errors by phase and type.",
		},
		[]string{"phase", "error_type"},
	)
	recycles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvest_session_recycles_total",
		Help: "Browser sessions torn down and reopened during content collection.",
	})
	pageLoad := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvest_page_load_duration_seconds",
		Help:    "Time to navigate to and render a page.",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(queries, pages, seedLinks, articles, templates, errorsTotal, recycles, pageLoad)

	return &Metrics{
		Registry:         registry,
		QueriesTotal:     queries,
		ResultPagesTotal: pages,
		SeedLinks:        seedLinks,
		ArticlesTotal:    articles,
		TemplateMatches:  templates,
		ErrorsTotal:      errorsTotal,
		SessionRecycles:  recycles,
		PageLoadDuration: pageLoad,
	}
}

// IncQuery counts a visited query URL.
func (m *Metrics) IncQuery() {
	if m == nil {
		return
	}
	m.QueriesTotal.Inc()
}

// IncResultPage counts a result page read.
func (m *Metrics) IncResultPage() {
	if m == nil {
		return
	}
	m.ResultPagesTotal.Inc()
}

// SetSeedLinks records the seed set size.
func (m *Metrics) SetSeedLinks(n int) {
	if m == nil {
		return
	}
	m.SeedLinks.Set(float64(n))
}

// IncArticle counts a processed article URL ("record", "failure" or "skipped").
func (m *Metrics) IncArticle(outcome string) {
	if m == nil {
		return
	}
	m.ArticlesTotal.WithLabelValues(outcome).Inc()
}

// IncTemplate counts a successful extraction by template name.
func (m *Metrics) IncTemplate(name string) {
	if m == nil {
		return
	}
	m.TemplateMatches.WithLabelValues(name).Inc()
}

// IncError counts an error in phase ("seeds" or "content").
func (m *Metrics) IncError(phase, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(phase, errorType).Inc()
}

// IncRecycle counts a session recycle.
func (m *Metrics) IncRecycle() {
	if m == nil {
		return
	}
	m.SessionRecycles.Inc()
}

// ObservePageLoad records a page load duration.
func (m *Metrics) ObservePageLoad(d time.Duration) {
	if m == nil {
		return
	}
	m.PageLoadDuration.Observe(d.Seconds())
}
