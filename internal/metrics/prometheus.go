package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spaceapp_search_duration_seconds",
			Help:    "Semantic search duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	SearchResultsCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spaceapp_search_results_count",
			Help:    "Number of documents returned per search",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	ArticleFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spaceapp_article_fetch_total",
			Help: "Article page fetches by outcome",
		},
		[]string{"outcome"},
	)

	SummaryFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spaceapp_summary_fallback_total",
			Help: "Summaries synthesized locally, by reason",
		},
		[]string{"reason"},
	)

	LLMDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spaceapp_llm_request_duration_seconds",
			Help:    "LLM request duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 180},
		},
		[]string{"provider", "status"},
	)

	IngestedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spaceapp_ingestion_rows_total",
			Help: "CSV rows processed by ingestion, by outcome",
		},
		[]string{"outcome"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spaceapp_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spaceapp_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(SearchDuration)
		prometheus.MustRegister(SearchResultsCount)
		prometheus.MustRegister(ArticleFetches)
		prometheus.MustRegister(SummaryFallbacks)
		prometheus.MustRegister(LLMDuration)
		prometheus.MustRegister(IngestedRows)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
