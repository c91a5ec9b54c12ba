package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raglens_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"backend"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raglens_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"status"},
	)

	RetrievedContexts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raglens_retrieved_contexts_count",
			Help:    "Number of contexts retrieved per query",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)

	RetrievalScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raglens_retrieval_score",
			Help:    "Similarity scores of retrieved contexts",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	JudgeVerdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raglens_judge_verdicts_total",
			Help: "Relevance verdicts returned by the LLM judge",
		},
		[]string{"verdict"},
	)

	PrecisionAtK = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raglens_precision_at_k",
			Help:    "Per-query precision@k values",
			Buckets: []float64{0, 0.25, 0.5, 0.75, 1.0},
		},
		[]string{"k"},
	)

	EvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raglens_evaluation_duration_seconds",
			Help:    "Full evaluation run duration in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900},
		},
	)

	DriftScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "raglens_embedding_drift_score",
			Help: "Distance between the query and corpus embedding centroids",
		},
	)

	UserFeedback = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raglens_user_feedback_total",
			Help: "User feedback submissions by polarity",
		},
		[]string{"score"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raglens_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raglens_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raglens_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	DocumentsIndexed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raglens_documents_indexed_total",
			Help: "Total document chunks indexed",
		},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(RetrievedContexts)
	prometheus.MustRegister(RetrievalScore)
	prometheus.MustRegister(JudgeVerdicts)
	prometheus.MustRegister(PrecisionAtK)
	prometheus.MustRegister(EvaluationDuration)
	prometheus.MustRegister(DriftScore)
	prometheus.MustRegister(UserFeedback)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(DocumentsIndexed)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
