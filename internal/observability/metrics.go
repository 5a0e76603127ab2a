package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PlanningRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luxegen",
		Name:      "planning_requests_total",
		Help:      "Planning service calls by outcome",
	}, []string{"outcome"})

	SynthesisScenes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luxegen",
		Name:      "synthesis_scenes_total",
		Help:      "Per-scene synthesis calls by outcome",
	}, []string{"outcome"})

	CatalogFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luxegen",
		Name:      "catalog_fallbacks_total",
		Help:      "Runs whose rendered set was replaced by the fallback catalog",
	}, []string{"category"})

	AssetUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luxegen",
		Name:      "asset_uploads_total",
		Help:      "Asset re-hosting uploads by outcome",
	}, []string{"outcome"})

	CampaignsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "luxegen",
		Name:      "campaigns_completed_total",
		Help:      "Campaigns persisted by the generation pipeline",
	})

	ExternalCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "luxegen",
		Name:      "external_call_duration_seconds",
		Help:      "Duration of calls to the planning and synthesis services",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"service"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "luxegen",
		Name:      "studio_sessions",
		Help:      "Number of studio sessions held in memory",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "luxegen",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
