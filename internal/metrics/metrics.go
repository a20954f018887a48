package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParseCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "javalens_parse_cache_hits_total",
		Help: "Parse cache lookups served from a cached unit.",
	})

	ParseCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "javalens_parse_cache_misses_total",
		Help: "Parse cache lookups that had to wait for a load.",
	})

	ParseCacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "javalens_parse_cache_evictions_total",
		Help: "Units removed from the parse cache, by reason.",
	}, []string{"reason"})

	ParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "javalens_parse_failures_total",
		Help: "Loads that failed to read or parse a file.",
	})

	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "javalens_parsing_seconds",
		Help:    "Time spent reading and parsing one source file.",
		Buckets: prometheus.DefBuckets,
	})

	ProjectCacheLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "javalens_project_cache_loads_total",
		Help: "Project model loads, by outcome (hit, miss, corrupt, mismatch).",
	}, []string{"outcome"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "javalens_events_published_total",
		Help: "Events enqueued on the session bus, by topic.",
	}, []string{"topic"})

	SubscriberErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "javalens_subscriber_errors_total",
		Help: "Subscriber invocations that returned an error or panicked, by topic.",
	}, []string{"topic"})

	CompilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "javalens_compiles_total",
		Help: "Compiler invocations, by result.",
	}, []string{"result"})

	DeclarationLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "javalens_declaration_lookups_total",
		Help: "Declaration searches, by outcome (self, local, member, cross_file, not_found).",
	}, []string{"outcome"})

	ClassIndexSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "javalens_class_index_entries",
		Help: "Number of classes known to the class index.",
	})
)

var (
	SessionOperations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "javalens_session_operation_seconds",
		Help:    "Latency of serialized session operations, by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	BranchSwitches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "javalens_branch_switches_total",
		Help: "Git branch switches that flushed the parse cache.",
	})
)
