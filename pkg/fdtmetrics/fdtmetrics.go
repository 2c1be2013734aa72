// Package fdtmetrics defines the Prometheus instrumentation fdtserve
// exposes on /metrics: counts of nodes/properties parsed and timings for
// parse/serialize, the server-level analogue of operationalMetrics in the
// teacher's pipeline package.
package fdtmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NodesParsed counts nodes added to the arena across every Open
	// call the server has handled.
	NodesParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fdt_nodes_parsed_total",
		Help: "Total number of device-tree nodes parsed.",
	})

	// PropertiesParsed counts properties added to the arena across
	// every Open call the server has handled.
	PropertiesParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fdt_properties_parsed_total",
		Help: "Total number of device-tree properties parsed.",
	})

	// ParseDuration observes wall-clock time spent in fdt.Open.
	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fdt_parse_duration_seconds",
		Help:    "Time spent parsing a DTB blob into a Tree.",
		Buckets: prometheus.DefBuckets,
	})

	// SerializeDuration observes wall-clock time spent in
	// Tree.FinaliseToBuffer.
	SerializeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fdt_serialize_duration_seconds",
		Help:    "Time spent serializing a Tree back to a DTB blob.",
		Buckets: prometheus.DefBuckets,
	})

	// ParseErrors counts failed Open calls, labeled by error Kind.
	ParseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fdt_parse_errors_total",
		Help: "Total number of failed DTB parses, by error kind.",
	}, []string{"kind"})
)
