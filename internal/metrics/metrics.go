// Package metrics holds the collector's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lazysauce_http_requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lazysauce_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	Events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lazysauce_events_total",
			Help: "Tracking events by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	ShardProvisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lazysauce_shard_provisions_total",
			Help: "Shard schema checks by result (created, existing, error).",
		},
		[]string{"result"},
	)

	ShardPools = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lazysauce_shard_pools",
			Help: "Connection pools currently held by the shard router.",
		},
	)

	GeoFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lazysauce_geo_failures_total",
			Help: "Geo-IP lookups that fell back to an empty location.",
		},
		[]string{"provider"},
	)

	Checkpoints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lazysauce_checkpoints_total",
			Help: "Async checkpoints by result (written, duplicate, dropped, failed).",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, Events, ShardProvisions, ShardPools, GeoFailures, Checkpoints)
}
