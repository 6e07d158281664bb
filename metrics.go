// Copyright (C) 2016, Heiko Koehler

package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/hkoehler/ledenik/internal/backend"
	"github.com/hkoehler/ledenik/internal/chart"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledenik_http_requests_total",
			Help: "HTTP requests by status code and method",
		},
		[]string{"code", "method"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledenik_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"code", "method"},
	)
	redraws = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledenik_chart_groups_total",
			Help: "Chart groups joined per redraw by outcome",
		},
		[]string{"outcome"},
	)
	fetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledenik_fetch_errors_total",
			Help: "Failed backend fetches while serving pages",
		},
		[]string{"thing", "op"},
	)
)

// RegisterMetrics adds the daemon and backend client metrics to the
// default registry.
func RegisterMetrics() error {
	for _, c := range []prometheus.Collector{httpRequests, httpDuration, redraws, fetchErrors} {
		if err := prometheus.Register(c); err != nil {
			return err
		}
	}
	return backend.Register(prometheus.DefaultRegisterer)
}

func countRedraw(diff chart.Diff) {
	redraws.WithLabelValues("enter").Add(float64(len(diff.Entered)))
	redraws.WithLabelValues("update").Add(float64(len(diff.Updated)))
	redraws.WithLabelValues("exit").Add(float64(len(diff.Exited)))
}

// instrument counts and times every request.
func instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(httpDuration,
		promhttp.InstrumentHandlerCounter(httpRequests, next))
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		log.WithFields(log.Fields{"url": req.URL.String(), "method": req.Method}).Debug("request")
		next.ServeHTTP(w, req)
	})
}
