// Package api: metrics.go implements a lightweight Prometheus-compatible /metrics
// endpoint that exposes instance-level counters and gauges without requiring an
// external dependency on the Prometheus Go client library.
package api

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics tracks lightweight counters for the /metrics endpoint.
type Metrics struct {
	HTTPRequestsTotal   atomic.Int64
	HTTPRequestDuration atomic.Int64 // total microseconds
	MessagesCreated     atomic.Int64
	TranslationsDone    atomic.Int64
	TranslationsFailed  atomic.Int64
	CacheHits           atomic.Int64
	StartTime           time.Time
}

// GlobalMetrics is the singleton instance.
var GlobalMetrics = &Metrics{
	StartTime: time.Now(),
}

// handleMetrics exposes Prometheus-compatible metrics in text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := GlobalMetrics
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	var userCount, communityCount, channelCount, messageCount int64
	s.DB.Pool.QueryRow(r.Context(), `SELECT COUNT(*) FROM users`).Scan(&userCount)
	s.DB.Pool.QueryRow(r.Context(), `SELECT COUNT(*) FROM communities`).Scan(&communityCount)
	s.DB.Pool.QueryRow(r.Context(), `SELECT COUNT(*) FROM channels`).Scan(&channelCount)
	s.DB.Pool.QueryRow(r.Context(), `SELECT COUNT(*) FROM messages`).Scan(&messageCount)

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	fmt.Fprintf(w, "# HELP amityvox_http_requests_total Total HTTP requests served.\n")
	fmt.Fprintf(w, "# TYPE amityvox_http_requests_total counter\n")
	fmt.Fprintf(w, "amityvox_http_requests_total %d\n\n", m.HTTPRequestsTotal.Load())

	fmt.Fprintf(w, "# HELP amityvox_http_request_duration_seconds Total time spent processing HTTP requests.\n")
	fmt.Fprintf(w, "# TYPE amityvox_http_request_duration_seconds counter\n")
	fmt.Fprintf(w, "amityvox_http_request_duration_seconds %f\n\n", float64(m.HTTPRequestDuration.Load())/1e6)

	fmt.Fprintf(w, "# HELP amityvox_messages_created_total Total messages created.\n")
	fmt.Fprintf(w, "# TYPE amityvox_messages_created_total counter\n")
	fmt.Fprintf(w, "amityvox_messages_created_total %d\n\n", m.MessagesCreated.Load())

	fmt.Fprintf(w, "# HELP amityvox_translations_completed_total Total translations completed by the pipeline orchestrator.\n")
	fmt.Fprintf(w, "# TYPE amityvox_translations_completed_total counter\n")
	fmt.Fprintf(w, "amityvox_translations_completed_total %d\n\n", m.TranslationsDone.Load())

	fmt.Fprintf(w, "# HELP amityvox_translations_failed_total Total translation attempts that exhausted retries.\n")
	fmt.Fprintf(w, "# TYPE amityvox_translations_failed_total counter\n")
	fmt.Fprintf(w, "amityvox_translations_failed_total %d\n\n", m.TranslationsFailed.Load())

	fmt.Fprintf(w, "# HELP amityvox_translation_cache_hits_total Total translation cache hits.\n")
	fmt.Fprintf(w, "# TYPE amityvox_translation_cache_hits_total counter\n")
	fmt.Fprintf(w, "amityvox_translation_cache_hits_total %d\n\n", m.CacheHits.Load())

	fmt.Fprintf(w, "# HELP amityvox_users_total Total registered users.\n")
	fmt.Fprintf(w, "# TYPE amityvox_users_total gauge\n")
	fmt.Fprintf(w, "amityvox_users_total %d\n\n", userCount)

	fmt.Fprintf(w, "# HELP amityvox_communities_total Total communities.\n")
	fmt.Fprintf(w, "# TYPE amityvox_communities_total gauge\n")
	fmt.Fprintf(w, "amityvox_communities_total %d\n\n", communityCount)

	fmt.Fprintf(w, "# HELP amityvox_channels_total Total channels.\n")
	fmt.Fprintf(w, "# TYPE amityvox_channels_total gauge\n")
	fmt.Fprintf(w, "amityvox_channels_total %d\n\n", channelCount)

	fmt.Fprintf(w, "# HELP amityvox_messages_total Total messages stored.\n")
	fmt.Fprintf(w, "# TYPE amityvox_messages_total gauge\n")
	fmt.Fprintf(w, "amityvox_messages_total %d\n\n", messageCount)

	fmt.Fprintf(w, "# HELP amityvox_goroutines Current number of goroutines.\n")
	fmt.Fprintf(w, "# TYPE amityvox_goroutines gauge\n")
	fmt.Fprintf(w, "amityvox_goroutines %d\n\n", runtime.NumGoroutine())

	fmt.Fprintf(w, "# HELP amityvox_memory_alloc_bytes Current memory allocation in bytes.\n")
	fmt.Fprintf(w, "# TYPE amityvox_memory_alloc_bytes gauge\n")
	fmt.Fprintf(w, "amityvox_memory_alloc_bytes %d\n\n", mem.Alloc)

	fmt.Fprintf(w, "# HELP amityvox_memory_sys_bytes Total memory obtained from the OS.\n")
	fmt.Fprintf(w, "# TYPE amityvox_memory_sys_bytes gauge\n")
	fmt.Fprintf(w, "amityvox_memory_sys_bytes %d\n\n", mem.Sys)

	uptime := time.Since(m.StartTime).Seconds()
	fmt.Fprintf(w, "# HELP amityvox_uptime_seconds Time since server start.\n")
	fmt.Fprintf(w, "# TYPE amityvox_uptime_seconds gauge\n")
	fmt.Fprintf(w, "amityvox_uptime_seconds %f\n", uptime)
}
