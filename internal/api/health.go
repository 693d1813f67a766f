package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"
)

// ServiceHealth represents the health status of an individual service dependency.
type ServiceHealth struct {
	Status  string      `json:"status"` // "healthy", "unhealthy", "disabled"
	Latency string      `json:"latency,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// DeepHealthResponse is the response body for the deep health check endpoint.
type DeepHealthResponse struct {
	Status    string                   `json:"status"` // "ok", "degraded", "unhealthy"
	Version   string                   `json:"version"`
	Timestamp string                   `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services"`
	System    SystemInfo               `json:"system"`
}

// SystemInfo contains runtime information about the AmityVox process.
type SystemInfo struct {
	GoVersion    string  `json:"go_version"`
	NumGoroutine int     `json:"num_goroutine"`
	NumCPU       int     `json:"num_cpu"`
	MemAllocMB   float64 `json:"mem_alloc_mb"`
	MemSysMB     float64 `json:"mem_sys_mb"`
	MemGCCycles  uint32  `json:"mem_gc_cycles"`
}

// handleHealthCheck performs a cheap liveness check suitable for load
// balancer probes: it does not touch any dependency.
//
// GET /health
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDeepHealthCheck performs a health check of the service dependencies
// the translation pipeline relies on: PostgreSQL, DragonflyDB and
// S3-compatible storage are probed; Meilisearch is reported as "healthy"
// when a search client is configured and "disabled" otherwise, without a
// connectivity check.
//
// GET /health/deep
//
// Response: 200 if all services healthy, 503 if any service is degraded.
func (s *Server) handleDeepHealthCheck(w http.ResponseWriter, r *http.Request) {
	services := make(map[string]ServiceHealth)
	overallStatus := "ok"

	checkTimeout := 5 * time.Second

	dbHealth := s.checkServiceHealth("database", checkTimeout, func(ctx context.Context) error {
		return s.DB.HealthCheck(ctx)
	})
	if s.DB != nil && s.DB.Pool != nil {
		stat := s.DB.Pool.Stat()
		dbHealth.Details = map[string]interface{}{
			"total_conns":    stat.TotalConns(),
			"idle_conns":     stat.IdleConns(),
			"acquired_conns": stat.AcquiredConns(),
			"max_conns":      stat.MaxConns(),
		}
	}
	services["database"] = dbHealth
	if dbHealth.Status == "unhealthy" {
		overallStatus = "unhealthy"
	}

	if s.Cache != nil {
		cacheHealth := s.checkServiceHealth("cache", checkTimeout, func(ctx context.Context) error {
			return s.Cache.HealthCheck(ctx)
		})
		services["cache"] = cacheHealth
		if cacheHealth.Status == "unhealthy" && overallStatus == "ok" {
			overallStatus = "degraded"
		}
	} else {
		services["cache"] = ServiceHealth{Status: "disabled"}
	}

	if s.Media != nil {
		storageHealth := s.checkServiceHealth("storage", checkTimeout, func(ctx context.Context) error {
			return s.Media.EnsureBucket(ctx)
		})
		services["storage"] = storageHealth
		if storageHealth.Status == "unhealthy" && overallStatus == "ok" {
			overallStatus = "degraded"
		}
	} else {
		services["storage"] = ServiceHealth{Status: "disabled"}
	}

	if s.Search != nil {
		services["search"] = ServiceHealth{Status: "healthy"}
	} else {
		services["search"] = ServiceHealth{Status: "disabled"}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := DeepHealthResponse{
		Status:    overallStatus,
		Version:   s.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
		System: SystemInfo{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
			MemAllocMB:   float64(memStats.Alloc) / 1024 / 1024,
			MemSysMB:     float64(memStats.Sys) / 1024 / 1024,
			MemGCCycles:  memStats.NumGC,
		},
	}

	httpStatus := http.StatusOK
	if overallStatus != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	WriteJSON(w, httpStatus, response)
}

// checkServiceHealth runs a health check function with a timeout and returns
// a ServiceHealth struct with the status, latency, and any error.
func (s *Server) checkServiceHealth(name string, timeout time.Duration, check func(context.Context) error) ServiceHealth {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	err := check(ctx)
	latency := time.Since(start)

	if err != nil {
		return ServiceHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Error:   fmt.Sprintf("%s health check failed: %v", name, err),
		}
	}

	return ServiceHealth{
		Status:  "healthy",
		Latency: latency.String(),
	}
}
