package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// HealthStatus represents the health status of the service
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a single named health check
type HealthCheck struct {
	Name      string
	CheckFunc func(context.Context) error
	Timeout   time.Duration
	Critical  bool
}

// HealthChecker runs registered health checks on demand
type HealthChecker struct {
	checks map[string]*HealthCheck
	start  time.Time
	mu     sync.RWMutex
}

// CheckStatus is the reported status of a single check
type CheckStatus struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthResponse is the health endpoint payload
type HealthResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckStatus `json:"checks"`
	System    SystemInfo             `json:"system"`
}

// SystemInfo carries basic process statistics
type SystemInfo struct {
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemAllocMB    uint64 `json:"mem_alloc_mb"`
}

var (
	checker     *HealthChecker
	checkerOnce sync.Once
)

// InitHealthChecker initializes and returns the process-wide health checker
func InitHealthChecker() *HealthChecker {
	checkerOnce.Do(func() {
		checker = &HealthChecker{
			checks: make(map[string]*HealthCheck),
			start:  time.Now(),
		}
	})
	return checker
}

// RegisterCheck adds a health check
func (h *HealthChecker) RegisterCheck(check *HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[check.Name] = check
}

// PingCheck returns a trivial always-healthy check
func PingCheck() *HealthCheck {
	return &HealthCheck{
		Name:      "ping",
		CheckFunc: func(context.Context) error { return nil },
		Timeout:   time.Second,
	}
}

// Run evaluates every registered check and aggregates a response
func (h *HealthChecker) Run(ctx context.Context) HealthResponse {
	h.mu.RLock()
	checks := make([]*HealthCheck, 0, len(h.checks))
	for _, c := range h.checks {
		checks = append(checks, c)
	}
	h.mu.RUnlock()

	overall := HealthStatusHealthy
	statuses := make(map[string]CheckStatus, len(checks))

	for _, c := range checks {
		timeout := c.Timeout
		if timeout == 0 {
			timeout = 5 * time.Second
		}
		cctx, cancel := context.WithTimeout(ctx, timeout)
		err := c.CheckFunc(cctx)
		cancel()

		if err != nil {
			statuses[c.Name] = CheckStatus{Status: HealthStatusUnhealthy, Message: err.Error()}
			if c.Critical {
				overall = HealthStatusUnhealthy
			} else if overall == HealthStatusHealthy {
				overall = HealthStatusDegraded
			}
			continue
		}
		statuses[c.Name] = CheckStatus{Status: HealthStatusHealthy}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return HealthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.start).Round(time.Second).String(),
		Checks:    statuses,
		System: SystemInfo{
			NumGoroutines: runtime.NumGoroutine(),
			NumCPU:        runtime.NumCPU(),
			MemAllocMB:    mem.Alloc / 1024 / 1024,
		},
	}
}

// HealthHandler serves the aggregated health response
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := InitHealthChecker().Run(r.Context())

		code := http.StatusOK
		if resp.Status == HealthStatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// LivenessHandler reports that the process is alive
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	}
}

// ReadinessHandler reports readiness using the critical checks only
func ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := InitHealthChecker().Run(r.Context())

		code := http.StatusOK
		if resp.Status == HealthStatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": resp.Status})
	}
}
