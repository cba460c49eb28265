package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pinger is satisfied by the snapshot repositories.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CatalogState reports what the catalog store currently holds.
type CatalogState interface {
	Len() int
	SyncedAt() time.Time
}

// CheckResult represents the health of a single dependency.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResult is the top-level health response.
type HealthResult struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Checker verifies that the snapshot store is reachable and a catalog is loaded.
type Checker struct {
	snapshots Pinger
	catalog   CatalogState
	logger    *slog.Logger
	gauge     *prometheus.GaugeVec
}

// NewChecker creates a health checker and registers its Prometheus gauge.
// snapshots may be nil when persistence is disabled.
func NewChecker(snapshots Pinger, catalog CatalogState, logger *slog.Logger, reg prometheus.Registerer) *Checker {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "answerkey",
		Name:      "health_check_up",
		Help:      "Whether a dependency is reachable. 1 = up, 0 = down.",
	}, []string{"dependency"})
	reg.MustRegister(gauge)

	return &Checker{
		snapshots: snapshots,
		catalog:   catalog,
		logger:    logger.With("component", "health"),
		gauge:     gauge,
	}
}

// Liveness returns a simple "up" response if the process is running.
func (c *Checker) Liveness(_ context.Context) HealthResult {
	return HealthResult{Status: "up"}
}

// Readiness reports per-check status. The service is ready once it has a
// catalog to filter, whether from a live sync or a snapshot.
func (c *Checker) Readiness(ctx context.Context) HealthResult {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	result := HealthResult{
		Status: "up",
		Checks: make(map[string]CheckResult),
	}

	if c.snapshots != nil {
		if err := c.snapshots.Ping(checkCtx); err != nil {
			c.logger.Warn("snapshot store health check failed", "error", err)
			result.Status = "down"
			result.Checks["snapshots"] = CheckResult{Status: "down", Error: err.Error()}
			c.gauge.WithLabelValues("snapshots").Set(0)
		} else {
			result.Checks["snapshots"] = CheckResult{Status: "up"}
			c.gauge.WithLabelValues("snapshots").Set(1)
		}
	}

	if c.catalog.Len() == 0 {
		result.Status = "down"
		result.Checks["catalog"] = CheckResult{Status: "down", Error: "catalog not loaded yet"}
		c.gauge.WithLabelValues("catalog").Set(0)
	} else {
		result.Checks["catalog"] = CheckResult{Status: "up"}
		c.gauge.WithLabelValues("catalog").Set(1)
	}

	return result
}
