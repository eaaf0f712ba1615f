package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"core-banking-api/internal/model"
	"core-banking-api/internal/repository"
)

// DependencyCheck reports whether an optional dependency is reachable.
type DependencyCheck func(ctx context.Context) error

type HealthHandler struct {
	db      *sql.DB
	version string
	logger  *zap.Logger
	checks  map[string]DependencyCheck
}

func NewHealthHandler(db *sql.DB, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		version: version,
		logger:  logger,
		checks:  map[string]DependencyCheck{},
	}
}

// WithDependency adds an optional dependency to the report. A failing
// dependency degrades the status but keeps the service in rotation.
func (h *HealthHandler) WithDependency(name string, check DependencyCheck) *HealthHandler {
	h.checks[name] = check
	return h
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := model.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Database:  h.checkDatabase(r.Context()),
	}

	response.Dependencies = h.checkDependencies(r.Context())

	status := http.StatusOK
	for _, state := range response.Dependencies {
		if state != "healthy" {
			response.Status = "degraded"
		}
	}
	if response.Database.Status != "healthy" {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) model.DatabaseHealth {
	dbHealth := model.DatabaseHealth{
		Status: "unhealthy",
	}

	if h.db == nil {
		return dbHealth
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("database ping failed", zap.Error(err))
		return dbHealth
	}

	stats := h.db.Stats()
	dbHealth.ConnectionPool = fmt.Sprintf("open: %d, idle: %d, in_use: %d",
		stats.OpenConnections, stats.Idle, stats.InUse)

	if version, err := repository.MigrationVersion(ctx, h.db); err == nil {
		dbHealth.Migration = version
	}

	dbHealth.Status = "healthy"
	return dbHealth
}

func (h *HealthHandler) checkDependencies(ctx context.Context) map[string]string {
	if len(h.checks) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	states := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("dependency check failed", zap.String("dependency", name), zap.Error(err))
			states[name] = "unhealthy"
			continue
		}
		states[name] = "healthy"
	}
	return states
}
