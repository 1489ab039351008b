package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"dotify/internal/handlers/render"
	"dotify/internal/services"
)

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// AdminHandler serves health, database statistics and maintenance requests
type AdminHandler struct {
	catalog *services.CatalogService
	// db is nil when the in-memory store is in use
	db     *mongo.Database
	checks map[string]HealthChecker
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(catalog *services.CatalogService, db *mongo.Database, checks map[string]HealthChecker) *AdminHandler {
	return &AdminHandler{
		catalog: catalog,
		db:      db,
		checks:  checks,
	}
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// DatabaseStats represents database statistics
type DatabaseStats struct {
	DatabaseName   string            `json:"database_name"`
	TotalSize      float64           `json:"total_size_mb"`
	StorageSize    float64           `json:"storage_size_mb"`
	IndexSize      float64           `json:"index_size_mb"`
	TotalDocuments int64             `json:"total_documents"`
	Collections    []CollectionStats `json:"collections"`
	LastUpdated    time.Time         `json:"last_updated"`
}

// CollectionStats represents statistics for a single collection
type CollectionStats struct {
	Name        string  `json:"name"`
	Documents   int64   `json:"documents"`
	DataSize    float64 `json:"data_size_mb"`
	StorageSize float64 `json:"storage_size_mb"`
	IndexSize   float64 `json:"index_size_mb"`
	AvgDocSize  float64 `json:"avg_doc_size_bytes"`
}

// Health handles GET /healthz
func (h *AdminHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			slog.Warn("Health check failed", "check", name, "error", err)
			response.Checks[name] = "unavailable"
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Checks[name] = "ok"
	}
	c.JSON(status, response)
}

// Reconcile handles POST /api/admin/reconcile
func (h *AdminHandler) Reconcile(c *gin.Context) {
	report, err := h.catalog.Reconcile(c.Request.Context())
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, report)
}

// GetDatabaseStats handles GET /api/admin/db-stats
func (h *AdminHandler) GetDatabaseStats(c *gin.Context) {
	if h.db == nil {
		render.ErrorMessage(c, http.StatusNotFound, "Database statistics require the mongo store")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	stats, err := h.collectDatabaseStats(ctx)
	if err != nil {
		slog.Error("Failed to collect database stats", "error", err)
		render.ErrorMessage(c, http.StatusInternalServerError, "Failed to collect database statistics")
		return
	}
	render.OK(c, stats)
}

func megabytes(v interface{}) float64 {
	return toFloat(v) / 1024 / 1024
}

// toFloat reads a numeric stats field, which the server may encode as any
// of int32, int64 or double
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func (h *AdminHandler) collectDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	var dbStats bson.M
	if err := h.db.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&dbStats); err != nil {
		return nil, fmt.Errorf("failed to get database stats: %w", err)
	}

	stats := &DatabaseStats{
		DatabaseName:   h.db.Name(),
		TotalSize:      megabytes(dbStats["dataSize"]),
		StorageSize:    megabytes(dbStats["storageSize"]),
		IndexSize:      megabytes(dbStats["indexSize"]),
		TotalDocuments: int64(toFloat(dbStats["objects"])),
		Collections:    make([]CollectionStats, 0),
		LastUpdated:    time.Now(),
	}

	names, err := h.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		var collStats bson.M
		if err := h.db.RunCommand(ctx, bson.D{{Key: "collStats", Value: name}}).Decode(&collStats); err != nil {
			slog.Warn("Failed to get collection stats", "collection", name, "error", err)
			continue
		}

		stat := CollectionStats{
			Name:        name,
			Documents:   int64(toFloat(collStats["count"])),
			DataSize:    megabytes(collStats["size"]),
			StorageSize: megabytes(collStats["storageSize"]),
			IndexSize:   megabytes(collStats["totalIndexSize"]),
		}
		if stat.Documents > 0 {
			stat.AvgDocSize = toFloat(collStats["size"]) / float64(stat.Documents)
		}
		stats.Collections = append(stats.Collections, stat)
	}

	return stats, nil
}
