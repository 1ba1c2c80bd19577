package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-query-coordinator/docs"
	"go-query-coordinator/internal/api/handler"
	"go-query-coordinator/pkg/router"
)

func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.POST("/api/v1/batches", h.SubmitBatch)
	r.GET("/api/v1/batches", h.ListBatches)
	// More specific routes first
	r.GET("/api/v1/batches/*/errors", h.GetBatchErrors)
	r.GET("/api/v1/batches/*", h.GetBatch)

	r.GET("/api/v1/catalog/*", h.GetCatalog)
	r.GET("/api/v1/queries/*", h.GetQuery)

	r.GET("/api/v1/metrics", h.GetMetrics)
	r.GET("/api/v1/metrics/export", h.ExportMetrics)
	r.GET("/api/v1/metrics/*/analysis", h.GetAnalysis)

	r.GET("/api/v1/indexes", h.ListIndexes)
	r.GET("/api/v1/indexes/sql", h.GetIndexSQL)

	r.GET("/api/v1/status", h.GetStatus)
	r.DELETE("/api/v1/cache", h.FlushCache)

	r.Handle("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
