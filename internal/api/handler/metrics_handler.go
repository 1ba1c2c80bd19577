package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go-query-coordinator/internal/coordinator"
	"go-query-coordinator/internal/model"
	"go-query-coordinator/internal/report"
)

// GetCatalog lists the catalog queries of one type
// @Summary Get catalog queries
// @Description List the predefined queries of a query type
// @Tags catalog
// @Produce json
// @Param type path string true "user_behavior, screen_performance, trending_analysis or recommendation_data"
// @Success 200 {object} map[string]interface{} "Catalog queries"
// @Failure 400 {object} map[string]interface{} "Unknown query type"
// @Router /catalog/{type} [get]
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	raw, err := pathParam(r.URL.Path, apiPrefix+"/catalog/", "")
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := model.ParseQueryType(raw)
	if err != nil {
		writeError(w, err)
		return
	}

	queries := h.svc.Catalog(t)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query_type": t,
		"queries":    queries,
		"count":      len(queries),
	})
}

// GetQuery returns one catalog query
// @Summary Get catalog query
// @Description One predefined query with its parameters and expected indexes
// @Tags catalog
// @Produce json
// @Param id path string true "Query ID"
// @Success 200 {object} model.Query "Catalog query"
// @Failure 404 {object} map[string]interface{} "Unknown query"
// @Router /queries/{id} [get]
func (h *Handler) GetQuery(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r.URL.Path, apiPrefix+"/queries/", "")
	if err != nil {
		writeError(w, err)
		return
	}
	q, ok := h.svc.LookupQuery(id)
	if !ok {
		writeError(w, errors.Wrapf(coordinator.ErrUnknownQuery, "%q", id))
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// GetMetrics returns the current metrics snapshot
// @Summary Get metrics
// @Description Snapshot of the performance metrics of every query type executed so far
// @Tags metrics
// @Produce json
// @Success 200 {object} map[string]interface{} "Metrics snapshot"
// @Router /metrics [get]
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	rep := report.Build(h.svc.MetricsSnapshot(), nil, h.clock.Now())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generated_at": rep.GeneratedAt,
		"metrics":      rep.Metrics,
		"count":        len(rep.Metrics),
	})
}

// ExportMetrics downloads the metrics snapshot and advisor output
// @Summary Export metrics
// @Description Download the metrics snapshot together with the advisor reports as CSV or JSON
// @Tags metrics
// @Produce json
// @Produce text/csv
// @Param format query string false "csv or json" default(json)
// @Success 200 {file} file "Metrics report"
// @Failure 400 {object} map[string]interface{} "Unknown format"
// @Router /metrics/export [get]
func (h *Handler) ExportMetrics(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}

	rep := report.Build(h.svc.MetricsSnapshot(), h.svc.AnalyzeAll(), h.clock.Now())
	fileName := "metrics-" + uuid.NewString()[:8] + "." + string(format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	if err := report.Write(w, format, rep); err != nil {
		log.WithError(err).Warn("failed to write metrics export")
	}
}

// GetAnalysis runs the advisor for one query type
// @Summary Analyze query type
// @Description Evaluate the metrics of a query type against the advisor thresholds
// @Tags metrics
// @Produce json
// @Param type path string true "Query type"
// @Success 200 {object} model.AdvisorReport "Advisor report"
// @Failure 400 {object} map[string]interface{} "Unknown query type"
// @Router /metrics/{type}/analysis [get]
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	raw, err := pathParam(r.URL.Path, apiPrefix+"/metrics/", "/analysis")
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := model.ParseQueryType(raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Analyze(t))
}

// ListIndexes lists the declared index definitions
// @Summary List indexes
// @Description The versioned index catalog backing the predefined queries
// @Tags indexes
// @Produce json
// @Success 200 {object} map[string]interface{} "Index definitions"
// @Router /indexes [get]
func (h *Handler) ListIndexes(w http.ResponseWriter, r *http.Request) {
	definitions := h.svc.IndexDefinitions()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version": h.svc.IndexCatalogVersion(),
		"indexes": definitions,
		"count":   len(definitions),
	})
}

// GetIndexSQL returns the index creation statements
// @Summary Index creation SQL
// @Description One CREATE INDEX statement per declared index, in catalog order
// @Tags indexes
// @Produce plain
// @Success 200 {string} string "Creation statements"
// @Router /indexes/sql [get]
func (h *Handler) GetIndexSQL(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(strings.Join(h.svc.GenerateIndexSQL(), "\n") + "\n"))
}
