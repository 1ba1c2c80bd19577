package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"go-query-coordinator/internal/coordinator"
	"go-query-coordinator/internal/model"
	"go-query-coordinator/internal/report"
	"go-query-coordinator/internal/scheduler"
	"go-query-coordinator/internal/store"
)

const apiPrefix = "/api/v1"

// Service is the part of the coordinator the HTTP surface uses.
type Service interface {
	ResolveQueries(requests []coordinator.QueryRequest) ([]model.Query, error)
	Submit(ctx context.Context, queries []model.Query, priority model.Priority) (*scheduler.BatchHandle, error)
	Catalog(t model.QueryType) []model.Query
	LookupQuery(id string) (model.Query, bool)
	MetricsSnapshot() map[model.QueryType]model.QueryPerformanceMetrics
	Analyze(t model.QueryType) model.AdvisorReport
	AnalyzeAll() []model.AdvisorReport
	GenerateIndexSQL() []string
	IndexDefinitions() []model.IndexDefinition
	IndexCatalogVersion() int
	PendingBatches() int
	InvalidateCache()
}

// BatchStore serves the journal views.
type BatchStore interface {
	ListBatches(ctx context.Context, filter model.BatchFilter) ([]model.BatchRecord, error)
	GetBatch(ctx context.Context, batchID string) (model.BatchRecord, error)
	GetBatchErrors(ctx context.Context, batchID string) ([]model.BatchError, error)
	GetQueryExecutions(ctx context.Context, batchID string) ([]model.QueryExecution, error)
}

type Handler struct {
	svc   Service
	store BatchStore
	clock clock.PassiveClock
}

func New(svc Service, batches BatchStore) *Handler {
	return &Handler{svc: svc, store: batches, clock: clock.RealClock{}}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout {
		log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, map[string]interface{}{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, scheduler.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, scheduler.ErrBatchTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, scheduler.ErrSchedulerStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, coordinator.ErrUnknownQuery),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scheduler.ErrEmptyBatch),
		errors.Is(err, scheduler.ErrDuplicateQueryID),
		errors.Is(err, scheduler.ErrInvalidPriority),
		errors.Is(err, model.ErrUnknownParameter),
		errors.Is(err, model.ErrUnknownPriority),
		errors.Is(err, model.ErrUnknownQueryType),
		errors.Is(err, report.ErrUnknownFormat),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

// pathParam extracts the segment between prefix and suffix of path, e.g. the
// batch id of /api/v1/batches/{id}/errors.
func pathParam(path, prefix, suffix string) (string, error) {
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) || len(path) < len(prefix)+len(suffix) {
		return "", errors.Wrapf(errBadRequest, "invalid path %s", path)
	}
	param := path[len(prefix) : len(path)-len(suffix)]
	if param == "" || strings.Contains(param, "/") {
		return "", errors.Wrapf(errBadRequest, "invalid path %s", path)
	}
	return param, nil
}
