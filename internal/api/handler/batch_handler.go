package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"go-query-coordinator/internal/coordinator"
	"go-query-coordinator/internal/executor"
	"go-query-coordinator/internal/model"
	"go-query-coordinator/pkg/utils"
)

const (
	defaultWait      = 30 * time.Second
	defaultListLimit = 100
)

// SubmitBatchRequest names catalog queries and the values to bind to them.
type SubmitBatchRequest struct {
	Priority string                     `json:"priority" example:"medium"`
	Queries  []coordinator.QueryRequest `json:"queries"`
}

type SubmitBatchResponse struct {
	BatchID string              `json:"batch_id"`
	Status  model.BatchStatus   `json:"status"`
	Results []model.QueryResult `json:"results,omitempty"`
	Failed  int                 `json:"failed"`
	Errors  string              `json:"errors,omitempty"`
}

// SubmitBatch queues a batch of catalog queries and waits for its results
// @Summary Submit a batch
// @Description Resolve the named catalog queries, schedule them as one batch and wait for the results. When the wait elapses first, 202 is returned with the batch id.
// @Tags batches
// @Accept json
// @Produce json
// @Param batch body SubmitBatchRequest true "Queries and priority"
// @Param wait query string false "How long to wait for results, e.g. 5s" default(30s)
// @Success 200 {object} SubmitBatchResponse "Batch completed"
// @Success 202 {object} SubmitBatchResponse "Batch accepted, still running"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 404 {object} map[string]interface{} "Unknown query"
// @Failure 413 {object} map[string]interface{} "Batch too large"
// @Failure 504 {object} map[string]interface{} "Batch timed out before dispatch"
// @Router /batches [post]
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req SubmitBatchRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, errors.Wrap(errBadRequest, "invalid JSON payload"))
		return
	}

	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range req.Queries {
		normalizeParameters(req.Queries[i].Parameters)
	}
	queries, err := h.svc.ResolveQueries(req.Queries)
	if err != nil {
		writeError(w, err)
		return
	}

	// The batch outlives the request, so it is not bound to r.Context().
	handle, err := h.svc.Submit(context.Background(), queries, priority)
	if err != nil {
		writeError(w, err)
		return
	}

	wait := utils.ParseDuration(r.URL.Query().Get("wait"), defaultWait)
	waitCtx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()

	results, err := handle.Wait(waitCtx)
	if err != nil && errors.Is(err, waitCtx.Err()) {
		writeJSON(w, http.StatusAccepted, SubmitBatchResponse{BatchID: handle.ID(), Status: handle.Status()})
		return
	}
	if err != nil {
		writeError(w, errors.Wrapf(err, "batch %s", handle.ID()))
		return
	}

	resp := SubmitBatchResponse{BatchID: handle.ID(), Status: handle.Status(), Results: results}
	for _, res := range results {
		if res.Failed() {
			resp.Failed++
		}
	}
	if failures := executor.Failures(results); failures != nil {
		resp.Errors = failures.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// JSON numbers arrive as json.Number; bind them as int or float.
func normalizeParameters(params []model.Parameter) {
	for i, p := range params {
		if n, ok := p.Value.(json.Number); ok {
			params[i].Value = utils.ParseValue(n.String())
		}
	}
}

// ListBatches lists journaled batches, newest first
// @Summary List batches
// @Description List journaled batches, optionally filtered by status and priority
// @Tags batches
// @Produce json
// @Param status query string false "pending, dispatched, completed, timed_out, dropped or failed"
// @Param priority query string false "high, medium or low"
// @Param limit query int false "Maximum number of batches" default(100)
// @Success 200 {object} map[string]interface{} "Batches"
// @Failure 400 {object} map[string]interface{} "Invalid filter"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /batches [get]
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.BatchFilter{
		Status: model.BatchStatus(q.Get("status")),
		Limit:  defaultListLimit,
	}
	if p := q.Get("priority"); p != "" {
		priority, err := model.ParsePriority(p)
		if err != nil {
			writeError(w, err)
			return
		}
		filter.Priority = priority.String()
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			filter.Limit = uint(parsedLimit)
		}
	}

	batches, err := h.store.ListBatches(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"batches": batches,
		"count":   len(batches),
		"limit":   filter.Limit,
	})
}

// GetBatch returns a journaled batch and its query executions
// @Summary Get batch
// @Description Retrieve a journaled batch with every recorded query execution
// @Tags batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} map[string]interface{} "Batch details"
// @Failure 404 {object} map[string]interface{} "Batch not found"
// @Router /batches/{id} [get]
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := pathParam(r.URL.Path, apiPrefix+"/batches/", "")
	if err != nil {
		writeError(w, err)
		return
	}

	batch, err := h.store.GetBatch(r.Context(), batchID)
	if err != nil {
		writeError(w, err)
		return
	}
	executions, err := h.store.GetQueryExecutions(r.Context(), batchID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"batch":      batch,
		"executions": executions,
	})
}

// GetBatchErrors returns the errors journaled for a batch
// @Summary Get batch errors
// @Description Retrieve every query and batch level error recorded for a batch
// @Tags batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} map[string]interface{} "Batch errors"
// @Failure 404 {object} map[string]interface{} "Batch not found"
// @Router /batches/{id}/errors [get]
func (h *Handler) GetBatchErrors(w http.ResponseWriter, r *http.Request) {
	batchID, err := pathParam(r.URL.Path, apiPrefix+"/batches/", "/errors")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.store.GetBatch(r.Context(), batchID); err != nil {
		writeError(w, err)
		return
	}

	batchErrors, err := h.store.GetBatchErrors(r.Context(), batchID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"batch_id": batchID,
		"errors":   batchErrors,
		"count":    len(batchErrors),
	})
}
