package handler

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

// GetStatus reports the scheduler backlog
// @Summary Get coordinator status
// @Description Batches waiting for dispatch and the index catalog version
// @Tags status
// @Produce json
// @Success 200 {object} map[string]interface{} "Coordinator status"
// @Router /status [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pending_batches":       h.svc.PendingBatches(),
		"index_catalog_version": h.svc.IndexCatalogVersion(),
		"checked_at":            h.clock.Now().UTC(),
	})
}

// FlushCache drops every cached query result
// @Summary Flush result cache
// @Description Drop every cached query result so the next executions hit the target database
// @Tags status
// @Success 204 "Cache flushed"
// @Router /cache [delete]
func (h *Handler) FlushCache(w http.ResponseWriter, r *http.Request) {
	h.svc.InvalidateCache()
	log.Info("result cache flushed")
	w.WriteHeader(http.StatusNoContent)
}
