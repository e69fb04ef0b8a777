package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"reid-service/internal/contextkeys"
	"reid-service/internal/core/domain"
	"reid-service/internal/core/port"
	usecases_port "reid-service/internal/core/port/usecases_port"
)

type QueueHandler struct {
	enqueueUC usecases_port.EnqueueURLsPort
	syncUC    usecases_port.SyncQueuePort
	queue     port.QueueStoragePort
}

func NewQueueHandlers(enqueueUC usecases_port.EnqueueURLsPort, syncUC usecases_port.SyncQueuePort, queue port.QueueStoragePort) *QueueHandler {
	return &QueueHandler{
		enqueueUC: enqueueUC,
		syncUC:    syncUC,
		queue:     queue,
	}
}

// UploadQueueURLs accepts a JSON array of arbitrary scraper records plus the
// names of the fields holding the link and the availability flag, and admits
// the extracted URLs into the recheck queue.
func (h *QueueHandler) UploadQueueURLs(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	linkField := r.URL.Query().Get("link_field")
	if linkField == "" {
		linkField = "link"
	}
	availabilityField := r.URL.Query().Get("availability_field")
	if availabilityField == "" {
		availabilityField = "availability"
	}

	var items []map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		logger.Warn("Malformed upload body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "QueueHandler: body must be a JSON array of records")
		return
	}

	handlerLogger := logger.WithFields(port.Fields{
		"handler":    "UploadQueueURLs",
		"item_count": len(items),
		"link_field": linkField,
	})
	handlerLogger.Info("Processing request", nil)

	candidates := ExtractCandidates(items, linkField, availabilityField)

	result, err := h.enqueueUC.Enqueue(r.Context(), candidates)
	if err != nil {
		handlerLogger.Error("Use case failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("QueueHandler: upload failed: %v", err))
		return
	}

	RespondWithJSON(w, http.StatusOK, EnqueueResultResponse{
		ValidURLs:      result.ValidURLs,
		NewURLs:        result.NewURLs,
		InsertedCount:  result.InsertedCount,
		TotalValid:     result.TotalValid,
		AlreadyExisted: result.AlreadyExisted,
	})
}

// SyncQueue triggers a batch sync for one calendar month. The period comes
// as ?period=YYYY-MM and defaults to the current month.
func (h *QueueHandler) SyncQueue(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	period := time.Now()
	if periodStr := r.URL.Query().Get("period"); periodStr != "" {
		parsed, err := time.Parse("2006-01", periodStr)
		if err != nil {
			logger.Warn("Invalid 'period' parameter", port.Fields{"period": periodStr})
			WriteJSONError(w, http.StatusBadRequest, "QueueHandler: period must look like YYYY-MM")
			return
		}
		period = parsed
	}

	handlerLogger := logger.WithFields(port.Fields{
		"handler": "SyncQueue",
		"period":  period.Format("2006-01"),
	})
	handlerLogger.Info("Processing request", nil)

	stats, err := h.syncUC.Sync(r.Context(), period)
	if err != nil {
		handlerLogger.Error("Use case failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("QueueHandler: sync failed: %v", err))
		return
	}

	updatedByStatus := make(map[string]int, len(stats.UpdatedByStatus))
	for status, count := range stats.UpdatedByStatus {
		updatedByStatus[string(status)] = count
	}
	RespondWithJSON(w, http.StatusOK, SyncStatsResponse{
		Period:          stats.Period,
		ScannedEntries:  stats.ScannedEntries,
		UpdatedCount:    stats.UpdatedCount,
		UpdatedByStatus: updatedByStatus,
		FailedPages:     stats.FailedPages,
	})
}

// ListQueue returns one page of queue entries with optional status, domain
// and updated-at filters.
func (h *QueueHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	limit, err := GetLimitOrDefault(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "QueueHandler: invalid limit value")
		return
	}
	offset, err := GetOffsetOrDefault(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "QueueHandler: invalid offset value")
		return
	}

	filters := port.QueueListFilters{
		Domain: r.URL.Query().Get("domain"),
	}
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := domain.QueueStatus(statusStr)
		if !domain.KnownQueueStatus(status) {
			WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("QueueHandler: unknown status %q", statusStr))
			return
		}
		filters.Status = status
	}
	for param, dst := range map[string]**time.Time{
		"updated_from": &filters.UpdatedFrom,
		"updated_to":   &filters.UpdatedTo,
	} {
		if v := r.URL.Query().Get(param); v != "" {
			parsed, err := time.Parse("2006-01-02", v)
			if err != nil {
				WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("QueueHandler: %s must look like YYYY-MM-DD", param))
				return
			}
			*dst = &parsed
		}
	}

	entries, total, err := h.queue.List(r.Context(), filters, *limit, *offset)
	if err != nil {
		logger.Error("Failed to list queue", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "QueueHandler: failed to list queue")
		return
	}

	items := make([]QueueEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, QueueEntryResponse{
			ID:        e.ID,
			URL:       e.URL,
			Status:    string(e.Status),
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		})
	}
	RespondWithJSON(w, http.StatusOK, QueueListResponse{Items: items, Total: total})
}

func (h *QueueHandler) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		logger.Error("Failed to read queue stats", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "QueueHandler: failed to read stats")
		return
	}

	byStatus := make(map[string]int64, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	RespondWithJSON(w, http.StatusOK, QueueStatsResponse{Total: stats.Total, ByStatus: byStatus})
}

// BulkUpdateQueueStatus sets one status on a set of queue entries.
func (h *QueueHandler) BulkUpdateQueueStatus(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	var req BulkStatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "QueueHandler: invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "QueueHandler: ids cannot be empty")
		return
	}
	status := domain.QueueStatus(req.Status)
	if !domain.KnownQueueStatus(status) {
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("QueueHandler: unknown status %q", req.Status))
		return
	}

	changed, err := h.queue.UpdateStatusBulk(r.Context(), req.IDs, status)
	if err != nil {
		logger.Error("Failed to bulk update queue status", err, port.Fields{"id_count": len(req.IDs)})
		WriteJSONError(w, http.StatusInternalServerError, "QueueHandler: failed to update statuses")
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]int{"updated": changed})
}
