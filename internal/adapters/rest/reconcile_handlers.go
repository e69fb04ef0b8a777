package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"reid-service/internal/contextkeys"
	"reid-service/internal/core/port"
	usecases_port "reid-service/internal/core/port/usecases_port"
)

type ReconcileHandler struct {
	reconcileUC usecases_port.ReconcileRecordPort
	errorLog    port.ReconcileErrorLogPort
}

func NewReconcileHandlers(reconcileUC usecases_port.ReconcileRecordPort, errorLog port.ReconcileErrorLogPort) *ReconcileHandler {
	return &ReconcileHandler{
		reconcileUC: reconcileUC,
		errorLog:    errorLog,
	}
}

// ReconcileRecord converges one scraped record synchronously. A rejected
// record still answers 200: the rejection is the outcome, not a server fault.
func (h *ReconcileHandler) ReconcileRecord(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	var req ReconcileRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Malformed reconcile request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "ReconcileHandler: invalid JSON body")
		return
	}

	handlerLogger := logger.WithFields(port.Fields{
		"handler": "ReconcileRecord",
		"url":     req.URL,
	})
	handlerLogger.Info("Processing request", nil)

	outcome, err := h.reconcileUC.Reconcile(r.Context(), req.ToDomain())
	if err != nil {
		handlerLogger.Error("Use case failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("ReconcileHandler: reconciliation failed: %v", err))
		return
	}

	RespondWithJSON(w, http.StatusOK, toOutcomeResponse(outcome))
}

// GetReconcileErrors lists the durable rejection log of one URL.
func (h *ReconcileHandler) GetReconcileErrors(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	url := r.URL.Query().Get("url")
	if url == "" {
		logger.Warn("Missing 'url' parameter", nil)
		WriteJSONError(w, http.StatusBadRequest, "ReconcileHandler: empty url value")
		return
	}

	errs, err := h.errorLog.ListForURL(r.Context(), url)
	if err != nil {
		logger.Error("Failed to list reconcile errors", err, port.Fields{"url": url})
		WriteJSONError(w, http.StatusInternalServerError, "ReconcileHandler: failed to list errors")
		return
	}

	out := make([]ReconcileErrorResponse, 0, len(errs))
	for _, e := range errs {
		out = append(out, ReconcileErrorResponse{URL: e.URL, Reason: e.Reason, CreatedAt: e.CreatedAt})
	}
	RespondWithJSON(w, http.StatusOK, out)
}
