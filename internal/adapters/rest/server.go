package rest

import (
	"context"
	"net/http"

	core_port "reid-service/internal/core/port"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

type Server struct {
	httpServer *http.Server
	logger     core_port.LoggerPort
}

func NewServer(port string,
	reconcileHandlers *ReconcileHandler,
	queueHandlers *QueueHandler,
	baseLogger core_port.LoggerPort) *Server {

	r := chi.NewRouter()

	r.Use(LoggerMiddleware(baseLogger), middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/records/reconcile", reconcileHandlers.ReconcileRecord)
		r.Get("/records/errors", reconcileHandlers.GetReconcileErrors)

		r.Post("/queue/upload", queueHandlers.UploadQueueURLs)
		r.Post("/queue/sync", queueHandlers.SyncQueue)
		r.Get("/queue", queueHandlers.ListQueue)
		r.Get("/queue/stats", queueHandlers.GetQueueStats)
		r.Put("/queue/status/bulk", queueHandlers.BulkUpdateQueueStatus)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:    ":" + port,
			Handler: r,
		},
		logger: baseLogger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST server", core_port.Fields{"address": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST server...", nil)
	return s.httpServer.Shutdown(ctx)
}
