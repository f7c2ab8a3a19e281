package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/editalhub/edital-api/internal/config"
	handlers "github.com/editalhub/edital-api/internal/handlers/v1alpha1"
	"github.com/editalhub/edital-api/internal/service"
	"github.com/editalhub/edital-api/pkg/metrics"
	"github.com/editalhub/edital-api/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const gracefulShutdownTimeout = 5 * time.Second

type Server struct {
	cfg         *config.Config
	documentSrv *service.DocumentService
	listener    net.Listener
}

// New returns a new instance of the edital-api server.
func New(cfg *config.Config, documentSrv *service.DocumentService, listener net.Listener) *Server {
	return &Server{
		cfg:         cfg,
		documentSrv: documentSrv,
		listener:    listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handlers.NewDocumentHandler(s.documentSrv).RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:    s.cfg.Service.Address,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		httpServer.SetKeepAlivesEnabled(false)
		_ = httpServer.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("serving api: %s", s.cfg.Service.Address)
	if err := httpServer.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
