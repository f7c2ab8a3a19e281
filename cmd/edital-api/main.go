package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	apiserver "github.com/editalhub/edital-api/internal/api_server"
	"github.com/editalhub/edital-api/internal/blob"
	"github.com/editalhub/edital-api/internal/config"
	"github.com/editalhub/edital-api/internal/extraction"
	"github.com/editalhub/edital-api/internal/pipeline"
	"github.com/editalhub/edital-api/internal/service"
	"github.com/editalhub/edital-api/internal/store"
	"github.com/editalhub/edital-api/pkg/log"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		panic(err)
	}

	logLvl, err := zap.ParseAtomicLevel(cfg.Service.LogLevel)
	if err != nil {
		logLvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger := log.InitLog(logLvl)
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	zap.S().Info("Starting edital-api service")
	defer zap.S().Info("edital-api service stopped")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	zap.S().Info("Initializing data store")
	db, err := store.InitDB(cfg)
	if err != nil {
		zap.S().Fatalf("initializing data store: %v", err)
	}

	s := store.NewStore(db)
	defer s.Close()

	if err := s.InitialMigration(); err != nil {
		zap.S().Fatalf("running initial migration: %v", err)
	}

	blobStore, err := blob.NewMinioStore(
		blob.WithEndpoint(cfg.Blob.Endpoint),
		blob.WithBucket(cfg.Blob.Bucket),
		blob.WithAccessKey(cfg.Blob.AccessKey),
		blob.WithSecretKey(cfg.Blob.SecretKey),
		blob.WithSSL(cfg.Blob.UseSSL),
	)
	if err != nil {
		zap.S().Fatalf("initializing blob store: %v", err)
	}

	provider, err := extraction.NewGeminiProvider(ctx, cfg.Gemini.ApiKey, cfg.Gemini.Model)
	if err != nil {
		zap.S().Fatalf("initializing extraction provider: %v", err)
	}
	defer provider.Close()

	orchestrator := pipeline.NewOrchestrator(s, blobStore, provider, cfg)
	dispatcher := pipeline.NewDispatcher(s, orchestrator, cfg)
	dispatcher.Start(ctx)

	documentSrv := service.NewDocumentService(s, blobStore, dispatcher)

	go func() {
		listener, err := net.Listen("tcp", cfg.Service.Address)
		if err != nil {
			zap.S().Fatalf("creating listener: %v", err)
		}

		server := apiserver.New(cfg, documentSrv, listener)
		if err := server.Run(ctx); err != nil {
			zap.S().Fatalf("Error running api server: %v", err)
		}
		cancel()
	}()

	go func() {
		listener, err := net.Listen("tcp", cfg.Service.MetricsAddress)
		if err != nil {
			zap.S().Fatalf("creating metrics listener: %v", err)
		}

		metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
		if err := metricsServer.Run(ctx); err != nil {
			zap.S().Fatalf("Error running metrics server: %v", err)
		}
		cancel()
	}()

	<-ctx.Done()
}
