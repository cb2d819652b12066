package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"polaroid/internal/app/delivery"
	"polaroid/internal/app/gateway"
	"polaroid/internal/app/repository"
	"polaroid/internal/app/usecase"
	"polaroid/internal/config"
	"polaroid/internal/middleware"
	"polaroid/internal/utils/logger"
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("error initializing config: %v\n", err)
		os.Exit(1)
	}

	err = logger.Init(cfg.LogMode, cfg.LogFile)
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("configuration loaded successfully")
	logger.Debug("debug mode enabled",
		zap.String("log_mode", cfg.LogMode),
		zap.String("storage_type", cfg.StorageType),
		zap.String("api_base_url", cfg.APIBaseURL),
	)

	storage, err := repository.CreateStorage(cfg)
	if err != nil {
		logger.Error("failed to initialize storage", zap.Error(err))
		os.Exit(1)
	}
	defer storage.Close()

	gatewayClient := gateway.CreateClient(cfg)
	poller := usecase.CreatePoller(gatewayClient, cfg.PollInterval, cfg.PollTimeout)

	taskUsecase := usecase.CreateTaskUsecase(gatewayClient, storage, poller)
	galleryUsecase := usecase.CreateGalleryUsecase(storage)
	reviewUsecase := usecase.CreateReviewUsecase(storage)

	handlers := delivery.CreateDelivery(taskUsecase, galleryUsecase, reviewUsecase, delivery.HealthInfo{
		Environment:   cfg.LogMode,
		APIBaseURL:    cfg.APIBaseURL,
		APIConfigured: cfg.APIKey != "",
	})

	router := mux.NewRouter()

	router.HandleFunc("/health", handlers.Health).Methods("GET")

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/upload", handlers.Upload).Methods("POST")
	apiRouter.HandleFunc("/generate", handlers.Generate).Methods("POST")
	apiRouter.HandleFunc("/status", handlers.Status).Methods("POST")
	apiRouter.HandleFunc("/result", handlers.Result).Methods("POST")
	apiRouter.HandleFunc("/process", handlers.Process).Methods("POST")
	apiRouter.HandleFunc("/gallery", handlers.GalleryList).Methods("GET")
	apiRouter.HandleFunc("/gallery", handlers.GallerySave).Methods("POST")
	apiRouter.HandleFunc("/gallery", handlers.GalleryDelete).Methods("DELETE")
	apiRouter.HandleFunc("/gallery/archive", handlers.GalleryArchive).Methods("GET")
	apiRouter.HandleFunc("/reviews", handlers.ReviewsList).Methods("GET")
	apiRouter.HandleFunc("/reviews", handlers.ReviewsAdd).Methods("POST")
	apiRouter.HandleFunc("/debug/ping", handlers.DebugPing).Methods("POST")

	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.PanicMiddleware)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("starting HTTP server",
			zap.String("address", server.Addr),
			zap.String("storage_type", cfg.StorageType),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Error("failed to start server", zap.Error(err))
		os.Exit(1)
	case sig := <-quit:
		logger.Info("server is shutting down",
			zap.String("signal", sig.String()),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
			os.Exit(1)
		}

		logger.Info("server stopped")
	}
}
