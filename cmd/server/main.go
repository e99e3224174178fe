package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"message-triage/internal/analysis"
	"message-triage/internal/config"
	"message-triage/internal/dictation"
	"message-triage/internal/handler"
	"message-triage/internal/llm"
	"message-triage/internal/metrics"
	"message-triage/internal/repository"
	"message-triage/internal/service"
	"message-triage/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(config.Path())
	missingConfig := errors.Is(err, fs.ErrNotExist)
	if missingConfig {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		panic(err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Logging.Production)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting Message Triage Service...")
	if missingConfig {
		logger.Warn("Config file not found, using defaults", zap.String("path", config.Path()))
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	triageMetrics, err := metrics.NewTriageMetrics(registry)
	if err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	// Classifier providers. Without one every analysis fails as a transport
	// error, the server still serves the rest of the session.
	var classifier analysis.Classifier
	var modelSource service.ModelSource
	selector, err := llm.NewSelector(llm.SelectorConfig{
		Providers:   cfg.Providers,
		MaxFailures: cfg.MaxFailuresBeforeSwitch,
	}, logger)
	if err != nil {
		logger.Warn("No classifier available, analyses will fail until credentials are configured",
			zap.Error(err))
	} else {
		defer selector.Close()
		classifier = selector
		modelSource = selector
		logger.Info("Classifier initialized",
			zap.Int("provider_count", len(selector.GetProvidersInfo())))
	}

	analyzer := analysis.NewClient(classifier, analysis.Config{
		Timeout: cfg.Analysis.Timeout,
	}, logger).WithRecorder(triageMetrics)

	// Feedback ledger lives only as long as the process
	repo, err := repository.NewFeedbackRepository(repository.MemoryDSN, logger)
	if err != nil {
		logger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	// Dictation
	var recognizer dictation.Recognizer
	if cfg.Dictation.Enabled {
		recognizer = dictation.NewWhisperRecognizer(dictation.WhisperConfig{
			APIKey:     cfg.Dictation.APIKey,
			BaseURL:    cfg.Dictation.BaseURL,
			Model:      cfg.Dictation.Model,
			SampleRate: cfg.Dictation.SampleRate,
			Language:   cfg.Dictation.Language,
		}, logger)
	}
	adapter := dictation.NewAdapter(recognizer, dictation.Config{
		MaxDuration: cfg.Dictation.MaxDuration,
	}, logger)
	adapter.SetRecorder(triageMetrics)
	defer adapter.Close()

	sess := session.New(analyzer, repo, logger,
		session.WithDictation(adapter),
		session.WithFeedbackRecorder(triageMetrics),
		session.WithAnalysisRecorder(triageMetrics),
	)

	// Initialize HTTP handler
	apiHandler := handler.NewHandler(sess, service.NewReporter(repo, modelSource), logger)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register routes
	apiHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Start server
	serverAddr := cfg.Addr()
	logger.Info("Server starting", zap.String("address", serverAddr))

	// Graceful shutdown
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Message Triage Service is running",
		zap.String("address", serverAddr),
		zap.Bool("dictation", cfg.Dictation.Enabled))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
