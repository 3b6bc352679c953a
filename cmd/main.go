package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/satriahrh/wawa/adapters/llm"
	"github.com/satriahrh/wawa/adapters/media"
	"github.com/satriahrh/wawa/adapters/speech"
	"github.com/satriahrh/wawa/adapters/storage"
	"github.com/satriahrh/wawa/adapters/tts"
	"github.com/satriahrh/wawa/domain/repositories"
	"github.com/satriahrh/wawa/internal/api"
	"github.com/satriahrh/wawa/internal/config"
	"github.com/satriahrh/wawa/internal/observability"
	"github.com/satriahrh/wawa/internal/saga"
	"github.com/satriahrh/wawa/internal/websocket"
	"github.com/satriahrh/wawa/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Development() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("wawa", prometheus.DefaultRegisterer)

	// Initialize adapters
	artifacts, err := storage.NewFileArtifactStore(cfg.AudioDir, logger)
	if err != nil {
		logger.Fatal("Failed to create artifact store", zap.Error(err))
	}
	assets := storage.NewFileAssetStore(cfg.AssetsDir)

	transcoder, err := media.NewFFmpegTranscoder(cfg.FFmpegCommand, logger)
	if err != nil {
		logger.Fatal("Failed to create audio transcoder", zap.Error(err))
	}
	extractor, err := media.NewRhubarbExtractor(cfg.RhubarbCommand, logger)
	if err != nil {
		logger.Fatal("Failed to create viseme extractor", zap.Error(err))
	}

	var (
		languageModel repositories.LargeLanguageModel
		textToSpeech  interface {
			repositories.TextToSpeech
			repositories.VoiceCatalog
		}
	)

	switch {
	case cfg.LLMProvider == config.ProviderMock:
		languageModel = llm.NewMockGeminiClient(nil)
		logger.Info("Using mock conversational backend")
	case cfg.GeminiAPIKey != "":
		languageModel, err = llm.NewGeminiLLM(ctx, llm.GeminiConfig{
			APIKey:          cfg.GeminiAPIKey,
			Model:           cfg.GeminiModel,
			Temperature:     cfg.GeminiTemperature,
			TopP:            cfg.GeminiTopP,
			TopK:            cfg.GeminiTopK,
			MaxOutputTokens: cfg.GeminiMaxOutputTokens,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create Gemini client", zap.Error(err))
		}
	}

	switch {
	case cfg.TTSProvider == config.ProviderMock:
		textToSpeech = speech.NewMockTextToSpeech(logger)
		logger.Info("Using mock speech synthesizer")
	case cfg.ElevenLabsAPIKey != "":
		textToSpeech, err = tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:     cfg.ElevenLabsAPIKey,
			APIBaseURL: cfg.ElevenLabsAPIBaseURL,
			VoiceID:    cfg.ElevenLabsVoiceID,
			ModelID:    cfg.ElevenLabsModelID,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create Eleven Labs client", zap.Error(err))
		}
	}

	// Initialize usecase services
	assembler := usecase.NewResponseAssembler()
	canned := usecase.NewCannedResponses(assets, assembler)

	var (
		backend *usecase.ConversationBackend
		lipSync *usecase.LipSyncService
	)
	if cfg.HasCredentials() {
		backend = usecase.NewConversationBackend(languageModel, cfg.MaxDrafts, logger)
		lipSync, err = usecase.NewLipSyncService(usecase.LipSyncConfig{
			Artifacts:  artifacts,
			Speech:     textToSpeech,
			Transcoder: transcoder,
			Extractor:  extractor,
			Assembler:  assembler,
			Sagas:      saga.NewManager(logger, metrics.SagaObserver()),
			Timeout:    cfg.PipelineTimeout,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create lip sync service", zap.Error(err))
		}
	} else {
		logger.Warn("Gemini or Eleven Labs credentials missing, every chat gets the reminder reply")
	}
	chatService := usecase.NewChatService(canned, backend, lipSync, cfg.HasCredentials(), logger)

	if cfg.ArtifactRetention > 0 {
		cleanup := storage.NewArtifactCleanupService(artifacts.Root(), cfg.ArtifactRetention, logger)
		cleanup.Start()
		defer cleanup.Stop()
	}

	// Initialize WebSocket hub with the chat service
	hub := websocket.NewHub(chatService, metrics, logger)
	go hub.Run(ctx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, api.Dependencies{
		Chat:           chatService,
		Voices:         textToSpeech,
		Hub:            hub,
		Metrics:        metrics,
		MetricsHandler: observability.MetricsHandler(prometheus.DefaultGatherer),
	}, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Wawa server listening", zap.String("port", cfg.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
