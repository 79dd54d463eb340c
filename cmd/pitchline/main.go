package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ecanzonieri/pitchline/internal/assist"
	"github.com/ecanzonieri/pitchline/internal/config"
	"github.com/ecanzonieri/pitchline/internal/convlog"
	"github.com/ecanzonieri/pitchline/internal/dataset"
	"github.com/ecanzonieri/pitchline/internal/gateway"
	"github.com/ecanzonieri/pitchline/internal/httpapi"
	"github.com/ecanzonieri/pitchline/internal/interlog"
	"github.com/ecanzonieri/pitchline/internal/logger"
	"github.com/ecanzonieri/pitchline/internal/observability"
	"github.com/ecanzonieri/pitchline/internal/session"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config error")
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()

	conv, err := convlog.Open(cfg.ConversationLogPath)
	if err != nil {
		log.WithError(err).Fatal("conversation log init failed")
	}
	defer conv.Close()

	interactions, err := interlog.NewStore(ctx, cfg.DatabaseURL, cfg.InteractionLogPath)
	if err != nil {
		log.WithError(err).Fatal("interaction log init failed")
	}
	defer interactions.Close()

	book := dataset.Empty()
	if cfg.CustomerBookPath != "" {
		book, err = dataset.Load(cfg.CustomerBookPath)
		if err != nil {
			log.WithError(err).Warn("customer book unavailable, continuing without it")
			book = dataset.Empty()
		} else {
			log.WithField("customers", book.Size()).Info("customer book loaded")
		}
	}

	var (
		transcriber assist.Transcriber
		analyzer    assist.Analyzer
		recommender assist.Recommender
		replier     assist.ReplyGenerator
		summarizer  assist.Summarizer
	)

	gatewayReady := cfg.LLMGatewayURL != "" && cfg.LLMAPIKey != "" && cfg.TranscribeURL != ""
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "auto" {
		if gatewayReady {
			provider = "gateway"
		} else {
			provider = "mock"
			log.Info("gateway not fully configured, using mock providers")
		}
	}

	switch provider {
	case "gateway":
		if !gatewayReady {
			log.Fatal("PROVIDER=gateway requires LLM_GATEWAY_URL, LLM_API_KEY and TRANSCRIBE_URL")
		}
		gwCfg := gateway.Config{
			LLMGatewayURL: cfg.LLMGatewayURL,
			LLMAPIKey:     cfg.LLMAPIKey,
			LLMModel:      cfg.LLMModel,
			TranscribeURL: cfg.TranscribeURL,
		}
		llm := gateway.NewLLM(gwCfg)
		transcriber = gateway.NewTranscriber(gwCfg)
		analyzer = gateway.NewAnalyzer(llm)
		recommender = gateway.NewRecommender(llm, book)
		replier = gateway.NewReplier(llm)
		summarizer = gateway.NewSummarizer(llm, log)
		log.WithField("model", cfg.LLMModel).Info("provider: gateway")
	case "mock":
		mock := gateway.NewMock()
		transcriber = mock
		analyzer = mock
		recommender = mock
		replier = mock
		summarizer = mock
		log.Info("provider: mock")
	}

	sessions := session.NewManager(cfg.CallInactivityTimeout)
	sessions.SetExpireHook(func(c *session.Call) {
		metrics.CallEvents.WithLabelValues("expired").Inc()
		metrics.ActiveCalls.Set(float64(sessions.ActiveCount()))
		log.WithField("call_id", c.ID).Warn("call expired after inactivity")
	})

	orchestrator := assist.NewOrchestrator(
		conv,
		interactions,
		transcriber,
		analyzer,
		recommender,
		replier,
		summarizer,
		metrics,
		log,
	)

	api := httpapi.New(cfg, sessions, orchestrator, metrics, log)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.WithField("addr", cfg.BindAddr).Info("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
		_ = httpServer.Close()
	}

	log.Info("shutdown complete")
}
