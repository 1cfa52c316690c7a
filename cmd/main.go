package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/klangab/whisper-batch-worker/internal/asr"
	"github.com/klangab/whisper-batch-worker/internal/config"
	"github.com/klangab/whisper-batch-worker/internal/httpapi"
	"github.com/klangab/whisper-batch-worker/internal/jobs"
	"github.com/klangab/whisper-batch-worker/internal/llm"
	"github.com/klangab/whisper-batch-worker/internal/media"
	"github.com/klangab/whisper-batch-worker/internal/persistence"
	"github.com/klangab/whisper-batch-worker/internal/pipeline"
	"github.com/klangab/whisper-batch-worker/internal/retryhttp"
	"github.com/klangab/whisper-batch-worker/internal/service"
	"github.com/klangab/whisper-batch-worker/internal/session"
	"github.com/klangab/whisper-batch-worker/pkg/log"
)

func main() {
	_ = godotenv.Load()

	settingsPath := config.RuntimeSettingsFilePath()
	runtimeSettings, err := config.LoadRuntimeSettingsFile(settingsPath)
	if err != nil {
		log.Warn("Ignoring runtime settings file %s: %v", settingsPath, err)
		runtimeSettings = config.RuntimeSettings{}
	}

	cfg, err := config.NewFromEnv(config.WithRuntimeSettings(runtimeSettings))
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	store, err := persistence.NewSQLiteStore(cfg.Store.DBPath)
	if err != nil {
		log.Fatal("Failed to open job store: %v", err)
	}
	defer store.Close()

	httpClient := retryhttp.NewClient(cfg.HTTP.Timeout, cfg.HTTP.Retries, cfg.HTTP.Backoff)
	asrClient := asr.NewClient(cfg.ASR.BaseURL, httpClient)

	var summarizer pipeline.Summarizer
	var llmClient *llm.Client
	if cfg.LLM.BaseURL != "" {
		llmClient, err = llm.NewClient(llm.Config{
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			APIKey:  cfg.LLM.APIKey,
		}, httpClient)
		if err != nil {
			log.Fatal("Failed to create LLM client: %v", err)
		}
		summarizer = llmClient
	}

	newDiarizer := func() (pipeline.Diarizer, error) {
		return asrClient, nil
	}

	queue := jobs.NewQueue(cfg.Pipeline.MaxConcurrentJobs, store)

	runner := pipeline.NewRunner(asrClient, summarizer, newDiarizer, queue)
	sessions := session.NewStorage(cfg.Sessions.Dir)
	processor := service.NewProcessor(cfg.Pipeline, runner, store, sessions, media.NewProber())

	queue.Start(processor.Execute)
	defer queue.Stop()

	settingsStore, err := config.NewRuntimeSettingsStore(settingsPath, cfg.RuntimeSettings())
	if err != nil {
		log.Fatal("Failed to create runtime settings store: %v", err)
	}

	applySettings := func(next config.RuntimeSettings) error {
		asrClient.SetBaseURL(next.WhisperAPIURL)
		if llmClient != nil {
			llmClient.SetEndpoint(next.LLMURL, next.LLMModel)
		}
		return nil
	}

	if cfg.Sweep.CronExpr != "" {
		c := cron.New()
		sweeper := service.NewSweeper(cfg.Sessions.Dir, sessions, queue, cfg.Sweep.CronExpr, c)
		if err := sweeper.Schedule(context.Background()); err != nil {
			log.Fatal("Failed to schedule session sweep: %v", err)
		}
		c.Start()
		defer c.Stop()
	}

	server := httpapi.NewServer(queue, store,
		httpapi.WithSessions(sessions),
		httpapi.WithRuntimeSettingsStore(settingsStore),
		httpapi.WithRuntimeSettingsApplier(applySettings),
		httpapi.WithSweepSchedule(cfg.Sweep.CronExpr),
	)

	go func() {
		log.Info("Listening on %s", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(cfg.Server.ListenAddr); err != nil {
			log.Error("HTTP server stopped: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error("Failed to shut down HTTP server: %v", err)
	}
}
