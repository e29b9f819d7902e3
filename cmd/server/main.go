package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"herd-backend/internal/api"
	"herd-backend/internal/behavior"
	"herd-backend/internal/cache"
	"herd-backend/internal/database"
	"herd-backend/internal/diagnosis"
	"herd-backend/internal/ingest"
	"herd-backend/internal/ml"
	"herd-backend/internal/monitor"
	"herd-backend/internal/mqtt"
	"herd-backend/pkg/config"
)

func main() {
	log.Println("Starting Herd Backend Service v1.0...")

	// Load configuration
	cfg := config.Load()

	// Initialize ClickHouse database
	db, err := database.NewClickHouseDB(
		cfg.ClickHouseAddr,
		cfg.ClickHouseDB,
		cfg.ClickHouseUser,
		cfg.ClickHousePass,
	)
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse: %v", err)
	}
	defer db.Close()

	// Initialize Redis latest-report cache
	reportCache := cache.NewReportCache(cfg.RedisAddr, cfg.RedisMaxConns, cfg.ReportCacheTTLSecs)
	defer reportCache.Close()

	// Initialize model server client (disease / severity / treatment)
	modelClient := ml.NewModelServerClient(
		cfg.ModelServerURL,
		time.Duration(cfg.ModelServerTimeoutSecs)*time.Second,
	)

	// Behavior core: collector, baseline builder, analyzer
	collector := behavior.NewCollector(db)
	builder := behavior.NewBaselineBuilder(collector, db, cfg.CollectionIntervalMinutes, cfg.BaselineDensityFactor)
	analyzer := behavior.NewAnalyzer(collector, behavior.AnalyzerConfig{
		MinHours:         cfg.MinHoursForAnalysis,
		RecommendedHours: cfg.RecommendedHours,
		Thresholds: behavior.Thresholds{
			Eating:       cfg.EatingDeviationThreshold,
			Lying:        cfg.LyingDeviationThreshold,
			Steps:        cfg.StepsDeviationThreshold,
			Rumination:   cfg.RuminationDeviationThreshold,
			TemperatureC: cfg.TemperatureDeviationCelsius,
		},
		Population: behavior.PopulationNorms{
			Eating:      cfg.PopulationEatingMinutes,
			Lying:       cfg.PopulationLyingFraction,
			Steps:       cfg.PopulationStepsPerHour,
			Rumination:  cfg.PopulationRuminationMinutes,
			Temperature: cfg.PopulationTemperatureC,
		},
	})

	// Fusion engine with report persistence and caching
	engine := diagnosis.NewEngine(analyzer, modelClient, modelClient, modelClient, cfg.AnalysisWindowHours)
	engine.SetReportSink(db)
	engine.SetReportCache(reportCache)

	// Initialize MQTT client
	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	})
	if err != nil {
		log.Fatalf("Failed to initialize MQTT client: %v", err)
	}
	defer mqttClient.Close()

	publisher := mqtt.NewPublisher(mqttClient.GetNativeClient(), mqtt.PublisherConfig{
		AlertTopic: cfg.MQTTTopicAlert,
	})

	// Monitor service polls tracked subjects for abnormal behavior
	monitorConfig := monitor.DefaultServiceConfig()
	monitorConfig.PollingIntervalSeconds = cfg.MonitorIntervalSecs
	monitorConfig.WindowHours = cfg.AnalysisWindowHours
	monitorService := monitor.NewService(engine, publisher, monitorConfig)

	// Ingest service consumes snapshots from the MQTT channel
	ingestService := ingest.NewService(collector, monitorService, ingest.DefaultServiceConfig())

	subscriber := mqtt.NewSubscriber(mqttClient.GetNativeClient(), mqtt.SubscriberConfig{
		BehaviorTopic: cfg.MQTTTopicBehavior,
	}, ingestService.SnapshotChan)

	if err := subscriber.SubscribeAll(); err != nil {
		log.Fatalf("Failed to subscribe to MQTT topics: %v", err)
	}

	// Root context cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ingestService.Start(ctx)
	go monitorService.Start(ctx)

	// HTTP API
	server := api.NewServer(collector, builder, analyzer, engine, reportCache, monitorService, db, modelClient, api.ServerConfig{
		DefaultWindowHours:  cfg.AnalysisWindowHours,
		DefaultBaselineDays: cfg.BaselineDays,
	})

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Router(),
	}

	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Println("Herd Backend Service v1.0 is running. Press Ctrl+C to exit.")
	log.Printf("Deviation thresholds: Eating=%.0f%%, Lying=%.0f%%, Steps=%.0f%%, Rumination=%.0f%%, Temp=%.1f°C",
		cfg.EatingDeviationThreshold*100, cfg.LyingDeviationThreshold*100,
		cfg.StepsDeviationThreshold*100, cfg.RuminationDeviationThreshold*100,
		cfg.TemperatureDeviationCelsius)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}
