package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stockpulse/config"
	"stockpulse/internal/api"
	"stockpulse/internal/metrics"
	"stockpulse/logger"
	"stockpulse/processor"
	"stockpulse/reader"
	"stockpulse/store"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Stockpulse.Name,
		"version": cfg.Stockpulse.Version,
	}).Info("starting stockpulse")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	if cfg.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.CloudWatch.Region, cfg.CloudWatch.Namespace)
	}

	if cfg.Metrics.Enabled {
		metrics.Init(cfg.Metrics.Address)
	}

	cache := store.NewMarketCache()
	insights := store.NewInsightLog(cfg.Insights.HistorySize)

	engine := processor.NewEngine(cfg.Feed.Symbols, cfg.Insights.ThresholdPercent, cache, insights)
	router := processor.NewRouter(engine)

	feed := reader.NewFeedReader(cfg.Feed, router)
	feed.Start(ctx)

	apiServer := api.NewServer(cfg.API, cache, insights, cfg.Feed.Symbols, func() string {
		return feed.State().String()
	})
	apiErr := make(chan error, 1)
	if apiServer != nil {
		go func() {
			apiErr <- apiServer.Run(ctx)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	apiDown := false
	select {
	case sig := <-sigChan:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
	case err := <-apiErr:
		apiDown = true
		log.WithError(err).Error("query API server failed")
	}

	log.Info("starting graceful shutdown")
	cancel()

	log.Info("stopping feed reader")
	feed.Stop()

	if apiServer != nil && !apiDown {
		select {
		case <-apiErr:
		case <-time.After(10 * time.Second):
			log.Warn("query API shutdown timeout exceeded")
		}
	}

	log.Info("stockpulse stopped")
}
