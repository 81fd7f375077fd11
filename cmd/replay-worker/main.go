package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/civic-sync/internal/client"
	"github.com/MKhiriev/civic-sync/internal/config"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	build := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	printBuildInfo(build)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.GetWorkerConfig(os.Args[1:])
	if err != nil {
		logger.NewLogger("civic-replay-worker").Fatal().Err(err).Msg("error getting configs")
	}

	log := logger.NewFileLogger("civic-replay-worker", cfg.App.LogFile)
	log.Debug().Str("session_url", cfg.Notify.SessionURL).Msg("received configs")

	worker, err := client.NewReplayProcess(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init replay worker error")
	}

	if err = worker.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("replay worker run error")
	}
}

func printBuildInfo(build models.AppBuildInfo) {
	fmt.Printf("Build version: %s\n", build.Version)
	fmt.Printf("Build date: %s\n", build.Date)
	fmt.Printf("Build commit: %s\n", build.Commit)
}
