package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"drive-autoposter/internal"
	"drive-autoposter/internal/logging"
	"drive-autoposter/internal/model"
	"drive-autoposter/internal/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	cronSpec := flag.String("cron", "", `run as a daemon on this cron spec, e.g. "0 0 */6 * * *"`)
	flag.Parse()

	// Load .env file if it exists (try multiple paths)
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, path := range envPaths {
		_ = godotenv.Load(path)
	}

	// cfg keeps its defaults (ErrorsLog included) even when validation fails
	cfg, cfgErr := internal.LoadConfig()

	log, err := logging.New(cfg.ErrorsLog)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	if cfgErr != nil {
		log.Errorf("config: %v", cfgErr)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := scheduler.BuildService(cfg, log)
	if err != nil {
		log.Errorf("build service: %v", err)
		return 1
	}

	if *cronSpec != "" {
		if err := svc.Run(ctx, *cronSpec); err != nil {
			log.Errorf("scheduler stopped: %v", err)
			return 1
		}
		log.Infof("shutdown signal received")
		return 0
	}

	report, err := svc.RunOnce(ctx)
	if err != nil {
		log.Errorf("run: %v", err)
		return 1
	}
	switch report.Outcome {
	case model.OutcomeCompleted, model.OutcomeNoVideo:
		return 0
	default:
		return 1
	}
}
