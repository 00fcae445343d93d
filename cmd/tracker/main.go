package main

import (
	"context"
	"flag"
	"os"

	"github.com/stridelab/activity-tracker/config"
	_ "github.com/stridelab/activity-tracker/docs" // swagger spec registration
	"github.com/stridelab/activity-tracker/internal/app"
	"github.com/stridelab/activity-tracker/pkg/logger"
)

var (
	helpFlag   = flag.Bool("help", false, "Show help message")
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()
	if *helpFlag {
		config.PrintHelp()
		return
	}

	ctx := context.Background()
	log := logger.InitLogger("tracker-service", logger.LevelDebug)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		config.PrintHelp()
		return
	}

	// Printing configuration
	config.PrintConfig(cfg)

	if cfg.Logging.Level != "" {
		log = logger.InitLogger("tracker-service", cfg.Logging.Level)
	}

	application, err := app.New(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	if err = application.Start(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		os.Exit(1)
	}
}
