package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stridelab/activity-tracker/config"
	"github.com/stridelab/activity-tracker/internal/adapter/http/server"
	wshandler "github.com/stridelab/activity-tracker/internal/adapter/http/ws"
	repo "github.com/stridelab/activity-tracker/internal/adapter/postgres"
	rabbitbroker "github.com/stridelab/activity-tracker/internal/adapter/rabbit"
	"github.com/stridelab/activity-tracker/internal/service/session"
	"github.com/stridelab/activity-tracker/pkg/logger"
	"github.com/stridelab/activity-tracker/pkg/postgres"
	"github.com/stridelab/activity-tracker/pkg/rabbit"
	"github.com/stridelab/activity-tracker/pkg/trm"
	ws "github.com/stridelab/activity-tracker/pkg/wshub"
)

// App wires the tracker service together: postgres for snapshots and
// summaries, rabbit for the summary hand-off, HTTP plus websocket on top.
type App struct {
	postgresDB   *postgres.PostgreDB
	rabbitClient *rabbit.RabbitMQ
	connHub      *ws.ConnectionHub
	httpServer   *server.API

	cfg config.Config
	log logger.Logger
}

func New(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	postgresDB, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}

	snapshotRepo := repo.NewSnapshotRepo(postgresDB.Pool)
	summaryRepo := repo.NewSummaryRepo(postgresDB.Pool)
	txManager := trm.New(postgresDB.Pool)

	var (
		rabbitClient *rabbit.RabbitMQ
		publisher    session.SummaryPublisher
	)
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
		if err != nil {
			log.Error(ctx, "Failed to connect to rabbitmq", err)
			return nil, err
		}

		broker, err := rabbitbroker.NewSummaryBroker(ctx, rabbitClient, log)
		if err != nil {
			log.Error(ctx, "Failed to setup summary broker", err)
			return nil, err
		}
		publisher = broker
	} else {
		log.Warn(ctx, "rabbitmq disabled, session summaries will not be published")
	}

	sessionService := session.NewService(snapshotRepo, summaryRepo, publisher, txManager, log)

	connHub := ws.NewConnHub(log)
	stream := wshandler.NewTrackerHub(connHub, sessionService, log)

	httpServer, err := server.New(cfg, sessionService, summaryRepo, stream, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		return nil, err
	}

	return &App{
		postgresDB:   postgresDB,
		rabbitClient: rabbitClient,
		connHub:      connHub,
		httpServer:   httpServer,
		cfg:          cfg,
		log:          log,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.httpServer.Run(ctx, errCh)
	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "tracker service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "tracker service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (a *App) close(ctx context.Context) {
	if a.connHub != nil {
		a.connHub.Close()
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if a.rabbitClient != nil {
		if err := a.rabbitClient.Close(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close rabbitmq connection", "error", err.Error())
		}
	}

	if a.postgresDB != nil && a.postgresDB.Pool != nil {
		a.postgresDB.Pool.Close()
	}
}
