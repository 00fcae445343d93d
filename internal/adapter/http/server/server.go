package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stridelab/activity-tracker/config"
	"github.com/stridelab/activity-tracker/internal/adapter/http/handler"
	"github.com/stridelab/activity-tracker/internal/adapter/http/middleware"
	wshandler "github.com/stridelab/activity-tracker/internal/adapter/http/ws"
	"github.com/stridelab/activity-tracker/pkg/logger"
	wrap "github.com/stridelab/activity-tracker/pkg/logger/wrapper"
)

const serviceName = "tracker-service"

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	session *handler.Session
	health  *handler.Health
	stream  *wshandler.TrackerHub
}

func New(
	cfg config.Config,
	sessionService handler.SessionService,
	history handler.SummaryHistory,
	stream *wshandler.TrackerHub,
	log logger.Logger,
) (*API, error) {
	if sessionService == nil {
		return nil, errors.New("session service is required")
	}

	api := &API{
		mux: http.NewServeMux(),
		routes: &handlers{
			session: handler.NewSession(sessionService, history, log),
			health:  handler.NewHealth(serviceName, log),
			stream:  stream,
		},
		m:    middleware.NewMiddleware(cfg.Auth.JWTSecret, log),
		addr: cfg.Server.Addr(),
		cfg:  cfg,
		log:  log,
	}

	api.server = &http.Server{
		Addr:    api.addr,
		Handler: api.withMiddleware(),
	}

	api.setupRoutes()

	return api, nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Logging(a.m.Auth(a.m.Metrics(serviceName)(a.mux)))))
}
