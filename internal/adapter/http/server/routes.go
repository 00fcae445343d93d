package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System health
	a.mux.HandleFunc("/health", a.routes.health.HealthCheck)

	a.setupSwaggerRoutes()
	a.setupMetricsRoute()
	a.setupSessionRoutes()
}

// setupSessionRoutes setups the session lifecycle routes
func (a *API) setupSessionRoutes() {
	a.mux.Handle("POST /sessions/start", a.m.RequireDevice(a.routes.session.Start))     // Start a new session
	a.mux.Handle("POST /sessions/pause", a.m.RequireDevice(a.routes.session.Pause))     // Pause the active session
	a.mux.Handle("POST /sessions/resume", a.m.RequireDevice(a.routes.session.Resume))   // Resume a paused session
	a.mux.Handle("POST /sessions/end", a.m.RequireDevice(a.routes.session.End))         // End a session and get the summary
	a.mux.Handle("POST /sessions/samples", a.m.RequireDevice(a.routes.session.AddSample)) // Record a location sample
	a.mux.Handle("GET /sessions/live", a.m.RequireDevice(a.routes.session.Live))        // Live metrics for the active session
	a.mux.Handle("GET /sessions/summaries", a.m.RequireDevice(a.routes.session.ListSummaries))

	a.mux.HandleFunc("GET /ws/devices/{device_id}", a.routes.stream.HandleWS) // WebSocket sample stream for devices
}

// setupSwaggerRoutes configures the Swagger UI endpoint
func (a *API) setupSwaggerRoutes() {
	swaggerURL := httpSwagger.InstanceName("tracker")
	a.mux.HandleFunc("/swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func (a *API) setupMetricsRoute() {
	a.mux.Handle("/metrics", promhttp.Handler())
}
