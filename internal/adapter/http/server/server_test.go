package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/stridelab/activity-tracker/config"
	wshandler "github.com/stridelab/activity-tracker/internal/adapter/http/ws"
	"github.com/stridelab/activity-tracker/internal/domain/models"
	"github.com/stridelab/activity-tracker/internal/domain/types"
	"github.com/stridelab/activity-tracker/pkg/logger"
	ws "github.com/stridelab/activity-tracker/pkg/wshub"
)

const testJWTSecret = "test-secret"

// fakeTrackerService satisfies the session service ports of the handler and
// the device stream; the tests here exercise transport, not session logic.
type fakeTrackerService struct {
	samples int
}

func (f *fakeTrackerService) Start(_ context.Context, _ string, _ types.ActivityType) (*models.Session, error) {
	return &models.Session{}, nil
}

func (f *fakeTrackerService) Pause(_ context.Context, _ string) (*models.Session, error) {
	return &models.Session{}, nil
}

func (f *fakeTrackerService) Resume(_ context.Context, _ string) (*models.Session, error) {
	return &models.Session{}, nil
}

func (f *fakeTrackerService) End(_ context.Context, _ string) (models.SessionSummary, error) {
	return models.SessionSummary{}, nil
}

func (f *fakeTrackerService) AddSample(_ context.Context, _ string, _ models.LocationSample) (models.LiveMetrics, error) {
	f.samples++
	return models.LiveMetrics{Status: types.StatusRunning, SampleCount: f.samples}, nil
}

func (f *fakeTrackerService) Live(_ context.Context, _ string) (models.LiveMetrics, error) {
	return models.LiveMetrics{Status: types.StatusRunning, SampleCount: f.samples}, nil
}

type fakeHistory struct{}

func (fakeHistory) FindByDevice(_ context.Context, _ string, _ int) ([]models.SessionSummary, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*ws.ConnectionHub, *httptest.Server) {
	t.Helper()

	var cfg config.Config
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Auth.JWTSecret = testJWTSecret

	log := logger.InitLogger("tracker-service-test", logger.LevelError)
	hub := ws.NewConnHub(log)
	svc := &fakeTrackerService{}
	stream := wshandler.NewTrackerHub(hub, svc, log)

	api, err := New(cfg, svc, fakeHistory{}, stream, log)
	if err != nil {
		t.Fatalf("server setup failed: %v", err)
	}

	// The full middleware chain, exactly as Run serves it.
	ts := httptest.NewServer(api.withMiddleware())
	t.Cleanup(ts.Close)

	return hub, ts
}

func deviceToken(t *testing.T, deviceID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"device_id": deviceID,
	}).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("signing token failed: %v", err)
	}
	return token
}

func wsURL(ts *httptest.Server, deviceID string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/devices/" + deviceID
}

func dialDevice(t *testing.T, ts *httptest.Server, deviceID string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+deviceToken(t, deviceID))

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, deviceID), header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial failed: %v (status %d)", err, status)
	}
	return conn
}

// exchangeSample writes one location frame and reads the pushed metrics.
func exchangeSample(t *testing.T, conn *websocket.Conn, lon float64) models.LiveMetricsFrame {
	t.Helper()

	err := conn.WriteJSON(models.SampleFrame{
		Type:      "location_sample",
		Latitude:  0,
		Longitude: lon,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("writing sample frame failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame models.LiveMetricsFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("reading metrics frame failed: %v", err)
	}
	return frame
}

func TestServer_WebsocketUpgradeThroughMiddleware(t *testing.T) {
	_, ts := newTestServer(t)

	conn := dialDevice(t, ts, "device-1")
	defer conn.Close()

	frame := exchangeSample(t, conn, 0.001)
	if frame.Type != "live_metrics" {
		t.Fatalf("expected a live_metrics frame, got %q", frame.Type)
	}
	if frame.Metrics.SampleCount != 1 {
		t.Fatalf("expected 1 sample, got %d", frame.Metrics.SampleCount)
	}
}

func TestServer_WebsocketRejectsBadFrameWithoutClosing(t *testing.T) {
	_, ts := newTestServer(t)

	conn := dialDevice(t, ts, "device-1")
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "telemetry"}); err != nil {
		t.Fatalf("writing frame failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("reading error frame failed: %v", err)
	}
	if reply.Type != "error" {
		t.Fatalf("expected an error frame, got %q", reply.Type)
	}

	// The stream survives the bad frame.
	if frame := exchangeSample(t, conn, 0.001); frame.Type != "live_metrics" {
		t.Fatalf("stream did not survive the rejected frame")
	}
}

func TestServer_WebsocketRequiresDeviceToken(t *testing.T) {
	_, ts := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "device-1"), nil)
	if err == nil {
		t.Fatalf("expected the handshake to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %+v", resp)
	}
}

func TestServer_WebsocketRejectsForeignDevicePath(t *testing.T) {
	_, ts := newTestServer(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+deviceToken(t, "device-1"))

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "device-2"), header)
	if err == nil {
		t.Fatalf("expected the handshake to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status 403, got %+v", resp)
	}
}

func TestServer_WebsocketReconnectReplacesStream(t *testing.T) {
	hub, ts := newTestServer(t)

	first := dialDevice(t, ts, "device-1")
	defer first.Close()

	// An exchange proves the first handler is registered and listening
	// before the reconnect races it.
	exchangeSample(t, first, 0.001)

	second := dialDevice(t, ts, "device-1")
	defer second.Close()

	// The replaced stream is shut by the server.
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatalf("expected the replaced stream to be closed")
	}

	// The replacement keeps working.
	if frame := exchangeSample(t, second, 0.002); frame.Type != "live_metrics" {
		t.Fatalf("replacement stream is dead")
	}

	if err := second.Close(); err != nil {
		t.Fatalf("closing second conn failed: %v", err)
	}

	// With every handler slot released, shutdown must not block.
	done := make(chan struct{})
	go func() {
		hub.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub close blocked after reconnect")
	}
}
