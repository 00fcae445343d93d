package wshandler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/stridelab/activity-tracker/internal/domain/models"
	"github.com/stridelab/activity-tracker/pkg/logger"
	wrap "github.com/stridelab/activity-tracker/pkg/logger/wrapper"
	"github.com/stridelab/activity-tracker/pkg/metrics"
	ws "github.com/stridelab/activity-tracker/pkg/wshub"
)

const serviceName = "tracker-service"

// SampleSink is the slice of the session service the stream needs.
type SampleSink interface {
	AddSample(ctx context.Context, deviceID string, sample models.LocationSample) (models.LiveMetrics, error)
}

// TrackerHub owns the device streams: inbound location_sample frames feed the
// session service, and the recomputed live metrics are pushed straight back.
// This is the tick → recompute → render contract over one socket.
type TrackerHub struct {
	connections *ws.ConnectionHub
	service     SampleSink

	upgrader websocket.Upgrader
	l        logger.Logger
}

func NewTrackerHub(connHub *ws.ConnectionHub, service SampleSink, l logger.Logger) *TrackerHub {
	return &TrackerHub{
		connections: connHub,
		service:     service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Device clients, not browsers; no origin allowlist.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		l: l,
	}
}

// HandleWS upgrades the connection and pumps frames until the device leaves.
func (h *TrackerHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_device_stream")

	device := models.DeviceFromContext(r.Context())
	if device.IsAnonymous() {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}
	if pathID := r.PathValue("device_id"); pathID != device.ID {
		http.Error(w, "device mismatch", http.StatusForbidden)
		return
	}
	ctx = wrap.WithDeviceID(ctx, device.ID)

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Error(ctx, "failed to upgrade connection", err)
		return
	}

	conn := ws.NewConn(r.Context(), device.ID, wsConn)
	if err := h.connections.Add(conn); err != nil {
		h.l.Error(ctx, "failed to register connection", err)
		_ = wsConn.Close()
		return
	}

	metrics.WebsocketConnectionsGauge.WithLabelValues(serviceName).Inc()
	h.l.Info(ctx, "device stream opened")

	defer func() {
		h.connections.Remove(conn)
		metrics.WebsocketConnectionsGauge.WithLabelValues(serviceName).Dec()
		h.l.Info(ctx, "device stream closed")
	}()

	if err := conn.Listen(func(raw []byte) error {
		h.handleFrame(ctx, conn, raw)
		return nil // a bad frame must not kill the stream
	}); err != nil {
		h.l.Debug(ctx, "listen finished", "reason", err.Error())
	}
}

func (h *TrackerHub) handleFrame(ctx context.Context, conn *ws.Conn, raw []byte) {
	var frame models.SampleFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		errorFrame(conn, "malformed frame: expected a location_sample JSON object")
		return
	}

	if frame.Type != "location_sample" {
		errorFrame(conn, "unsupported frame type: "+frame.Type)
		return
	}

	sample := models.LocationSample{
		Location: models.Location{
			Latitude:  frame.Latitude,
			Longitude: frame.Longitude,
		},
		Timestamp: frame.Timestamp,
	}

	live, err := h.service.AddSample(ctx, conn.DeviceID(), sample)
	if err != nil {
		// Out-of-order and paused-session rejections are reported to the
		// device so it may log or drop the fix; the stream stays up.
		errorFrame(conn, err.Error())
		return
	}

	if err := h.connections.SendTo(conn.DeviceID(), models.LiveMetricsFrame{
		Type:    "live_metrics",
		Metrics: live,
	}); err != nil {
		h.l.Warn(ctx, "failed to push live metrics", "err", err.Error())
	}
}
