package wshub

import (
	"context"
	"errors"
	"sync"

	"github.com/stridelab/activity-tracker/pkg/logger"
	wrap "github.com/stridelab/activity-tracker/pkg/logger/wrapper"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub keeps every active device websocket connection.
type ConnectionHub struct {
	clients map[string]*Conn
	l       logger.Logger
	mu      sync.Mutex
	wg      sync.WaitGroup
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[string]*Conn),
		l:       l,
	}
}

// Add registers a new connection. An existing connection for the same device
// is closed and replaced: one device, one stream. The replaced handler stays
// responsible for calling Remove with its own conn.
func (h *ConnectionHub) Add(newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "add_ws_connection")

	if existing, ok := h.clients[newConn.deviceID]; ok {
		h.l.Warn(ctx,
			"replacing existing connection",
			"device_id", existing.deviceID,
		)
		if err := existing.Close(); err != nil {
			h.l.Warn(ctx,
				"failed to close existing conn",
				"device_id", existing.deviceID,
				"err", err.Error(),
			)
		}
	}

	h.clients[newConn.deviceID] = newConn
	h.wg.Add(1)

	return nil
}

// Remove closes the connection and releases its hub slot. The map entry is
// dropped only when it still holds this exact conn: after a replacement the
// stale handler's Remove must not take down the new stream. Every successful
// Add is paired with exactly one Remove.
func (h *ConnectionHub) Remove(conn *Conn) {
	if conn == nil {
		return
	}

	h.mu.Lock()
	if current, ok := h.clients[conn.deviceID]; ok && current == conn {
		delete(h.clients, conn.deviceID)
	}
	h.mu.Unlock()

	// Usually already closed by the peer, a replacement, or hub shutdown.
	if err := conn.Close(); err != nil {
		ctx := wrap.WithAction(context.Background(), "ws_connection_remove")
		h.l.Debug(ctx,
			"conn close on remove",
			"device_id", conn.deviceID,
			"err", err.Error(),
		)
	}

	h.wg.Done()
}

// SendTo delivers a message to one device.
// Returns ErrConnIsNotFound when the device has no open connection.
func (h *ConnectionHub) SendTo(deviceID string, msg any) error {
	h.mu.Lock()
	conn, ok := h.clients[deviceID]
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}
	return conn.Send(msg)
}

// Close shuts every websocket connection down and waits for the handlers to
// release their slots via Remove.
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.Close(); err != nil {
			h.l.Warn(ctx,
				"failed to close conn",
				"device_id", c.deviceID,
				"err", err.Error(),
			)
		}
	}

	h.wg.Wait()

	h.l.Info(ctx, "all websocket connections closed gracefully")
}
