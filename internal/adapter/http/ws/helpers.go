package wshandler

import (
	ws "github.com/stridelab/activity-tracker/pkg/wshub"
)

type errFrame struct {
	Type  string `json:"type"` // always "error"
	Error string `json:"error"`
}

// errorFrame reports a rejected frame to the device without closing the
// stream. Delivery is best effort: a dead connection is caught by Listen.
func errorFrame(conn *ws.Conn, message string) {
	_ = conn.Send(errFrame{
		Type:  "error",
		Error: message,
	})
}
