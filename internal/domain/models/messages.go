package models

import (
	"time"

	"github.com/google/uuid"
)

/* ======================= rabbitmq ======================= */

// SummaryCompletedMessage is published to the summary exchange when a session
// ends and its summary has been durably stored. Consumers (analytics,
// leaderboards) derive their own scores from the raw figures.
type SummaryCompletedMessage struct {
	SessionID               uuid.UUID `json:"session_id"`
	DeviceID                string    `json:"device_id"`
	Activity                string    `json:"activity"`
	StartedAt               time.Time `json:"started_at"`
	EndedAt                 time.Time `json:"ended_at"`
	TotalDistanceMeters     float64   `json:"total_distance_meters"`
	ActiveDurationSeconds   float64   `json:"active_duration_seconds"`
	AveragePaceSecondsPerKm Pace      `json:"average_pace_seconds_per_km"`
	SampleCount             int       `json:"sample_count"`
	CorrelationID           string    `json:"correlation_id"`
}

/* ======================= websocket ======================= */

// SampleFrame is one inbound websocket frame from the device.
type SampleFrame struct {
	Type      string    `json:"type"` // expected: "location_sample"
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// LiveMetricsFrame is pushed back to subscribers after each accepted sample.
type LiveMetricsFrame struct {
	Type    string      `json:"type"` // always "live_metrics"
	Metrics LiveMetrics `json:"metrics"`
}
