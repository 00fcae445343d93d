package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/stridelab/activity-tracker/internal/domain/models"
	"github.com/stridelab/activity-tracker/internal/domain/types"
	"github.com/stridelab/activity-tracker/pkg/validator"
)

type StartSessionRequest struct {
	Activity string `json:"activity"`
}

func (r *StartSessionRequest) Validate(v *validator.Validator) {
	v.Check(r.Activity != "", "activity", "must be provided")
	switch types.ActivityType(r.Activity) {
	case types.ActivityRun, types.ActivityWalk, types.ActivityRide, types.ActivityHike:
	default:
		v.AddError("activity", "must be one of RUN, WALK, RIDE, HIKE")
	}
}

func (r *StartSessionRequest) ToActivity() types.ActivityType {
	return types.ActivityType(r.Activity)
}

type SampleRequest struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Timestamp *time.Time `json:"timestamp"`
}

func (r *SampleRequest) Validate(v *validator.Validator) {
	if r.Latitude != nil && r.Longitude != nil {
		v.Check(*r.Latitude >= -90 && *r.Latitude <= 90, "latitude", "must be between -90 and 90")
		v.Check(*r.Longitude >= -180 && *r.Longitude <= 180, "longitude", "must be between -180 and 180")
	} else {
		v.Check(r.Latitude != nil, "latitude", "must be provided")
		v.Check(r.Longitude != nil, "longitude", "must be provided")
	}

	v.Check(r.Timestamp != nil && !r.Timestamp.IsZero(), "timestamp", "must be provided")
}

func (r *SampleRequest) ToModel() models.LocationSample {
	return models.LocationSample{
		Location: models.Location{
			Latitude:  *r.Latitude,
			Longitude: *r.Longitude,
		},
		Timestamp: *r.Timestamp,
	}
}

// SessionResponse is the lifecycle view returned by the session endpoints.
// The raw sample track stays server-side; clients read derived metrics.
type SessionResponse struct {
	ID          uuid.UUID `json:"id"`
	Activity    string    `json:"activity"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	SampleCount int       `json:"sample_count"`
	Paused      bool      `json:"paused"`
}

func SessionResponseFromModel(s *models.Session) SessionResponse {
	return SessionResponse{
		ID:          s.ID,
		Activity:    string(s.Activity),
		Status:      s.Status.String(),
		StartedAt:   s.StartedAt,
		SampleCount: len(s.Samples),
		Paused:      s.Status == types.StatusPaused,
	}
}
