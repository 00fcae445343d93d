package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/stridelab/activity-tracker/internal/adapter/http/handler/dto"
	"github.com/stridelab/activity-tracker/internal/domain/models"
	"github.com/stridelab/activity-tracker/internal/domain/types"
	"github.com/stridelab/activity-tracker/pkg/logger"
	wrap "github.com/stridelab/activity-tracker/pkg/logger/wrapper"
	"github.com/stridelab/activity-tracker/pkg/validator"
)

type Session struct {
	service SessionService
	history SummaryHistory
	l       logger.Logger
}

type SessionService interface {
	Start(ctx context.Context, deviceID string, activity types.ActivityType) (*models.Session, error)
	Pause(ctx context.Context, deviceID string) (*models.Session, error)
	Resume(ctx context.Context, deviceID string) (*models.Session, error)
	End(ctx context.Context, deviceID string) (models.SessionSummary, error)
	AddSample(ctx context.Context, deviceID string, sample models.LocationSample) (models.LiveMetrics, error)
	Live(ctx context.Context, deviceID string) (models.LiveMetrics, error)
}

type SummaryHistory interface {
	FindByDevice(ctx context.Context, deviceID string, limit int) ([]models.SessionSummary, error)
}

func NewSession(service SessionService, history SummaryHistory, l logger.Logger) *Session {
	return &Session{
		service: service,
		history: history,
		l:       l,
	}
}

// Start godoc
// @Summary      Start a session
// @Description  Begins a new activity session for the authenticated device. Fails when any session is already in progress.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.StartSessionRequest true "Activity type"
// @Success      201  {object}  dto.SessionResponse
// @Failure      409  {object}  map[string]string
// @Router       /sessions/start [post]
func (h *Session) Start(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "start_session")

	var req dto.StartSessionRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	sess, err := h.service.Start(ctx, deviceID(r), req.ToActivity())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to start session", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{"session": dto.SessionResponseFromModel(sess)}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// Pause godoc
// @Summary      Pause the session
// @Description  Suspends the running session; paused time is excluded from the active duration.
// @Tags         Sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.SessionResponse
// @Failure      409  {object}  map[string]string
// @Router       /sessions/pause [post]
func (h *Session) Pause(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "pause_session")

	sess, err := h.service.Pause(ctx, deviceID(r))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to pause session", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{"session": dto.SessionResponseFromModel(sess)}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// Resume godoc
// @Summary      Resume the session
// @Description  Continues a paused session.
// @Tags         Sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.SessionResponse
// @Failure      409  {object}  map[string]string
// @Router       /sessions/resume [post]
func (h *Session) Resume(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "resume_session")

	sess, err := h.service.Resume(ctx, deviceID(r))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to resume session", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{"session": dto.SessionResponseFromModel(sess)}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// End godoc
// @Summary      End the session
// @Description  Finalizes the session and returns its immutable summary. Safe to retry when the previous attempt failed to persist.
// @Tags         Sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.SessionSummary
// @Failure      409  {object}  map[string]string
// @Router       /sessions/end [post]
func (h *Session) End(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "end_session")

	summary, err := h.service.End(ctx, deviceID(r))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to end session", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{"summary": summary}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// AddSample godoc
// @Summary      Ingest a location sample
// @Description  Appends one GPS fix to the running session and returns the updated live metrics.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.SampleRequest true "GPS fix"
// @Success      200  {object}  models.LiveMetrics
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /sessions/samples [post]
func (h *Session) AddSample(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "add_sample")

	var req dto.SampleRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	live, err := h.service.AddSample(ctx, deviceID(r), req.ToModel())
	if err != nil {
		// Rejected samples are expected noise, not server faults.
		h.l.Warn(ctx, "sample rejected", "reason", err.Error())
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{"metrics": live}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// Live godoc
// @Summary      Live metrics
// @Description  Returns the current distance and active duration of the in-progress session. Valid while running or paused.
// @Tags         Sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.LiveMetrics
// @Failure      404  {object}  map[string]string
// @Router       /sessions/live [get]
func (h *Session) Live(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "live_metrics")

	live, err := h.service.Live(ctx, deviceID(r))
	if err != nil {
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{"metrics": live}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// ListSummaries godoc
// @Summary      Past session summaries
// @Description  Returns the device's completed session summaries, newest first.
// @Tags         Sessions
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Maximum rows to return (default 20, max 100)"
// @Success      200  {array}  models.SessionSummary
// @Router       /sessions/summaries [get]
func (h *Session) ListSummaries(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_summaries")

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			badRequestResponse(w, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	summaries, err := h.history.FindByDevice(ctx, deviceID(r), limit)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list summaries", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{"summaries": summaries}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// deviceID returns the authenticated device id; the auth middleware
// guarantees it is present on protected routes.
func deviceID(r *http.Request) string {
	if d := models.DeviceFromContext(r.Context()); d != nil {
		return d.ID
	}
	return ""
}
