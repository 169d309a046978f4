package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"junction-worker-go/internal/logging"
	"junction-worker-go/internal/models"
	"junction-worker-go/internal/signals"
)

const commandTimeout = 2 * time.Second

type SignalHandler struct {
	state    StateReader
	commands SignalCommander
	history  History
}

func NewSignalHandler(state StateReader, commands SignalCommander, history History) *SignalHandler {
	return &SignalHandler{state: state, commands: commands, history: history}
}

type SignalsResponse struct {
	AutoMode bool                    `json:"auto_mode"`
	Signals  []models.SignalSnapshot `json:"signals"`
}

type AutoModeResponse struct {
	AutoMode bool `json:"auto_mode"`
}

type SetStateRequest struct {
	State string `json:"state" binding:"required" example:"RED"`
}

type SetStateResponse struct {
	ID      string             `json:"id"`
	State   models.SignalState `json:"state"`
	Changed bool               `json:"changed"`
}

// @Summary List signals
// @Description State, dwell and time since change of all twelve signals
// @Tags signals
// @Produce json
// @Success 200 {object} SignalsResponse
// @Router /signals [get]
func (h *SignalHandler) ListSignals(c *gin.Context) {
	snap := h.state.Snapshot()
	c.JSON(http.StatusOK, SignalsResponse{AutoMode: snap.AutoMode, Signals: snap.Signals})
}

// @Summary Toggle auto mode
// @Description Toggle automatic release of red signals
// @Tags signals
// @Produce json
// @Success 200 {object} AutoModeResponse
// @Failure 503 {object} ErrorResponse
// @Router /signals/auto-mode [post]
func (h *SignalHandler) ToggleAutoMode(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	autoMode, err := h.commands.ToggleAutoMode(ctx)
	if err != nil {
		logging.Warn(c).Err(err).Msg("Auto mode toggle not executed")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Bool("auto_mode", autoMode).Msg("Auto mode toggled")
	c.JSON(http.StatusOK, AutoModeResponse{AutoMode: autoMode})
}

// @Summary Set signal state
// @Description Manually switch a signal to RED, GREEN or IDLE
// @Tags signals
// @Accept json
// @Produce json
// @Param id path string true "Signal ID" example(West_Straight)
// @Param request body SetStateRequest true "Target state"
// @Success 200 {object} SetStateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /signals/{id}/state [post]
func (h *SignalHandler) SetSignalState(c *gin.Context) {
	id := c.Param("id")

	var req SetStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	state := models.SignalState(strings.ToUpper(strings.TrimSpace(req.State)))
	if !state.IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "state must be RED, GREEN or IDLE"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	changed, err := h.commands.SetSignalState(ctx, id, state)
	switch {
	case errors.Is(err, signals.ErrUnknownSignal):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		logging.Warn(c).Err(err).Str("signal_id", id).Msg("Signal command not executed")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Str("signal_id", id).Str("state", string(state)).Bool("changed", changed).Msg("Signal set manually")
	c.JSON(http.StatusOK, SetStateResponse{ID: id, State: state, Changed: changed})
}

// @Summary Signal events
// @Description Stored signal transitions of this session, oldest first
// @Tags signals
// @Produce json
// @Param limit query int false "Maximum number of events" default(100)
// @Success 200 {array} models.SignalEvent
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /signals/events [get]
func (h *SignalHandler) ListEvents(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "storage is disabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
		return
	}

	events, err := h.history.SignalEvents(c.Request.Context(), h.state.Snapshot().SessionID, limit)
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to load signal events")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load signal events"})
		return
	}
	if events == nil {
		events = []models.SignalEvent{}
	}
	c.JSON(http.StatusOK, events)
}
