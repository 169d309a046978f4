package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"junction-worker-go/internal/analysis"
	"junction-worker-go/internal/logging"
	"junction-worker-go/internal/models"
)

type ZoneHandler struct {
	state   StateReader
	history History
	flow    analysis.FlowConfig
	now     func() time.Time
}

// NewZoneHandler creates the zone handler. history may be nil when storage is
// disabled; the flow endpoint then answers 503.
func NewZoneHandler(state StateReader, history History, flow analysis.FlowConfig) *ZoneHandler {
	return &ZoneHandler{state: state, history: history, flow: flow, now: time.Now}
}

type ZonesResponse struct {
	SessionID          string                     `json:"session_id"`
	Zones              []models.ZoneSnapshot      `json:"zones"`
	CongestionWarnings []models.CongestionWarning `json:"congestion_warnings"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

type StatsResponse struct {
	SessionID  string                  `json:"session_id"`
	Source     string                  `json:"source" example:"storage"`
	Statistics []models.ZoneStatistics `json:"statistics"`
}

// @Summary List zones
// @Description Latest snapshot of every zone with its linked signals
// @Tags zones
// @Produce json
// @Success 200 {object} ZonesResponse
// @Router /zones [get]
func (h *ZoneHandler) ListZones(c *gin.Context) {
	snap := h.state.Snapshot()
	c.JSON(http.StatusOK, ZonesResponse{
		SessionID:          snap.SessionID,
		Zones:              snap.Zones,
		CongestionWarnings: snap.CongestionWarnings,
		UpdatedAt:          snap.UpdatedAt,
	})
}

// @Summary Get zone
// @Description Latest snapshot of one zone
// @Tags zones
// @Produce json
// @Param id path int true "Zone ID"
// @Success 200 {object} models.ZoneSnapshot
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /zones/{id} [get]
func (h *ZoneHandler) GetZone(c *gin.Context) {
	zone, ok := h.zone(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, zone)
}

// @Summary Zone traffic flow
// @Description Sliding window flow analysis over the stored samples of a COUNT zone
// @Tags zones
// @Produce json
// @Param id path int true "Zone ID"
// @Param minutes query int false "Look-back in minutes" default(60)
// @Success 200 {object} models.FlowReport
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /zones/{id}/flow [get]
func (h *ZoneHandler) ZoneFlow(c *gin.Context) {
	zone, ok := h.zone(c)
	if !ok {
		return
	}
	if zone.Mode != models.ZoneModeCount {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "flow analysis needs a COUNT zone"})
		return
	}
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "storage is disabled"})
		return
	}

	minutes, err := strconv.Atoi(c.DefaultQuery("minutes", "60"))
	if err != nil || minutes <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "minutes must be a positive integer"})
		return
	}

	since := h.now().Add(-time.Duration(minutes) * time.Minute)
	samples, err := h.history.Samples(c.Request.Context(), zone.ID, since)
	if err != nil {
		logging.Error(c).Err(err).Int("zone_id", zone.ID).Msg("Failed to load zone samples")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load samples"})
		return
	}

	report := analysis.Flow(zone.ID, zone.Name, samples, h.flow)
	logging.Debug(c).
		Int("zone_id", zone.ID).
		Int("samples", len(samples)).
		Int("windows", len(report.Windows)).
		Msg("Flow analysis computed")
	c.JSON(http.StatusOK, report)
}

// @Summary Zone statistics
// @Description Latest statistics record of every zone in this session
// @Tags zones
// @Produce json
// @Success 200 {object} StatsResponse
// @Failure 500 {object} ErrorResponse
// @Router /stats [get]
func (h *ZoneHandler) GetStats(c *gin.Context) {
	snap := h.state.Snapshot()
	resp := StatsResponse{SessionID: snap.SessionID, Source: "snapshot", Statistics: snap.Statistics}

	if h.history != nil {
		stats, err := h.history.LatestStatistics(c.Request.Context(), snap.SessionID)
		if err != nil {
			logging.Error(c).Err(err).Msg("Failed to load statistics")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load statistics"})
			return
		}
		if len(stats) > 0 {
			resp.Source = "storage"
			resp.Statistics = stats
		}
	}

	if resp.Statistics == nil {
		resp.Statistics = []models.ZoneStatistics{}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ZoneHandler) zone(c *gin.Context) (models.ZoneSnapshot, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "zone id must be an integer"})
		return models.ZoneSnapshot{}, false
	}
	zone, ok := h.state.Snapshot().Zone(id)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "zone not found"})
		return models.ZoneSnapshot{}, false
	}
	return zone, true
}
