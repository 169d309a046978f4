package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	WorkerID string
	Version  string
	state    StateReader
	ping     func() error
}

// NewHealthHandler creates the health handler. ping, if set, checks storage.
func NewHealthHandler(workerID, version string, state StateReader, ping func() error) *HealthHandler {
	return &HealthHandler{WorkerID: workerID, Version: version, state: state, ping: ping}
}

type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`
	WorkerID  string    `json:"worker_id" example:"junction-1"`
	SessionID string    `json:"session_id,omitempty"`
	Storage   string    `json:"storage" example:"ok"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"junction-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check that the worker is responsive and its storage reachable
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{Status: "healthy", WorkerID: h.WorkerID, Storage: "disabled"}

	if snap := h.state.Snapshot(); snap != nil {
		resp.SessionID = snap.SessionID
		resp.UpdatedAt = snap.UpdatedAt
	}

	status := http.StatusOK
	if h.ping != nil {
		if err := h.ping(); err != nil {
			resp.Status = "degraded"
			resp.Storage = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp.Storage = "ok"
		}
	}

	c.JSON(status, resp)
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.WorkerID,
		Status:   "running",
		Version:  h.Version,
		Capabilities: []string{
			"vehicle_tracking",
			"zone_counting",
			"stall_detection",
			"signal_control",
			"flow_analysis",
		},
	})
}
