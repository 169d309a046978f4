package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	WorkerID  string
	startedAt time.Time
	state     StateReader
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(workerID string, state StateReader) *SystemHandler {
	return &SystemHandler{
		WorkerID:  workerID,
		startedAt: time.Now(),
		state:     state,
	}
}

// @Summary Get system stats
// @Description Runtime statistics of the worker process and its frame loop
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := gin.H{
		"worker_id":  h.WorkerID,
		"uptime":     time.Since(h.startedAt).Round(time.Second).String(),
		"memory_mb":  m.Alloc / 1024 / 1024,
		"cpu_cores":  runtime.NumCPU(),
		"goroutines": runtime.NumGoroutine(),
		"go_version": runtime.Version(),
	}
	if snap := h.state.Snapshot(); snap != nil {
		stats["session_id"] = snap.SessionID
		stats["frames"] = snap.FrameCount
		stats["fps"] = snap.FPS
		stats["tracked_objects"] = snap.TrackedObjects
		stats["skipped_detections"] = snap.SkippedDetections
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"stats":     stats,
		"timestamp": time.Now().Unix(),
	})
}
