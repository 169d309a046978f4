package handlers

import (
	"context"
	"time"

	"junction-worker-go/internal/models"
)

type ErrorResponse struct {
	Error string `json:"error" example:"zone not found"`
}

type SuccessResponse struct {
	Message string `json:"message" example:"ok"`
}

// StateReader returns the latest published pipeline state.
type StateReader interface {
	Snapshot() *models.Snapshot
}

// SignalCommander forwards signal mutations to the pipeline loop.
type SignalCommander interface {
	ToggleAutoMode(ctx context.Context) (bool, error)
	SetSignalState(ctx context.Context, id string, state models.SignalState) (bool, error)
}

// History reads persisted records.
type History interface {
	LatestStatistics(ctx context.Context, sessionID string) ([]models.ZoneStatistics, error)
	SignalEvents(ctx context.Context, sessionID string, limit int) ([]models.SignalEvent, error)
	Samples(ctx context.Context, zoneID int, since time.Time) ([]models.ZoneSample, error)
}
