package logging

import (
	"bytes"
	"io"
	"net"
	"strconv"

	"github.com/logdyhq/logdy-core/logdy"
	"github.com/rs/zerolog/log"

	"junction-worker-go/internal/config"
)

// logdyWriter hands each zerolog JSON line to the embedded Logdy UI.
type logdyWriter struct {
	ui logdy.Logdy
}

func (w *logdyWriter) Write(p []byte) (int, error) {
	if line := bytes.TrimRight(p, "\r\n"); len(line) > 0 {
		w.ui.LogString(string(line))
	}
	return len(p), nil
}

// StartLogdy starts the embedded Logdy web UI on LOGDY_HOST:LOGDY_PORT and
// returns a writer to tee logs into it.
func StartLogdy(cfg *config.Config) (io.Writer, string, error) {
	addr := net.JoinHostPort(cfg.LogdyHost, strconv.Itoa(cfg.LogdyPort))
	ui := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: strconv.Itoa(cfg.LogdyPort),
	}, nil)

	url := "http://" + addr
	log.Info().Str("url", url).Str("worker_id", cfg.WorkerID).Msg("Logdy UI available")
	return &logdyWriter{ui: ui}, url, nil
}
