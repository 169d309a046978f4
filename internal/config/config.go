package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"junction-worker-go/internal/signals"
	"junction-worker-go/internal/zones"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	CameraID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// NATS (for detections in and records out)
	// Default: nats://localhost:4222 (works with Docker Compose setup)
	// Docker: Use nats://nats:4222 if running worker in Docker
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration // For graceful shutdown

	DetectionsSubject string
	StatsSubject      string
	EventsSubject     string
	SnapshotSubject   string

	// Frame source: "nats" or "file"
	Source      string
	ReplayFile  string
	ReplaySpeed float64
	FrameBuffer int
	ZonesFile   string
	DBPath      string
	FlowWindow  time.Duration

	// Tracker
	VehicleClasses      []int
	TrackerIoUThreshold float64
	TrackerTimeout      time.Duration

	// Zones
	CountCooldown        time.Duration
	StallWindow          time.Duration
	StallMinVehicles     int
	StallMaxChurn        int
	StatsWindow          time.Duration
	CongestionSumMedium  int
	CongestionSumHigh    int
	CongestionCountMed   int
	CongestionCountHigh  int
	CongestionWarnMember int

	// Signals
	SignalInitialDwell      time.Duration
	SignalStallDebounce     time.Duration
	SignalZoneDebounce      time.Duration
	SignalReleaseDebounce   time.Duration
	SignalAutoCheckInterval time.Duration
	DwellLowDemand          int
	DwellHighDemand         int
	DwellLow                time.Duration
	DwellMedium             time.Duration
	DwellHigh               time.Duration
	DwellPerVehicle         time.Duration
	DwellMaxExtra           time.Duration
	DwellMin                time.Duration
	DwellMax                time.Duration
	AutoMode                bool

	// Pipeline
	StatsInterval     time.Duration
	SampleEveryFrames int

	// gRPC health
	GRPCPort int

	// Swagger Configuration
	SwaggerHost string
	SwaggerPort int

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	zd := zones.DefaultConfig()
	sd := signals.DefaultConfig()

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "junction-1"),
		CameraID:    getEnv("CAMERA_ID", "camera-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// NATS (configured for Docker Compose setup)
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),

		DetectionsSubject: getEnv("DETECTIONS_SUBJECT", "junction.detections"),
		StatsSubject:      getEnv("STATS_SUBJECT", "junction.stats"),
		EventsSubject:     getEnv("EVENTS_SUBJECT", "junction.signals"),
		SnapshotSubject:   getEnv("SNAPSHOT_SUBJECT", "junction.snapshot"),

		Source:      strings.ToLower(getEnv("SOURCE", "file")),
		ReplayFile:  getEnv("REPLAY_FILE", "data/detections.jsonl"),
		ReplaySpeed: getEnvFloat("REPLAY_SPEED", 1),
		FrameBuffer: getEnvInt("FRAME_BUFFER_SIZE", 64),
		ZonesFile:   getEnv("ZONES_FILE", "config/zones.json"),
		DBPath:      getEnv("DB_PATH", "data/junction.db"),
		FlowWindow:  getEnvDuration("FLOW_WINDOW", time.Minute),

		// Tracker
		VehicleClasses:      getEnvIntList("VEHICLE_CLASSES", nil),
		TrackerIoUThreshold: getEnvFloat("TRACKER_IOU_THRESHOLD", 0.3),
		TrackerTimeout:      getEnvDuration("TRACKER_TIMEOUT", 5*time.Second),

		// Zones
		CountCooldown:        getEnvDuration("COUNT_COOLDOWN", zd.CountCooldown),
		StallWindow:          getEnvDuration("STALL_WINDOW", zd.StallWindow),
		StallMinVehicles:     getEnvInt("STALL_MIN_VEHICLES", zd.StallMinVehicles),
		StallMaxChurn:        getEnvInt("STALL_MAX_CHURN", zd.MaxChurnThreshold),
		StatsWindow:          getEnvDuration("STATS_WINDOW", zd.StatsWindow),
		CongestionSumMedium:  getEnvInt("CONGESTION_SUM_MEDIUM", zd.Congestion.SumMedium),
		CongestionSumHigh:    getEnvInt("CONGESTION_SUM_HIGH", zd.Congestion.SumHigh),
		CongestionCountMed:   getEnvInt("CONGESTION_COUNT_MEDIUM", zd.Congestion.CountMedium),
		CongestionCountHigh:  getEnvInt("CONGESTION_COUNT_HIGH", zd.Congestion.CountHigh),
		CongestionWarnMember: getEnvInt("CONGESTION_WARN_MEMBERS", zd.WarnMembers),

		// Signals
		SignalInitialDwell:      getEnvDuration("SIGNAL_INITIAL_DWELL", sd.InitialDwell),
		SignalStallDebounce:     getEnvDuration("SIGNAL_STALL_DEBOUNCE", sd.StallDebounce),
		SignalZoneDebounce:      getEnvDuration("SIGNAL_ZONE_DEBOUNCE", sd.ZoneDebounce),
		SignalReleaseDebounce:   getEnvDuration("SIGNAL_RELEASE_DEBOUNCE", sd.ReleaseDebounce),
		SignalAutoCheckInterval: getEnvDuration("SIGNAL_AUTO_CHECK_INTERVAL", sd.AutoCheckInterval),
		DwellLowDemand:          getEnvInt("DWELL_LOW_DEMAND", sd.Dwell.LowDemand),
		DwellHighDemand:         getEnvInt("DWELL_HIGH_DEMAND", sd.Dwell.HighDemand),
		DwellLow:                getEnvDuration("DWELL_LOW", sd.Dwell.Low),
		DwellMedium:             getEnvDuration("DWELL_MEDIUM", sd.Dwell.Medium),
		DwellHigh:               getEnvDuration("DWELL_HIGH", sd.Dwell.High),
		DwellPerVehicle:         getEnvDuration("DWELL_PER_VEHICLE", sd.Dwell.PerVehicle),
		DwellMaxExtra:           getEnvDuration("DWELL_MAX_EXTRA", sd.Dwell.MaxExtra),
		DwellMin:                getEnvDuration("DWELL_MIN", sd.Dwell.Min),
		DwellMax:                getEnvDuration("DWELL_MAX", sd.Dwell.Max),
		AutoMode:                getEnvBool("AUTO_MODE", sd.AutoMode),

		// Pipeline
		StatsInterval:     getEnvDuration("STATS_INTERVAL", 5*time.Second),
		SampleEveryFrames: getEnvInt("SAMPLE_EVERY_FRAMES", 30),

		GRPCPort: getEnvInt("GRPC_PORT", 50051),

		// Swagger Configuration
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost"),
		SwaggerPort: getEnvInt("SWAGGER_PORT", 8000),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// ZoneSettings returns the zone manager thresholds.
func (c *Config) ZoneSettings() zones.Config {
	return zones.Config{
		CountCooldown:     c.CountCooldown,
		StallWindow:       c.StallWindow,
		StallMinVehicles:  c.StallMinVehicles,
		MaxChurnThreshold: c.StallMaxChurn,
		StatsWindow:       c.StatsWindow,
		Congestion: zones.CongestionThresholds{
			SumMedium:   c.CongestionSumMedium,
			SumHigh:     c.CongestionSumHigh,
			CountMedium: c.CongestionCountMed,
			CountHigh:   c.CongestionCountHigh,
		},
		WarnMembers: c.CongestionWarnMember,
	}
}

// SignalSettings returns the controller timings.
func (c *Config) SignalSettings() signals.Config {
	return signals.Config{
		InitialDwell:      c.SignalInitialDwell,
		StallDebounce:     c.SignalStallDebounce,
		ZoneDebounce:      c.SignalZoneDebounce,
		ReleaseDebounce:   c.SignalReleaseDebounce,
		AutoCheckInterval: c.SignalAutoCheckInterval,
		Dwell: signals.DwellPolicy{
			LowDemand:  c.DwellLowDemand,
			HighDemand: c.DwellHighDemand,
			Low:        c.DwellLow,
			Medium:     c.DwellMedium,
			High:       c.DwellHigh,
			PerVehicle: c.DwellPerVehicle,
			MaxExtra:   c.DwellMaxExtra,
			Min:        c.DwellMin,
			Max:        c.DwellMax,
		},
		AutoMode: c.AutoMode,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvIntList parses a comma separated list; any bad entry falls back to the default.
func getEnvIntList(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parsed, err := strconv.Atoi(part)
		if err != nil {
			log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer list, using default")
			return defaultValue
		}
		out = append(out, parsed)
	}
	return out
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
