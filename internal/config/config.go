// Package config loads service configuration from the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/ayusman/signstream/internal/pipeline"
)

// Config is the full service configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// DBPath is the SQLite database location. Empty selects the default
	// under the user's home directory.
	DBPath string

	// StaticDir serves the browser UI when set.
	StaticDir string

	// InferURL is the base URL of the remote recognition service.
	InferURL string

	// InferTimeout bounds each inference call.
	InferTimeout time.Duration

	// SchemaPath points at the inference_args.json column schema. Empty
	// falls back to the builtin hand schema.
	SchemaPath string

	// Pipeline holds the recognition pipeline tunables.
	Pipeline pipeline.Config
}

// FromEnv builds a Config from SIGNSTREAM_* environment variables,
// falling back to defaults for anything unset.
func FromEnv() Config {
	pc := pipeline.DefaultConfig()
	pc.Mode = pipeline.Mode(envStr("SIGNSTREAM_MODE", string(pc.Mode)))
	pc.Interval = envDurationMs("SIGNSTREAM_INTERVAL_MS", pc.Interval)
	pc.DiscardThreshold = envFloat("SIGNSTREAM_DISCARD_THRESHOLD", pc.DiscardThreshold)
	pc.MidConfidence = envFloat("SIGNSTREAM_MID_CONFIDENCE", pc.MidConfidence)
	pc.HighConfidence = envFloat("SIGNSTREAM_HIGH_CONFIDENCE", pc.HighConfidence)
	pc.RunLength = envInt("SIGNSTREAM_RUN_LENGTH", pc.RunLength)
	pc.MotionThreshold = envFloat("SIGNSTREAM_MOTION_THRESHOLD", pc.MotionThreshold)
	pc.BufferCapacity = envInt("SIGNSTREAM_BUFFER_CAPACITY", pc.BufferCapacity)
	pc.SourceWidth = envInt("SIGNSTREAM_SOURCE_WIDTH", pc.SourceWidth)
	pc.SourceHeight = envInt("SIGNSTREAM_SOURCE_HEIGHT", pc.SourceHeight)

	return Config{
		Addr:         envStr("SIGNSTREAM_ADDR", ":8080"),
		DBPath:       envStr("SIGNSTREAM_DB", ""),
		StaticDir:    envStr("SIGNSTREAM_STATIC_DIR", ""),
		InferURL:     envStr("SIGNSTREAM_INFER_URL", "http://localhost:8000"),
		InferTimeout: envDurationMs("SIGNSTREAM_INFER_TIMEOUT_MS", 5*time.Second),
		SchemaPath:   envStr("SIGNSTREAM_SCHEMA", ""),
		Pipeline:     pc,
	}
}

// Setting keys recognized by ApplyStored. The settings API persists
// values under these names; anything else stored there is UI state and
// is left alone.
const (
	SettingMode            = "mode"
	SettingIntervalMs      = "interval_ms"
	SettingDiscardThresh   = "discard_threshold"
	SettingMidConfidence   = "mid_confidence"
	SettingHighConfidence  = "high_confidence"
	SettingRunLength       = "run_length"
	SettingMotionThreshold = "motion_threshold"
	SettingBufferCapacity  = "buffer_capacity"
)

// ApplyStored overlays settings persisted through the settings API onto
// cfg. Stored values win over the environment: they are the UI's tuning,
// saved across restarts. Unparseable values keep the current value.
func ApplyStored(cfg Config, stored map[string]string) Config {
	pc := &cfg.Pipeline
	for key, value := range stored {
		switch key {
		case SettingMode:
			pc.Mode = pipeline.Mode(value)
		case SettingIntervalMs:
			pc.Interval = parseDurationMs(key, value, pc.Interval)
		case SettingDiscardThresh:
			pc.DiscardThreshold = parseFloat(key, value, pc.DiscardThreshold)
		case SettingMidConfidence:
			pc.MidConfidence = parseFloat(key, value, pc.MidConfidence)
		case SettingHighConfidence:
			pc.HighConfidence = parseFloat(key, value, pc.HighConfidence)
		case SettingRunLength:
			pc.RunLength = parseInt(key, value, pc.RunLength)
		case SettingMotionThreshold:
			pc.MotionThreshold = parseFloat(key, value, pc.MotionThreshold)
		case SettingBufferCapacity:
			pc.BufferCapacity = parseInt(key, value, pc.BufferCapacity)
		}
	}
	return cfg
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return parseInt(key, v, fallback)
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return parseFloat(key, v, fallback)
}

func envDurationMs(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return parseDurationMs(key, v, fallback)
}

func parseInt(key, v string, fallback int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return n
}

func parseFloat(key, v string, fallback float64) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return f
}

func parseDurationMs(key, v string, fallback time.Duration) time.Duration {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return time.Duration(n) * time.Millisecond
}
