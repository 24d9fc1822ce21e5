// Package config loads every pipeline tunable from the environment.
//
// A .env file in the working directory is honoured when present so local
// runs can keep their settings next to the data roots. All values have
// defaults; nothing is read from positional arguments.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Receiver holds the archive-landing daemon settings.
type Receiver struct {
	IncomingDir   string        // where camera ZIP uploads arrive
	ProcessedDir  string        // where extracted batch directories are published
	QuietPeriod   time.Duration // archive mtime must be at least this old
	ScanInterval  time.Duration // sleep between incoming-directory scans
}

// Worker holds the detection/classification loop settings.
type Worker struct {
	DataRoot     string        // root of batch directories to scan
	EventsRoot   string        // where batches with detections are moved
	LogsRoot     string        // daily CSV result logs
	StatePath    string        // persisted processing state (JSON)
	ScanInterval time.Duration // sleep between polling cycles
	StableWindow time.Duration // batch quiet time before it is considered ready
	MinImages    int           // minimum image count before a batch is scanned

	InferenceURL string  // HTTP inference sidecar endpoint
	TargetLabel  string  // class label that counts as a detection
	Threshold    float64 // minimum score passed to the classifier

	UploadMode     string        // "helper", "s3" or "off"
	UploadHelper   string        // external helper executable (helper mode)
	UploadEndpoint string        // endpoint argument passed to the helper
	UploadBucket   string        // destination bucket (s3 mode)
	UploadPrefix   string        // key prefix under the bucket (s3 mode)
	UploadRetries  int           // attempts per image before giving up
	UploadBackoff  time.Duration // initial backoff between attempts
	UploadMaxDim   int           // >0: upload a downscaled rendition instead of the original
	MarkSuffix     string        // sidecar suffix recording a completed upload
}

// LoadReceiver reads receiver configuration from the environment.
func LoadReceiver() Receiver {
	loadDotenv()
	return Receiver{
		IncomingDir:  getEnv("INCOMING_DIR", "/data/cam_uploads/incoming"),
		ProcessedDir: getEnv("PROCESSED_DIR", "/data/cam_uploads/processed"),
		QuietPeriod:  getEnvDuration("QUIET_PERIOD", 15*time.Second),
		ScanInterval: getEnvDuration("SCAN_INTERVAL", 10*time.Second),
	}
}

// LoadWorker reads worker configuration from the environment.
func LoadWorker() Worker {
	loadDotenv()
	return Worker{
		DataRoot:     getEnv("DATA_ROOT", "/data/cam_uploads/processed"),
		EventsRoot:   getEnv("EVENTS_ROOT", "/data/events"),
		LogsRoot:     getEnv("LOGS_ROOT", "/data/logs"),
		StatePath:    getEnv("STATE_PATH", "/data/logs/worker_state.json"),
		ScanInterval: getEnvDuration("SLEEP_SEC", 10*time.Second),
		StableWindow: getEnvDuration("STABLE_SEC", 15*time.Second),
		MinImages:    getEnvInt("MIN_IMAGES", 1),

		InferenceURL: getEnv("INFERENCE_URL", "http://localhost:5000/predict"),
		TargetLabel:  getEnv("TARGET_LABEL", "person"),
		Threshold:    getEnvFloat("THRESHOLD", 0.3),

		UploadMode:     getEnv("UPLOAD_MODE", "off"),
		UploadHelper:   getEnv("UPLOAD_HELPER", "/usr/local/bin/event_upload"),
		UploadEndpoint: getEnv("UPLOAD_ENDPOINT", ""),
		UploadBucket:   getEnv("UPLOAD_BUCKET", ""),
		UploadPrefix:   getEnv("UPLOAD_PREFIX", "events"),
		UploadRetries:  getEnvInt("UPLOAD_RETRIES", 3),
		UploadBackoff:  getEnvDuration("UPLOAD_BACKOFF", 2*time.Second),
		UploadMaxDim:   getEnvInt("UPLOAD_MAX_DIM", 0),
		MarkSuffix:     getEnv("MARK_SUFFIX", ".uploaded"),
	}
}

func loadDotenv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer environment value")
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric environment value")
	}
	return defaultValue
}

// getEnvDuration parses either a Go duration ("15s", "2m") or a bare number
// of seconds, matching the camera side which exports plain second counts.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", value).Msg("Ignoring unparseable duration value")
	return defaultValue
}
