package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed pipeline.yaml
var pipelineYAML []byte

type Config struct {
	Storage  StorageConfig
	Camera   CameraConfig
	Pipeline PipelineConfig
	Roster   RosterConfig
	Database DatabaseConfig
	Speech   SpeechConfig
}

type StorageConfig struct {
	DataDir    string
	SamplesDir string // root of batch_<B>/department_<D>/student_<S> sample directories
	ModelPath  string // OpenCV LBPH recognizer state (YAML)
	LabelsPath string // identity key -> label map (JSON)
	LedgerPath string // append-only attendance CSV
}

type CameraConfig struct {
	Device      string // camera index, device path, or "dir:<path>" to replay JPEG files
	CascadePath string // Haar cascade XML used for face detection
}

type PipelineConfig struct {
	SamplesPerSession    int           `yaml:"samples_per_session"`
	CaptureThrottle      time.Duration `yaml:"capture_throttle"`
	RecognitionThreshold float64       `yaml:"recognition_threshold"`
	FaceSize             int           `yaml:"face_size"`
	JPEGQuality          int           `yaml:"jpeg_quality"`
	LBPH                 LBPHConfig    `yaml:"lbph"`
}

type LBPHConfig struct {
	Radius    int `yaml:"radius"`
	Neighbors int `yaml:"neighbors"`
}

type RosterConfig struct {
	DatabaseURL string // MariaDB DSN holding batches, departments and students
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (attendance mirror and training history)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type SpeechConfig struct {
	Enabled bool
	Command string // executable receiving the phrase as its last argument
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString returns the env var or the default when it is unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envBool parses true/false style values, falling back to the default.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return b
}

// DefaultPipeline returns the pipeline tunables embedded in the binary.
func DefaultPipeline() PipelineConfig {
	var p PipelineConfig
	if err := yaml.Unmarshal(pipelineYAML, &p); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded pipeline.yaml: " + err.Error())
	}
	return p
}

func Load() *Config {
	pipeline := DefaultPipeline()
	pipeline.SamplesPerSession = envInt("SAMPLES_PER_SESSION", pipeline.SamplesPerSession)
	pipeline.RecognitionThreshold = envFloat("RECOGNITION_THRESHOLD", pipeline.RecognitionThreshold)

	dataDir := envString("DATA_DIR", "./data")

	return &Config{
		Storage: StorageConfig{
			DataDir:    dataDir,
			SamplesDir: envString("SAMPLES_DIR", filepath.Join(dataDir, "students_faces")),
			ModelPath:  envString("MODEL_PATH", filepath.Join(dataDir, "train_model.yml")),
			LabelsPath: envString("LABELS_PATH", filepath.Join(dataDir, "model_labels.json")),
			LedgerPath: envString("LEDGER_PATH", filepath.Join(dataDir, "attendance.csv")),
		},
		Camera: CameraConfig{
			Device:      envString("CAMERA_DEVICE", "0"),
			CascadePath: envString("CASCADE_PATH", "haarcascade_frontalface_default.xml"),
		},
		Pipeline: pipeline,
		Roster: RosterConfig{
			DatabaseURL: os.Getenv("ROSTER_DATABASE_URL"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Speech: SpeechConfig{
			Enabled: envBool("TTS_ENABLED", true),
			Command: envString("TTS_COMMAND", "espeak"),
		},
	}
}
