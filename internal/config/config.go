// Package config loads wandcast settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/wandcast/internal/arbiter"
	"github.com/ayusman/wandcast/internal/gesture"
)

// FileEnv names the environment variable holding the config file path.
const FileEnv = "WANDCAST_CONFIG"

// Server configures the HTTP API and dashboard.
type Server struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr"    env:"ADDR"`
}

// Input selects the wand controller: a replay file, a webcam or neither.
type Input struct {
	Deadzone float64 `yaml:"deadzone" env:"DEADZONE"`
	Replay   string  `yaml:"replay"   env:"REPLAY"`

	// Camera is the webcam device used for tip tracking; negative disables it.
	Camera     int     `yaml:"camera"     env:"CAMERA"`
	Brightness float64 `yaml:"brightness" env:"BRIGHTNESS"`
	Mirror     bool    `yaml:"mirror"     env:"MIRROR"`
}

// Recorder sets the spatial decimation threshold in input units.
type Recorder struct {
	Threshold float64 `yaml:"threshold" env:"THRESHOLD"`
}

// Matcher configures the template backend. Metric is "pointcloud" or "dtw".
type Matcher struct {
	Metric     string `yaml:"metric"     env:"METRIC"`
	Resolution int    `yaml:"resolution" env:"RESOLUTION"`
}

// Neural configures the optional ONNX gesture backend.
type Neural struct {
	Enabled   bool     `yaml:"enabled"    env:"ENABLED"`
	ModelPath string   `yaml:"model_path" env:"MODEL_PATH"`
	Labels    []string `yaml:"labels"     env:"LABELS" envSeparator:","`
	ImageSize int      `yaml:"image_size" env:"IMAGE_SIZE"`
	// Layout is the model input layout, "nhwc" (Keras export) or "nchw".
	Layout    string   `yaml:"layout"     env:"LAYOUT"`
}

// Warmup bounds how long the neural backend may take to become ready.
type Warmup struct {
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// Training holds the label cycle, the acceptance threshold and template
// directories.
type Training struct {
	Labels           []string `yaml:"labels"            env:"LABELS" envSeparator:","`
	GestureThreshold float64  `yaml:"gesture_threshold" env:"GESTURE_THRESHOLD"`
	TemplateDir      string   `yaml:"template_dir"      env:"TEMPLATE_DIR"`
	ExportDir        string   `yaml:"export_dir"        env:"EXPORT_DIR"`
}

// Voice configures the Wit.ai resolver and the intent threshold.
type Voice struct {
	Threshold  float64       `yaml:"threshold"   env:"THRESHOLD"`
	WitToken   string        `yaml:"wit_token"   env:"WIT_TOKEN"`
	WitURL     string        `yaml:"wit_url"     env:"WIT_URL"`
	WitVersion string        `yaml:"wit_version" env:"WIT_VERSION"`
	Timeout    time.Duration `yaml:"timeout"     env:"TIMEOUT"`
}

// Arbiter picks the cast policy. Mapping maps voice intents to gesture
// labels; missing entries map to themselves.
type Arbiter struct {
	Policy  string            `yaml:"policy"  env:"POLICY"`
	Window  time.Duration     `yaml:"window"  env:"WINDOW"`
	Mapping map[string]string `yaml:"mapping"`
}

// Plugins locates effect plugins and bounds each run.
type Plugins struct {
	Dir     string        `yaml:"dir"     env:"DIR"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// Desktop toggles the tray icon and notifications.
type Desktop struct {
	Tray          bool `yaml:"tray"          env:"TRAY"`
	Notifications bool `yaml:"notifications" env:"NOTIFICATIONS"`
}

// Config is the root configuration.
type Config struct {
	LogLevel string `yaml:"log_level" env:"WANDCAST_LOG_LEVEL"`
	DataDir  string `yaml:"data_dir"  env:"WANDCAST_DATA_DIR"`
	Database string `yaml:"database"  env:"WANDCAST_DATABASE"`
	FPS      int    `yaml:"fps"       env:"WANDCAST_FPS"`

	Server   Server   `yaml:"server"   envPrefix:"WANDCAST_SERVER_"`
	Input    Input    `yaml:"input"    envPrefix:"WANDCAST_INPUT_"`
	Recorder Recorder `yaml:"recorder" envPrefix:"WANDCAST_RECORDER_"`
	Matcher  Matcher  `yaml:"matcher"  envPrefix:"WANDCAST_MATCHER_"`
	Neural   Neural   `yaml:"neural"   envPrefix:"WANDCAST_NEURAL_"`
	Warmup   Warmup   `yaml:"warmup"   envPrefix:"WANDCAST_WARMUP_"`
	Training Training `yaml:"training" envPrefix:"WANDCAST_TRAINING_"`
	Voice    Voice    `yaml:"voice"    envPrefix:"WANDCAST_VOICE_"`
	Arbiter  Arbiter  `yaml:"arbiter"  envPrefix:"WANDCAST_ARBITER_"`
	Plugins  Plugins  `yaml:"plugins"  envPrefix:"WANDCAST_PLUGINS_"`
	Desktop  Desktop  `yaml:"desktop"  envPrefix:"WANDCAST_DESKTOP_"`
}

// DefaultDataDir returns ~/.wandcast, or ./.wandcast when the home
// directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wandcast"
	}
	return filepath.Join(home, ".wandcast")
}

// Default returns the built-in configuration rooted at dataDir.
func Default(dataDir string) *Config {
	return &Config{
		LogLevel: "info",
		DataDir:  dataDir,
		Database: filepath.Join(dataDir, "wandcast.db"),
		FPS:      60,
		Server: Server{
			Enabled: true,
			Addr:    "127.0.0.1:8080",
		},
		Input:    Input{Deadzone: 0.1, Camera: -1, Brightness: 220, Mirror: true},
		Recorder: Recorder{Threshold: 0.05},
		Matcher: Matcher{
			Metric:     string(gesture.MetricPointCloud),
			Resolution: gesture.DefaultResolution,
		},
		Neural: Neural{
			ModelPath: filepath.Join(dataDir, "models", "gestures.onnx"),
			Labels:    gesture.DefaultNeuralConfig().Labels,
			ImageSize: gesture.DefaultImageSize,
			Layout:    "nhwc",
		},
		Warmup: Warmup{Timeout: 5 * time.Second},
		Training: Training{
			Labels:           gesture.DefaultNeuralConfig().Labels,
			GestureThreshold: 0.9,
			TemplateDir:      filepath.Join(dataDir, "templates"),
			ExportDir:        filepath.Join(dataDir, "export"),
		},
		Voice: Voice{
			Threshold: 0.85,
			Timeout:   10 * time.Second,
		},
		Arbiter: Arbiter{
			Policy: string(arbiter.PolicyBoth),
			Window: 2 * time.Second,
		},
		Plugins: Plugins{
			Dir:     filepath.Join(dataDir, "plugins"),
			Timeout: 5 * time.Second,
		},
		Desktop: Desktop{Tray: true, Notifications: true},
	}
}

// Load builds the configuration from defaults, the YAML file at path and then
// environment overrides. An empty path falls back to $WANDCAST_CONFIG and then
// to config.yaml in the data directory; only an explicitly named file must exist.
func Load(path string) (*Config, error) {
	defaultDir := DefaultDataDir()
	cfg := Default(defaultDir)

	explicit := path != ""
	if path == "" {
		path = os.Getenv(FileEnv)
		explicit = path != ""
	}
	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.yaml")
	}

	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DataDir != defaultDir {
		cfg.rebase(defaultDir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// rebase moves paths still under the old data directory to the new one.
func (c *Config) rebase(old string) {
	for _, p := range []*string{
		&c.Database,
		&c.Neural.ModelPath,
		&c.Training.TemplateDir,
		&c.Training.ExportDir,
		&c.Plugins.Dir,
	} {
		rel, err := filepath.Rel(old, *p)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		*p = filepath.Join(c.DataDir, rel)
	}
}

// Validate checks value ranges and enum fields.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := arbiter.ParsePolicy(c.Arbiter.Policy); err != nil {
		return fmt.Errorf("arbiter.policy: %w", err)
	}
	switch gesture.Metric(c.Matcher.Metric) {
	case gesture.MetricPointCloud, gesture.MetricDTW:
	default:
		return fmt.Errorf("matcher.metric: unknown metric %q", c.Matcher.Metric)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.Input.Deadzone < 0 || c.Input.Deadzone >= 1 {
		return fmt.Errorf("input.deadzone must be in [0, 1), got %v", c.Input.Deadzone)
	}
	if c.Input.Brightness < 0 || c.Input.Brightness > 255 {
		return fmt.Errorf("input.brightness must be in [0, 255], got %v", c.Input.Brightness)
	}
	if c.Recorder.Threshold <= 0 {
		return fmt.Errorf("recorder.threshold must be positive, got %v", c.Recorder.Threshold)
	}
	for name, v := range map[string]float64{
		"training.gesture_threshold": c.Training.GestureThreshold,
		"voice.threshold":            c.Voice.Threshold,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, v)
		}
	}
	if len(c.Training.Labels) == 0 {
		return errors.New("training.labels must not be empty")
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
