package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bryanchriswhite/SnapshotFilter/internal/logger"
	"gopkg.in/yaml.v3"
)

// Source types
const (
	SourcePattern   = "pattern"
	SourceGStreamer = "gstreamer"
	SourceX11       = "x11"
	SourceLaunch    = "launch"
)

// Config represents the application configuration
type Config struct {
	ServerPort int    `json:"server_port" yaml:"server_port"`
	LogLevel   string `json:"log_level" yaml:"log_level"`

	Source   SourceConfig   `json:"source" yaml:"source"`
	Snapshot SnapshotConfig `json:"snapshot" yaml:"snapshot"`
	Preview  PreviewConfig  `json:"preview" yaml:"preview"`
}

// SourceConfig selects where frames come from
type SourceConfig struct {
	Type string `json:"type" yaml:"type"` // pattern, gstreamer, launch, x11
	// Pipeline is a gst-launch description without the trailing sink,
	// e.g. "v4l2src ! videoconvert ! video/x-raw,format=RGB"
	Pipeline  string `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`
	Width     int    `json:"width" yaml:"width"`
	Height    int    `json:"height" yaml:"height"`
	FPS       int    `json:"fps" yaml:"fps"`
	NumFrames int    `json:"num_frames" yaml:"num_frames"` // 0 = until stopped
}

// SnapshotConfig holds the initial snapshot filter properties
type SnapshotConfig struct {
	FrameDelay  int    `json:"frame_delay" yaml:"frame_delay"`
	FileType    string `json:"file_type" yaml:"file_type"`
	Location    string `json:"location" yaml:"location"`
	JPEGQuality int    `json:"jpeg_quality" yaml:"jpeg_quality"`
}

// PreviewConfig configures the MJPEG preview output
type PreviewConfig struct {
	Enabled  bool `json:"enabled" yaml:"enabled"`
	FPS      int  `json:"fps" yaml:"fps"`
	MaxWidth int  `json:"max_width" yaml:"max_width"`
	Quality  int  `json:"quality" yaml:"quality"`
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		ServerPort: 8080,
		LogLevel:   "info",
		Source: SourceConfig{
			Type:   SourcePattern,
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Snapshot: SnapshotConfig{
			FrameDelay:  0,
			FileType:    "bmp",
			Location:    "image.bmp",
			JPEGQuality: 90,
		},
		Preview: PreviewConfig{
			Enabled:  true,
			FPS:      10,
			MaxWidth: 640,
			Quality:  80,
		},
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port: %d", c.ServerPort)
	}
	switch c.Source.Type {
	case SourcePattern, SourceX11:
		if c.Source.FPS <= 0 {
			return fmt.Errorf("source fps must be positive, got %d", c.Source.FPS)
		}
	case SourceGStreamer, SourceLaunch:
		if strings.TrimSpace(c.Source.Pipeline) == "" {
			return fmt.Errorf("%s source requires a pipeline description", c.Source.Type)
		}
	default:
		return fmt.Errorf("unknown source type: %q (use pattern, gstreamer, launch or x11)", c.Source.Type)
	}
	if c.Source.Type == SourcePattern && (c.Source.Width <= 0 || c.Source.Height <= 0) {
		return fmt.Errorf("pattern source needs positive width and height")
	}
	if c.Snapshot.FrameDelay < 0 {
		return fmt.Errorf("frame delay must be >= 0, got %d", c.Snapshot.FrameDelay)
	}
	switch strings.ToLower(c.Snapshot.FileType) {
	case "bmp", "png", "jpeg", "jpg":
	default:
		return fmt.Errorf("invalid file type: %q (use bmp, png or jpeg)", c.Snapshot.FileType)
	}
	if c.Snapshot.Location == "" {
		return fmt.Errorf("snapshot location must not be empty")
	}
	return nil
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// DefaultPath returns $HOME/.config/snapshotfilter/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "snapshotfilter", "config.yaml"), nil
}

// NewManager creates a new configuration manager. An empty configFile
// selects DefaultPath. A missing file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = p
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Str("source", m.config.Source.Type).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk, filling unset fields with defaults
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Update validates and replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// Keys lists the dotted keys accepted by Set and Lookup
func Keys() []string {
	return []string{
		"server_port", "log_level",
		"source.type", "source.pipeline", "source.width", "source.height", "source.fps", "source.num_frames",
		"snapshot.frame_delay", "snapshot.file_type", "snapshot.location", "snapshot.jpeg_quality",
		"preview.enabled", "preview.fps", "preview.max_width", "preview.quality",
	}
}

// Lookup returns the value of a dotted configuration key
func (m *Manager) Lookup(key string) (interface{}, error) {
	cfg := m.Get()
	switch key {
	case "server_port":
		return cfg.ServerPort, nil
	case "log_level":
		return cfg.LogLevel, nil
	case "source.type":
		return cfg.Source.Type, nil
	case "source.pipeline":
		return cfg.Source.Pipeline, nil
	case "source.width":
		return cfg.Source.Width, nil
	case "source.height":
		return cfg.Source.Height, nil
	case "source.fps":
		return cfg.Source.FPS, nil
	case "source.num_frames":
		return cfg.Source.NumFrames, nil
	case "snapshot.frame_delay":
		return cfg.Snapshot.FrameDelay, nil
	case "snapshot.file_type":
		return cfg.Snapshot.FileType, nil
	case "snapshot.location":
		return cfg.Snapshot.Location, nil
	case "snapshot.jpeg_quality":
		return cfg.Snapshot.JPEGQuality, nil
	case "preview.enabled":
		return cfg.Preview.Enabled, nil
	case "preview.fps":
		return cfg.Preview.FPS, nil
	case "preview.max_width":
		return cfg.Preview.MaxWidth, nil
	case "preview.quality":
		return cfg.Preview.Quality, nil
	default:
		return nil, fmt.Errorf("configuration key not found: %s", key)
	}
}

// Set parses value for a dotted configuration key, validates the result
// and saves it
func (m *Manager) Set(key, value string) error {
	cfg := m.Get()
	if err := cfg.Apply(key, value); err != nil {
		return err
	}
	return m.Update(cfg)
}

// Apply parses value into the field named by a dotted key. The result is
// not validated.
func (c *Config) Apply(key, value string) error {
	intField := map[string]*int{
		"server_port":           &c.ServerPort,
		"source.width":          &c.Source.Width,
		"source.height":         &c.Source.Height,
		"source.fps":            &c.Source.FPS,
		"source.num_frames":     &c.Source.NumFrames,
		"snapshot.frame_delay":  &c.Snapshot.FrameDelay,
		"snapshot.jpeg_quality": &c.Snapshot.JPEGQuality,
		"preview.fps":           &c.Preview.FPS,
		"preview.max_width":     &c.Preview.MaxWidth,
		"preview.quality":       &c.Preview.Quality,
	}
	stringField := map[string]*string{
		"source.type":        &c.Source.Type,
		"source.pipeline":    &c.Source.Pipeline,
		"snapshot.file_type": &c.Snapshot.FileType,
		"snapshot.location":  &c.Snapshot.Location,
	}

	switch {
	case intField[key] != nil:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number for %s: %s", key, value)
		}
		*intField[key] = n
	case stringField[key] != nil:
		*stringField[key] = value
	case key == "log_level":
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[value] {
			return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", value)
		}
		c.LogLevel = value
	case key == "preview.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s (use: true or false)", value)
		}
		c.Preview.Enabled = b
	default:
		return fmt.Errorf("configuration key not found: %s", key)
	}
	return nil
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
