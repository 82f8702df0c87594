package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for its configuration
const DefaultPath = "config/config.yaml"

// Config represents the complete application configuration
type Config struct {
	Paths  PathsConfig  `yaml:"paths"`
	Audio  AudioConfig  `yaml:"audio"`
	Tools  ToolsConfig  `yaml:"tools"`
	Model  ModelConfig  `yaml:"model"`
	Google GoogleConfig `yaml:"google"`
}

// PathsConfig contains directory paths for media processing
type PathsConfig struct {
	OutputDirectory string `yaml:"output_directory"`
	WorkDirectory   string `yaml:"work_directory,omitempty"`
}

// AudioConfig contains output audio settings
type AudioConfig struct {
	// OutputSampleRate of saved audio; zero keeps the model rate
	OutputSampleRate  int    `yaml:"output_sample_rate"`
	VideoAudioCodec   string `yaml:"video_audio_codec"`
	VideoAudioBitrate string `yaml:"video_audio_bitrate"`
}

// ToolsConfig locates the external executables
type ToolsConfig struct {
	FFmpegPath     string `yaml:"ffmpeg_path"`
	DeepFilterPath string `yaml:"deep_filter_path"`
}

// ModelConfig selects and tunes the enhancement model
type ModelConfig struct {
	Path               string  `yaml:"path,omitempty"`
	URL                string  `yaml:"url"`
	CacheDirectory     string  `yaml:"cache_directory,omitempty"`
	PostFilter         bool    `yaml:"post_filter"`
	AttenuationLimitDB float64 `yaml:"attenuation_limit_db"`
}

// GoogleConfig contains Google Drive publishing settings
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	FolderID        string `yaml:"folder_id"`
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every empty field that has a default
func (c *Config) ApplyDefaults() {
	if c.Paths.OutputDirectory == "" {
		c.Paths.OutputDirectory = "output"
	}
	if c.Audio.VideoAudioCodec == "" {
		c.Audio.VideoAudioCodec = "aac"
	}
	if c.Audio.VideoAudioBitrate == "" {
		c.Audio.VideoAudioBitrate = "320k"
	}
	if c.Tools.FFmpegPath == "" {
		c.Tools.FFmpegPath = "ffmpeg"
	}
	if c.Tools.DeepFilterPath == "" {
		c.Tools.DeepFilterPath = "deep-filter"
	}
	if c.Model.URL == "" {
		c.Model.URL = "https://github.com/Rikorose/DeepFilterNet/raw/main/models/DeepFilterNet3_onnx.tar.gz"
	}
	if c.Google.CredentialsFile == "" {
		c.Google.CredentialsFile = "credentials.json"
	}
	if c.Google.TokenFile == "" {
		c.Google.TokenFile = "token.json"
	}
}

// Validate checks values that have no sensible fallback
func (c *Config) Validate() error {
	if c.Audio.OutputSampleRate < 0 {
		return fmt.Errorf("audio.output_sample_rate must not be negative, got %d", c.Audio.OutputSampleRate)
	}
	if c.Model.AttenuationLimitDB < 0 {
		return fmt.Errorf("model.attenuation_limit_db must not be negative, got %g", c.Model.AttenuationLimitDB)
	}
	return nil
}

// Load reads and parses the configuration from the specified YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default()
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
