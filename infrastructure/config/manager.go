package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Errors for config management
var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// field binds a dotted key to a Config field
type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringField(ptr func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error {
			*ptr(c) = v
			return nil
		},
	}
}

func intField(ptr func(c *Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("%w: %q is not a non-negative integer", ErrInvalidValue, v)
			}
			*ptr(c) = n
			return nil
		},
	}
}

func floatField(ptr func(c *Config) *float64) field {
	return field{
		get: func(c *Config) string { return strconv.FormatFloat(*ptr(c), 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("%w: %q is not a non-negative number", ErrInvalidValue, v)
			}
			*ptr(c) = f
			return nil
		},
	}
}

func boolField(ptr func(c *Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*ptr(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not true or false", ErrInvalidValue, v)
			}
			*ptr(c) = b
			return nil
		},
	}
}

var fields = map[string]field{
	"paths.output_directory":     stringField(func(c *Config) *string { return &c.Paths.OutputDirectory }),
	"paths.work_directory":       stringField(func(c *Config) *string { return &c.Paths.WorkDirectory }),
	"audio.output_sample_rate":   intField(func(c *Config) *int { return &c.Audio.OutputSampleRate }),
	"audio.video_audio_codec":    stringField(func(c *Config) *string { return &c.Audio.VideoAudioCodec }),
	"audio.video_audio_bitrate":  stringField(func(c *Config) *string { return &c.Audio.VideoAudioBitrate }),
	"tools.ffmpeg_path":          stringField(func(c *Config) *string { return &c.Tools.FFmpegPath }),
	"tools.deep_filter_path":     stringField(func(c *Config) *string { return &c.Tools.DeepFilterPath }),
	"model.path":                 stringField(func(c *Config) *string { return &c.Model.Path }),
	"model.url":                  stringField(func(c *Config) *string { return &c.Model.URL }),
	"model.cache_directory":      stringField(func(c *Config) *string { return &c.Model.CacheDirectory }),
	"model.post_filter":          boolField(func(c *Config) *bool { return &c.Model.PostFilter }),
	"model.attenuation_limit_db": floatField(func(c *Config) *float64 { return &c.Model.AttenuationLimitDB }),
	"google.credentials_file":    stringField(func(c *Config) *string { return &c.Google.CredentialsFile }),
	"google.token_file":          stringField(func(c *Config) *string { return &c.Google.TokenFile }),
	"google.folder_id":           stringField(func(c *Config) *string { return &c.Google.FolderID }),
}

// Entry is one key/value pair of the configuration
type Entry struct {
	Key   string
	Value string
}

// ConfigManager provides get/set/unset operations on dotted config keys
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// Keys returns every settable key in sorted order
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lookup(key string) (string, field, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	f, ok := fields[key]
	if !ok {
		return key, field{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return key, f, nil
}

// List returns all entries sorted by key
func (m *ConfigManager) List() []Entry {
	keys := Keys()
	result := make([]Entry, 0, len(keys))
	for _, k := range keys {
		result = append(result, Entry{Key: k, Value: fields[k].get(m.config)})
	}
	return result
}

// Get returns the value of key
func (m *ConfigManager) Get(key string) (string, error) {
	_, f, err := lookup(key)
	if err != nil {
		return "", err
	}
	return f.get(m.config), nil
}

// Set updates key and saves the file
func (m *ConfigManager) Set(key, value string) error {
	key, f, err := lookup(key)
	if err != nil {
		return err
	}
	if err := f.set(m.config, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return Save(m.config, m.configPath)
}

// Unset restores the default for key and saves the file
func (m *ConfigManager) Unset(key string) error {
	_, f, err := lookup(key)
	if err != nil {
		return err
	}
	f.set(m.config, f.get(&Config{}))
	m.config.ApplyDefaults()
	return Save(m.config, m.configPath)
}

// SuggestSetCommand returns the CLI invocation that sets key
func SuggestSetCommand(key string) string {
	return fmt.Sprintf("dfm config set %s <value>", key)
}
