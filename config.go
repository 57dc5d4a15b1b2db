package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	defaultTime      = "12:00:00"
	defaultWorkers   = 4
	defaultImageExts = "jpg,jpeg,png,bmp,gif"
	defaultVideoExts = "mp4,mov,avi"
	defaultOutDir    = "./existamp_out"
	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

type Config struct {
	DryRun    bool
	Zip       bool
	Frame     bool
	SkipDated bool
	Workers   int

	OutDir      string
	DefaultTime string
	// Manual overrides; empty means "use the filename".
	Date string
	Time string

	ExiftoolPath string
	FfmpegPath   string

	ImageExts map[string]bool
	VideoExts map[string]bool

	LogLevel  string
	LogFormat string
}

// FileConfig is the optional JSON config file. Unset keys leave flag values
// alone.
type FileConfig struct {
	ExiftoolPath    string   `json:"exiftool_path,omitempty"`
	FfmpegPath      string   `json:"ffmpeg_path,omitempty"`
	DefaultTime     string   `json:"default_time,omitempty"`
	Workers         int      `json:"workers,omitempty"`
	OutDir          string   `json:"out_dir,omitempty"`
	ImageExtensions []string `json:"image_extensions,omitempty"`
	VideoExtensions []string `json:"video_extensions,omitempty"`
	LogLevel        string   `json:"log_level,omitempty"`
	LogFormat       string   `json:"log_format,omitempty"`
}

const configSchema = `{
    "$schema": "http://json-schema.org/draft-07/schema#",
    "type": "object",
    "additionalProperties": false,
    "properties": {
        "exiftool_path": {"type": "string"},
        "ffmpeg_path": {"type": "string"},
        "default_time": {
            "type": "string",
            "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]:[0-5][0-9]$"
        },
        "workers": {"type": "integer", "minimum": 1, "maximum": 64},
        "out_dir": {"type": "string", "minLength": 1},
        "image_extensions": {
            "type": "array",
            "items": {"type": "string", "pattern": "^[A-Za-z0-9]+$"}
        },
        "video_extensions": {
            "type": "array",
            "items": {"type": "string", "pattern": "^[A-Za-z0-9]+$"}
        },
        "log_level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
        "log_format": {"type": "string", "enum": ["json", "console"]}
    }
}`

// LoadConfigFile reads and validates a JSON config file.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(configSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("config %s is not valid: %s", path, strings.Join(msgs, "; "))
	}

	var fc FileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &fc, nil
}

// Apply copies file values into c for every flag the user did not set on
// the command line.
func (fc *FileConfig) Apply(c *Config, fs *flag.FlagSet) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if fc.ExiftoolPath != "" && !explicit["exiftool"] {
		c.ExiftoolPath = fc.ExiftoolPath
	}
	if fc.FfmpegPath != "" && !explicit["ffmpeg"] {
		c.FfmpegPath = fc.FfmpegPath
	}
	if fc.DefaultTime != "" && !explicit["default-time"] {
		c.DefaultTime = fc.DefaultTime
	}
	if fc.Workers > 0 && !explicit["workers"] {
		c.Workers = fc.Workers
	}
	if fc.OutDir != "" && !explicit["out"] {
		c.OutDir = fc.OutDir
	}
	if len(fc.ImageExtensions) > 0 && !explicit["image-ext"] {
		c.ImageExts = make(map[string]bool)
		parseExts(c.ImageExts, strings.Join(fc.ImageExtensions, ","))
	}
	if len(fc.VideoExtensions) > 0 && !explicit["video-ext"] {
		c.VideoExts = make(map[string]bool)
		parseExts(c.VideoExts, strings.Join(fc.VideoExtensions, ","))
	}
	if fc.LogLevel != "" && !explicit["log-level"] {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" && !explicit["log-format"] {
		c.LogFormat = fc.LogFormat
	}
}

// Validate checks the values the flag package can't.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.OutDir == "" {
		return fmt.Errorf("output directory is required")
	}
	dt, err := normalizeTime(c.DefaultTime)
	if err != nil {
		return fmt.Errorf("default time: %w", err)
	}
	c.DefaultTime = dt
	if c.Date != "" {
		d, err := normalizeDate(c.Date)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
		c.Date = d
	}
	if c.Time != "" {
		t, err := normalizeTime(c.Time)
		if err != nil {
			return fmt.Errorf("time: %w", err)
		}
		c.Time = t
	}
	return nil
}

func parseExts(m map[string]bool, s string) {
	for _, e := range strings.Split(s, ",") {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			m[e] = true
		}
	}
}
