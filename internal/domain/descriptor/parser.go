package descriptor

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/wrenshell/wren/internal/backend"
	"github.com/wrenshell/wren/internal/infrastructure/logging"
)

// ErrNotFound marks a missing entry file. The bootstrap path treats it as
// fatal; every other load error is non-fatal.
var ErrNotFound = errors.New("config entry file not found")

// Descriptor is the declarative shell configuration.
type Descriptor struct {
	Windows          []backend.WindowDecl `yaml:"windows"`
	Style            string               `yaml:"style"`
	Icons            string               `yaml:"icons"`
	CloseWindowDelay map[string]int       `yaml:"close_window_delay"` // milliseconds
	OnWindowToggled  string               `yaml:"on_window_toggled"`  // script body, receives name and visible
	OnConfigParsed   string               `yaml:"on_config_parsed"`   // script body
}

// Delays converts the millisecond table to durations, dropping negative
// entries.
func (d *Descriptor) Delays() map[string]time.Duration {
	delays := make(map[string]time.Duration, len(d.CloseWindowDelay))
	for name, ms := range d.CloseWindowDelay {
		if ms <= 0 {
			continue
		}
		delays[name] = time.Duration(ms) * time.Millisecond
	}
	return delays
}

var knownFields = map[string]bool{
	"windows":            true,
	"style":              true,
	"icons":              true,
	"close_window_delay": true,
	"on_window_toggled":  true,
	"on_config_parsed":   true,
}

// legacyFields maps field names from earlier releases to their replacements.
var legacyFields = map[string]string{
	"window_list": "windows",
	"stylesheet":  "style",
	"icon_path":   "icons",
	"close_delay": "close_window_delay",
	"on_toggled":  "on_window_toggled",
	"on_parsed":   "on_config_parsed",
}

// Parse decodes a descriptor. Legacy fields produce a deprecation warning
// naming the replacement and are ignored; unknown fields warn and are
// ignored. An empty document yields an empty descriptor.
func Parse(data []byte, log *logging.Logger) (*Descriptor, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}

	for field := range raw {
		if knownFields[field] {
			continue
		}
		if replacement, ok := legacyFields[field]; ok {
			log.Warn("deprecated config field, ignoring",
				zap.String("field", field),
				zap.String("replacement", replacement),
			)
		} else {
			log.Warn("unsupported config field, ignoring", zap.String("field", field))
		}
		delete(raw, field)
	}

	filtered, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize descriptor: %w", err)
	}

	var d Descriptor
	if err := yaml.Unmarshal(filtered, &d); err != nil {
		return nil, fmt.Errorf("failed to decode descriptor: %w", err)
	}
	return &d, nil
}

// Load reads and parses the entry file at path.
func Load(path string, log *logging.Logger) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config entry: %w", err)
	}
	return Parse(data, log)
}
