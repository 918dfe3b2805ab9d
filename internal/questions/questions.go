// Package questions resolves the per-cycle, per-track application question
// set. The question set is configuration data carried on the cycle's
// settings JSON, not compiled types: the submission gate interprets it
// generically, so adding a question never needs a code change.
package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"
)

// TrackAll marks a field asked of every track.
const TrackAll = "all"

const (
	TypeText = "text"
	TypeFile = "file"
)

// Field is one question in a cycle's application form.
type Field struct {
	Key       string `json:"key"`
	Label     string `json:"label,omitempty"`
	Type      string `json:"type"`
	Track     string `json:"track"`
	Required  bool   `json:"required"`
	WordLimit int    `json:"word_limit,omitempty"`
}

// Config is the cycle settings document stored on models.Cycle.Settings.
type Config struct {
	Questions []Field `json:"questions"`
	// Tracks an applicant may apply under.
	Tracks []string `json:"tracks,omitempty"`
	// InterviewWhitelist gates interview-kind bookings on the cycle's
	// admission whitelist.
	InterviewWhitelist bool `json:"interview_whitelist,omitempty"`
}

// settingsSchema constrains admin-supplied cycle settings at write time.
var settingsSchema = []byte(`{
	"type": "object",
	"properties": {
		"questions": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"key": {"type": "string", "minLength": 1},
					"label": {"type": "string"},
					"type": {"type": "string", "enum": ["text", "file"]},
					"track": {"type": "string", "minLength": 1},
					"required": {"type": "boolean"},
					"word_limit": {"type": "integer", "minimum": 1}
				},
				"required": ["key", "type", "track"]
			}
		},
		"tracks": {"type": "array", "items": {"type": "string"}},
		"interview_whitelist": {"type": "boolean"}
	}
}`)

// ValidateSettings checks a raw settings document against the schema and
// returns every violation, not just the first.
func ValidateSettings(ctx context.Context, raw []byte) error {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(settingsSchema, rs); err != nil {
		return fmt.Errorf("compile settings schema: %w", err)
	}

	errs, err := rs.ValidateBytes(ctx, raw)
	if err != nil {
		return fmt.Errorf("settings is not valid JSON: %w", err)
	}
	if len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
	}

	return nil
}

// Parse decodes a cycle settings document. An empty document yields an
// empty config.
func Parse(settings string) (*Config, error) {
	cfg := &Config{}
	if strings.TrimSpace(settings) == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(settings), cfg); err != nil {
		return nil, fmt.Errorf("parse cycle settings: %w", err)
	}
	return cfg, nil
}

// ForTrack returns the question fields asked of the given track, which is
// the track-specific fields plus any field flagged for all tracks.
func (c *Config) ForTrack(track string) []Field {
	out := make([]Field, 0, len(c.Questions))
	for _, f := range c.Questions {
		if strings.EqualFold(f.Track, track) || strings.EqualFold(f.Track, TrackAll) {
			out = append(out, f)
		}
	}
	return out
}

// WordCount is the whitespace-delimited word count used by word limits.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
