package questions_test

import (
	"context"
	"testing"

	"github.com/guildops/recruit/internal/questions"
)

func TestValidateSettings(t *testing.T) {
	ctx := context.Background()

	good := []byte(`{
		"tracks": ["engineering"],
		"interview_whitelist": true,
		"questions": [
			{"key": "essay", "type": "text", "track": "all", "required": true, "word_limit": 500}
		]
	}`)
	if err := questions.ValidateSettings(ctx, good); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}

	// empty object is a legal no-questions configuration
	if err := questions.ValidateSettings(ctx, []byte(`{}`)); err != nil {
		t.Fatalf("empty settings rejected: %v", err)
	}

	bad := []byte(`{
		"questions": [
			{"key": "", "type": "video", "track": "all", "word_limit": 0}
		]
	}`)
	if err := questions.ValidateSettings(ctx, bad); err == nil {
		t.Fatalf("expected validation errors for bad question definition")
	}

	if err := questions.ValidateSettings(ctx, []byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestParseAndForTrack(t *testing.T) {
	cfg, err := questions.Parse(`{
		"questions": [
			{"key": "essay", "type": "text", "track": "all", "required": true},
			{"key": "portfolio", "type": "file", "track": "design", "required": true},
			{"key": "systems", "type": "text", "track": "Engineering", "required": true}
		]
	}`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	design := cfg.ForTrack("design")
	if len(design) != 2 {
		t.Fatalf("expected 2 design questions, got %d", len(design))
	}

	// track matching ignores case
	eng := cfg.ForTrack("engineering")
	if len(eng) != 2 {
		t.Fatalf("expected 2 engineering questions, got %d", len(eng))
	}
	if eng[1].Key != "systems" {
		t.Fatalf("expected systems question, got %q", eng[1].Key)
	}

	// empty settings parse to an empty config
	empty, err := questions.Parse("")
	if err != nil {
		t.Fatalf("Parse empty error: %v", err)
	}
	if len(empty.Questions) != 0 || empty.InterviewWhitelist {
		t.Fatalf("unexpected empty config: %#v", empty)
	}
}

func TestWordCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"one two  three\nfour", 4},
	}
	for _, c := range cases {
		if got := questions.WordCount(c.in); got != c.want {
			t.Fatalf("WordCount(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
