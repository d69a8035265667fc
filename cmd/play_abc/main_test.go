package main

import (
	"testing"

	"github.com/cbegin/abcplay-go/internal/abc"
)

func firstNote(t *testing.T, text string, cfg abc.Settings) abc.Note {
	t.Helper()
	book, err := abc.Load(text, cfg)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	c, err := abc.NewContext(book, 1)
	if err != nil {
		t.Fatalf("context failed: %v", err)
	}
	for {
		s, ok := c.Next()
		if !ok {
			t.Fatalf("tune has no notes")
		}
		if len(s.Voices) > 0 {
			return s.Voices[0].Note
		}
	}
}

func TestOctaveFlagSetsDefaultOctave(t *testing.T) {
	cfg, err := buildSettings(false, false, "octave", 5)
	if err != nil {
		t.Fatalf("settings failed: %v", err)
	}
	if cfg.DefaultOctave != 5 {
		t.Fatalf("expected default octave 5, got %d", cfg.DefaultOctave)
	}
	if n := firstNote(t, "K:C\nC", cfg); n.Octave != 5 || n.Key() != 72 {
		t.Fatalf("uppercase C should sound as C5, got %+v", n)
	}
}

func TestBuildSettingsRejectsBadFlags(t *testing.T) {
	if _, err := buildSettings(false, false, "octave", 9); err == nil {
		t.Fatalf("octave 9 should be rejected")
	}
	if _, err := buildSettings(false, false, "sideways", 4); err == nil {
		t.Fatalf("unknown propagation should be rejected")
	}
}

func TestBuildSettingsLotroAndStrict(t *testing.T) {
	cfg, err := buildSettings(true, true, "none", 4)
	if err != nil {
		t.Fatalf("settings failed: %v", err)
	}
	if !cfg.Strict || !cfg.LotroCompatible || cfg.AutoDetectLotro || cfg.Propagation != abc.PropagateNone {
		t.Fatalf("unexpected settings %+v", cfg)
	}
}
