package abc

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
	"time"
)

const twoTunes = `%abc-2.1
% a small book
X:1
T:First
K:C
ABC

X:2
T:Second
T:Alternate
K:G
def
`

func TestLoadSplitsTunes(t *testing.T) {
	b := loadBook(t, twoTunes, DefaultSettings())
	if b.Len() != 2 {
		t.Fatalf("expected 2 tunes, got %d", b.Len())
	}
	if b.Version != "2.1" {
		t.Fatalf("unexpected version %q", b.Version)
	}
	if b.Tunes[1].Title() != "First" || b.Tunes[2].Title() != "Second" {
		t.Fatalf("unexpected titles %q %q", b.Tunes[1].Title(), b.Tunes[2].Title())
	}
	if b.Tunes[2].Number != 2 {
		t.Fatalf("unexpected tune number %d", b.Tunes[2].Number)
	}
	if b.Tunes[1].Duration != 750*time.Millisecond {
		t.Fatalf("unexpected duration %v", b.Tunes[1].Duration)
	}
	notes := sounding(walk(t, b, 2))
	if len(notes) != 3 || notes[2].Type != 'f' || !notes[2].Sharp || notes[2].Octave != 5 {
		t.Fatalf("second tune should read in G, got %v", notes)
	}
	c, err := NewContext(b, 2)
	if err != nil {
		t.Fatalf("context failed: %v", err)
	}
	if c.Title() != "Second" {
		t.Fatalf("context title = %q", c.Title())
	}
}

func TestLoadImplicitTune(t *testing.T) {
	b := loadBook(t, "K:C\nA", DefaultSettings())
	if b.Len() != 1 || b.Tunes[1].Number != 0 {
		t.Fatalf("expected one implicit tune, got %d", b.Len())
	}
	if _, err := b.Tune(0); !errors.Is(err, ErrNoTune) {
		t.Fatalf("tune 0 should not be selectable, got %v", err)
	}
	if _, err := NewContext(b, 2); !errors.Is(err, ErrNoTune) {
		t.Fatalf("expected ErrNoTune, got %v", err)
	}
}

func TestLoadEmptyInput(t *testing.T) {
	b := loadBook(t, "", DefaultSettings())
	if b.Len() != 0 {
		t.Fatalf("expected no tunes, got %d", b.Len())
	}
}

func TestLoadBodyFieldsBecomeInline(t *testing.T) {
	b := loadBook(t, "X:1\nK:C\nF\nK:G\nF\nT:Part two\nL:1/4\nF", DefaultSettings())
	for _, tok := range b.Tunes[1].Tokens {
		if strings.Contains(tok, "Part") {
			t.Fatalf("title lines inside a body must be dropped, got %q", b.Tunes[1].Tokens)
		}
	}
	steps := walk(t, b, 1)
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	if steps[0].Voices[0].Note.Sharp || !steps[1].Voices[0].Note.Sharp {
		t.Fatalf("body K: should change the key from that point")
	}
	if steps[2].Length != 500*time.Millisecond {
		t.Fatalf("body L: should change the length, got %v", steps[2].Length)
	}
}

func TestLoadStripsCommentsAndLineEndings(t *testing.T) {
	b := loadBook(t, "\ufeffX:1\r\nK:C\r\nA % a comment\r\nB\\\r\nc", DefaultSettings())
	if got := len(walk(t, b, 1)); got != 3 {
		t.Fatalf("expected 3 notes, got %d (%q)", got, b.Tunes[1].Tokens)
	}
}

func TestLoadStrictErrors(t *testing.T) {
	cases := map[string]string{
		"missing version": "X:1\nK:C\nA",
		"old version":     "%abc-1.6\nX:1\nK:C\nA",
		"misplaced title": "%abc-2.1\nX:1\nM:4/4\nT:Late\nK:C\nA",
		"bare tempo":      "%abc-2.1\nX:1\nT:Tempo\nQ:120\nK:C\nA",
		"inline tempo":    "%abc-2.1\nX:1\nK:C\nA [Q:C=100] B",
	}
	cfg := DefaultSettings()
	cfg.Strict = true
	for name, text := range cases {
		_, err := Load(text, cfg)
		if !IsStrict(err) {
			t.Fatalf("%s: expected a strict error, got %v", name, err)
		}
	}
	var se *StrictError
	_, err := Load(cases["misplaced title"], cfg)
	if !errors.As(err, &se) || se.Line != 4 {
		t.Fatalf("expected line 4, got %v", err)
	}
	if _, err := Load("%abc-2.1\nX:1\nT:Fine\nQ:1/4=100\nK:C\nA", cfg); err != nil {
		t.Fatalf("well-formed strict input failed: %v", err)
	}
}

func TestLoadLenientAcceptsWhatStrictRejects(t *testing.T) {
	b := loadBook(t, "%abc-1.6\nX:1\nM:4/4\nT:Late\nQ:120\nK:C\nA", DefaultSettings())
	if b.Tunes[1].Title() != "Late" {
		t.Fatalf("lenient title = %q", b.Tunes[1].Title())
	}
}

func TestLoadWarnings(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultSettings()
	cfg.MaxSize = 8
	cfg.MaxDuration = time.Second
	cfg.Logger = log.New(&buf, "", 0)
	b := loadBook(t, "X:1\nK:C\nA8 A8 A8", cfg)
	if len(b.Warnings) != 2 {
		t.Fatalf("expected size and duration warnings, got %q", b.Warnings)
	}
	if !strings.Contains(buf.String(), "abc: warning:") {
		t.Fatalf("warnings were not logged: %q", buf.String())
	}
	if b.Tunes[1].Duration != 6*time.Second {
		t.Fatalf("overlong tune must still load fully, got %v", b.Tunes[1].Duration)
	}
}

func TestLoadDetectsLotro(t *testing.T) {
	text := "% exported for LOTRO\nX:1\nK:C\nC"
	b := loadBook(t, text, DefaultSettings())
	if !b.Lotro || sounding(walk(t, b, 1))[0].Octave != 3 {
		t.Fatalf("lotro marker should lower the octave")
	}
	cfg := DefaultSettings()
	cfg.AutoDetectLotro = false
	b = loadBook(t, text, cfg)
	if b.Lotro || sounding(walk(t, b, 1))[0].Octave != 4 {
		t.Fatalf("detection disabled should keep octave 4")
	}
}

func TestMeasureRejectsMissingTune(t *testing.T) {
	b := loadBook(t, twoTunes, DefaultSettings())
	if _, err := Measure(b, 3); !errors.Is(err, ErrNoTune) {
		t.Fatalf("expected ErrNoTune, got %v", err)
	}
}
