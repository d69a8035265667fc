package abcplay

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cbegin/abcplay-go/internal/abc"
)

func TestPlayerMasterVolumeRuntimeAPI(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	pl.SetMasterVolume(0.35)
	if got := pl.MasterVolume(); got != 0.35 {
		t.Fatalf("master volume = %v, want 0.35", got)
	}
	pl.SetMasterVolume(-2)
	if got := pl.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestPlayerIdleState(t *testing.T) {
	pl, err := NewPlayer(48000, WithLoopPlayback(true), WithTranspose(-12))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if err := pl.Seek(0); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("seek while idle = %v, want ErrNotPlaying", err)
	}
	if pl.Elapsed() != 0 || pl.PlaybackPosition() != 0 {
		t.Fatalf("idle player should report zero position")
	}
	if err := pl.Stop(); err != nil {
		t.Fatalf("stop while idle: %v", err)
	}
	pl.Wait()
}

func TestPlayerRejectsBadOptions(t *testing.T) {
	if _, err := NewPlayer(0); err == nil {
		t.Fatalf("expected an error for a zero sample rate")
	}
	if _, err := NewPlayer(48000, WithSoundFont(filepath.Join(t.TempDir(), "missing.sf2"))); err == nil {
		t.Fatalf("expected an error for a missing soundfont")
	}
}

func TestPlayABCReportsStrictErrors(t *testing.T) {
	cfg := abc.DefaultSettings()
	cfg.Strict = true
	pl, err := NewPlayer(48000, WithSettings(cfg))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if err := pl.PlayABC("X:1\nK:C\nA"); !abc.IsStrict(err) {
		t.Fatalf("expected a strict error, got %v", err)
	}
}

func TestLoadFileDecodesLatin1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tune.abc")
	if err := os.WriteFile(path, []byte("X:1\nT:Caf\xe9\nK:C\nA"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	book, err := LoadFile(path, "", abc.DefaultSettings())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tune, err := book.Tune(1)
	if err != nil {
		t.Fatalf("tune: %v", err)
	}
	if tune.Title() != "Café" {
		t.Fatalf("title = %q", tune.Title())
	}
}
