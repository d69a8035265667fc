package chiptune

import (
	"math"
	"testing"
)

func energy(e *Engine, frames int) float64 {
	var sum float64
	for i := 0; i < frames; i++ {
		l, r := e.RenderFrame()
		sum += math.Abs(float64(l)) + math.Abs(float64(r))
	}
	return sum
}

func TestEngineRendersAndReleases(t *testing.T) {
	e := New(48000, DefaultParams())
	id := e.NoteOn(69, 100, 0)
	if e.ActiveVoiceCount() != 1 {
		t.Fatalf("expected one active voice")
	}
	if energy(e, 4800) == 0 {
		t.Fatalf("expected audible output")
	}
	e.NoteOff(id)
	energy(e, 48000)
	if n := e.ActiveVoiceCount(); n != 0 {
		t.Fatalf("voice should finish its release, %d still active", n)
	}
}

func TestEngineStealsOldestVoice(t *testing.T) {
	p := DefaultParams()
	p.Voices = 2
	e := New(48000, p)
	first := e.NoteOn(60, 100, 0)
	e.RenderFrame()
	e.NoteOn(64, 100, 1)
	e.RenderFrame()
	e.NoteOn(67, 100, 2)
	if e.ActiveVoiceCount() != 2 {
		t.Fatalf("voice count must not exceed the pool")
	}
	for _, v := range e.voices {
		if v.id == first {
			t.Fatalf("oldest voice should have been stolen")
		}
	}
}

func TestEngineChannelWaves(t *testing.T) {
	e := New(48000, DefaultParams())
	e.NoteOn(60, 100, 0)
	e.NoteOn(64, 100, 1)
	if e.voices[0].wave != WavePulse || e.voices[1].wave != WaveTriangle {
		t.Fatalf("unexpected waves %v %v", e.voices[0].wave, e.voices[1].wave)
	}
}

func TestEngineMasterGainSilences(t *testing.T) {
	e := New(48000, DefaultParams())
	e.SetMasterGain(0)
	e.NoteOn(69, 127, 0)
	if got := energy(e, 2400); got != 0 {
		t.Fatalf("zero gain should be silent, got %f", got)
	}
}
