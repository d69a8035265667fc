package soundfont

import (
	"testing"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

type noteAction struct {
	channel, key int32
	on           bool
	sample       int
}

type mockSynth struct {
	programs map[int32]int32
	events   []noteAction
	cur      int
}

func (m *mockSynth) ProcessMidiMessage(channel int32, command int32, data1, data2 int32) {
	if command == 0xC0 {
		if m.programs == nil {
			m.programs = map[int32]int32{}
		}
		m.programs[channel] = data1
	}
}

func (m *mockSynth) NoteOn(channel, key, velocity int32) {
	m.events = append(m.events, noteAction{channel, key, true, m.cur})
}

func (m *mockSynth) NoteOff(channel, key int32) {
	m.events = append(m.events, noteAction{channel, key, false, m.cur})
}

func (m *mockSynth) Render(left, right []float32) {
	for i := range left {
		left[i], right[i] = 0.5, -0.5
	}
	m.cur += len(left)
}

func TestEngineSetsProgramsAndChannels(t *testing.T) {
	ms := &mockSynth{}
	e := newEngine(ms, 1000, DefaultParams())
	if ms.programs[0] != 73 || ms.programs[1] != 24 {
		t.Fatalf("unexpected programs %v", ms.programs)
	}
	e.NoteOn(60, 100, 0)
	e.NoteOn(64, 100, 2)
	if ms.events[0].channel != 0 || ms.events[1].channel != 1 {
		t.Fatalf("chord members should share MIDI channel 1, got %+v", ms.events)
	}
}

func TestEngineKeepsSharedKeyUntilLastRelease(t *testing.T) {
	ms := &mockSynth{}
	e := newEngine(ms, 1000, DefaultParams())
	a := e.NoteOn(60, 100, 1)
	b := e.NoteOn(60, 100, 2)
	e.NoteOff(a)
	if len(ms.events) != 2 {
		t.Fatalf("key must stay down while another voice holds it, got %+v", ms.events)
	}
	e.NoteOff(b)
	e.NoteOff(b)
	if len(ms.events) != 3 || ms.events[2].on {
		t.Fatalf("expected a single note-off, got %+v", ms.events)
	}
}

func TestEngineRendersBlocksAndTracksRelease(t *testing.T) {
	ms := &mockSynth{}
	p := DefaultParams()
	p.BlockSize = 4
	p.ReleaseSec = 0.01
	p.MasterGain = 2
	e := newEngine(ms, 1000, p)
	id := e.NoteOn(69, 100, 0)
	l, r := e.RenderFrame()
	if l != 1 || r != -1 {
		t.Fatalf("unexpected frame %f %f", l, r)
	}
	for i := 0; i < 5; i++ {
		e.RenderFrame()
	}
	if ms.cur != 8 {
		t.Fatalf("expected two blocks rendered, got %d frames", ms.cur)
	}
	e.NoteOff(id)
	if e.ActiveVoiceCount() != 1 {
		t.Fatalf("release tail should count as active")
	}
	for i := 0; i < 10; i++ {
		e.RenderFrame()
	}
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("release tail should have finished")
	}
}

func TestNewUsesSynthesizerFactory(t *testing.T) {
	ms := &mockSynth{}
	orig := newSynthesizer
	defer func() { newSynthesizer = orig }()
	var blockSize int32
	newSynthesizer = func(_ *meltysynth.SoundFont, settings *meltysynth.SynthesizerSettings) (synthesizer, error) {
		blockSize = settings.BlockSize
		return ms, nil
	}
	p := DefaultParams()
	p.BlockSize = 32
	if _, err := New(nil, 44100, p); err != nil {
		t.Fatalf("new failed: %v", err)
	}
	if blockSize != 32 || ms.programs[0] != 73 {
		t.Fatalf("factory not used: block %d programs %v", blockSize, ms.programs)
	}
}
