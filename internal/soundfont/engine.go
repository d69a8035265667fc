package soundfont

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// synthesizer is the subset of meltysynth.Synthesizer the engine drives.
type synthesizer interface {
	ProcessMidiMessage(channel int32, command int32, data1, data2 int32)
	NoteOn(channel, key, velocity int32)
	NoteOff(channel, key int32)
	Render(left, right []float32)
}

type Params struct {
	MasterGain    float64
	MelodyProgram int // General MIDI program for channel 0
	ChordProgram  int // General MIDI program for chord channels
	BlockSize     int // frames rendered per synthesizer call
	ReleaseSec    float64
}

func DefaultParams() Params {
	return Params{
		MasterGain:    0.8,
		MelodyProgram: 73, // flute
		ChordProgram:  24, // nylon guitar
		BlockSize:     64,
		ReleaseSec:    0.8,
	}
}

const (
	melodyChannel = 0
	chordChannel  = 1
)

type held struct {
	channel int32
	key     int32
}

// Engine plays notes through a SoundFont. Note events take effect at the next
// synthesizer block boundary.
type Engine struct {
	synth         synthesizer
	left, right   []float32
	pos           int
	masterGain    uint64
	nextID        int
	voices        map[int]held
	refs          map[held]int
	releaseFrames int
	tail          int
}

// LoadFile reads an .sf2 file.
func LoadFile(path string) (*meltysynth.SoundFont, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("soundfont %s: %w", path, err)
	}
	return sf, nil
}

// newSynthesizer is swapped out by tests.
var newSynthesizer = func(sf *meltysynth.SoundFont, settings *meltysynth.SynthesizerSettings) (synthesizer, error) {
	return meltysynth.NewSynthesizer(sf, settings)
}

func New(sf *meltysynth.SoundFont, sampleRate int, params Params) (*Engine, error) {
	if params.BlockSize <= 0 {
		params.BlockSize = DefaultParams().BlockSize
	}
	settings := meltysynth.NewSynthesizerSettings(int32(sampleRate))
	settings.BlockSize = int32(params.BlockSize)
	syn, err := newSynthesizer(sf, settings)
	if err != nil {
		return nil, err
	}
	return newEngine(syn, sampleRate, params), nil
}

func newEngine(syn synthesizer, sampleRate int, params Params) *Engine {
	if params.BlockSize <= 0 {
		params.BlockSize = DefaultParams().BlockSize
	}
	e := &Engine{
		synth:         syn,
		left:          make([]float32, params.BlockSize),
		right:         make([]float32, params.BlockSize),
		pos:           params.BlockSize,
		masterGain:    math.Float64bits(params.MasterGain),
		voices:        map[int]held{},
		refs:          map[held]int{},
		releaseFrames: int(params.ReleaseSec * float64(sampleRate)),
	}
	syn.ProcessMidiMessage(melodyChannel, 0xC0, int32(params.MelodyProgram), 0)
	syn.ProcessMidiMessage(chordChannel, 0xC0, int32(params.ChordProgram), 0)
	return e
}

// NoteOn maps ABC channel 0 to MIDI channel 0 and every chord channel to
// MIDI channel 1.
func (e *Engine) NoteOn(key int, velocity int, channel int) int {
	h := held{channel: melodyChannel, key: int32(key)}
	if channel > 0 {
		h.channel = chordChannel
	}
	id := e.nextID
	e.nextID++
	e.voices[id] = h
	e.refs[h]++
	e.synth.NoteOn(h.channel, h.key, int32(velocity))
	return id
}

// NoteOff releases the key once every voice holding it has been released.
func (e *Engine) NoteOff(id int) {
	h, ok := e.voices[id]
	if !ok {
		return
	}
	delete(e.voices, id)
	e.refs[h]--
	if e.refs[h] > 0 {
		return
	}
	delete(e.refs, h)
	e.synth.NoteOff(h.channel, h.key)
	e.tail = e.releaseFrames
}

func (e *Engine) RenderFrame() (float32, float32) {
	if e.pos >= len(e.left) {
		e.synth.Render(e.left, e.right)
		e.pos = 0
	}
	g := float32(math.Float64frombits(atomic.LoadUint64(&e.masterGain)))
	l, r := e.left[e.pos]*g, e.right[e.pos]*g
	e.pos++
	if e.tail > 0 && len(e.voices) == 0 {
		e.tail--
	}
	return l, r
}

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

// ActiveVoiceCount counts held notes, plus one while the last release is
// still ringing.
func (e *Engine) ActiveVoiceCount() int {
	n := len(e.voices)
	if n == 0 && e.tail > 0 {
		return 1
	}
	return n
}
