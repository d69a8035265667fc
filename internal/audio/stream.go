// Package audio streams rendered frames to the system audio device.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Source fills dst with interleaved stereo frames.
type Source interface {
	Process(dst []float32)
}

// Ender is a Source that knows when the tune is over. The stream reports
// io.EOF after the first read that observes Ended.
type Ender interface {
	Source
	Ended() bool
}

// Stream adapts a Source to the little-endian float32 byte stream ebiten
// expects.
type Stream struct {
	mu     sync.Mutex
	source Source
	frames []float32
	done   bool
}

func NewStream(source Source) *Stream {
	return &Stream{source: source}
}

func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return 0, io.EOF
	}
	n := len(p) / 8 * 2
	if n == 0 {
		return 0, nil
	}
	if cap(s.frames) < n {
		s.frames = make([]float32, n)
	}
	s.frames = s.frames[:n]
	s.source.Process(s.frames)
	for i, v := range s.frames {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	if e, ok := s.source.(Ender); ok && e.Ended() {
		s.done = true
		return n * 4, io.EOF
	}
	return n * 4, nil
}

func (s *Stream) Close() error { return nil }

var (
	contextOnce sync.Once
	context     *ebitaudio.Context
	contextRate int
)

// ebiten allows one audio context per process.
func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	contextOnce.Do(func() {
		contextRate = sampleRate
		context = ebitaudio.NewContext(sampleRate)
	})
	if contextRate != sampleRate {
		return nil, fmt.Errorf("audio: context already running at %d Hz, cannot open %d Hz", contextRate, sampleRate)
	}
	return context, nil
}

// Device is one playing stream on the shared audio context.
type Device struct {
	player *ebitaudio.Player
	stream *Stream
}

func Open(sampleRate int, source Source) (*Device, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	stream := NewStream(source)
	pl, err := ctx.NewPlayerF32(stream)
	if err != nil {
		return nil, err
	}
	return &Device{player: pl, stream: stream}, nil
}

func (d *Device) Play()         { d.player.Play() }
func (d *Device) Pause()        { d.player.Pause() }
func (d *Device) Playing() bool { return d.player.IsPlaying() }

// Position is what the listener hears, behind the sequencer by the device buffer.
func (d *Device) Position() time.Duration { return d.player.Position() }

func (d *Device) Close() error {
	d.player.Pause()
	if err := d.player.Close(); err != nil {
		return err
	}
	return d.stream.Close()
}
