package abcplay

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/cbegin/abcplay-go/internal/abc"
	intaudio "github.com/cbegin/abcplay-go/internal/audio"
	intchip "github.com/cbegin/abcplay-go/internal/chiptune"
	intfx "github.com/cbegin/abcplay-go/internal/effects"
	intseq "github.com/cbegin/abcplay-go/internal/sequencer"
	intsf "github.com/cbegin/abcplay-go/internal/soundfont"
)

// PlaybackEvent carries playback events from Watch().
type PlaybackEvent struct {
	Kind int // EventLoopCompleted or EventPlaybackEnded
	Tune int
}

const (
	EventLoopCompleted int = iota
	EventPlaybackEnded
)

var ErrNotPlaying = errors.New("abcplay: nothing is playing")

type PlayerOption func(*playerConfig)

type playerConfig struct {
	settings     abc.Settings
	soundFont    *meltysynth.SoundFont
	soundFontErr error
	loopPlayback bool
	transpose    int
	reverb       float64
	sampleTap    func([]float32)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{settings: abc.DefaultSettings()}
}

// WithSettings replaces the parser settings used by PlayABC.
func WithSettings(cfg abc.Settings) PlayerOption {
	return func(c *playerConfig) {
		c.settings = cfg
	}
}

// WithSoundFont renders through the .sf2 file at path instead of the
// built-in chiptune voices.
func WithSoundFont(path string) PlayerOption {
	return func(c *playerConfig) {
		c.soundFont, c.soundFontErr = intsf.LoadFile(path)
	}
}

func WithLoopPlayback(enabled bool) PlayerOption {
	return func(c *playerConfig) {
		c.loopPlayback = enabled
	}
}

// WithTranspose shifts every note by semitones.
func WithTranspose(semitones int) PlayerOption {
	return func(c *playerConfig) {
		c.transpose = semitones
	}
}

// WithReverb mixes a room reverb into the output. mix is the wet share, 0..1.
func WithReverb(mix float64) PlayerOption {
	return func(c *playerConfig) {
		c.reverb = mix
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(c *playerConfig) {
		c.sampleTap = tap
	}
}

// Player plays one tune at a time on the system audio device.
type Player struct {
	mu         sync.Mutex
	cfg        playerConfig
	sampleRate int
	engine     intseq.VoiceEngine
	baseGain   float64
	volume     float64
	source     *tuneSource
	tune       int
	audio      *intaudio.Device
	done       chan struct{}
	eventCh    chan PlaybackEvent
	eventChMu  sync.Mutex
}

// tuneSource guards a sequencer shared between the audio thread and the
// Player's callers.
type tuneSource struct {
	mu        sync.Mutex
	seq       *intseq.Sequencer
	ended     atomic.Bool
	room      *intfx.Room
	sampleTap func([]float32)
}

func (s *tuneSource) Process(dst []float32) {
	s.mu.Lock()
	s.seq.Process(dst)
	s.mu.Unlock()
	if s.room != nil {
		s.room.Apply(dst)
	}
	if s.sampleTap != nil {
		s.sampleTap(dst)
	}
}

func (s *tuneSource) Ended() bool { return s.ended.Load() }

func (s *tuneSource) seek(position time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room != nil {
		s.room.Reset()
	}
	return s.seq.Seek(position)
}

func (s *tuneSource) elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Elapsed()
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.soundFontErr != nil {
		return nil, cfg.soundFontErr
	}
	p := &Player{cfg: cfg, sampleRate: sampleRate, volume: 1}
	engine, gain, err := p.newEngine()
	if err != nil {
		return nil, err
	}
	p.engine, p.baseGain = engine, gain
	return p, nil
}

func (p *Player) newEngine() (intseq.VoiceEngine, float64, error) {
	if p.cfg.soundFont != nil {
		params := intsf.DefaultParams()
		e, err := intsf.New(p.cfg.soundFont, p.sampleRate, params)
		if err != nil {
			return nil, 0, err
		}
		return e, params.MasterGain, nil
	}
	params := intchip.DefaultParams()
	return intchip.New(p.sampleRate, params), params.MasterGain, nil
}

// PlayABC parses text and plays its first tune.
func (p *Player) PlayABC(text string) error {
	book, err := abc.Load(text, p.cfg.settings)
	if err != nil {
		return err
	}
	return p.PlayTune(book, 1)
}

// PlayTune replaces whatever is playing with tune index of book.
func (p *Player) PlayTune(book *abc.Book, index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A fresh engine per tune keeps voice state from leaking between tunes.
	engine, gain, err := p.newEngine()
	if err != nil {
		return err
	}
	engine.SetMasterGain(gain * p.volume)

	source := &tuneSource{sampleTap: p.cfg.sampleTap}
	if p.cfg.reverb > 0 {
		params := intfx.DefaultRoom()
		params.Mix = p.cfg.reverb
		source.room = intfx.NewRoom(p.sampleRate, params)
	}
	seq, err := intseq.NewWithOptions(book, index, engine, p.sampleRate, intseq.Options{
		LoopWholeTune: p.cfg.loopPlayback,
		Transpose:     p.cfg.transpose,
		OnEvent: func(kind intseq.EventKind) {
			if kind == intseq.EventPlaybackEnded {
				source.ended.Store(true)
			}
			p.sendEvent(PlaybackEvent{Kind: int(kind), Tune: index})
			if kind == intseq.EventPlaybackEnded {
				p.signalDone(source)
			}
		},
	})
	if err != nil {
		return err
	}
	source.seq = seq

	backend, err := intaudio.Open(p.sampleRate, source)
	if err != nil {
		return err
	}
	if p.audio != nil {
		_ = p.audio.Close()
	}
	// Signal any existing Wait() that the previous playback was replaced
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})
	p.engine, p.baseGain = engine, gain
	p.source, p.tune = source, index
	p.audio = backend
	p.audio.Play()
	return nil
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}

// signalDone releases Wait, unless source has already been replaced.
func (p *Player) signalDone(source *tuneSource) {
	p.mu.Lock()
	var done chan struct{}
	if p.source == source {
		done = p.done
		p.done = nil
	}
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.audio.Close()
	p.audio = nil
	p.source = nil
	tune := p.tune
	done := p.done
	p.done = nil
	p.mu.Unlock()
	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded, Tune: tune})
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until the current tune ends. With loop playback enabled it
// blocks until Stop.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives playback events. The channel is
// buffered (cap 8) and events are dropped when it is full. Only the most
// recent Watch() channel receives events.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// Seek moves the playing tune to position. Notes already sounding are cut.
func (p *Player) Seek(position time.Duration) error {
	p.mu.Lock()
	source := p.source
	p.mu.Unlock()
	if source == nil {
		return ErrNotPlaying
	}
	return source.seek(position)
}

// Elapsed is the tune position the sequencer has rendered up to.
func (p *Player) Elapsed() time.Duration {
	p.mu.Lock()
	source := p.source
	p.mu.Unlock()
	if source == nil {
		return 0
	}
	return source.elapsed()
}

// SetMasterVolume sets runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.engine.SetMasterGain(p.baseGain * p.volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// PlaybackPosition returns what the listener actually hears right now.
func (p *Player) PlaybackPosition() time.Duration {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return a.Position()
}
