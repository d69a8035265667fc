package sequencer

import (
	"time"

	"github.com/cbegin/abcplay-go/internal/abc"
	"github.com/cbegin/abcplay-go/internal/playback"
)

type VoiceEngine interface {
	// NoteOn starts MIDI key at velocity (0-127) on an ABC channel: 0 is the
	// melody, 1 and up are chord members. It returns a voice id for NoteOff.
	NoteOn(key int, velocity int, channel int) int
	NoteOff(id int)
	RenderFrame() (float32, float32)
	SetMasterGain(gain float64)
	// ActiveVoiceCount returns the number of voices still sounding, release
	// tails included. Used to detect when playback has fully ended.
	ActiveVoiceCount() int
}

// EventKind identifies sequencer lifecycle events.
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventPlaybackEnded
)

type Options struct {
	LoopWholeTune     bool
	OnEvent           func(EventKind)
	ReleaseTailFrames int // silent frames rendered after the last voice ends (0 = half a second)
	Transpose         int // semitones added to every note
}

type noteOff struct {
	frame int64
	voice int
	fired bool
}

// Sequencer renders one tune of a Book through a VoiceEngine. The sample
// clock is the session clock: frame n is reported to the session as n
// samples of elapsed time.
type Sequencer struct {
	session    *playback.Session
	engine     VoiceEngine
	sampleRate int
	transpose  int
	frame      int64
	noteOffs   []noteOff

	loopWholeTune      bool
	onEvent            func(EventKind)
	tailFrames         int
	tuneExhausted      bool // session stopped and all note-offs fired
	playbackEndedFired bool
	releaseCountdown   int
	loopPending        bool
	loopCountdown      int
	pendingReset       bool
}

func New(book *abc.Book, tune int, engine VoiceEngine, sampleRate int) (*Sequencer, error) {
	return NewWithOptions(book, tune, engine, sampleRate, Options{})
}

func NewWithOptions(book *abc.Book, tune int, engine VoiceEngine, sampleRate int, opts Options) (*Sequencer, error) {
	tailFrames := opts.ReleaseTailFrames
	if tailFrames <= 0 {
		tailFrames = sampleRate / 2
	}
	s := &Sequencer{
		engine:           engine,
		sampleRate:       sampleRate,
		transpose:        opts.Transpose,
		loopWholeTune:    opts.LoopWholeTune,
		onEvent:          opts.OnEvent,
		tailFrames:       tailFrames,
		releaseCountdown: tailFrames,
	}
	s.session = playback.New(book, s)
	if err := s.session.Select(tune); err != nil {
		return nil, err
	}
	if err := s.session.Play(0); err != nil {
		return nil, err
	}
	return s, nil
}

// PlayNote schedules one note from the session. The note-off lands on the
// first frame at or after the note's end.
func (s *Sequencer) PlayNote(n abc.Note, channel int, at time.Duration) {
	key := n.Key() + s.transpose
	if key < 0 || key > 127 {
		return
	}
	velocity := int(n.Volume*127 + 0.5)
	id := s.engine.NoteOn(key, velocity, channel)
	s.noteOffs = append(s.noteOffs, noteOff{frame: s.frameAt(at + n.Length), voice: id})
}

func (s *Sequencer) Process(dst []float32) {
	frames := len(dst) / 2
	for f := 0; f < frames; f++ {
		if s.pendingReset {
			s.resetForLoop()
		}
		s.dispatchFrame()
		l, r := s.engine.RenderFrame()
		dst[f*2] = l
		dst[f*2+1] = r
		s.frame++
		if s.loopPending && s.engine.ActiveVoiceCount() == 0 {
			if s.loopCountdown <= 0 {
				s.loopPending = false
				s.pendingReset = true
				if s.onEvent != nil {
					s.onEvent(EventLoopCompleted)
				}
			} else {
				s.loopCountdown--
			}
		}
		if s.tuneExhausted && !s.playbackEndedFired && s.engine.ActiveVoiceCount() == 0 {
			if s.releaseCountdown <= 0 {
				s.playbackEndedFired = true
				if s.onEvent != nil {
					s.onEvent(EventPlaybackEnded)
				}
			} else {
				s.releaseCountdown--
			}
		}
	}
}

func (s *Sequencer) dispatchFrame() {
	s.session.Update(s.clock())
	for i := range s.noteOffs {
		if !s.noteOffs[i].fired && s.noteOffs[i].frame <= s.frame {
			s.engine.NoteOff(s.noteOffs[i].voice)
			s.noteOffs[i].fired = true
		}
	}
	s.compactNoteOffs()
	if len(s.noteOffs) > 0 || s.session.Playing() {
		return
	}
	if s.loopWholeTune {
		if !s.loopPending && !s.pendingReset {
			s.loopPending = true
			s.loopCountdown = s.tailFrames
		}
		return
	}
	s.tuneExhausted = true
}

func (s *Sequencer) resetForLoop() {
	s.pendingReset = false
	s.loopPending = false
	s.frame = 0
	s.noteOffs = s.noteOffs[:0]
	if err := s.session.Play(0); err != nil {
		// A tune that cannot restart ends playback.
		s.loopWholeTune = false
		s.tuneExhausted = true
	}
}

// Seek releases every sounding voice and moves the tune to position. Notes
// that started before position are not restarted.
func (s *Sequencer) Seek(position time.Duration) error {
	s.releaseAll()
	s.tuneExhausted = false
	s.playbackEndedFired = false
	s.releaseCountdown = s.tailFrames
	s.loopPending = false
	s.pendingReset = false
	s.frame = s.frameAt(position)
	return s.session.Seek(s.clock(), position)
}

func (s *Sequencer) releaseAll() {
	for i := range s.noteOffs {
		if !s.noteOffs[i].fired {
			s.engine.NoteOff(s.noteOffs[i].voice)
		}
	}
	s.noteOffs = s.noteOffs[:0]
}

// Elapsed is the tune position of the last rendered frame.
func (s *Sequencer) Elapsed() time.Duration { return s.session.Elapsed() }

func (s *Sequencer) Duration() time.Duration { return s.session.Duration() }

func (s *Sequencer) Title() string { return s.session.Title() }

// Ended reports whether a non-looping tune has played out, release tail included.
func (s *Sequencer) Ended() bool { return s.playbackEndedFired }

func (s *Sequencer) clock() time.Duration {
	return time.Duration(s.frame) * time.Second / time.Duration(s.sampleRate)
}

// frameAt is the first frame whose clock reading is at or after d.
func (s *Sequencer) frameAt(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sr := int64(s.sampleRate)
	return (int64(d)*sr + int64(time.Second) - 1) / int64(time.Second)
}

func (s *Sequencer) compactNoteOffs() {
	if len(s.noteOffs) == 0 {
		return
	}
	j := 0
	for i := range s.noteOffs {
		if !s.noteOffs[i].fired {
			s.noteOffs[j] = s.noteOffs[i]
			j++
		}
	}
	s.noteOffs = s.noteOffs[:j]
	// Insertion sort: notes arrive nearly in end order, so this stays cheap.
	for i := 1; i < len(s.noteOffs); i++ {
		key := s.noteOffs[i]
		k := i - 1
		for k >= 0 && s.noteOffs[k].frame > key.frame {
			s.noteOffs[k+1] = s.noteOffs[k]
			k--
		}
		s.noteOffs[k+1] = key
	}
}
