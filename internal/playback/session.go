package playback

import (
	"errors"
	"time"

	"github.com/cbegin/abcplay-go/internal/abc"
)

// State is the position of a Session in its Idle → Playing → Stopped cycle.
type State int

const (
	Idle State = iota
	Playing
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyPlaying = errors.New("playback: already playing")
	ErrNoTune         = abc.ErrNoTune
)

// Handler receives every sounding note. at is the note's scheduled start on
// the caller's clock, which may be earlier than the Update call reporting it.
type Handler interface {
	PlayNote(n abc.Note, channel int, at time.Duration)
}

type HandlerFunc func(n abc.Note, channel int, at time.Duration)

func (f HandlerFunc) PlayNote(n abc.Note, channel int, at time.Duration) { f(n, channel, at) }

// Session walks one tune of a Book against a clock owned by the caller. It is
// not safe for concurrent use; independent sessions may share a Book.
type Session struct {
	book    *abc.Book
	tune    int
	handler Handler

	state State
	ctx   *abc.Context
	start time.Duration // clock reading at tune position zero
	next  time.Duration // scheduled start of the next step
	last  time.Duration // most recent Update reading
	muted bool
}

// New returns an idle session on the first tune of book. handler may be nil.
func New(book *abc.Book, handler Handler) *Session {
	return &Session{book: book, tune: 1, handler: handler}
}

// Select chooses the tune the next Play starts. The session is stopped first.
func (s *Session) Select(tune int) error {
	if _, err := s.book.Tune(tune); err != nil {
		return err
	}
	s.Stop()
	s.tune = tune
	return nil
}

// Play starts the selected tune so that its first step is due at now. A
// strict-mode header error leaves the session stopped.
func (s *Session) Play(now time.Duration) error {
	if s.state == Playing {
		return ErrAlreadyPlaying
	}
	ctx, err := abc.NewContext(s.book, s.tune)
	if err != nil {
		s.state = Stopped
		return err
	}
	s.ctx = ctx
	s.start, s.next, s.last = now, now, now
	s.state = Playing
	return nil
}

// Update emits every step scheduled at or before now, in order. The session
// stops once the tune is exhausted and its last step has ended.
func (s *Session) Update(now time.Duration) { s.advance(now, true) }

func (s *Session) advance(now time.Duration, inclusive bool) {
	if s.state != Playing {
		return
	}
	s.last = now
	for s.next < now || inclusive && s.next == now {
		step, ok := s.ctx.Next()
		if !ok {
			s.Stop()
			return
		}
		if !s.muted && s.handler != nil {
			for _, v := range step.Voices {
				s.handler.PlayNote(v.Note, v.Channel, s.next)
			}
		}
		s.next += step.Length
	}
}

// Stop ends playback from any state.
func (s *Session) Stop() {
	s.state = Stopped
	s.ctx = nil
	s.start, s.next, s.last = 0, 0, 0
}

// Seek restarts the tune so that position is reached at now. Steps that
// start before position are walked silently; a note starting exactly at
// position sounds. Seeking past the end stops the session.
func (s *Session) Seek(now, position time.Duration) error {
	if position < 0 {
		position = 0
	}
	wasMuted := s.muted
	s.Stop()
	s.muted = true
	err := s.Play(now - position)
	if err == nil {
		s.advance(now, false)
	}
	s.muted = wasMuted
	if err != nil {
		return err
	}
	s.Update(now)
	return nil
}

func (s *Session) Mute()       { s.muted = true }
func (s *Session) Unmute()     { s.muted = false }
func (s *Session) Muted() bool { return s.muted }

func (s *Session) State() State  { return s.state }
func (s *Session) Playing() bool { return s.state == Playing }

// Elapsed is the tune position as of the last Update.
func (s *Session) Elapsed() time.Duration {
	if s.state != Playing || s.last < s.start {
		return 0
	}
	return s.last - s.start
}

func (s *Session) Tune() int { return s.tune }

// Duration is the measured length of the selected tune.
func (s *Session) Duration() time.Duration {
	t, err := s.book.Tune(s.tune)
	if err != nil {
		return 0
	}
	return t.Duration
}

func (s *Session) Title() string {
	t, err := s.book.Tune(s.tune)
	if err != nil {
		return ""
	}
	return t.Title()
}

// Err reports the first strict-mode violation met while walking the tune.
func (s *Session) Err() error {
	if s.ctx == nil {
		return nil
	}
	return s.ctx.Err()
}
