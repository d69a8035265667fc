package abc

import (
	"log"
	"time"
)

// Propagation selects how far an explicit accidental reaches.
type Propagation int

const (
	// PropagateOctave applies an accidental to the same letter in the same octave until the next bar.
	PropagateOctave Propagation = iota
	// PropagateBar applies an accidental to the same letter in any octave until the next bar.
	PropagateBar
	// PropagateNone applies an accidental only to the note that carries it.
	PropagateNone
)

func (p Propagation) String() string {
	switch p {
	case PropagateOctave:
		return "octave"
	case PropagateBar:
		return "bar"
	case PropagateNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParsePropagation maps "octave", "bar" or "none" to a Propagation.
func ParsePropagation(s string) (Propagation, bool) {
	switch lowerASCII(s) {
	case "octave", "":
		return PropagateOctave, true
	case "bar", "measure":
		return PropagateBar, true
	case "none", "not", "off":
		return PropagateNone, true
	}
	return PropagateOctave, false
}

type Settings struct {
	MaxSize       int
	MaxDuration   time.Duration
	MinOctave     int
	MaxOctave     int
	MinTempo      int // quarter notes per minute
	MaxTempo      int
	ShortestNote  float64 // fraction of a whole note
	LongestNote   float64
	MaxChordNotes int
	DefaultOctave int
	Propagation   Propagation

	LotroCompatible bool
	AutoDetectLotro bool
	Strict          bool

	// Logger receives soft warnings. Nil disables logging; warnings are still kept on the Book.
	Logger *log.Logger
}

func DefaultSettings() Settings {
	return Settings{
		MaxSize:         12288,
		MaxDuration:     5 * time.Minute,
		MinOctave:       1,
		MaxOctave:       7,
		MinTempo:        32,
		MaxTempo:        255,
		ShortestNote:    1.0 / 64.0,
		LongestNote:     2,
		MaxChordNotes:   3,
		DefaultOctave:   4,
		Propagation:     PropagateOctave,
		AutoDetectLotro: true,
	}
}

// normalized fills zero limits from DefaultSettings and repairs inverted
// ranges. MaxSize and MaxDuration stay zero, which disables those warnings.
func (s Settings) normalized() Settings {
	def := DefaultSettings()
	if s.MinOctave == 0 && s.MaxOctave == 0 || s.MaxOctave < s.MinOctave {
		s.MinOctave, s.MaxOctave = def.MinOctave, def.MaxOctave
	}
	if s.DefaultOctave < s.MinOctave || s.DefaultOctave > s.MaxOctave {
		s.DefaultOctave = clampInt(def.DefaultOctave, s.MinOctave, s.MaxOctave)
	}
	if s.MinTempo <= 0 {
		s.MinTempo = def.MinTempo
	}
	if s.MaxTempo <= 0 {
		s.MaxTempo = def.MaxTempo
	}
	if s.MaxTempo < s.MinTempo {
		s.MaxTempo = s.MinTempo
	}
	if s.ShortestNote <= 0 {
		s.ShortestNote = def.ShortestNote
	}
	if s.LongestNote <= 0 {
		s.LongestNote = def.LongestNote
	}
	if s.LongestNote < s.ShortestNote {
		s.LongestNote = s.ShortestNote
	}
	if s.MaxChordNotes <= 0 {
		s.MaxChordNotes = def.MaxChordNotes
	}
	return s
}
