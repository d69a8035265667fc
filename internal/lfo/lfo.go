package lfo

import (
	"math"
	"strings"
)

// Shape selects the oscillator waveform.
type Shape int

const (
	Sine Shape = iota
	Triangle
	Square
	Saw
)

func (s Shape) String() string {
	switch s {
	case Triangle:
		return "triangle"
	case Square:
		return "square"
	case Saw:
		return "saw"
	default:
		return "sine"
	}
}

// ParseShape accepts the names returned by Shape.String.
func ParseShape(name string) (Shape, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sine", "sin", "":
		return Sine, true
	case "triangle", "tri":
		return Triangle, true
	case "square", "sq":
		return Square, true
	case "saw":
		return Saw, true
	}
	return Sine, false
}

// LFO is a low-frequency oscillator. Each sounding voice owns one so that
// vibrato starts from phase zero at note-on and only after Delay has passed,
// the way a player holds a long note before adding vibrato.
type LFO struct {
	Shape Shape
	Rate  float64 // Hz
	Depth float64 // peak output, in the caller's units
	Delay float64 // seconds of silence after Reset

	phase   float64
	elapsed float64
}

// Reset restarts the delay and phase; call it at note-on.
func (l *LFO) Reset() {
	l.phase = 0
	l.elapsed = 0
}

func (l *LFO) Active() bool { return l.Depth != 0 && l.Rate != 0 }

// Sample advances one frame and returns a value in [-Depth, +Depth].
func (l *LFO) Sample(sampleRate float64) float64 {
	if !l.Active() || sampleRate <= 0 {
		return 0
	}
	if l.elapsed < l.Delay {
		l.elapsed += 1 / sampleRate
		return 0
	}
	var v float64
	switch l.Shape {
	case Triangle:
		if l.phase < 0.5 {
			v = 4*l.phase - 1
		} else {
			v = 3 - 4*l.phase
		}
	case Square:
		v = -1
		if l.phase < 0.5 {
			v = 1
		}
	case Saw:
		v = 1 - 2*l.phase
	default:
		v = math.Sin(2 * math.Pi * l.phase)
	}
	l.phase += l.Rate / sampleRate
	l.phase -= math.Floor(l.phase)
	return v * l.Depth
}
