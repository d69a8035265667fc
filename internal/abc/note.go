package abc

import (
	"math"
	"strconv"
	"time"
)

// RestType marks a Note that does not sound.
const RestType = 'r'

var letterSemitones = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

// Note is a resolved pitch. Flats and naturals are folded into the sharp flag
// by Shift, so a Note never carries a flat.
type Note struct {
	Type   byte // 'a'..'g' or RestType
	Octave int
	Sharp  bool
	Volume float64
	Length time.Duration
}

func (n Note) IsRest() bool { return n.Type == RestType }

// Key returns the MIDI key number, with octave 4 holding middle C (60).
func (n Note) Key() int {
	semi, ok := letterSemitones[n.Type]
	if !ok {
		return -1
	}
	if n.Sharp {
		semi++
	}
	return (n.Octave+1)*12 + semi
}

func (n Note) Frequency() float64 {
	key := n.Key()
	if key < 0 {
		return 0
	}
	return 440 * math.Pow(2, float64(key-69)/12)
}

func (n Note) String() string {
	if n.IsRest() {
		return "rest"
	}
	b := []byte{upperASCII(n.Type)}
	if n.Sharp {
		b = append(b, '#')
	}
	return string(strconv.AppendInt(b, int64(n.Octave), 10))
}

// Shift moves n by steps semitones using only the sharp flag. Stepping up
// from b carries into the next octave, stepping down from c borrows from the
// previous one.
func Shift(n Note, steps int) Note {
	for ; steps > 0; steps-- {
		switch n.Type {
		case 'a', 'c', 'd', 'f', 'g':
			if !n.Sharp {
				n.Sharp = true
				continue
			}
			n.Type = nextLetter(n.Type)
			n.Sharp = false
		case 'b':
			n.Type = 'c'
			n.Octave++
		case 'e':
			n.Type = 'f'
		}
	}
	for ; steps < 0; steps++ {
		switch n.Type {
		case 'a', 'd', 'g':
			if n.Sharp {
				n.Sharp = false
				continue
			}
			n.Type = prevLetter(n.Type)
			n.Sharp = true
		case 'c':
			if n.Sharp {
				n.Sharp = false
				continue
			}
			n.Type = 'b'
			n.Octave--
		case 'f':
			if n.Sharp {
				n.Sharp = false
				continue
			}
			n.Type = 'e'
		case 'b', 'e':
			n.Type = prevLetter(n.Type)
			n.Sharp = true
		}
	}
	return n
}

func nextLetter(c byte) byte {
	if c == 'g' {
		return 'a'
	}
	return c + 1
}

func prevLetter(c byte) byte {
	if c == 'a' {
		return 'g'
	}
	return c - 1
}
