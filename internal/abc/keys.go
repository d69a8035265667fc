package abc

import "strings"

// Key is a parsed K: field.
type Key struct {
	Tonic  string // e.g. "F#"
	Mode   string // "", "m", "Mix", "Dor", "Phr", "Lyd" or "Loc"
	Fifths int    // position on the circle of fifths, negative for flats

	// Accidentals maps an upper-case letter to its default semitone offset.
	Accidentals map[byte]int
}

func (k Key) String() string {
	if k.Tonic == "" {
		return "C"
	}
	return k.Tonic + k.Mode
}

var tonicFifths = map[byte]int{
	'F': -1, 'C': 0, 'G': 1, 'D': 2, 'A': 3, 'E': 4, 'B': 5,
}

// modeFifths shifts a major tonic to the same key signature in another mode,
// so A minor and D dorian both land on 0.
var modeFifths = map[string]int{
	"": 0, "m": -3, "Mix": -1, "Dor": -2, "Phr": -4, "Lyd": 1, "Loc": -5,
}

const (
	sharpOrder = "FCGDAEB"
	flatOrder  = "BEADGCF"
)

// ParseKey reads a key signature such as "G", "Bbm", "F# dorian", "Cmaj"
// or "D ^g =c". Unknown text yields C major.
func ParseKey(text string) Key {
	k := Key{Accidentals: map[byte]int{}}
	s := strings.TrimSpace(text)
	if s == "" || lowerASCII(s) == "none" {
		return k
	}
	i := 0
	if t := upperASCII(s[0]); t >= 'A' && t <= 'G' {
		k.Tonic = string(t)
		i++
		if i < len(s) && (s[i] == '#' || s[i] == 'b') {
			k.Tonic += string(s[i])
			i++
		}
	}
	for i < len(s) && s[i] == ' ' {
		i++
	}
	j := i
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	k.Mode = normalizeMode(s[i:j])
	if _, ok := modeFifths[k.Mode]; !ok {
		// clef=, transpose= and similar words are not modes.
		k.Mode = ""
		j = i
	}
	if k.Tonic != "" {
		k.Fifths = tonicFifths[k.Tonic[0]]
		if len(k.Tonic) > 1 {
			if k.Tonic[1] == '#' {
				k.Fifths += 7
			} else {
				k.Fifths -= 7
			}
		}
		k.Fifths += modeFifths[k.Mode]
	}
	for n := 0; n < k.Fifths; n++ {
		k.Accidentals[sharpOrder[n%7]]++
	}
	for n := 0; n > k.Fifths; n-- {
		k.Accidentals[flatOrder[(-n)%7]]--
	}
	for _, word := range strings.Fields(s[j:]) {
		applyExplicitAccidental(k.Accidentals, word)
	}
	return k
}

// KeyAccidentals returns the default accidental per upper-case letter.
func KeyAccidentals(text string) map[byte]int {
	return ParseKey(text).Accidentals
}

func normalizeMode(word string) string {
	if word == "" {
		return ""
	}
	m := []byte{upperASCII(word[0])}
	for i := 1; i < len(word) && i < 3; i++ {
		m = append(m, lower(word[i]))
	}
	switch mode := string(m); mode {
	case "Maj", "Ion":
		return ""
	case "Min", "Aeo", "M":
		return "m"
	default:
		return mode
	}
}

func applyExplicitAccidental(acc map[byte]int, word string) {
	steps := 0
	i := 0
	for ; i < len(word) && strings.IndexByte("^_=", word[i]) >= 0; i++ {
		switch word[i] {
		case '^':
			steps++
		case '_':
			steps--
		}
	}
	if i == 0 || i >= len(word) || !isNoteLetter(word[i]) {
		return
	}
	if steps == 0 {
		delete(acc, upperASCII(word[i]))
		return
	}
	acc[upperASCII(word[i])] = steps
}
