package abc

import (
	"strconv"
	"strings"
)

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isNoteLetter(c byte) bool {
	return (c >= 'a' && c <= 'g') || (c >= 'A' && c <= 'G')
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func upperASCII(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

func lowerASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, strings.TrimSpace(s))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// digitRun returns the first run of decimal digits in s and its offset.
func digitRun(s string) (string, int, bool) {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			continue
		}
		j := i
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		return s[i:j], i, true
	}
	return "", -1, false
}

func firstNumber(s string) (float64, bool) {
	run, _, ok := digitRun(s)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(run, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

type fraction struct {
	num, den float64
	at       int
}

func (f fraction) value() float64 {
	if f.den == 0 {
		return 0
	}
	return f.num / f.den
}

// fractions finds every non-overlapping "<digits>/<digits>" in s.
func fractions(s string) []fraction {
	var out []fraction
	i := 0
	for i < len(s) {
		if !isDigit(s[i]) {
			i++
			continue
		}
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i+1 >= len(s) || s[i] != '/' || !isDigit(s[i+1]) {
			continue
		}
		num, _ := strconv.ParseFloat(s[start:i], 64)
		i++
		dstart := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		den, _ := strconv.ParseFloat(s[dstart:i], 64)
		out = append(out, fraction{num: num, den: den, at: start})
	}
	return out
}

func firstFraction(s string) (fraction, bool) {
	fs := fractions(s)
	if len(fs) == 0 {
		return fraction{}, false
	}
	return fs[0], true
}

// stripQuoted removes every "..." section from s.
func stripQuoted(s string) string {
	if strings.IndexByte(s, '"') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '"' {
			b.WriteByte(s[i])
			continue
		}
		end := strings.IndexByte(s[i+1:], '"')
		if end < 0 {
			b.WriteString(s[i:])
			break
		}
		i += end + 1
	}
	return b.String()
}
