package abc

import "strings"

type TokenKind int

const (
	TokenOther TokenKind = iota
	TokenBar
	TokenInlineField
	TokenNote
	TokenRest
	TokenChordStart
	TokenChordEnd
	TokenTie
	TokenDynamics
	TokenTuplet
)

var tokenKindNames = [...]string{
	TokenOther:       "other",
	TokenBar:         "bar",
	TokenInlineField: "inline-field",
	TokenNote:        "note",
	TokenRest:        "rest",
	TokenChordStart:  "chord-start",
	TokenChordEnd:    "chord-end",
	TokenTie:         "tie",
	TokenDynamics:    "dynamics",
	TokenTuplet:      "tuplet",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return "unknown"
}

// Classify reports how the playback walk treats a token. A "!...!"
// decoration opens a chord in this dialect, like a bare "[".
func Classify(tok string) TokenKind {
	if tok == "" {
		return TokenOther
	}
	switch c := tok[0]; {
	case tok == "[" || c == '!':
		return TokenChordStart
	case c == '+':
		return TokenDynamics
	case isInlineField(tok):
		return TokenInlineField
	case c == '|' || c == ':' || c == '[':
		return TokenBar
	case c == '^' || c == '_' || c == '=' || isNoteLetter(c):
		if noteLetterIndex(tok) < 0 {
			return TokenOther
		}
		return TokenNote
	case c == 'z' || c == 'x' || c == 'y' || c == 'Z':
		return TokenRest
	case c == ']':
		return TokenChordEnd
	case c == '-':
		return TokenTie
	case c == '(':
		return TokenTuplet
	}
	return TokenOther
}

// isInlineField matches "[X:...]" but not repeat markers such as "[|:]".
func isInlineField(tok string) bool {
	return len(tok) > 2 && tok[0] == '[' && tok[2] == ':' &&
		tok[1] != '|' && tok[1] != ':' && strings.HasSuffix(tok, "]")
}

func noteLetterIndex(tok string) int {
	for i := 0; i < len(tok); i++ {
		if isNoteLetter(tok[i]) {
			return i
		}
	}
	return -1
}
