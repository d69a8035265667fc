package abc

import "strings"

// breakChars start a new run in the first lexer pass.
const breakChars = "|:[{]}zxyZABCDEFGabcdefg_=^<>( -\"+"

// fieldIDs may open an inline field such as [K:D] or [Q:1/4=100].
const fieldIDs = "IKLMmNPQRrsTUVWw"

func isBreak(c byte) bool { return strings.IndexByte(breakChars, c) >= 0 }

func isFieldID(c byte) bool { return strings.IndexByte(fieldIDs, c) >= 0 }

func isBarChar(c byte) bool { return c == '|' || c == ':' || c == '[' || c == ']' || isDigit(c) }

func isTupletChar(c byte) bool { return c == '(' || c == ':' || isDigit(c) }

// lexRule is one reclassification rule of the second lexer pass. scan is
// called on the run at index i and returns the token (possibly empty) and the
// index of the first run it did not consume. scan must consume at least one run.
type lexRule struct {
	name  string
	match func(runs []string, i int) bool
	scan  func(runs []string, i int) (string, int)
}

var lexRules = []lexRule{
	{"sharp", leads('^'), scanAccidental('^')},
	{"flat", leads('_'), scanAccidental('_')},
	{"natural", leads('='), scanNatural},
	{"dynamics", leads('+'), scanDynamics},
	{"inline-field", matchInlineField, scanInlineField},
	{"bar", matchBar, scanBar},
	{"tuplet", leads('('), scanWhile(isTupletChar)},
	{"annotation", leads('"'), scanAnnotation},
}

// Tokenize splits cleaned tune body text into tokens. Chord-symbol
// annotations are dropped; everything else is kept in source order.
func Tokenize(code string) []string {
	runs := splitRuns(code)
	tokens := make([]string, 0, len(runs))
	for i := 0; i < len(runs); {
		tok, next := runs[i], i+1
		for _, rule := range lexRules {
			if !rule.match(runs, i) {
				continue
			}
			if t, n := rule.scan(runs, i); n > i {
				tok, next = t, n
			}
			break
		}
		if tok != "" {
			tokens = append(tokens, tok)
		}
		i = next
	}
	return tokens
}

func splitRuns(code string) []string {
	var runs []string
	start := 0
	for i := 0; i < len(code); i++ {
		if isBreak(code[i]) && i > start {
			runs = append(runs, code[start:i])
			start = i
		}
	}
	if start < len(code) {
		runs = append(runs, code[start:])
	}
	return runs
}

func leads(c byte) func([]string, int) bool {
	return func(runs []string, i int) bool { return runs[i][0] == c }
}

func scanAccidental(mark byte) func([]string, int) (string, int) {
	return func(runs []string, i int) (string, int) {
		var b strings.Builder
		for ; i < len(runs); i++ {
			r := runs[i]
			switch {
			case isNoteLetter(r[0]):
				b.WriteString(r)
				return b.String(), i + 1
			case r[0] == mark:
				b.WriteString(r)
			default:
				return b.String(), i
			}
		}
		return b.String(), i
	}
}

func scanNatural(runs []string, i int) (string, int) {
	for ; i < len(runs); i++ {
		r := runs[i]
		switch {
		case isNoteLetter(r[0]):
			return "=" + r, i + 1
		case r[0] != '=':
			return "", i
		}
	}
	return "", i
}

func scanDynamics(runs []string, i int) (string, int) {
	var b strings.Builder
	b.WriteString(runs[i])
	for i++; i < len(runs); i++ {
		b.WriteString(runs[i])
		if runs[i][0] == '+' {
			return b.String(), i + 1
		}
	}
	return b.String(), i
}

func matchInlineField(runs []string, i int) bool {
	r := runs[i]
	if r[0] != '[' {
		return false
	}
	if len(r) > 1 {
		return isFieldID(r[1])
	}
	return i+1 < len(runs) && isFieldID(runs[i+1][0])
}

func scanInlineField(runs []string, i int) (string, int) {
	var b strings.Builder
	for ; i < len(runs); i++ {
		b.WriteString(runs[i])
		if strings.IndexByte(runs[i], ']') >= 0 {
			return b.String(), i + 1
		}
	}
	return b.String(), i
}

// matchBar covers bar lines, repeats and numbered endings. A lone "[" only
// opens a bar token when the next run continues one, as in "[|" or "[2".
func matchBar(runs []string, i int) bool {
	c := runs[i][0]
	if c == '[' {
		return i+1 < len(runs) && isBarChar(runs[i+1][0]) && runs[i+1][0] != ']'
	}
	return c == '|' || c == ':' || isDigit(c)
}

// scanBar absorbs bar runs greedily but leaves a "[" that directly follows a
// "|" run, so "|[CEG]" still opens a chord.
func scanBar(runs []string, i int) (string, int) {
	var b strings.Builder
	for ; i < len(runs); i++ {
		r := runs[i]
		if !isBarChar(r[0]) {
			break
		}
		if i > 0 && r[0] == '[' && runs[i-1][0] == '|' {
			break
		}
		b.WriteString(r)
	}
	return b.String(), i
}

func scanWhile(ok func(byte) bool) func([]string, int) (string, int) {
	return func(runs []string, i int) (string, int) {
		var b strings.Builder
		for ; i < len(runs) && ok(runs[i][0]); i++ {
			b.WriteString(runs[i])
		}
		return b.String(), i
	}
}

func scanAnnotation(runs []string, i int) (string, int) {
	for i++; i < len(runs); i++ {
		if runs[i][0] == '"' {
			return "", i + 1
		}
	}
	return "", i
}
