package abc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
)

// Tune is one X: section. Tune 0 of a Book holds the fields that precede the
// first X: and is never played itself.
type Tune struct {
	Number   int // value of X:, 0 when absent
	Header   Header
	Tokens   []string
	Duration time.Duration

	raw strings.Builder
}

func (t *Tune) Title() string {
	v, _ := t.Header.First('T')
	return v
}

// Book is a loaded ABC file. It is immutable after Load and may be shared by
// any number of playback sessions.
type Book struct {
	Tunes    []*Tune
	Version  string
	Lotro    bool
	Warnings []string
	Settings Settings
}

// Len returns the number of playable tunes, not counting the global header.
func (b *Book) Len() int { return len(b.Tunes) - 1 }

// Tune returns tune index, counting from 1 in file order.
func (b *Book) Tune(index int) (*Tune, error) {
	if index < 1 || index >= len(b.Tunes) {
		return nil, ErrNoTune
	}
	return b.Tunes[index], nil
}

func (b *Book) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	b.Warnings = append(b.Warnings, msg)
	if b.Settings.Logger != nil {
		b.Settings.Logger.Printf("abc: warning: %s", msg)
	}
}

// Load parses every tune in text and measures each tune's duration. Oversized
// input and overlong tunes only produce warnings. In strict mode a missing or
// old %abc version line, a misplaced T: field or a malformed tempo fails with
// a *StrictError. Zero limits in cfg take their DefaultSettings value.
func Load(text string, cfg Settings) (*Book, error) {
	cfg = cfg.normalized()
	b := &Book{
		Tunes:    []*Tune{{}},
		Lotro:    cfg.LotroCompatible,
		Settings: cfg,
	}
	if cfg.MaxSize > 0 && len(text) > cfg.MaxSize {
		b.warnf("input is %s, over the %s limit", humanize.Bytes(uint64(len(text))), humanize.Bytes(uint64(cfg.MaxSize)))
	}
	lines := splitLines(strings.TrimPrefix(text, "\ufeff"))
	if len(lines) == 0 {
		return b, nil
	}
	if err := b.readVersion(lines[0]); err != nil {
		return nil, err
	}
	l := &loader{book: b}
	for i, line := range lines {
		if err := l.interpret(i+1, line); err != nil {
			return nil, err
		}
	}
	l.finishBody()

	for i := 1; i < len(b.Tunes); i++ {
		t := b.Tunes[i]
		if len(t.Tokens) == 0 {
			continue
		}
		d, err := Measure(b, i)
		if err != nil {
			return nil, fmt.Errorf("tune %d: %w", i, err)
		}
		t.Duration = d
		if cfg.MaxDuration > 0 && d > cfg.MaxDuration {
			b.warnf("tune %d lasts %s, over the %s limit", i,
				durafmt.Parse(d).LimitFirstN(2), durafmt.Parse(cfg.MaxDuration).LimitFirstN(2))
		}
	}
	return b, nil
}

// Measure walks tune index with the same step function playback uses and
// returns the summed step lengths.
func Measure(book *Book, index int) (time.Duration, error) {
	c, err := NewContext(book, index)
	if err != nil {
		return 0, err
	}
	var total time.Duration
	for {
		step, ok := c.Next()
		if !ok {
			break
		}
		total += step.Length
	}
	return total, c.Err()
}

func (b *Book) readVersion(first string) error {
	strict := b.Settings.Strict
	if !strings.HasPrefix(first, "%abc") {
		if strict {
			return &StrictError{Line: 1, Msg: "file does not start with %abc"}
		}
		return nil
	}
	if len(first) < 6 {
		if strict {
			return &StrictError{Line: 1, Msg: "%abc line has no version"}
		}
		return nil
	}
	b.Version = strings.TrimSpace(first[5:])
	major, minor, ok := parseVersion(b.Version)
	switch {
	case !ok && strict:
		return &StrictError{Line: 1, Msg: "unreadable version " + strconv.Quote(b.Version)}
	case !ok:
		b.warnf("unreadable version %q", b.Version)
	case strict && (major < 2 || major == 2 && minor < 1):
		return &StrictError{Line: 1, Msg: "version " + b.Version + " is older than 2.1"}
	}
	return nil
}

func parseVersion(v string) (int, int, bool) {
	majorText, minorText, found := strings.Cut(v, ".")
	if !found {
		return 0, 0, false
	}
	major, err := strconv.Atoi(majorText)
	if err != nil {
		return 0, 0, false
	}
	minor, err := strconv.Atoi(minorText)
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}

type loader struct {
	book   *Book
	inBody bool
}

func (l *loader) current() *Tune { return l.book.Tunes[len(l.book.Tunes)-1] }

func (l *loader) interpret(lineNo int, raw string) error {
	if l.book.Settings.AutoDetectLotro && isLotroMarker(raw) {
		l.book.Lotro = true
	}
	line := raw
	if i := strings.IndexByte(line, '%'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if !l.inBody {
		return l.header(lineNo, line)
	}
	if line == "" && raw != "" {
		// Blank only because a comment or whitespace was removed.
		return nil
	}
	if line == "" && !l.book.Settings.Strict && l.current().raw.Len() == 0 {
		return nil
	}
	return l.body(lineNo, line)
}

func (l *loader) header(lineNo int, line string) error {
	f, ok := ParseField(line)
	if !ok {
		return nil
	}
	t := l.current()
	if f.ID == 'T' && l.book.Settings.Strict && (t.Header.Len() != 1 || !t.Header.Has('X')) {
		return &StrictError{Line: lineNo, Msg: "T: is only allowed directly after X:"}
	}
	switch f.ID {
	case 'X':
		n, _ := strconv.Atoi(f.Text)
		t = &Tune{Number: n}
		l.book.Tunes = append(l.book.Tunes, t)
	case 'K':
		l.inBody = true
		if len(l.book.Tunes) == 1 {
			// A body without any X: still forms a tune.
			t = &Tune{}
			l.book.Tunes = append(l.book.Tunes, t)
		}
	}
	t.Header.Add(f)
	return nil
}

// body appends one line of notation. K:, L:, Q: and M: lines become inline
// fields; other information lines are dropped. An empty line closes the
// current body; an X: line starts the next tune.
func (l *loader) body(lineNo int, line string) error {
	if line == "" {
		l.finishBody()
		return nil
	}
	f, isField := ParseField(line)
	if isField && f.ID == 'X' {
		l.finishBody()
		l.inBody = false
		return l.header(lineNo, line)
	}
	t := l.current()
	switch line[0] {
	case 'K', 'L', 'Q', 'M':
		if isField {
			t.raw.WriteString("[" + line + "]")
		}
	case 'I', 'N', 'O', 'P', 'R', 'T', 'U', 'V', 'W', 'm', 'r', 's', 'w':
	default:
		t.raw.WriteString(line)
	}
	return nil
}

func (l *loader) finishBody() {
	t := l.current()
	if t.raw.Len() == 0 {
		t.Tokens = nil
		return
	}
	t.Tokens = Tokenize(cleanBody(t.raw.String()))
}

func cleanBody(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\\', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}

// isLotroMarker spots the comment and note lines that LotRO export tools
// write, which means every octave reads one lower.
func isLotroMarker(raw string) bool {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "%") && !strings.HasPrefix(s, "N:") && !strings.HasPrefix(s, "Z:") {
		return false
	}
	return strings.Contains(lowerASCII(s), "lotro")
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
