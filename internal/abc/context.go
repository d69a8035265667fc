package abc

import (
	"strconv"
	"strings"
	"time"
)

const (
	defaultVolume = 90.0 / 127.0
	// defaultSPM is seconds per whole note at 120 quarter notes per minute.
	defaultSPM = 2.0
)

// Voice is one sounding note of a Step. Channel 0 carries the melody and
// chord members use channels 1 and up in chord order.
type Voice struct {
	Note    Note
	Channel int
}

// Step is the next timed slot of a tune: a note, a rest or a chord. Length
// is how far the cursor advances; a tied note may sound longer than that.
type Step struct {
	Length time.Duration
	Voices []Voice
}

type member struct {
	note  Note
	index int
}

// Context holds everything one walk over a tune mutates: the token cursor,
// accidentals, pending tie continuations, tempo, length and volume. Each
// playback session owns its own Context; the Book is never written.
type Context struct {
	cfg    Settings
	lotro  bool
	tokens []string
	index  int

	defaultAcc  map[byte]int
	accidentals map[string]int
	tied        map[string]int

	noteLength float64
	meter      float64
	spm        float64
	volume     float64
	title      string
	err        error
}

// NewContext prepares a walk over tune index of book. The global header is
// applied first, then the tune's own header, which may infer the default
// note length from the meter. The returned error is a *StrictError when a
// header tempo is malformed under strict mode.
func NewContext(book *Book, index int) (*Context, error) {
	if book == nil || index < 1 || index >= len(book.Tunes) {
		return nil, ErrNoTune
	}
	c := &Context{
		cfg:         book.Settings,
		lotro:       book.Lotro,
		tokens:      book.Tunes[index].Tokens,
		accidentals: make(map[string]int),
		tied:        make(map[string]int),
		meter:       1,
		spm:         defaultSPM,
		volume:      defaultVolume,
	}
	c.applyHeader(book.Tunes[0].Header, false)
	c.applyHeader(book.Tunes[index].Header, true)
	c.startMeasure()
	return c, c.err
}

func (c *Context) Title() string { return c.title }

// Err returns the first strict-mode violation met so far.
func (c *Context) Err() error { return c.err }

// Done reports whether every token has been consumed.
func (c *Context) Done() bool { return c.index >= len(c.tokens) }

// Position is the index of the next token to read.
func (c *Context) Position() int { return c.index }

// Next consumes tokens until one timed step is complete. It reports false
// once the tokens run out without producing another step.
func (c *Context) Next() (Step, bool) {
	inChord := false
	var chord []member
	for c.index < len(c.tokens) {
		i := c.index
		tok := c.tokens[i]
		c.index++
		switch Classify(tok) {
		case TokenChordStart:
			inChord = true
			chord = chord[:0]
		case TokenDynamics:
			c.dynamics(tok)
		case TokenInlineField:
			c.inline(tok)
		case TokenBar:
			c.startMeasure()
		case TokenNote:
			n := c.note(tok, true)
			if !inChord {
				return c.single(n, i), true
			}
			chord = append(chord, member{note: n, index: i})
		case TokenRest:
			r := c.rest(tok)
			if !inChord {
				return Step{Length: r.Length}, true
			}
			chord = append(chord, member{note: r, index: i})
		case TokenChordEnd:
			if inChord {
				return c.chord(chord), true
			}
		}
	}
	return Step{}, false
}

func (c *Context) single(n Note, index int) Step {
	step := Step{Length: n.Length}
	if tied := c.tie(n, index); !tied.IsRest() {
		step.Voices = []Voice{{Note: c.finish(tied), Channel: 0}}
	}
	return step
}

// chord lasts as long as its shortest sounding member. Rests are dropped
// before the member cap is applied.
func (c *Context) chord(members []member) Step {
	var step Step
	sounding := make([]member, 0, len(members))
	for _, m := range members {
		if m.note.IsRest() {
			continue
		}
		if len(sounding) == 0 || m.note.Length < step.Length {
			step.Length = m.note.Length
		}
		sounding = append(sounding, m)
	}
	if len(sounding) > c.cfg.MaxChordNotes {
		sounding = sounding[:c.cfg.MaxChordNotes]
	}
	for _, m := range sounding {
		n := c.tie(m.note, m.index)
		if n.IsRest() {
			continue
		}
		step.Voices = append(step.Voices, Voice{Note: c.finish(n), Channel: len(step.Voices) + 1})
	}
	return step
}

func (c *Context) finish(n Note) Note {
	n.Octave = clampInt(n.Octave, c.cfg.MinOctave, c.cfg.MaxOctave)
	n.Volume = clampFloat(n.Volume, 0, 1)
	return n
}

func (c *Context) startMeasure() {
	clear(c.accidentals)
}

// note resolves a pitch token. With record set, an explicit accidental is
// remembered for the rest of its scope; tie lookahead passes false so that
// peeking ahead never changes state.
func (c *Context) note(tok string, record bool) Note {
	li := noteLetterIndex(tok)
	if li < 0 {
		return Note{Type: RestType}
	}
	explicit, hasExplicit := 0, false
	if n := markRun(tok, '^'); n > 0 {
		explicit, hasExplicit = n, true
	}
	if n := markRun(tok, '_'); n > 0 {
		explicit, hasExplicit = -n, true
	}
	if strings.IndexByte(tok, '=') >= 0 {
		explicit, hasExplicit = 0, true
	}

	octave := c.cfg.DefaultOctave + strings.Count(tok, "'") - strings.Count(tok, ",")
	if c.lotro {
		octave--
	}
	letter := tok[li]
	if letter >= 'a' {
		octave++
	}
	upper := upperASCII(letter)
	scope := string(upper)
	if c.cfg.Propagation == PropagateOctave {
		scope += strconv.Itoa(octave)
	}
	if hasExplicit && record && c.cfg.Propagation != PropagateNone {
		c.accidentals[scope] = explicit
	}

	steps := c.defaultAcc[upper]
	if v, ok := c.accidentals[scope]; ok {
		steps = v
	}
	if hasExplicit {
		steps = explicit
	}
	n := Shift(Note{Type: lower(letter), Octave: octave, Volume: c.volume}, steps)
	n.Octave = clampInt(n.Octave, c.cfg.MinOctave, c.cfg.MaxOctave)
	n.Length = c.length(lengthMultiplier(tok))
	return n
}

func (c *Context) rest(tok string) Note {
	r := Note{Type: RestType}
	if tok[0] != 'Z' {
		r.Length = c.length(lengthMultiplier(tok))
		return r
	}
	bars, ok := firstNumber(tok)
	if !ok || bars <= 0 {
		bars = 1
	}
	r.Length = seconds(c.spm * bars)
	return r
}

func (c *Context) length(multiplier float64) time.Duration {
	whole := clampFloat(c.noteLength*multiplier, c.cfg.ShortestNote, c.cfg.LongestNote)
	return seconds(c.spm * whole)
}

// tie suppresses a note already sustained by an earlier tie, or extends a
// note by every matching note its tie chain reaches.
func (c *Context) tie(n Note, index int) Note {
	if n.IsRest() {
		return n
	}
	key := tieKey(n)
	if c.tied[key] > 0 {
		c.tied[key]--
		n.Type = RestType
		return n
	}
	if !c.tiedAt(index) {
		return n
	}
	for j := index + 1; j < len(c.tokens); j++ {
		if Classify(c.tokens[j]) != TokenNote {
			continue
		}
		next := c.note(c.tokens[j], false)
		if tieKey(next) != key {
			break
		}
		c.tied[key]++
		n.Length += next.Length
		if !c.tiedAt(j) {
			break
		}
	}
	return n
}

func (c *Context) tiedAt(index int) bool {
	return index+1 < len(c.tokens) && strings.HasPrefix(c.tokens[index+1], "-")
}

// tieKey ignores the sharp flag so that a continuation written after a bar
// line, where the accidental no longer applies, is still silenced.
func tieKey(n Note) string {
	return string(n.Type) + strconv.Itoa(n.Octave)
}

var dynamicLevels = map[string]float64{
	"pppp": 30, "ppp": 30, "pp": 45, "p": 60, "mp": 75,
	"mf": 90, "f": 105, "ff": 120, "fff": 127, "ffff": 127,
}

func (c *Context) dynamics(tok string) {
	if v, ok := dynamicLevels[strings.Trim(tok, "+")]; ok {
		c.volume = v / 127
	}
}

func (c *Context) inline(tok string) {
	f, ok := ParseField(tok[1 : len(tok)-1])
	if !ok {
		return
	}
	switch f.ID {
	case 'K':
		c.defaultAcc = KeyAccidentals(f.Text)
	case 'L':
		if v, ok := c.fractionValue(f.Text); ok {
			c.noteLength = v
		}
	case 'M':
		if v, ok := c.meterValue(f.Text); ok {
			c.meter = v
		}
	case 'Q':
		c.tempo(f.Text)
	}
}

func (c *Context) applyHeader(h Header, inferLength bool) {
	if v, ok := h.Last('K'); ok {
		c.defaultAcc = KeyAccidentals(v)
	}
	if v, ok := h.Last('M'); ok {
		if m, ok := c.meterValue(v); ok {
			c.meter = m
		}
	}
	if v, ok := h.First('T'); ok {
		c.title = v
	}
	if v, ok := h.Last('L'); ok {
		if l, ok := c.fractionValue(v); ok {
			c.noteLength = l
		}
	}
	if inferLength && c.noteLength == 0 {
		c.noteLength = 1.0 / 16.0
		if c.meter >= 0.75 {
			c.noteLength = 1.0 / 8.0
		}
	}
	if v, ok := h.Last('Q'); ok {
		c.tempo(v)
	}
}

func (c *Context) fractionValue(s string) (float64, bool) {
	f, ok := firstFraction(s)
	if !ok {
		return 0, false
	}
	return clampFloat(f.value(), c.cfg.ShortestNote, c.cfg.LongestNote), true
}

func (c *Context) meterValue(s string) (float64, bool) {
	switch strings.TrimSpace(s) {
	case "C", "C|":
		return 1, true
	}
	return c.fractionValue(s)
}

// tempo accepts "120", "C=120", "1/4=120", "3/8=60", "1/4 3/8=80",
// "120=1/4" and quoted text such as "Allegro" 1/4=120. Unreadable text keeps
// the previous tempo.
func (c *Context) tempo(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	eq := strings.IndexByte(s, '=')
	if c.cfg.Strict && (eq < 0 || s[0] == 'C') {
		c.fail(&StrictError{Msg: "tempo must be written as x/x=nnn, got " + strconv.Quote(s)})
		return
	}
	beat := 0.25
	var bpm float64
	var ok bool
	switch {
	case eq < 0:
		bpm, ok = firstNumber(s)
	case s[0] == 'C':
		bpm, ok = firstNumber(s[eq:])
	default:
		s = stripQuoted(s)
		eq = strings.IndexByte(s, '=')
		beat = 0
		afterEquals := false
		for _, f := range fractions(s) {
			beat += clampFloat(f.value(), c.cfg.ShortestNote, c.cfg.LongestNote)
			if eq >= 0 && f.at > eq {
				afterEquals = true
			}
		}
		switch {
		case eq < 0:
			bpm, ok = firstNumber(s)
		case afterEquals:
			bpm, ok = firstNumber(s[:eq])
		default:
			bpm, ok = firstNumber(s[eq:])
		}
	}
	if !ok {
		return
	}
	lo := float64(c.cfg.MinTempo) * 0.25
	hi := float64(c.cfg.MaxTempo) * 0.25
	c.spm = 60 / clampFloat(bpm*beat, lo, hi)
}

func (c *Context) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// lengthMultiplier reads the length suffix of a note or rest: "2" doubles,
// "/" halves, "3/2" is one and a half, "//" is a quarter.
func lengthMultiplier(tok string) float64 {
	slashed := false
	digits := ""
	mult := 1.0
	for i := 0; i < len(tok); i++ {
		switch ch := tok[i]; {
		case isDigit(ch):
			digits += string(ch)
		case ch == '/':
			switch {
			case !slashed && digits != "":
				mult = atof(digits)
			case slashed && digits != "":
				mult /= atof(digits)
			case slashed:
				mult /= 2
			}
			digits = ""
			slashed = true
		}
	}
	if mult == 0 {
		mult = 1
	}
	if digits == "" && slashed {
		digits = "2"
	}
	if digits != "" {
		if v := atof(digits); v > 0 {
			if slashed {
				mult /= v
			} else {
				mult *= v
			}
		} else {
			mult = 1
		}
	}
	return mult
}

func markRun(s string, mark byte) int {
	i := strings.IndexByte(s, mark)
	if i < 0 {
		return 0
	}
	n := 0
	for i+n < len(s) && s[i+n] == mark {
		n++
	}
	return n
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
