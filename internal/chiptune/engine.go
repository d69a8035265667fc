package chiptune

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/abcplay-go/internal/lfo"
)

const twoPi = math.Pi * 2

type Params struct {
	Voices      int
	MasterGain  float64
	AttackSec   float64
	DecaySec    float64
	SustainLvl  float64
	ReleaseSec  float64
	StepLevels  int     // volume quantization, 16 like a 4-bit DAC
	MelodyDuty  float64 // pulse width of channel 0
	ChordWave   Wave
	VelocityAmp float64
	LPFCutoff   float64 // Hz, 0 disables the output lowpass

	// Vibrato applies to notes held past VibratoDelay.
	VibratoDepth float64 // semitones
	VibratoRate  float64 // Hz
	VibratoDelay float64 // seconds
}

func DefaultParams() Params {
	return Params{
		Voices:       8,
		MasterGain:   0.28,
		AttackSec:    0.005,
		DecaySec:     0.15,
		SustainLvl:   0.65,
		ReleaseSec:   0.12,
		StepLevels:   16,
		MelodyDuty:   0.25,
		ChordWave:    WaveTriangle,
		VelocityAmp:  0.85,
		LPFCutoff:    12000,
		VibratoDepth: 0.12,
		VibratoRate:  5.5,
		VibratoDelay: 0.35,
	}
}

// Wave is the oscillator of a voice. Channel 0 (melody) always uses a
// pulse; chord channels use Params.ChordWave.
type Wave int

const (
	WavePulse Wave = iota
	WavePulseWide
	WaveTriangle
)

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active   bool
	id       int
	age      int
	channel  int
	wave     Wave
	duty     float64
	freq     float64
	phase    float64
	velocity float64
	env      float64
	state    envState
	vibrato  lfo.LFO
}

// Engine is a small polyphonic chip synthesizer. NoteOn, NoteOff and
// RenderFrame belong to the audio goroutine; SetMasterGain may be called from
// any goroutine.
type Engine struct {
	sampleRate float64
	params     Params
	voices     []voice
	nextID     int
	masterGain uint64
	dc         [2]dcBlocker
	lpf        [2]onePole
}

func New(sampleRate int, params Params) *Engine {
	def := DefaultParams()
	if params.Voices <= 0 {
		params.Voices = def.Voices
	}
	if params.StepLevels <= 1 {
		params.StepLevels = def.StepLevels
	}
	if params.MelodyDuty <= 0 || params.MelodyDuty >= 1 {
		params.MelodyDuty = def.MelodyDuty
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Voices),
		masterGain: math.Float64bits(params.MasterGain),
	}
	if params.LPFCutoff > 0 && params.LPFCutoff < float64(sampleRate)/2 {
		e.lpf[0].setCutoff(params.LPFCutoff, e.sampleRate)
		e.lpf[1] = e.lpf[0]
	}
	return e
}

// NoteOn starts MIDI key at velocity (0-127) on an ABC channel and returns
// the voice id for NoteOff. Chord members are panned away from the melody.
func (e *Engine) NoteOn(key int, velocity int, channel int) int {
	slot := e.stealVoice()
	id := e.nextID
	e.nextID++
	v := &e.voices[slot]
	*v = voice{
		active:   true,
		id:       id,
		channel:  channel,
		wave:     e.waveFor(channel),
		duty:     e.params.MelodyDuty,
		freq:     keyToFreq(key),
		velocity: clamp(float64(velocity)/127, 0, 1),
		state:    envAttack,
		vibrato: lfo.LFO{
			Shape: lfo.Sine,
			Rate:  e.params.VibratoRate,
			Depth: e.params.VibratoDepth,
			Delay: e.params.VibratoDelay,
		},
	}
	if v.wave == WavePulseWide {
		v.duty = 0.5
	}
	return id
}

func (e *Engine) waveFor(channel int) Wave {
	if channel == 0 {
		return WavePulse
	}
	return e.params.ChordWave
}

func (e *Engine) NoteOff(id int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.id == id && v.state < envRelease {
			v.state = envRelease
		}
	}
}

func (e *Engine) RenderFrame() (float32, float32) {
	gain := e.masterGainValue()
	var l, r float64
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		v.age++
		env := e.advanceEnv(v)
		if !v.active {
			continue
		}
		freq := v.freq
		if m := v.vibrato.Sample(e.sampleRate); m != 0 {
			freq *= math.Pow(2, m/12)
		}
		sig := e.oscillate(v, freq) * quantize(env*(0.15+v.velocity*e.params.VelocityAmp), e.params.StepLevels)
		pl, pr := panFor(v.channel)
		l += sig * pl * gain
		r += sig * pr * gain
	}
	l = e.dc[0].process(l)
	r = e.dc[1].process(r)
	if e.lpf[0].alpha > 0 {
		l = e.lpf[0].process(l)
		r = e.lpf[1].process(r)
	}
	return float32(clamp(l, -1, 1)), float32(clamp(r, -1, 1))
}

// panFor keeps the melody centred and spreads chord members left and right.
func panFor(channel int) (float64, float64) {
	pan := 0.0
	switch {
	case channel == 0:
	case channel%2 == 1:
		pan = -0.35
	default:
		pan = 0.35
	}
	angle := (pan + 1) / 2 * (math.Pi / 2)
	return math.Cos(angle), math.Sin(angle)
}

// polyBLEP reduces aliasing at waveform discontinuities. t is the phase in
// [0,1) and dt the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func (e *Engine) oscillate(v *voice, freq float64) float64 {
	dt := freq / e.sampleRate
	v.phase += dt
	if v.phase >= 1 {
		v.phase -= 1
	}
	if v.wave == WaveTriangle {
		return 2*math.Abs(2*v.phase-1) - 1
	}
	out := -1.0
	if v.phase < v.duty {
		out = 1
	}
	out += polyBLEP(v.phase, dt)
	out -= polyBLEP(math.Mod(v.phase-v.duty+1, 1), dt)
	return out
}

// stealVoice prefers a free slot, then the oldest releasing voice, then the
// oldest voice of all.
func (e *Engine) stealVoice() int {
	oldestRelease, releaseAge := -1, -1
	oldest, oldestAge := 0, -1
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			return i
		}
		if v.state == envRelease && v.age > releaseAge {
			oldestRelease, releaseAge = i, v.age
		}
		if v.age > oldestAge {
			oldest, oldestAge = i, v.age
		}
	}
	if oldestRelease >= 0 {
		return oldestRelease
	}
	return oldest
}

func (e *Engine) advanceEnv(v *voice) float64 {
	p := e.params
	switch v.state {
	case envAttack:
		v.env += e.rate(1, p.AttackSec)
		if v.env >= 1 {
			v.env = 1
			v.state = envDecay
		}
	case envDecay:
		v.env -= e.rate(1-p.SustainLvl, p.DecaySec)
		if v.env <= p.SustainLvl {
			v.env = p.SustainLvl
			v.state = envSustain
		}
	case envRelease:
		v.env -= e.rate(math.Max(p.SustainLvl, 0.05), p.ReleaseSec)
		if v.env <= 0.0001 {
			v.env = 0
			v.state = envOff
			v.active = false
		}
	case envOff:
		v.env = 0
		v.active = false
	}
	return v.env
}

// rate is the per-frame step that covers span in sec seconds.
func (e *Engine) rate(span, sec float64) float64 {
	if sec <= 0 {
		return 1
	}
	return span / (sec * e.sampleRate)
}

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

func (e *Engine) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

type dcBlocker struct {
	prevIn, prevOut float64
}

func (d *dcBlocker) process(x float64) float64 {
	const pole = 0.995
	y := x - d.prevIn + pole*d.prevOut
	d.prevIn, d.prevOut = x, y
	return y
}

type onePole struct {
	alpha, state float64
}

func (f *onePole) setCutoff(hz, sampleRate float64) {
	rc := 1 / (twoPi * hz)
	dt := 1 / sampleRate
	f.alpha = dt / (rc + dt)
}

func (f *onePole) process(x float64) float64 {
	f.state += f.alpha * (x - f.state)
	return f.state
}

func keyToFreq(key int) float64 {
	return 440 * math.Pow(2, float64(key-69)/12)
}

func quantize(v float64, steps int) float64 {
	if steps <= 1 {
		return v
	}
	n := math.Round(v*float64(steps-1)) / float64(steps-1)
	return clamp(n, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
