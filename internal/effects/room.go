// Package effects holds post-processing applied to rendered tunes.
package effects

type RoomParams struct {
	Size  float64 // 0..1, scales the comb delay lengths
	Decay float64 // 0..0.95, comb feedback
	Mix   float64 // 0..1 wet share
}

func DefaultRoom() RoomParams {
	return RoomParams{Size: 0.5, Decay: 0.7, Mix: 0.2}
}

type delayLine struct {
	buf []float32
	pos int
	fb  float32
}

func newDelayLine(n int, fb float32) delayLine {
	if n < 1 {
		n = 1
	}
	return delayLine{buf: make([]float32, n), fb: fb}
}

func (d *delayLine) comb(in float32) float32 {
	out := d.buf[d.pos]
	d.buf[d.pos] = in + out*d.fb
	d.advance()
	return out
}

func (d *delayLine) allpass(in float32) float32 {
	held := d.buf[d.pos]
	d.buf[d.pos] = in + held*d.fb
	d.advance()
	return held - in
}

func (d *delayLine) advance() {
	d.pos++
	if d.pos == len(d.buf) {
		d.pos = 0
	}
}

// Room is a Schroeder reverb: four parallel combs into two allpasses per
// side. The right side's delays are slightly longer to widen the image.
type Room struct {
	combs   [2][4]delayLine
	allpass [2][2]delayLine
	wet     float32
}

var (
	combRatios    = [4]int{1000, 1117, 1271, 1437}
	allpassRatios = [2]int{347, 213}
)

const stereoSpread = 23 // samples added to every right-side delay

func NewRoom(sampleRate int, p RoomParams) *Room {
	base := int(float64(sampleRate) * clamp(p.Size, 0, 1) * 0.05)
	if base < 10 {
		base = 10
	}
	fb := float32(clamp(p.Decay, 0, 0.95))
	r := &Room{wet: float32(clamp(p.Mix, 0, 1))}
	for side := 0; side < 2; side++ {
		for i, ratio := range combRatios {
			r.combs[side][i] = newDelayLine(base*ratio/1000+side*stereoSpread, fb)
		}
		for i, ratio := range allpassRatios {
			r.allpass[side][i] = newDelayLine(base*ratio/1000+side*stereoSpread, 0.5)
		}
	}
	return r
}

// Apply processes interleaved stereo frames in place.
func (r *Room) Apply(buf []float32) {
	if r.wet == 0 {
		return
	}
	for i := 0; i+1 < len(buf); i += 2 {
		mono := (buf[i] + buf[i+1]) * 0.5
		for side := 0; side < 2; side++ {
			var out float32
			for c := range r.combs[side] {
				out += r.combs[side][c].comb(mono)
			}
			out *= 0.25
			for a := range r.allpass[side] {
				out = r.allpass[side][a].allpass(out)
			}
			buf[i+side] = buf[i+side]*(1-r.wet) + out*r.wet
		}
	}
}

func (r *Room) Reset() {
	for side := range r.combs {
		for i := range r.combs[side] {
			clear(r.combs[side][i].buf)
			r.combs[side][i].pos = 0
		}
		for i := range r.allpass[side] {
			clear(r.allpass[side][i].buf)
			r.allpass[side][i].pos = 0
		}
	}
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
