package abcplay

import (
	"encoding/binary"
	"math"
	"runtime"
	"time"

	"github.com/remeh/sizedwaitgroup"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/cbegin/abcplay-go/internal/abc"
	intchip "github.com/cbegin/abcplay-go/internal/chiptune"
	intseq "github.com/cbegin/abcplay-go/internal/sequencer"
	intsf "github.com/cbegin/abcplay-go/internal/soundfont"
)

const renderChunk = 1024

// RenderSamples renders tune through the chiptune engine. seconds <= 0
// renders the whole tune including its release tail.
func RenderSamples(book *abc.Book, tune int, sampleRate int, seconds float64) ([]float32, error) {
	engine := intchip.New(sampleRate, intchip.DefaultParams())
	return render(book, tune, engine, sampleRate, seconds)
}

func RenderSamplesSoundFont(book *abc.Book, tune int, sf *meltysynth.SoundFont, sampleRate int, seconds float64) ([]float32, error) {
	engine, err := intsf.New(sf, sampleRate, intsf.DefaultParams())
	if err != nil {
		return nil, err
	}
	return render(book, tune, engine, sampleRate, seconds)
}

func render(book *abc.Book, tune int, engine intseq.VoiceEngine, sampleRate int, seconds float64) ([]float32, error) {
	seq, err := intseq.New(book, tune, engine, sampleRate)
	if err != nil {
		return nil, err
	}
	if seconds > 0 {
		out := make([]float32, int(float64(sampleRate)*seconds)*2)
		seq.Process(out)
		return out, nil
	}
	// Cap runaway renders at the tune length plus ten seconds of tail.
	limit := int((seq.Duration() + 10*time.Second).Seconds() * float64(sampleRate))
	var out []float32
	buf := make([]float32, renderChunk*2)
	for frames := 0; frames < limit && !seq.Ended(); frames += renderChunk {
		seq.Process(buf)
		out = append(out, buf...)
	}
	return out, nil
}

// Rendered is one tune of a RenderBook result.
type Rendered struct {
	Tune    int
	Title   string
	Samples []float32
	Err     error
}

// RenderBook renders every tune of book, up to workers at a time, each on
// its own engine and session. workers <= 0 uses GOMAXPROCS.
func RenderBook(book *abc.Book, sampleRate int, workers int) []Rendered {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]Rendered, book.Len())
	swg := sizedwaitgroup.New(workers)
	for i := range out {
		swg.Add()
		go func(i int) {
			defer swg.Done()
			r := Rendered{Tune: i + 1}
			if t, err := book.Tune(i + 1); err == nil {
				r.Title = t.Title()
			}
			r.Samples, r.Err = RenderSamples(book, i+1, sampleRate, 0)
			out[i] = r
		}(i)
	}
	swg.Wait()
	return out
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	out := make([]byte, 44+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3) // IEEE float
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate*channels*4))
	binary.LittleEndian.PutUint16(out[32:], uint16(channels*4))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
