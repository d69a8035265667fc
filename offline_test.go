package abcplay

import (
	"encoding/binary"
	"testing"

	"github.com/cbegin/abcplay-go/internal/abc"
)

const twoTunes = "X:1\nT:One\nK:C\nA B\n\nX:2\nT:Two\nK:G\nF2 [GB]"

func loadBook(t *testing.T, text string) *abc.Book {
	t.Helper()
	b, err := Load(text, abc.DefaultSettings())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return b
}

func TestRenderSamplesIsDeterministic(t *testing.T) {
	book := loadBook(t, twoTunes)
	a, err := RenderSamples(book, 1, 22050, 0.5)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	b, err := RenderSamples(book, 1, 22050, 0.5)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(a) != 22050 || len(a) != len(b) {
		t.Fatalf("unexpected lengths %d %d", len(a), len(b))
	}
	var energy float64
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %f vs %f", i, a[i], b[i])
		}
		energy += float64(a[i] * a[i])
	}
	if energy == 0 {
		t.Fatalf("expected audible output")
	}
}

func TestRenderBookRendersEveryTune(t *testing.T) {
	book := loadBook(t, twoTunes)
	out := RenderBook(book, 22050, 2)
	if len(out) != 2 {
		t.Fatalf("expected two renders, got %d", len(out))
	}
	for i, r := range out {
		if r.Err != nil {
			t.Fatalf("tune %d failed: %v", r.Tune, r.Err)
		}
		if r.Tune != i+1 {
			t.Fatalf("renders out of order: %d at %d", r.Tune, i)
		}
		tune, _ := book.Tune(r.Tune)
		if frames := len(r.Samples) / 2; float64(frames) < tune.Duration.Seconds()*22050 {
			t.Fatalf("tune %d rendered %d frames, shorter than %v", r.Tune, frames, tune.Duration)
		}
	}
	if out[0].Title != "One" || out[1].Title != "Two" {
		t.Fatalf("unexpected titles %q %q", out[0].Title, out[1].Title)
	}
}

func TestRenderSamplesRejectsMissingTune(t *testing.T) {
	if _, err := RenderSamples(loadBook(t, twoTunes), 3, 22050, 0); err == nil {
		t.Fatalf("expected an error for a missing tune")
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	wav := EncodeWAVFloat32LE([]float32{0, 0.5, -0.5, 1}, 44100, 2)
	if len(wav) != 44+16 || string(wav[:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad header %q", wav[:12])
	}
	if got := binary.LittleEndian.Uint32(wav[24:]); got != 44100 {
		t.Fatalf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:]); got != 16 {
		t.Fatalf("data size = %d", got)
	}
}
