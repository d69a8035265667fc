package effects

import "testing"

func impulse(frames int) []float32 {
	buf := make([]float32, frames*2)
	buf[0], buf[1] = 1, 1
	return buf
}

func TestRoomLeavesATail(t *testing.T) {
	r := NewRoom(8000, DefaultRoom())
	buf := impulse(4000)
	r.Apply(buf)
	var tail float64
	for _, s := range buf[2000:] {
		if s < 0 {
			tail -= float64(s)
		} else {
			tail += float64(s)
		}
	}
	if tail == 0 {
		t.Fatalf("expected reverb energy after the impulse")
	}
	if d := buf[0] - 0.8; d > 1e-6 || d < -1e-6 {
		t.Fatalf("dry share of the first frame = %f, want 0.8", buf[0])
	}
}

func TestRoomSidesDiffer(t *testing.T) {
	r := NewRoom(8000, RoomParams{Size: 0.5, Decay: 0.5, Mix: 1})
	buf := impulse(1000)
	r.Apply(buf)
	same := true
	for i := 0; i+1 < len(buf); i += 2 {
		if buf[i] != buf[i+1] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("left and right should decorrelate")
	}
}

func TestRoomDryMixAndReset(t *testing.T) {
	dry := NewRoom(8000, RoomParams{Size: 0.5, Decay: 0.5})
	buf := impulse(100)
	dry.Apply(buf)
	if buf[0] != 1 || buf[2] != 0 {
		t.Fatalf("zero mix must pass audio through")
	}

	r := NewRoom(8000, DefaultRoom())
	first := impulse(500)
	r.Apply(first)
	r.Reset()
	second := impulse(500)
	r.Apply(second)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sample %d differs after reset: %f vs %f", i, first[i], second[i])
		}
	}
}
