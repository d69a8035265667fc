package abc

import (
	"reflect"
	"testing"
)

func TestParseKeySignatures(t *testing.T) {
	cases := []struct {
		text string
		want map[byte]int
	}{
		{"C", map[byte]int{}},
		{"Cmaj", map[byte]int{}},
		{"G", map[byte]int{'F': 1}},
		{"F", map[byte]int{'B': -1}},
		{"Am", map[byte]int{}},
		{"A minor", map[byte]int{}},
		{"Bb", map[byte]int{'B': -1, 'E': -1}},
		{"Dmix", map[byte]int{'F': 1}},
		{"E dorian", map[byte]int{'F': 1, 'C': 1}},
		{"D ^g", map[byte]int{'F': 1, 'C': 1, 'G': 1}},
		{"G =f", map[byte]int{}},
		{"none", map[byte]int{}},
	}
	for _, tc := range cases {
		got := KeyAccidentals(tc.text)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("K:%s: got %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestParseKeyExtremes(t *testing.T) {
	sharp := ParseKey("C#")
	if sharp.Fifths != 7 || len(sharp.Accidentals) != 7 {
		t.Fatalf("C# should have seven sharps, got %+v", sharp)
	}
	flat := ParseKey("Cb")
	if flat.Fifths != -7 || flat.Accidentals['F'] != -1 {
		t.Fatalf("Cb should have seven flats, got %+v", flat)
	}
	if got := ParseKey("F#m").String(); got != "F#m" {
		t.Fatalf("unexpected key name %q", got)
	}
	if got := ParseKey("G clef=treble").Accidentals; !reflect.DeepEqual(got, map[byte]int{'F': 1}) {
		t.Fatalf("clef word should not change accidentals, got %v", got)
	}
}
