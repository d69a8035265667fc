package abc

import (
	"reflect"
	"testing"
)

func TestTokenizeSplitsNotesBarsAndChords(t *testing.T) {
	got := Tokenize("A2 B|[CEG]2 z")
	want := []string{"A2", " ", "B", "|", "[", "C", "E", "G", "]2", " ", "z"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens:\n got %q\nwant %q", got, want)
	}
}

func TestTokenizeJoinsAccidentalsWithTheirNote(t *testing.T) {
	got := Tokenize("^^A,2 _B =c")
	want := []string{"^^A,2", " ", "_B", " ", "=c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens:\n got %q\nwant %q", got, want)
	}
}

func TestTokenizeDynamicsAndInlineFields(t *testing.T) {
	got := Tokenize("+ff+A[K:G]B")
	want := []string{"+ff+", "A", "[K:G]", "B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens:\n got %q\nwant %q", got, want)
	}
}

func TestTokenizeRepeatsAndEndings(t *testing.T) {
	got := Tokenize("|: A :|2 B |]")
	want := []string{"|:", " ", "A", " ", ":|2", " ", "B", " ", "|]"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens:\n got %q\nwant %q", got, want)
	}
}

func TestTokenizeDropsAnnotationsAndKeepsTuplets(t *testing.T) {
	got := Tokenize(`"Am"A (3BcB`)
	want := []string{"A", " ", "(3", "B", "c", "B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens:\n got %q\nwant %q", got, want)
	}
}

func TestTokenizeBarBeforeChordDoesNotSwallowBracket(t *testing.T) {
	got := Tokenize("||[CE]")
	want := []string{"||", "[", "C", "E", "]"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens:\n got %q\nwant %q", got, want)
	}
}

func TestTokenizeIsDeterministic(t *testing.T) {
	src := "|:\"G\"G2 ^FE|[DF]2 z2 +mf+ d-d [L:1/16] c/2c/2:|"
	first := Tokenize(src)
	for i := 0; i < 5; i++ {
		if again := Tokenize(src); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%q\n%q", i, first, again)
		}
	}
}

func TestClassifyTokens(t *testing.T) {
	cases := map[string]TokenKind{
		"[":       TokenChordStart,
		"!trill!": TokenChordStart,
		"]2":      TokenChordEnd,
		"|":       TokenBar,
		":|2":     TokenBar,
		"[1":      TokenBar,
		"[K:G]":   TokenInlineField,
		"^A,":     TokenNote,
		"c'2":     TokenNote,
		"=":       TokenOther,
		"z/":      TokenRest,
		"Z4":      TokenRest,
		"-":       TokenTie,
		"+p+":     TokenDynamics,
		"(3":      TokenTuplet,
		" ":       TokenOther,
	}
	for tok, want := range cases {
		if got := Classify(tok); got != want {
			t.Fatalf("Classify(%q) = %v, want %v", tok, got, want)
		}
	}
}
