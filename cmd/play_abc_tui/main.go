package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/abcplay-go"
	"github.com/cbegin/abcplay-go/internal/abc"
)

func main() {
	sampleRate := flag.Int("sample-rate", 48000, "output sample rate")
	charset := flag.String("charset", "", "file encoding (default: detect)")
	soundFont := flag.String("soundfont", "", "render through this .sf2 file instead of chiptune voices")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: play_abc_tui [flags] file.abc")
		os.Exit(2)
	}
	filename := flag.Arg(0)
	book, err := abcplay.LoadFile(filename, *charset, abc.DefaultSettings())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading file: %v\n", err)
		os.Exit(1)
	}
	if book.Len() == 0 {
		fmt.Fprintf(os.Stderr, "%s contains no tunes\n", filename)
		os.Exit(1)
	}

	var opts []abcplay.PlayerOption
	if *soundFont != "" {
		opts = append(opts, abcplay.WithSoundFont(*soundFont))
	}
	pl, err := abcplay.NewPlayer(*sampleRate, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(newModel(book, pl, filename), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
