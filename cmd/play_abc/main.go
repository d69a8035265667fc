package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"

	"github.com/cbegin/abcplay-go"
	"github.com/cbegin/abcplay-go/internal/abc"
	"github.com/cbegin/abcplay-go/internal/midiexport"
)

const defaultABC = "X:1\nT:Scale\nL:1/8\nK:D\nDEFG ABcd|[DFA]4 z4|]"

func main() {
	var (
		sampleRate  = flag.Int("sample-rate", 48000, "output sample rate")
		path        = flag.String("file", "", "path to an ABC file")
		inline      = flag.String("abc", "", "inline ABC text")
		charset     = flag.String("charset", "", "file encoding (default: %%abc-charset line, else UTF-8 or latin1)")
		tune        = flag.Int("tune", 1, "tune number within the file (1-based)")
		list        = flag.Bool("list", false, "list the tunes in the file and exit")
		strict      = flag.Bool("strict", false, "reject files that break the ABC 2.1 header rules")
		lotro       = flag.Bool("lotro", false, "force LOTRO octave range (default: auto-detect)")
		propagation = flag.String("propagation", "octave", "accidental propagation: octave|bar|none")
		octave      = flag.Int("octave", 4, "octave of unmarked uppercase notes")
		transpose   = flag.Int("transpose", 0, "semitones added to every note")
		seek        = flag.Duration("seek", 0, "start playback at this position")
		loop        = flag.Bool("loop", false, "loop playback; use with -loops to count then stop")
		loops       = flag.Int("loops", 3, "when -loop, stop after N loops (0 = loop forever)")
		volume      = flag.Float64("volume", 1.0, "master volume scalar")
		reverb      = flag.Float64("reverb", 0, "room reverb wet mix (0..1)")
		soundFont   = flag.String("soundfont", "", "render through this .sf2 file instead of chiptune voices")
		wavPath     = flag.String("wav", "", "render the tune to this WAV file instead of playing")
		wavDir      = flag.String("wav-dir", "", "render every tune to WAV files in this directory")
		midiPath    = flag.String("midi", "", "write the tune as a Standard MIDI File instead of playing")
		verbose     = flag.Bool("v", false, "log parser warnings")
	)
	flag.Parse()

	cfg, err := buildSettings(*strict, *lotro, *propagation, *octave)
	if err != nil {
		log.Fatal(err)
	}
	if *verbose {
		cfg.Logger = log.New(os.Stderr, "abc: ", 0)
	}

	book, size, err := loadBook(*path, *inline, *charset, cfg)
	if err != nil {
		log.Fatal(err)
	}

	switch {
	case *list:
		listTunes(book, size)
		return
	case *wavDir != "":
		if err := writeAllWAV(book, *wavDir, *sampleRate); err != nil {
			log.Fatal(err)
		}
		return
	case *wavPath != "":
		samples, err := abcplay.RenderSamples(book, *tune, *sampleRate, 0)
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(*wavPath, abcplay.EncodeWAVFloat32LE(samples, *sampleRate, 2), 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s (%s)\n", *wavPath, durafmt.Parse(frameTime(len(samples)/2, *sampleRate)).LimitFirstN(2))
		return
	case *midiPath != "":
		f, err := os.Create(*midiPath)
		if err != nil {
			log.Fatal(err)
		}
		if err := midiexport.Write(f, book, *tune, midiexport.DefaultOptions()); err != nil {
			f.Close()
			log.Fatal(err)
		}
		if err := f.Close(); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s\n", *midiPath)
		return
	}

	opts := []abcplay.PlayerOption{
		abcplay.WithSettings(cfg),
		abcplay.WithLoopPlayback(*loop),
		abcplay.WithTranspose(*transpose),
		abcplay.WithReverb(*reverb),
	}
	if *soundFont != "" {
		opts = append(opts, abcplay.WithSoundFont(*soundFont))
	}
	pl, err := abcplay.NewPlayer(*sampleRate, opts...)
	if err != nil {
		log.Fatal(err)
	}
	pl.SetMasterVolume(*volume)
	ch := pl.Watch()
	if err := pl.PlayTune(book, *tune); err != nil {
		log.Fatal(err)
	}
	if *seek > 0 {
		if err := pl.Seek(*seek); err != nil {
			log.Fatal(err)
		}
	}
	if t, err := book.Tune(*tune); err == nil {
		fmt.Printf("playing %d. %s (%s)\n", t.Number, displayTitle(t), durafmt.Parse(t.Duration).LimitFirstN(2))
	}
	loopCount := 0
	for event := range ch {
		switch event.Kind {
		case abcplay.EventPlaybackEnded:
			fmt.Println("playback completed")
			goto done
		case abcplay.EventLoopCompleted:
			loopCount++
			fmt.Printf("loop %d completed\n", loopCount)
			if *loop && *loops > 0 && loopCount >= *loops {
				pl.Stop()
			}
		}
	}
done:
	pl.Wait()
}

// buildSettings maps the parser flags onto abc.Settings.
func buildSettings(strict, lotro bool, propagation string, octave int) (abc.Settings, error) {
	cfg := abc.DefaultSettings()
	cfg.Strict = strict
	if lotro {
		cfg.LotroCompatible = true
		cfg.AutoDetectLotro = false
	}
	prop, ok := abc.ParsePropagation(propagation)
	if !ok {
		return cfg, fmt.Errorf("invalid -propagation %q (expected octave|bar|none)", propagation)
	}
	cfg.Propagation = prop
	if octave < cfg.MinOctave || octave > cfg.MaxOctave {
		return cfg, fmt.Errorf("invalid -octave %d (expected %d..%d)", octave, cfg.MinOctave, cfg.MaxOctave)
	}
	cfg.DefaultOctave = octave
	return cfg, nil
}

// loadBook returns the parsed book and the input size in bytes.
func loadBook(path, inline, charset string, cfg abc.Settings) (*abc.Book, int, error) {
	if strings.TrimSpace(inline) != "" {
		book, err := abcplay.Load(inline, cfg)
		return book, len(inline), err
	}
	if strings.TrimSpace(path) != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, 0, err
		}
		book, err := abcplay.LoadFile(path, charset, cfg)
		return book, int(info.Size()), err
	}
	book, err := abcplay.Load(defaultABC, cfg)
	return book, len(defaultABC), err
}

func listTunes(book *abc.Book, size int) {
	fmt.Printf("%d tunes, %s\n", book.Len(), humanize.Bytes(uint64(size)))
	for i := 1; i <= book.Len(); i++ {
		t, _ := book.Tune(i)
		fmt.Printf("%4d  %-40s %s\n", t.Number, displayTitle(t), durafmt.Parse(t.Duration).LimitFirstN(2))
	}
	for _, w := range book.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}

func writeAllWAV(book *abc.Book, dir string, sampleRate int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var total int
	for _, r := range abcplay.RenderBook(book, sampleRate, 0) {
		if r.Err != nil {
			log.Printf("tune %d: %v", r.Tune, r.Err)
			continue
		}
		wav := abcplay.EncodeWAVFloat32LE(r.Samples, sampleRate, 2)
		name := filepath.Join(dir, fmt.Sprintf("%03d_%s.wav", r.Tune, fileSafe(r.Title)))
		if err := os.WriteFile(name, wav, 0o644); err != nil {
			return err
		}
		total += len(wav)
		fmt.Printf("wrote %s\n", name)
	}
	fmt.Printf("%s written\n", humanize.Bytes(uint64(total)))
	return nil
}

func displayTitle(t *abc.Tune) string {
	if title := t.Title(); title != "" {
		return title
	}
	return "(untitled)"
}

func fileSafe(s string) string {
	if s == "" {
		return "untitled"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, s)
}

func frameTime(frames, sampleRate int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
