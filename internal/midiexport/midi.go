// Package midiexport writes ABC tunes as Standard MIDI Files.
package midiexport

import (
	"io"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/abcplay-go/internal/abc"
)

// Tunes are written at a fixed 120 qpm; note times are already absolute.
const exportBPM = 120.0

type Options struct {
	TicksPerQuarter uint16
	MelodyProgram   uint8
	ChordProgram    uint8
}

func DefaultOptions() Options {
	return Options{TicksPerQuarter: 480, MelodyProgram: 73, ChordProgram: 24}
}

type event struct {
	tick uint32
	off  bool
	msg  smf.Message
}

type track struct {
	name    string
	channel uint8
	program uint8
	events  []event
}

// Write renders one tune of book to w as a format 1 SMF: a tempo track,
// a melody track on channel 0 and, when the tune has chords, a chord track
// on channel 1.
func Write(w io.Writer, book *abc.Book, tune int, opts Options) error {
	if opts.TicksPerQuarter == 0 {
		opts.TicksPerQuarter = DefaultOptions().TicksPerQuarter
	}
	ctx, err := abc.NewContext(book, tune)
	if err != nil {
		return err
	}
	melody := &track{name: "Melody", channel: 0, program: opts.MelodyProgram}
	chords := &track{name: "Chords", channel: 1, program: opts.ChordProgram}
	ticks := func(d time.Duration) uint32 {
		perSecond := int64(opts.TicksPerQuarter) * int64(exportBPM) / 60
		return uint32((int64(d)*perSecond + int64(time.Second)/2) / int64(time.Second))
	}

	var at time.Duration
	for {
		step, ok := ctx.Next()
		if !ok {
			break
		}
		for _, v := range step.Voices {
			t := melody
			if v.Channel > 0 {
				t = chords
			}
			key := uint8(clamp(v.Note.Key(), 0, 127))
			vel := uint8(clamp(int(v.Note.Volume*127+0.5), 1, 127))
			t.events = append(t.events,
				event{tick: ticks(at), msg: smf.Message(midi.NoteOn(t.channel, key, vel))},
				event{tick: ticks(at + v.Note.Length), off: true, msg: smf.Message(midi.NoteOff(t.channel, key))},
			)
		}
		at += step.Length
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(opts.TicksPerQuarter)
	title := ctx.Title()
	if title == "" {
		title = "Tempo"
	}
	tempo := smf.Track{}
	tempo = append(tempo, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTrackSequenceName(title))})
	tempo = append(tempo, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTempo(exportBPM))})
	tempo = append(tempo, smf.Event{Delta: 0, Message: smf.EOT})
	if err := s.Add(tempo); err != nil {
		return err
	}
	for _, t := range []*track{melody, chords} {
		if t == chords && len(t.events) == 0 {
			continue
		}
		if err := s.Add(t.build()); err != nil {
			return err
		}
	}
	_, err = s.WriteTo(w)
	return err
}

func (t *track) build() smf.Track {
	out := smf.Track{}
	out = append(out, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTrackSequenceName(t.name))})
	out = append(out, smf.Event{Delta: 0, Message: smf.Message(midi.ProgramChange(t.channel, t.program))})

	// note-offs go before note-ons sharing a tick so repeated keys retrigger
	sort.SliceStable(t.events, func(i, j int) bool {
		if t.events[i].tick == t.events[j].tick {
			return t.events[i].off && !t.events[j].off
		}
		return t.events[i].tick < t.events[j].tick
	})
	var last uint32
	for _, e := range t.events {
		out = append(out, smf.Event{Delta: e.tick - last, Message: e.msg})
		last = e.tick
	}
	return append(out, smf.Event{Delta: 0, Message: smf.EOT})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
