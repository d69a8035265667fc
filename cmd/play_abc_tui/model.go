package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hako/durafmt"

	"github.com/cbegin/abcplay-go"
	"github.com/cbegin/abcplay-go/internal/abc"
)

const seekStep = 5 * time.Second

// player is the part of abcplay.Player the model drives.
type player interface {
	PlayTune(book *abc.Book, index int) error
	Stop() error
	Pause()
	Resume()
	Seek(position time.Duration) error
	Elapsed() time.Duration
	SetMasterVolume(volume float64)
	MasterVolume() float64
	Watch() <-chan abcplay.PlaybackEvent
}

type model struct {
	book     *abc.Book
	player   player
	events   <-chan abcplay.PlaybackEvent
	filename string

	width   int
	height  int
	cursor  int // 0-based row in the tune list
	playing int // tune index, 0 when stopped
	paused  bool
	elapsed time.Duration
	status  string
}

func newModel(book *abc.Book, pl player, filename string) model {
	return model{
		book:     book,
		player:   pl,
		events:   pl.Watch(),
		filename: filename,
		width:    80,
		height:   24,
	}
}

type tickMsg struct{}

type eventMsg abcplay.PlaybackEvent

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func waitEvent(ch <-chan abcplay.PlaybackEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitEvent(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		if m.playing > 0 {
			m.elapsed = m.player.Elapsed()
		}
		return m, tickCmd()

	case eventMsg:
		if msg.Kind == abcplay.EventPlaybackEnded && msg.Tune == m.playing {
			m.playing = 0
			m.paused = false
			m.elapsed = 0
			m.status = "finished"
		}
		return m, waitEvent(m.events)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.player.Stop()
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < m.book.Len()-1 {
			m.cursor++
		}

	case "enter":
		tune := m.cursor + 1
		if err := m.player.PlayTune(m.book, tune); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.playing, m.paused, m.elapsed = tune, false, 0
		m.status = ""

	case " ":
		if m.playing == 0 {
			return m, nil
		}
		if m.paused {
			m.player.Resume()
		} else {
			m.player.Pause()
		}
		m.paused = !m.paused

	case "s":
		m.player.Stop()
		m.playing, m.paused, m.elapsed = 0, false, 0

	case "left", "right":
		if m.playing == 0 {
			return m, nil
		}
		pos := m.player.Elapsed() + seekStep
		if msg.String() == "left" {
			pos -= 2 * seekStep
		}
		if pos < 0 {
			pos = 0
		}
		if err := m.player.Seek(pos); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.elapsed = pos

	case "+", "=":
		m.player.SetMasterVolume(m.player.MasterVolume() + 0.1)
	case "-":
		m.player.SetMasterVolume(m.player.MasterVolume() - 0.1)
	}
	return m, nil
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	playingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cursorStyle  = lipgloss.NewStyle().Background(lipgloss.Color("4"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")
	b.WriteString(m.listView())
	b.WriteString("\n")
	b.WriteString(m.progressView())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("↑/↓ select  enter play  space pause  s stop  ←/→ seek 5s  +/- volume  q quit"))
	return b.String()
}

func (m model) headerView() string {
	state := "STOPPED"
	switch {
	case m.playing > 0 && m.paused:
		state = "PAUSED"
	case m.playing > 0:
		state = playingStyle.Render("PLAYING")
	}
	return titleStyle.Render("ABC PLAYER") + fmt.Sprintf(" │ %s │ %d tunes │ vol %.1f │ %s",
		filepath.Base(m.filename), m.book.Len(), m.player.MasterVolume(), state)
}

// listView shows the tunes around the cursor that fit the window.
func (m model) listView() string {
	visible := m.height - 8
	if visible < 3 {
		visible = 3
	}
	first := 0
	if m.cursor >= visible {
		first = m.cursor - visible + 1
	}
	var b strings.Builder
	for i := first; i < m.book.Len() && i < first+visible; i++ {
		t, _ := m.book.Tune(i + 1)
		title := t.Title()
		if title == "" {
			title = "(untitled)"
		}
		marker := "  "
		if i+1 == m.playing {
			marker = playingStyle.Render("▶ ")
		}
		line := fmt.Sprintf("%4d  %-40s %8s", t.Number, truncate(title, 40), shortDuration(t.Duration))
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(marker + line + "\n")
	}
	return b.String()
}

func (m model) progressView() string {
	if m.playing == 0 {
		return dimStyle.Render("not playing")
	}
	t, err := m.book.Tune(m.playing)
	if err != nil {
		return ""
	}
	width := m.width - 30
	if width < 10 {
		width = 10
	}
	filled := 0
	if t.Duration > 0 {
		filled = int(float64(width) * float64(m.elapsed) / float64(t.Duration))
	}
	if filled > width {
		filled = width
	}
	bar := barStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %s / %s", bar, shortDuration(m.elapsed), shortDuration(t.Duration))
}

func shortDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	return durafmt.Parse(d.Truncate(time.Second)).LimitFirstN(2).String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
