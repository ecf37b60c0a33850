package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/chatvoice/internal/tts"
	"github.com/muesli/reflow/truncate"
	"golang.org/x/term"
)

// statusDisplay keeps a single status line on a terminal up to date.
type statusDisplay struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	width   int
	last    string
}

func newStatusDisplay(f *os.File, quiet bool) *statusDisplay {
	d := &statusDisplay{w: f, width: 80}
	if quiet || !term.IsTerminal(int(f.Fd())) {
		return d
	}
	d.enabled = true
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		d.width = w
	}
	return d
}

// update is the engine's status hook.
func (d *statusDisplay) update(st tts.Status) {
	if !d.enabled {
		return
	}
	line := statusLine(st, d.width)
	d.mu.Lock()
	defer d.mu.Unlock()
	if line == d.last {
		return
	}
	d.last = line
	fmt.Fprint(d.w, "\r\x1b[K"+line)
}

// done ends the status line.
func (d *statusDisplay) done() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enabled && d.last != "" {
		fmt.Fprintln(d.w)
		d.last = ""
	}
}

// statusLine renders st in at most width columns.
func statusLine(st tts.Status, width int) string {
	if st.Error != "" {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
		return errorStyle.Render("✗ " + truncate.StringWithTail(st.Error, uint(max(width-4, 10)), "..."))
	}

	icon, label, color := stateLook(st.State)
	status := lipgloss.NewStyle().Foreground(color).Render(icon + " " + label)
	if st.Loading {
		status += lipgloss.NewStyle().Foreground(lipgloss.Color("#00AAFF")).Render(" ⟳")
	}
	if !st.Available {
		status += faint(" (no audio output)")
	}
	return status
}

func stateLook(s tts.State) (icon, label string, color lipgloss.Color) {
	switch s {
	case tts.StatePreparing:
		return "⟳", "preparing", lipgloss.Color("#00AAFF")
	case tts.StateCacheCheck:
		return "⟳", "checking cache", lipgloss.Color("#00AAFF")
	case tts.StateSynthesizing:
		return "⟳", "synthesizing", lipgloss.Color("#00AAFF")
	case tts.StateEncoding:
		return "⟳", "encoding", lipgloss.Color("#00AAFF")
	case tts.StateCachingResult:
		return "⟳", "caching", lipgloss.Color("#00AAFF")
	case tts.StatePlaying:
		return "▶", "speaking", lipgloss.Color("#00FF00")
	case tts.StateBrowserFallback:
		return "◼", "system voice", lipgloss.Color("#FF8800")
	default:
		return "■", "idle", lipgloss.Color("#888888")
	}
}
