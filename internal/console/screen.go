package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/wolfeidau/funkctl/internal/alert"
	"github.com/wolfeidau/funkctl/internal/poller"
)

const clearScreen = "\033[H\033[2J"

// Display receives rendered view content.
type Display interface {
	Update(v poller.View, content string)
	SetActive(v poller.View)
	SetStatus(status string)
}

// Screen draws the active view to a terminal. It doubles as the alert sink
// so the visible alert is drawn above the view.
type Screen struct {
	mu      sync.Mutex
	w       io.Writer
	clear   bool
	active  poller.View
	status  string
	alert   *alert.Alert
	content map[poller.View]string
}

// NewScreen creates a screen writing to w. clear redraws from the top of
// the terminal each time.
func NewScreen(w io.Writer, clear bool) *Screen {
	return &Screen{
		w:       w,
		clear:   clear,
		active:  poller.Dashboard,
		content: make(map[poller.View]string),
	}
}

// Update stores the content of v and redraws if v is visible.
func (s *Screen) Update(v poller.View, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.content[v] = content
	if v == s.active {
		s.drawLocked()
	}
}

// SetActive switches the visible view.
func (s *Screen) SetActive(v poller.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = v
	s.drawLocked()
}

// SetStatus sets the server status badge.
func (s *Screen) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
	s.drawLocked()
}

// Content returns what was last rendered for v.
func (s *Screen) Content(v poller.View) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content[v]
}

func (s *Screen) Show(a alert.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alert = &a
	s.drawLocked()
}

func (s *Screen) Hide(alert.Alert) {}

func (s *Screen) Remove(a alert.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.alert != nil && s.alert.ID == a.ID {
		s.alert = nil
		s.drawLocked()
	}
}

func (s *Screen) drawLocked() {
	var sb strings.Builder

	if s.clear {
		sb.WriteString(clearScreen)
	}

	for i, v := range poller.Views {
		if v == s.active {
			fmt.Fprintf(&sb, "[%d %s] ", i+1, Title(v))
			continue
		}
		fmt.Fprintf(&sb, " %d %s  ", i+1, Title(v))
	}
	if s.status != "" {
		fmt.Fprintf(&sb, "  %s", s.status)
	}
	sb.WriteString("\n\n")

	if s.alert != nil {
		fmt.Fprintf(&sb, "[%s] %s\n\n", strings.ToUpper(string(s.alert.Severity)), s.alert.Message)
	}

	content := s.content[s.active]
	if content == "" {
		content = "Lade...\n"
	}
	sb.WriteString(content)

	_, _ = io.WriteString(s.w, sb.String())
}
