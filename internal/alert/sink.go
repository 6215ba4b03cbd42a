package alert

import (
	"fmt"
	"io"
	"sync"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorBlue   = "\x1b[34m"
)

var labels = map[Severity]string{
	Success: "OK",
	Error:   "ERROR",
	Warning: "WARN",
	Info:    "INFO",
}

var colors = map[Severity]string{
	Success: colorGreen,
	Error:   colorRed,
	Warning: colorYellow,
	Info:    colorBlue,
}

// WriterSink prints each alert as one line when it is shown. Hide and
// Remove are no-ops since a terminal line cannot be taken back.
type WriterSink struct {
	mu      sync.Mutex
	w       io.Writer
	noColor bool
}

// NewWriterSink creates a sink printing to w.
func NewWriterSink(w io.Writer, noColor bool) *WriterSink {
	return &WriterSink{w: w, noColor: noColor}
}

func (s *WriterSink) Show(a Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	label := labels[a.Severity]
	if label == "" {
		label = string(a.Severity)
	}

	if s.noColor {
		fmt.Fprintf(s.w, "[%s] %s\n", label, a.Message)
		return
	}
	fmt.Fprintf(s.w, "%s[%s]%s %s\n", colors[a.Severity], label, colorReset, a.Message)
}

func (s *WriterSink) Hide(Alert) {}

func (s *WriterSink) Remove(Alert) {}

// Recorder keeps every alert it was shown. It is handy as a sink for
// callers that want to inspect outcomes.
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *Recorder) Show(a Alert) {
	r.mu.Lock()
	r.alerts = append(r.alerts, a)
	r.mu.Unlock()
}

func (r *Recorder) Hide(Alert) {}

func (r *Recorder) Remove(Alert) {}

// Alerts returns a copy of everything shown so far.
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}

// Last returns the most recently shown alert.
func (r *Recorder) Last() (Alert, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.alerts) == 0 {
		return Alert{}, false
	}
	return r.alerts[len(r.alerts)-1], true
}
