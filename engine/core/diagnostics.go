package core

import (
	"sync"
	"time"

	"github.com/spaghettifunk/campusmap/engine/containers"
)

// DefaultDiagnosticsCapacity is the number of entries retained by NewDiagnostics(0).
const DefaultDiagnosticsCapacity = 256

type DiagnosticEntry struct {
	Time    time.Time
	Level   LogLevel
	Source  string
	Message string
	Err     error
}

// Diagnostics is the engine console. Entries go to the logger and are kept
// in a bounded ring so they can be inspected after the fact.
type Diagnostics struct {
	mu      sync.Mutex
	entries *containers.RingQueue[DiagnosticEntry]
	dropped int
}

func NewDiagnostics(capacity int) *Diagnostics {
	if capacity <= 0 {
		capacity = DefaultDiagnosticsCapacity
	}
	return &Diagnostics{
		entries: containers.NewRingQueue[DiagnosticEntry](capacity),
	}
}

func (d *Diagnostics) Warn(source, message string) {
	d.record(DiagnosticEntry{Level: WarnLevel, Source: source, Message: message})
}

func (d *Diagnostics) Error(source, message string, err error) {
	d.record(DiagnosticEntry{Level: ErrorLevel, Source: source, Message: message, Err: err})
}

func (d *Diagnostics) record(e DiagnosticEntry) {
	e.Time = time.Now()
	switch e.Level {
	case ErrorLevel:
		if e.Err != nil {
			LogError("[%s] %s: %v", e.Source, e.Message, e.Err)
		} else {
			LogError("[%s] %s", e.Source, e.Message)
		}
	default:
		LogWarn("[%s] %s", e.Source, e.Message)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, evicted := d.entries.Push(e); evicted {
		d.dropped++
	}
}

// Entries returns the retained entries, oldest first.
func (d *Diagnostics) Entries() []DiagnosticEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entries.Items()
}

// Errors returns the retained entries at error level coming from source.
// An empty source matches every entry.
func (d *Diagnostics) Errors(source string) []DiagnosticEntry {
	var out []DiagnosticEntry
	for _, e := range d.Entries() {
		if e.Level == ErrorLevel && (source == "" || e.Source == source) {
			out = append(out, e)
		}
	}
	return out
}

// Dropped reports how many entries were evicted to make room for newer ones.
func (d *Diagnostics) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}
