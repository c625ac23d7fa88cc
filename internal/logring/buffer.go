// Package logring keeps the bounded, severity-tagged diagnostic log shown to
// the player. Entries are recorded in a fixed-size ring and forwarded to a
// logrus sink; renderers subscribe to new entries instead of reading a sink.
package logring

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Capacity is the number of entries the ring retains.
const Capacity = 50

// Severity tags an entry for rendering.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// Entry is one recorded log line.
type Entry struct {
	Timestamp time.Time
	Message   string
	Severity  Severity
	// Silent entries count toward capacity but do not notify observers.
	Silent bool
	Fields map[string]interface{}
}

// Buffer is a FIFO ring of the most recent Capacity entries.
type Buffer struct {
	mu        sync.Mutex
	entries   [Capacity]Entry
	start     int
	size      int
	observers map[int]func(Entry)
	nextObs   int

	sink logrus.FieldLogger
	now  func() time.Time
}

// NewBuffer creates an empty ring. A nil sink disables forwarding.
func NewBuffer(sink logrus.FieldLogger) *Buffer {
	return &Buffer{
		sink:      sink,
		observers: make(map[int]func(Entry)),
		now:       time.Now,
	}
}

// Append records a visible entry and notifies observers.
func (b *Buffer) Append(severity Severity, message string) Entry {
	return b.record(Entry{Severity: severity, Message: message}, false)
}

// AppendSilent records an entry without notifying observers.
func (b *Buffer) AppendSilent(severity Severity, message string) Entry {
	return b.record(Entry{Severity: severity, Message: message}, true)
}

func (b *Buffer) record(e Entry, silent bool) Entry {
	e.Silent = silent

	b.mu.Lock()
	e.Timestamp = b.now()
	if b.size < Capacity {
		b.entries[(b.start+b.size)%Capacity] = e
		b.size++
	} else {
		b.entries[b.start] = e
		b.start = (b.start + 1) % Capacity
	}
	var observers []func(Entry)
	if !silent {
		observers = make([]func(Entry), 0, len(b.observers))
		for _, fn := range b.observers {
			observers = append(observers, fn)
		}
	}
	b.mu.Unlock()

	b.forward(e)
	for _, fn := range observers {
		fn(e)
	}
	return e
}

func (b *Buffer) forward(e Entry) {
	if b.sink == nil {
		return
	}
	l := b.sink.WithField("severity", string(e.Severity))
	if len(e.Fields) > 0 {
		l = l.WithFields(logrus.Fields(e.Fields))
	}
	if e.Silent {
		l.Debug(e.Message)
		return
	}
	switch e.Severity {
	case SeverityWarning:
		l.Warn(e.Message)
	case SeverityError:
		l.Error(e.Message)
	default:
		l.Info(e.Message)
	}
}

// Entries returns the retained entries, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.entries[(b.start+i)%Capacity]
	}
	return out
}

// Len returns the number of retained entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Subscribe registers fn for every visible entry. Observers run on the
// appending goroutine after the ring lock is released.
func (b *Buffer) Subscribe(fn func(Entry)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextObs
	b.nextObs++
	b.observers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.observers, id)
		b.mu.Unlock()
	}
}
