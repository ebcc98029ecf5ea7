// Package notify carries the advisory diagnostics produced while reading or
// writing a drawing. Fatal problems are returned as errors; everything the
// codec can recover from is reported here instead.
package notify

import (
	"fmt"
	"sync"
)

// Severity orders notifications by importance.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Kind classifies what the notification is about.
type Kind int

const (
	KindGeneral Kind = iota
	KindNotImplemented
	KindNotSupported
	KindChecksum
	KindMissingReference
	KindTypeMismatch
	KindSkippedObject
)

var kindNames = map[Kind]string{
	KindGeneral:          "general",
	KindNotImplemented:   "not-implemented",
	KindNotSupported:     "not-supported",
	KindChecksum:         "checksum",
	KindMissingReference: "missing-reference",
	KindTypeMismatch:     "type-mismatch",
	KindSkippedObject:    "skipped-object",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Kinds lists every kind, for metric pre-registration.
func Kinds() []Kind {
	return []Kind{KindGeneral, KindNotImplemented, KindNotSupported, KindChecksum,
		KindMissingReference, KindTypeMismatch, KindSkippedObject}
}

// Notification is one advisory event. Handle and Offset are zero and -1 when
// they do not apply.
type Notification struct {
	Kind     Kind
	Severity Severity
	Message  string
	Err      error
	Handle   uint64
	Offset   int64
}

func (n Notification) String() string {
	s := fmt.Sprintf("[%s] %s: %s", n.Severity, n.Kind, n.Message)
	if n.Err != nil {
		s += ": " + n.Err.Error()
	}
	return s
}

// Handler receives notifications. A nil Handler discards them.
type Handler func(Notification)

// Emit delivers n if h is non-nil.
func (h Handler) Emit(n Notification) {
	if h != nil {
		h(n)
	}
}

// Warn is shorthand for a warning without handle or offset.
func (h Handler) Warn(kind Kind, err error, format string, args ...any) {
	h.Emit(Notification{
		Kind:     kind,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		Err:      err,
		Offset:   -1,
	})
}

// Multi fans a notification out to every non-nil handler.
func Multi(handlers ...Handler) Handler {
	return func(n Notification) {
		for _, h := range handlers {
			h.Emit(n)
		}
	}
}

// Collector accumulates notifications. It is safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	items []Notification
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Handle appends n.
func (c *Collector) Handle(n Notification) {
	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()
}

// Handler returns c.Handle as a Handler.
func (c *Collector) Handler() Handler {
	return c.Handle
}

// All returns a copy of the collected notifications in arrival order.
func (c *Collector) All() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of notifications collected.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Count returns the number of notifications of the given kind.
func (c *Collector) Count(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, item := range c.items {
		if item.Kind == kind {
			n++
		}
	}
	return n
}
