package toast

import (
	"strconv"
	"sync"
	"time"
)

const (
	// Limit is the maximum number of entries kept in a queue.
	Limit = 5
	// DefaultDuration is how long an entry stays open.
	DefaultDuration = 5000 * time.Millisecond
	// RemoveDelay is the grace between closing and removing an entry.
	RemoveDelay = 300 * time.Millisecond
)

// Variant selects the visual style of an entry.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSuccess     Variant = "success"
	VariantDestructive Variant = "destructive"
)

// Entry is a single notification.
type Entry struct {
	ID          string
	Title       string
	Description string
	Variant     Variant
	Open        bool
	Duration    time.Duration
}

// Timer is the subset of *time.Timer used by the queue.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Listener receives a copy of the entries after every change.
type Listener func(entries []Entry)

type item struct {
	entry Entry
	close Timer
	purge Timer
}

func (it *item) stop() {
	if it.close != nil {
		it.close.Stop()
	}
	if it.purge != nil {
		it.purge.Stop()
	}
}

// Queue is safe for concurrent use.
type Queue struct {
	mu        sync.Mutex
	clock     Clock
	seq       uint64
	items     []*item
	listeners map[int]Listener
	nextSub   int
	closed    bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(q *Queue) {
		if c != nil {
			q.clock = c
		}
	}
}

// NewQueue creates an empty queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		clock:     realClock{},
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Dispatch adds e to the head of the queue and returns its ID. The oldest
// entry is dropped when the queue is full.
func (q *Queue) Dispatch(e Entry) string {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ""
	}

	q.seq++
	e.ID = strconv.FormatUint(q.seq, 10)
	e.Open = true
	if e.Duration <= 0 {
		e.Duration = DefaultDuration
	}
	if e.Variant == "" {
		e.Variant = VariantDefault
	}

	it := &item{entry: e}
	id := e.ID
	it.close = q.clock.AfterFunc(e.Duration, func() { q.Dismiss(id) })

	q.items = append([]*item{it}, q.items...)
	for len(q.items) > Limit {
		last := q.items[len(q.items)-1]
		last.stop()
		q.items = q.items[:len(q.items)-1]
	}
	q.mu.Unlock()

	q.notify()
	return id
}

// Success dispatches a success entry.
func (q *Queue) Success(title, description string) string {
	return q.Dispatch(Entry{Title: title, Description: description, Variant: VariantSuccess})
}

// Error dispatches a destructive entry.
func (q *Queue) Error(title, description string) string {
	return q.Dispatch(Entry{Title: title, Description: description, Variant: VariantDestructive})
}

// Info dispatches a default entry.
func (q *Queue) Info(title, description string) string {
	return q.Dispatch(Entry{Title: title, Description: description})
}

// Dismiss closes the entry with the given id, or every entry when id is
// empty. Closed entries are removed after RemoveDelay.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	changed := false
	for _, it := range q.items {
		if id != "" && it.entry.ID != id {
			continue
		}
		if !it.entry.Open {
			continue
		}
		it.entry.Open = false
		if it.close != nil {
			it.close.Stop()
		}
		target := it.entry.ID
		it.purge = q.clock.AfterFunc(RemoveDelay, func() { q.remove(target) })
		changed = true
	}
	q.mu.Unlock()

	if changed {
		q.notify()
	}
}

func (q *Queue) remove(id string) {
	q.mu.Lock()
	idx := -1
	for i, it := range q.items {
		if it.entry.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return
	}
	q.items[idx].stop()
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	q.mu.Unlock()

	q.notify()
}

// Entries returns a copy of the current entries, newest first.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshot()
}

func (q *Queue) snapshot() []Entry {
	out := make([]Entry, len(q.items))
	for i, it := range q.items {
		out[i] = it.entry
	}
	return out
}

// Subscribe registers fn for change notifications and returns a function
// that unregisters it.
func (q *Queue) Subscribe(fn Listener) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextSub
	q.nextSub++
	q.listeners[id] = fn
	return func() {
		q.mu.Lock()
		delete(q.listeners, id)
		q.mu.Unlock()
	}
}

func (q *Queue) notify() {
	q.mu.Lock()
	entries := q.snapshot()
	listeners := make([]Listener, 0, len(q.listeners))
	for _, l := range q.listeners {
		listeners = append(listeners, l)
	}
	q.mu.Unlock()

	for _, l := range listeners {
		l(entries)
	}
}

// Close stops every timer and drops all entries and listeners.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items {
		it.stop()
	}
	q.items = nil
	q.listeners = map[int]Listener{}
	q.closed = true
}
