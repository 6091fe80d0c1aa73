package screens

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when an action is triggered while the previous one is
// still running.
var ErrBusy = errors.New("screens: action already in progress")

// ErrSuperseded is returned by a Run whose loader was Reset while it ran.
// Its result is dropped.
var ErrSuperseded = errors.New("screens: result superseded")

// State is a screen's load state.
type State int

const (
	StateLoading State = iota
	StateLoaded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Loader holds the Loading -> Loaded | Errored state of one screen action.
// Data is only exposed in the Loaded state. The zero value is ready to use
// and starts in StateLoading.
type Loader[T any] struct {
	mu    sync.Mutex
	state State
	data  T
	err   error
	busy  bool
	// gen is bumped by Reset; a Run only lands if it still matches.
	gen uint64
}

// Run executes fn unless a previous Run is still in flight, in which case it
// returns ErrBusy without touching the state.
func (l *Loader[T]) Run(ctx context.Context, fn func(context.Context) (T, error)) error {
	l.mu.Lock()
	if l.busy {
		l.mu.Unlock()
		return ErrBusy
	}
	var zero T
	l.busy = true
	l.state = StateLoading
	l.data = zero
	l.err = nil
	gen := l.gen
	l.mu.Unlock()

	data, err := fn(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return ErrSuperseded
	}
	l.busy = false
	if err != nil {
		l.state = StateErrored
		l.err = err
		return err
	}
	l.state = StateLoaded
	l.data = data
	return nil
}

// Reset returns the loader to StateLoading with no data, as when the screen's
// dependency changes. An in-flight Run is abandoned: its result is dropped and
// a new Run may start right away.
func (l *Loader[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero T
	l.gen++
	l.busy = false
	l.state = StateLoading
	l.data = zero
	l.err = nil
}

func (l *Loader[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Data returns the loaded value and whether the loader is in StateLoaded.
func (l *Loader[T]) Data() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data, l.state == StateLoaded
}

func (l *Loader[T]) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Busy reports whether a Run is in flight.
func (l *Loader[T]) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busy
}
