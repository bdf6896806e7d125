// Package builder holds the interactive sessions a creator goes through
// before a form is published: collecting questions and choosing who may
// respond. Each session is a state machine fed through a channel and
// bounded by an inactivity deadline.
package builder

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotCreator = errors.New("only the creator of the form can do that")
	ErrClosed     = errors.New("this session has already ended")
	ErrAbandoned  = errors.New("session timed out")
)

type State int8

const (
	StateOpen = State(iota)
	StateFinalized
	StateAbandoned
)

func (v State) String() string {
	switch v {
	case StateOpen:
		return "open"
	case StateFinalized:
		return "finalized"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

type event struct {
	actorID string
	apply   func() (bool, error)
	reply   chan error
}

// loop serialises every mutation of a session onto the goroutine running
// wait, so session state needs no locking of its own.
type loop struct {
	creatorID string
	timeout   time.Duration

	events chan event
	done   chan struct{}

	mu    sync.RWMutex
	state State
}

func newLoop(creatorID string, timeout time.Duration) *loop {
	return &loop{
		creatorID: creatorID,
		timeout:   timeout,
		events:    make(chan event),
		done:      make(chan struct{}),
	}
}

func (l *loop) submit(ctx context.Context, actorID string, apply func() (bool, error)) error {
	if actorID != l.creatorID {
		return ErrNotCreator
	}

	ev := event{actorID: actorID, apply: apply, reply: make(chan error, 1)}
	select {
	case l.events <- ev:
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-ev.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wait runs the session until an action finishes it, the inactivity
// deadline passes, or ctx is cancelled.
func (l *loop) wait(ctx context.Context) error {
	defer close(l.done)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	for {
		select {
		case ev := <-l.events:
			finished, err := ev.apply()
			ev.reply <- err
			if finished {
				l.setState(StateFinalized)
				return nil
			}
			timer.Reset(l.timeout)
		case <-timer.C:
			l.setState(StateAbandoned)
			return ErrAbandoned
		case <-ctx.Done():
			l.setState(StateAbandoned)
			return ctx.Err()
		}
	}
}

func (l *loop) setState(state State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = state
}

func (l *loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Done is closed once the session stops accepting actions.
func (l *loop) Done() <-chan struct{} {
	return l.done
}

func (l *loop) CreatorID() string {
	return l.creatorID
}
