package pipeline

import (
	"context"
	"fmt"
	"sync"
)

type StageState int

const (
	StageIdle StageState = iota
	StageDraining
)

func (s StageState) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageDraining:
		return "draining"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// stage drains a queue one item at a time on a single worker goroutine.
//
// The head stays in the queue while its call is in flight. begin moves the
// stage to Draining and finish moves it back to Idle, so the in-flight gate
// is held exactly for the duration of one call. reset bumps the epoch and
// cancels the current call; a call that returns under an older epoch is
// discarded without touching the new session's queue.
type stage[T any] struct {
	name  string
	queue *Queue[T]
	wake  chan struct{}

	mu         sync.Mutex
	state      StageState
	epoch      uint64
	cancelCall context.CancelFunc
}

func newStage[T any](name string) *stage[T] {
	return &stage[T]{
		name:  name,
		queue: NewQueue[T](),
		wake:  make(chan struct{}, 1),
	}
}

func (s *stage[T]) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *stage[T]) State() StageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *stage[T]) begin(parent context.Context) (item T, callCtx context.Context, epoch uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	head, ok := s.queue.Peek()
	if !ok {
		s.state = StageIdle
		return item, nil, s.epoch, false
	}
	callCtx, cancel := context.WithCancel(parent)
	s.state = StageDraining
	s.cancelCall = cancel
	return head, callCtx, s.epoch, true
}

// finish completes the call started under epoch. When the epoch is still
// current it removes the head, runs commit while holding the stage lock and
// returns true.
func (s *stage[T]) finish(epoch uint64, commit func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	if s.cancelCall != nil {
		s.cancelCall()
		s.cancelCall = nil
	}
	s.queue.PopHead()
	if commit != nil {
		commit()
	}
	s.state = StageIdle
	return true
}

// current runs fn while holding the stage lock if epoch is still current.
func (s *stage[T]) current(epoch uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	fn()
	return true
}

func (s *stage[T]) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	if s.cancelCall != nil {
		s.cancelCall()
		s.cancelCall = nil
	}
	s.queue.Clear()
	s.state = StageIdle
}

// run waits for kicks and drains until ctx is done. process must not
// return before the call for item has completed, failed or timed out.
func (s *stage[T]) run(ctx context.Context, process func(ctx context.Context, item T, epoch uint64)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
		for {
			item, callCtx, epoch, ok := s.begin(ctx)
			if !ok {
				break
			}
			process(callCtx, item, epoch)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// callSafely converts a provider panic into an error so the stage always
// reaches finish.
func callSafely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()
	return fn()
}
