package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"librarian/internal/orchestrate"
)

// SessionState tracks the lifecycle of an analysis session.
type SessionState string

const (
	StateRunning SessionState = "running"
	StateDone    SessionState = "done"
	StateError   SessionState = "error"
)

// Session is one asynchronous pipeline run. The tool handler returns
// immediately with the session ID; get_report blocks on Done.
type Session struct {
	ID       string
	Pipeline string
	Root     string

	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	outcome *orchestrate.RunOutcome
	err     error

	ttl      time.Duration
	activity chan struct{}
}

// NewSession starts the pipeline in a background goroutine. The run is
// detached from the request context; cancel it via Cancel or session TTL.
func NewSession(orch *orchestrate.Orchestrator, pipeline, root string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:       uuid.NewString(),
		Pipeline: pipeline,
		Root:     root,
		cancel:   cancel,
		done:     make(chan struct{}),
		activity: make(chan struct{}, 1),
	}
	go s.run(ctx, orch)
	return s
}

func (s *Session) run(ctx context.Context, orch *orchestrate.Orchestrator) {
	defer close(s.done)
	outcome, err := orch.Run(ctx, s.Pipeline, s.Root)
	s.mu.Lock()
	s.outcome = outcome
	s.err = err
	s.mu.Unlock()
}

// SetTTL starts an inactivity watchdog: if no Touch arrives within ttl,
// the session is cancelled. Used so abandoned clients do not leak runs.
func (s *Session) SetTTL(ttl time.Duration) {
	s.ttl = ttl
	go func() {
		timer := time.NewTimer(ttl)
		defer timer.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-s.activity:
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(ttl)
			case <-timer.C:
				s.cancel()
				return
			}
		}
	}()
}

// Touch marks client activity for the TTL watchdog.
func (s *Session) Touch() {
	select {
	case s.activity <- struct{}{}:
	default:
	}
}

// Cancel aborts the running pipeline.
func (s *Session) Cancel() { s.cancel() }

// Done is closed when the run finishes, successfully or not.
func (s *Session) Done() <-chan struct{} { return s.done }

// State reports the session lifecycle state.
func (s *Session) State() SessionState {
	select {
	case <-s.done:
	default:
		return StateRunning
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return StateError
	}
	return StateDone
}

// Outcome returns the run outcome and error once the session is done.
func (s *Session) Outcome() (*orchestrate.RunOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.err
}
