package scan

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout reports that no code arrived before the inactivity timeout;
// the session has already disarmed itself.
var ErrTimeout = errors.New("scan: no code before timeout")

// ErrAlreadyScanning reports an Arm while a previous arm is still live.
var ErrAlreadyScanning = errors.New("scan: already scanning")

// State is the session's two-state toggle.
type State int

const (
	Idle State = iota
	Scanning
)

// Result is the single-shot outcome of one arm: a decoded code or the
// reason the session disarmed.
type Result struct {
	Code string
	Err  error
}

// Session owns the arm/disarm lifecycle around an injected Source. Exactly
// one arm is live at a time; each Arm yields a one-shot channel that fires
// once with the first code, the inactivity timeout, or cancellation, after
// which the session is back at Idle with the source stopped.
type Session struct {
	source  Source
	timeout time.Duration

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

// NewSession wires a session to its source. Timeout is the inactivity
// window; zero disables it.
func NewSession(source Source, timeout time.Duration) *Session {
	return &Session{source: source, timeout: timeout}
}

// State reports the current toggle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Arm starts the source and returns the one-shot result channel.
func (s *Session) Arm(ctx context.Context) (<-chan Result, error) {
	s.mu.Lock()
	if s.state == Scanning {
		s.mu.Unlock()
		return nil, ErrAlreadyScanning
	}
	armCtx, cancel := context.WithCancel(ctx)
	if err := s.source.Start(armCtx); err != nil {
		cancel()
		s.mu.Unlock()
		return nil, err
	}
	s.state = Scanning
	s.cancel = cancel
	s.mu.Unlock()

	out := make(chan Result, 1)
	go s.wait(armCtx, out)
	return out, nil
}

func (s *Session) wait(ctx context.Context, out chan<- Result) {
	var timeoutC <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}
	select {
	case code := <-s.source.Codes():
		s.Disarm()
		out <- Result{Code: code}
	case <-timeoutC:
		s.Disarm()
		out <- Result{Err: ErrTimeout}
	case <-ctx.Done():
		s.Disarm()
		out <- Result{Err: ctx.Err()}
	}
}

// Disarm stops the source, clears the pending timer and returns to Idle.
// Safe to call when already idle.
func (s *Session) Disarm() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.state = Idle
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.source.Stop()
}
