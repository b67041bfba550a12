package scan

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSource hand-feeds codes and records lifecycle calls.
type fakeSource struct {
	codes  chan string
	starts int
	stops  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{codes: make(chan string, 1)}
}

func (f *fakeSource) Start(ctx context.Context) error { f.starts++; return nil }
func (f *fakeSource) Stop()                           { f.stops++ }
func (f *fakeSource) Codes() <-chan string            { return f.codes }

func TestArmDeliversFirstCodeAndDisarms(t *testing.T) {
	src := newFakeSource()
	session := NewSession(src, time.Second)
	results, err := session.Arm(context.Background())
	if err != nil {
		t.Fatalf("arm: %v", err)
	}
	if session.State() != Scanning {
		t.Fatalf("expected scanning state after arm")
	}
	src.codes <- "JOB-5678"
	res := <-results
	if res.Err != nil || res.Code != "JOB-5678" {
		t.Fatalf("unexpected result %+v", res)
	}
	if session.State() != Idle {
		t.Fatalf("session must disarm after delivering a code")
	}
	if src.stops == 0 {
		t.Fatalf("source must be stopped on disarm")
	}
}

func TestArmTimesOutAndDisarms(t *testing.T) {
	src := newFakeSource()
	session := NewSession(src, 10*time.Millisecond)
	results, err := session.Arm(context.Background())
	if err != nil {
		t.Fatalf("arm: %v", err)
	}
	res := <-results
	if !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("expected timeout, got %+v", res)
	}
	if session.State() != Idle {
		t.Fatalf("session must return to idle after timeout")
	}
}

func TestDoubleArmRefused(t *testing.T) {
	src := newFakeSource()
	session := NewSession(src, time.Second)
	if _, err := session.Arm(context.Background()); err != nil {
		t.Fatalf("first arm: %v", err)
	}
	if _, err := session.Arm(context.Background()); !errors.Is(err, ErrAlreadyScanning) {
		t.Fatalf("second arm must be refused, got %v", err)
	}
	session.Disarm()
}

func TestRearmAfterDisarm(t *testing.T) {
	src := newFakeSource()
	session := NewSession(src, time.Second)
	results, err := session.Arm(context.Background())
	if err != nil {
		t.Fatalf("arm: %v", err)
	}
	src.codes <- "JOB-1"
	<-results

	results, err = session.Arm(context.Background())
	if err != nil {
		t.Fatalf("re-arm: %v", err)
	}
	src.codes <- "JOB-2"
	res := <-results
	if res.Code != "JOB-2" {
		t.Fatalf("expected second code, got %+v", res)
	}
	if src.starts != 2 {
		t.Fatalf("each arm must start the source, got %d starts", src.starts)
	}
}

func TestDisarmCancelsPendingArm(t *testing.T) {
	src := newFakeSource()
	session := NewSession(src, 0) // no timeout
	results, err := session.Arm(context.Background())
	if err != nil {
		t.Fatalf("arm: %v", err)
	}
	session.Disarm()
	res := <-results
	if res.Err == nil {
		t.Fatalf("cancelled arm must surface an error result")
	}
	if session.State() != Idle {
		t.Fatalf("expected idle after disarm")
	}
}
