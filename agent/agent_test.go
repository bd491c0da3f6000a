package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/studyflow-ai/studyflow/blackboard"
)

// fakePolicy drives the runner from a test.
type fakePolicy struct {
	name     string
	interval time.Duration
	act      func(ctx context.Context, snap blackboard.Snapshot) (Result, error)
	should   func(snap blackboard.Snapshot) bool
	score    float64
	acted    atomic.Int32
}

func (f *fakePolicy) Name() string { return f.name }

func (f *fakePolicy) ShouldAct(snap blackboard.Snapshot) bool {
	if f.should != nil {
		return f.should(snap)
	}
	return true
}

func (f *fakePolicy) Act(ctx context.Context, snap blackboard.Snapshot) (Result, error) {
	f.acted.Add(1)
	if f.act != nil {
		return f.act(ctx, snap)
	}
	return Result{"action": "fake_action"}, nil
}

func (f *fakePolicy) Evaluate(result Result, snap blackboard.Snapshot) float64 {
	return f.score
}

func (f *fakePolicy) Interval() time.Duration { return f.interval }

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunnerRegistersAndActs(t *testing.T) {
	board := blackboard.New()
	policy := &fakePolicy{name: "FakeAgent", interval: 5 * time.Millisecond, score: 1.0}
	r := NewRunner(policy, board)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	if _, ok := board.Agent("FakeAgent"); !ok {
		t.Fatal("Start must register the agent before the loop runs")
	}

	waitFor(t, func() bool { return policy.acted.Load() >= 1 }, "agent never acted")

	waitFor(t, func() bool {
		rec, _ := board.Agent("FakeAgent")
		return rec.LastAction == "fake_action"
	}, "last action never recorded")

	waitFor(t, func() bool {
		_, ok := board.Shared("FakeAgent_last_result")
		return ok
	}, "last result never written to shared context")

	waitFor(t, func() bool { return len(r.History()) >= 1 }, "history never recorded")
	if h := r.History(); h[0] != 1.0 {
		t.Errorf("history[0] = %v, want 1.0", h[0])
	}
}

func TestRunnerSkipsWhenShouldActFalse(t *testing.T) {
	board := blackboard.New()
	policy := &fakePolicy{
		name:     "LazyAgent",
		interval: 5 * time.Millisecond,
		should:   func(blackboard.Snapshot) bool { return false },
	}
	r := NewRunner(policy, board)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	r.Stop()

	if policy.acted.Load() != 0 {
		t.Errorf("Act called %d times despite ShouldAct false", policy.acted.Load())
	}
	rec, _ := board.Agent("LazyAgent")
	if rec.Status != blackboard.StatusIdle {
		t.Errorf("status = %q, want idle", rec.Status)
	}
}

func TestRunnerFailureMarksBlockedAndContinues(t *testing.T) {
	board := blackboard.New()
	var calls atomic.Int32
	policy := &fakePolicy{
		name:     "FlakyAgent",
		interval: 5 * time.Millisecond,
		act: func(ctx context.Context, snap blackboard.Snapshot) (Result, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("transient failure")
			}
			return Result{"action": "recovered"}, nil
		},
	}
	r := NewRunner(policy, board, WithFailureBackoff(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	waitFor(t, func() bool {
		rec, _ := board.Agent("FlakyAgent")
		return rec.Status == blackboard.StatusBlocked
	}, "failed iteration never marked the agent blocked")

	// The loop survives the failure and the next iteration succeeds.
	waitFor(t, func() bool {
		rec, _ := board.Agent("FlakyAgent")
		return rec.LastAction == "recovered"
	}, "runner did not resume after failure")
}

func TestRunnerRecoversFromPanic(t *testing.T) {
	board := blackboard.New()
	var calls atomic.Int32
	policy := &fakePolicy{
		name:     "PanicAgent",
		interval: 5 * time.Millisecond,
		act: func(ctx context.Context, snap blackboard.Snapshot) (Result, error) {
			if calls.Add(1) == 1 {
				panic("hook exploded")
			}
			return Result{"action": "survived"}, nil
		},
	}
	r := NewRunner(policy, board, WithFailureBackoff(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	waitFor(t, func() bool {
		rec, _ := board.Agent("PanicAgent")
		return rec.LastAction == "survived"
	}, "runner did not survive a panicking hook")
}

func TestRunnerStopInterruptsSleep(t *testing.T) {
	board := blackboard.New()
	policy := &fakePolicy{name: "SleepyAgent", interval: time.Hour}
	r := NewRunner(policy, board)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	waitFor(t, func() bool { return policy.acted.Load() >= 1 }, "agent never acted")

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked behind a long interval sleep")
	}
}

func TestStopBeforeStartIsNoOp(t *testing.T) {
	r := NewRunner(&fakePolicy{name: "NeverStarted", interval: time.Second}, blackboard.New())
	r.Stop()
}

func TestConcurrentStopsAreSafe(t *testing.T) {
	board := blackboard.New()
	policy := &fakePolicy{name: "RacyAgent", interval: time.Hour}
	r := NewRunner(policy, board)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	waitFor(t, func() bool { return policy.acted.Load() >= 1 }, "agent never acted")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Stop()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent Stop calls did not all return")
	}
}

func TestActionLabelFallback(t *testing.T) {
	if got := actionLabel(Result{}); got != "autonomous_action" {
		t.Errorf("actionLabel(empty) = %q", got)
	}
	if got := actionLabel(Result{"action": 42}); got != "autonomous_action" {
		t.Errorf("actionLabel(non-string) = %q", got)
	}
	if got := actionLabel(Result{"action": "custom"}); got != "custom" {
		t.Errorf("actionLabel = %q, want custom", got)
	}
}
