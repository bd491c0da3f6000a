package agent

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/studyflow-ai/studyflow/blackboard"
	"github.com/studyflow-ai/studyflow/pkg/observability"
)

// Result is the free-form outcome of one autonomous action. The runner
// writes it into the shared context under "<agentName>_last_result".
type Result map[string]any

// Policy is the decision surface of an autonomous agent. Implementations
// supply exactly these four hooks; the Runner owns everything else.
//
// ShouldAct must be side-effect-free: it is a pure decision over the
// snapshot. Act is the only hook permitted to mutate the blackboard or call
// external services. Evaluate scores the action in [0.0, 1.0]. Interval is
// the sleep between loop iterations.
type Policy interface {
	Name() string
	ShouldAct(snap blackboard.Snapshot) bool
	Act(ctx context.Context, snap blackboard.Snapshot) (Result, error)
	Evaluate(result Result, snap blackboard.Snapshot) float64
	Interval() time.Duration
}

// DefaultFailureBackoff is how long a runner sleeps after a failed
// iteration before resuming its loop.
const DefaultFailureBackoff = 60 * time.Second

// Runner drives one Policy in its own goroutine. A single failed iteration
// marks the agent blocked and backs off; it never terminates the loop.
// Stopping is cooperative: the flag is observed at the next iteration
// boundary, after any in-flight action completes.
type Runner struct {
	policy  Policy
	board   *blackboard.Board
	backoff time.Duration

	mu      sync.Mutex
	history []float64
	stopped chan struct{}
	done    chan struct{}
}

// Option configures a Runner.
type Option func(*Runner)

// WithFailureBackoff overrides the backoff slept after a failed iteration.
func WithFailureBackoff(d time.Duration) Option {
	return func(r *Runner) { r.backoff = d }
}

// NewRunner creates a runner for the given policy over the given board.
func NewRunner(policy Policy, board *blackboard.Board, opts ...Option) *Runner {
	r := &Runner{
		policy:  policy,
		board:   board,
		backoff: DefaultFailureBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the policy's agent name.
func (r *Runner) Name() string {
	return r.policy.Name()
}

// Start registers the agent on the board and launches the autonomous loop.
// Calling Start twice launches two concurrent loops; callers are expected to
// start each runner once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.stopped = make(chan struct{})
	r.done = make(chan struct{})
	stopped, done := r.stopped, r.done
	r.mu.Unlock()

	r.board.RegisterAgent(r.policy.Name())

	go r.loop(ctx, stopped, done)
}

// Stop flips the stop flag and waits for the loop to observe it. In-flight
// iterations complete first; there is no preemptive cancellation of a
// running action.
func (r *Runner) Stop() {
	r.mu.Lock()
	stopped, done := r.stopped, r.done
	if stopped != nil {
		select {
		case <-stopped:
		default:
			close(stopped)
		}
	}
	r.mu.Unlock()

	if stopped == nil {
		return
	}
	<-done
}

// History returns a copy of the local performance history. Scores are never
// persisted anywhere else.
func (r *Runner) History() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Runner) loop(ctx context.Context, stopped, done chan struct{}) {
	defer close(done)
	name := r.policy.Name()

	for {
		select {
		case <-stopped:
			return
		case <-ctx.Done():
			return
		default:
		}

		wait := r.policy.Interval()
		if err := r.iterate(ctx); err != nil {
			log.Printf("agent %s: iteration failed: %v", name, err)
			r.board.UpdateAgentStatus(name, blackboard.StatusBlocked, "")
			observability.RecordAgentIteration(name, "failed")
			wait = r.backoff
		}

		select {
		case <-stopped:
			return
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// iterate runs one decide/act/evaluate pass. Panics inside any hook are
// converted to errors so a misbehaving policy cannot kill the loop.
func (r *Runner) iterate(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in agent hooks: %v", rec)
		}
	}()

	name := r.policy.Name()
	snap := r.board.ContextFor(name)

	if !r.policy.ShouldAct(snap) {
		observability.RecordAgentIteration(name, "skipped")
		return nil
	}

	r.board.UpdateAgentStatus(name, blackboard.StatusWorking, "")

	start := time.Now()
	result, err := r.policy.Act(ctx, snap)
	observability.RecordAgentAction(name, time.Since(start))
	if err != nil {
		return fmt.Errorf("act: %w", err)
	}

	score := r.policy.Evaluate(result, snap)
	r.mu.Lock()
	r.history = append(r.history, score)
	r.mu.Unlock()
	observability.SetAgentPerformance(name, score)

	r.board.RecordAction(name, actionLabel(result), score)
	r.board.SetShared(name+"_last_result", result)
	r.board.UpdateAgentStatus(name, blackboard.StatusIdle, "")
	observability.RecordAgentIteration(name, "acted")
	return nil
}

// actionLabel derives the last-action label from a result's conventional
// "action" key, if the policy set one.
func actionLabel(result Result) string {
	if v, ok := result["action"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "autonomous_action"
}
