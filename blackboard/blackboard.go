package blackboard

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyflow-ai/studyflow/pkg/observability"
)

// Status represents the lifecycle state of an agent as recorded on the board.
type Status string

const (
	StatusIdle            Status = "idle"
	StatusWorking         Status = "working"
	StatusWaitingApproval Status = "waiting_approval"
	StatusBlocked         Status = "blocked"
)

// AgentRecord is the board's view of a single registered agent.
// Records are created at registration and mutated only through the board's
// update methods, never by agents directly.
type AgentRecord struct {
	Name             string    `json:"name"`
	Status           Status    `json:"status"`
	CurrentGoal      string    `json:"current_goal"`
	LastAction       string    `json:"last_action"`
	PerformanceScore float64   `json:"performance_score"`
	Timestamp        time.Time `json:"timestamp"`
}

// StudyGoal tracks progress toward one subject or objective.
type StudyGoal struct {
	Subject          string  `json:"subject"`
	TargetCompletion string  `json:"target_completion"`
	CurrentProgress  float64 `json:"current_progress"`
	Priority         int     `json:"priority"`
	Status           string  `json:"status"`
}

// Event is an immutable record of something that happened. Events are
// appended in insertion order; readers treat that order as causal order.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
}

// Snapshot is the read-only view handed to an agent at the top of each loop
// iteration. It is taken under the board lock but may be stale by the time
// the agent acts on it; agents tolerate that by design.
type Snapshot struct {
	StudyGoals   []StudyGoal            `json:"study_goals"`
	OtherAgents  map[string]AgentRecord `json:"other_agents"`
	RecentEvents []Event                `json:"recent_events"`
	Shared       map[string]any         `json:"shared_context"`
}

// SharedTime reads a time value from the shared context, returning the zero
// time when the key is absent or holds a non-time value. A zero result makes
// every "elapsed since" gate pass, which is the intended bootstrap behavior
// for agents whose cadence key has never been written.
func (s Snapshot) SharedTime(key string) time.Time {
	switch v := s.Shared[key].(type) {
	case time.Time:
		return v
	case string:
		// Restored values round-trip through JSON as RFC3339 strings.
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SharedFloat reads a float value from the shared context with a default.
func (s Snapshot) SharedFloat(key string, def float64) float64 {
	if v, ok := s.Shared[key]; ok {
		switch f := v.(type) {
		case float64:
			return f
		case float32:
			return float64(f)
		case int:
			return float64(f)
		}
	}
	return def
}

// reaction maps an event type to an immediate status change on a named agent.
type reaction struct {
	agent  string
	status Status
	goal   string
}

// recentEventLimit is how many trailing events a context snapshot carries.
const recentEventLimit = 10

// Board is the shared blackboard all agents and the orchestrator coordinate
// through. It is the single writer-of-record for agent records, study goals,
// the event log and the shared context map. Every mutating method is atomic
// with respect to itself; composite check-then-act sequences are deliberately
// not protected by a single lock.
//
// Board is safe for concurrent use. Construct one with New and inject it;
// there is no package-level instance.
type Board struct {
	mu        sync.RWMutex
	agents    map[string]AgentRecord
	goals     []StudyGoal
	events    []Event
	shared    map[string]any
	reactions map[string]reaction
	store     ContextStore
}

// Option configures a Board at construction time.
type Option func(*Board)

// WithContextStore attaches a persistence backend for the shared context.
// Writes are mirrored to the store best-effort; call RestoreShared after
// construction to reload persisted entries.
func WithContextStore(store ContextStore) Option {
	return func(b *Board) {
		b.store = store
	}
}

// New creates an empty board with the fixed reaction table installed.
func New(opts ...Option) *Board {
	b := &Board{
		agents: make(map[string]AgentRecord),
		shared: make(map[string]any),
		reactions: map[string]reaction{
			"low_productivity_detected": {agent: "BehaviorCoachAgent", status: StatusWorking, goal: "improve_focus"},
			"deadline_approaching":      {agent: "TaskManagerAgent", status: StatusWorking, goal: "reschedule_tasks"},
			"study_plan_needs_revision": {agent: "StudyPlannerAgent", status: StatusWorking, goal: "revise_plan"},
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RestoreShared loads persisted shared-context entries into the board.
// Existing in-memory keys are not overwritten. A board without a store
// restores nothing and returns nil.
func (b *Board) RestoreShared(ctx context.Context) error {
	if b.store == nil {
		return nil
	}

	entries, err := b.store.Load(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range entries {
		if _, exists := b.shared[k]; !exists {
			b.shared[k] = v
		}
	}
	return nil
}

// RegisterAgent creates the record for a named agent. Registering a name
// twice overwrites the prior record, resetting status to idle and the
// performance score to 1.0; callers are expected to register each name once.
func (b *Board) RegisterAgent(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.agents[name] = AgentRecord{
		Name:             name,
		Status:           StatusIdle,
		LastAction:       "initialized",
		PerformanceScore: 1.0,
		Timestamp:        time.Now(),
	}
}

// UpdateAgentStatus sets the status and current goal for a registered agent
// and stamps the record with the current time. Unknown names are silently
// ignored so that a reaction firing before its target finishes registering
// never crashes a loop.
func (b *Board) UpdateAgentStatus(name string, status Status, goal string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setStatusLocked(name, status, goal)
}

func (b *Board) setStatusLocked(name string, status Status, goal string) {
	rec, ok := b.agents[name]
	if !ok {
		return
	}
	rec.Status = status
	rec.CurrentGoal = goal
	rec.Timestamp = time.Now()
	b.agents[name] = rec
}

// RecordAction updates an agent's last-action label and running performance
// score. Both fields are informational; scores are not validated beyond what
// the caller computed.
func (b *Board) RecordAction(name, action string, score float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.agents[name]
	if !ok {
		return
	}
	rec.LastAction = action
	rec.PerformanceScore = score
	rec.Timestamp = time.Now()
	b.agents[name] = rec
}

// PostEvent appends an event to the log and then runs the reaction table
// entry for its type, if any, before returning. Reactions are synchronous:
// by the time PostEvent returns, the target agent's record already reflects
// the reaction. Unknown event types append with no reaction.
func (b *Board) PostEvent(eventType string, data map[string]any, source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.postEventLocked(eventType, data, source)
}

func (b *Board) postEventLocked(eventType string, data map[string]any, source string) {
	b.events = append(b.events, Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Data:      data,
		Source:    source,
		Timestamp: time.Now(),
	})
	observability.RecordEventPosted(eventType)

	if r, ok := b.reactions[eventType]; ok {
		b.setStatusLocked(r.agent, r.status, r.goal)
	}
}

// ContextFor builds the snapshot handed to the named agent: all study goals,
// every other agent's record (the caller's own record is excluded), the last
// ten events, and a copy of the full shared context map.
func (b *Board) ContextFor(name string) Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	goals := make([]StudyGoal, len(b.goals))
	copy(goals, b.goals)

	others := make(map[string]AgentRecord, len(b.agents))
	for n, rec := range b.agents {
		if n == name {
			continue
		}
		others[n] = rec
	}

	start := len(b.events) - recentEventLimit
	if start < 0 {
		start = 0
	}
	recent := make([]Event, len(b.events)-start)
	copy(recent, b.events[start:])

	shared := make(map[string]any, len(b.shared))
	for k, v := range b.shared {
		shared[k] = v
	}

	return Snapshot{
		StudyGoals:   goals,
		OtherAgents:  others,
		RecentEvents: recent,
		Shared:       shared,
	}
}

// AddGoal appends a study goal. Duplicate subjects are not prevented;
// progress updates match the first occurrence.
func (b *Board) AddGoal(goal StudyGoal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.goals = append(b.goals, goal)
}

// Goals returns a copy of the current goal list.
func (b *Board) Goals() []StudyGoal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	goals := make([]StudyGoal, len(b.goals))
	copy(goals, b.goals)
	return goals
}

// UpdateStudyProgress sets the progress of the first goal whose subject
// matches. Progress below 0.3 synchronously posts a low_progress_detected
// event before this method returns. Unknown subjects are ignored.
func (b *Board) UpdateStudyProgress(subject string, progress float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.goals {
		if b.goals[i].Subject != subject {
			continue
		}
		b.goals[i].CurrentProgress = progress

		if progress < 0.3 {
			b.postEventLocked("low_progress_detected", map[string]any{
				"subject":  subject,
				"progress": progress,
			}, "system")
		}
		return
	}
}

// SetShared writes a value into the shared context map. Keys are free-form;
// collisions are the caller's responsibility, avoided by convention with
// "<agentName>_<purpose>" naming.
func (b *Board) SetShared(key string, value any) {
	b.mu.Lock()
	b.shared[key] = value
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}
	// Mirror outside the lock; a slow or dead store must not stall writers.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Save(ctx, key, value); err != nil {
			log.Printf("blackboard: persist %q: %v", key, err)
		}
	}()
}

// Shared reads a value from the shared context map.
func (b *Board) Shared(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.shared[key]
	return v, ok
}

// SharedKeys returns the current set of shared context keys.
func (b *Board) SharedKeys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.shared))
	for k := range b.shared {
		keys = append(keys, k)
	}
	return keys
}

// Agent returns the record for a single agent.
func (b *Board) Agent(name string) (AgentRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.agents[name]
	return rec, ok
}

// Agents returns a copy of every agent record, keyed by name.
func (b *Board) Agents() map[string]AgentRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]AgentRecord, len(b.agents))
	for n, rec := range b.agents {
		out[n] = rec
	}
	return out
}

// RecentEvents returns a copy of the last n events in append order. A
// non-positive n yields an empty slice.
func (b *Board) RecentEvents(n int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n < 0 {
		n = 0
	}
	start := len(b.events) - n
	if start < 0 {
		start = 0
	}
	out := make([]Event, len(b.events)-start)
	copy(out, b.events[start:])
	return out
}

// EventCount returns the total number of events posted so far.
func (b *Board) EventCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}
