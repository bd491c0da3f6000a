package agents

import (
	"context"
	"time"

	"github.com/studyflow-ai/studyflow/agent"
	"github.com/studyflow-ai/studyflow/blackboard"
)

// Coaching strategies, bound to progress bands.
const (
	StrategyIntensive   = "intensive_support"
	StrategyEncourage   = "gentle_encouragement"
	StrategyMaintenance = "maintenance"
)

// BehaviorCoach provides motivational interventions tuned to the current
// average progress level.
type BehaviorCoach struct {
	board *blackboard.Board
	now   func() time.Time
}

// NewBehaviorCoach creates the behavioral coaching policy.
func NewBehaviorCoach(board *blackboard.Board) *BehaviorCoach {
	return &BehaviorCoach{board: board, now: time.Now}
}

// Name implements agent.Policy.
func (c *BehaviorCoach) Name() string { return BehaviorCoachName }

// ShouldAct fires on recent low-productivity or low-progress events, or once
// a day for routine motivation.
func (c *BehaviorCoach) ShouldAct(snap blackboard.Snapshot) bool {
	for _, ev := range snap.RecentEvents {
		if ev.Type == "low_productivity_detected" || ev.Type == "low_progress_detected" {
			return true
		}
	}
	return c.now().Sub(snap.SharedTime(keyLastMotivation)) > 24*time.Hour
}

// Act selects the strategy for the current shared average progress, posts a
// motivation_provided event and stamps the motivation timestamp.
func (c *BehaviorCoach) Act(ctx context.Context, snap blackboard.Snapshot) (agent.Result, error) {
	avg := snap.SharedFloat(keyCurrentAvgProgress, 0.5)
	strategy, message := strategyForProgress(avg)

	c.board.PostEvent("motivation_provided", map[string]any{
		"strategy":       strategy,
		"message":        message,
		"progress_level": avg,
	}, c.Name())

	c.board.SetShared(keyLastMotivation, c.now())

	return agent.Result{
		"action":   "motivation",
		"strategy": strategy,
		"message":  message,
	}, nil
}

// Evaluate recomputes the strategy band from the board's current shared
// average and scores 1.0 on a match, 0.5 otherwise. The partial credit is
// deliberate: having acted at all is worth something even when the shared
// average moved between act and evaluate.
func (c *BehaviorCoach) Evaluate(result agent.Result, snap blackboard.Snapshot) float64 {
	chosen, _ := result["strategy"].(string)

	avg := 0.5
	if v, ok := c.board.Shared(keyCurrentAvgProgress); ok {
		if f, ok := v.(float64); ok {
			avg = f
		}
	}
	want, _ := strategyForProgress(avg)
	if chosen == want {
		return 1.0
	}
	return 0.5
}

// Interval implements agent.Policy.
func (c *BehaviorCoach) Interval() time.Duration { return 2 * time.Hour }

// strategyForProgress maps an average progress level to a strategy and its
// fixed message template: <0.3 intensive support, <0.6 gentle encouragement,
// otherwise maintenance.
func strategyForProgress(avg float64) (strategy, message string) {
	switch {
	case avg < 0.3:
		return StrategyIntensive, "I notice you're struggling. Let's break tasks into smaller chunks and use 15-minute focus sessions."
	case avg < 0.6:
		return StrategyEncourage, "You're making progress! Try the Pomodoro technique to maintain momentum."
	default:
		return StrategyMaintenance, "Great work! Keep up the consistent effort."
	}
}
