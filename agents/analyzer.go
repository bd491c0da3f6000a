// Package agents contains the concrete autonomous agent policies: progress
// analysis, task scheduling and behavioral coaching. Each policy is four
// hooks over a blackboard snapshot; the agent runtime drives the loop.
package agents

import (
	"context"
	"time"

	"github.com/studyflow-ai/studyflow/agent"
	"github.com/studyflow-ai/studyflow/blackboard"
)

// Agent names as registered on the blackboard. The reaction table inside the
// board refers to these names, so they are fixed.
const (
	ProgressAnalyzerName = "ProgressAnalyzerAgent"
	TaskManagerName      = "TaskManagerAgent"
	BehaviorCoachName    = "BehaviorCoachAgent"
	StudyPlannerName     = "StudyPlannerAgent"
)

// Shared-context keys written by the autonomous agents.
const (
	keyLastProgressAnalysis = "last_progress_analysis"
	keyCurrentAvgProgress   = "current_avg_progress"
	keyLastScheduleOptimize = "last_schedule_optimization"
	keyLastMotivation       = "last_motivation"
	keyCurrentTasks         = "current_tasks"
)

// lowProgressThreshold is the average progress below which the analyzer
// raises a productivity alarm.
const lowProgressThreshold = 0.3

// ProgressAnalyzer continuously monitors study-goal progress and raises
// low_productivity_detected events when the average falls below threshold.
type ProgressAnalyzer struct {
	board *blackboard.Board
	now   func() time.Time
}

// NewProgressAnalyzer creates the progress analysis policy.
func NewProgressAnalyzer(board *blackboard.Board) *ProgressAnalyzer {
	return &ProgressAnalyzer{board: board, now: time.Now}
}

// Name implements agent.Policy.
func (p *ProgressAnalyzer) Name() string { return ProgressAnalyzerName }

// ShouldAct fires when at least an hour has passed since the last analysis.
// A missing key reads as the zero time, so the very first check acts.
func (p *ProgressAnalyzer) ShouldAct(snap blackboard.Snapshot) bool {
	return p.now().Sub(snap.SharedTime(keyLastProgressAnalysis)) > time.Hour
}

// Act averages progress across all study goals, raises the alarm when it is
// below threshold, and records the analysis timestamp and average in the
// shared context.
func (p *ProgressAnalyzer) Act(ctx context.Context, snap blackboard.Snapshot) (agent.Result, error) {
	var total float64
	for _, goal := range snap.StudyGoals {
		total += goal.CurrentProgress
	}
	avg := 0.0
	if len(snap.StudyGoals) > 0 {
		avg = total / float64(len(snap.StudyGoals))
	}

	if avg < lowProgressThreshold {
		p.board.PostEvent("low_productivity_detected", map[string]any{
			"average_progress": avg,
			"recommendation":   "intervention_needed",
		}, p.Name())
	}

	p.board.SetShared(keyLastProgressAnalysis, p.now())
	p.board.SetShared(keyCurrentAvgProgress, avg)

	return agent.Result{
		"action":             "progress_analysis",
		"analysis_completed": true,
		"avg_progress":       avg,
	}, nil
}

// Evaluate scores 1.0 for a completed analysis, 0.0 otherwise.
func (p *ProgressAnalyzer) Evaluate(result agent.Result, snap blackboard.Snapshot) float64 {
	if done, ok := result["analysis_completed"].(bool); ok && done {
		return 1.0
	}
	return 0.0
}

// Interval implements agent.Policy.
func (p *ProgressAnalyzer) Interval() time.Duration { return 30 * time.Minute }
