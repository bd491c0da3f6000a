package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/studyflow-ai/studyflow/agent"
	"github.com/studyflow-ai/studyflow/blackboard"
	"github.com/studyflow-ai/studyflow/internal/study"
)

// TaskScheduler reschedules missed tasks and watches upcoming deadlines. It
// registers under the TaskManagerAgent name so the board's
// deadline_approaching reaction lands on a live agent.
type TaskScheduler struct {
	board *blackboard.Board
	now   func() time.Time
}

// NewTaskScheduler creates the task scheduling policy.
func NewTaskScheduler(board *blackboard.Board) *TaskScheduler {
	return &TaskScheduler{board: board, now: time.Now}
}

// Name implements agent.Policy.
func (t *TaskScheduler) Name() string { return TaskManagerName }

// ShouldAct fires when a deadline or missed-task event appears in the recent
// window, or once a day for routine schedule optimization.
func (t *TaskScheduler) ShouldAct(snap blackboard.Snapshot) bool {
	for _, ev := range snap.RecentEvents {
		if ev.Type == "deadline_approaching" || ev.Type == "task_missed" {
			return true
		}
	}
	return t.now().Sub(snap.SharedTime(keyLastScheduleOptimize)) > 24*time.Hour
}

// Act sweeps the current task list for urgent deadlines and requests an
// emergency reschedule for anything due within a day.
func (t *TaskScheduler) Act(ctx context.Context, snap blackboard.Snapshot) (agent.Result, error) {
	tasks := study.TasksFromAny(snap.Shared[keyCurrentTasks])
	report := study.CheckUpcomingDeadlines(tasks, t.now())

	var actions []string
	for _, alert := range report.Alerts {
		if alert.DaysLeft > 1 {
			continue
		}
		t.board.PostEvent("emergency_reschedule_needed", map[string]any{
			"task":      alert.Task,
			"days_left": alert.DaysLeft,
		}, t.Name())
		actions = append(actions, fmt.Sprintf("Emergency reschedule requested for %s", alert.Task))
	}

	t.board.SetShared(keyLastScheduleOptimize, t.now())

	return agent.Result{
		"action":            "schedule_optimization",
		"actions_taken":     actions,
		"deadlines_checked": len(report.Alerts),
	}, nil
}

// Evaluate rewards proactive deadline management: 0.3 per action taken,
// capped at 1.0.
func (t *TaskScheduler) Evaluate(result agent.Result, snap blackboard.Snapshot) float64 {
	actions, _ := result["actions_taken"].([]string)
	score := float64(len(actions)) * 0.3
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Interval implements agent.Policy.
func (t *TaskScheduler) Interval() time.Duration { return time.Hour }
