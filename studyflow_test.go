package studyflow

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/studyflow-ai/studyflow/pkg/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Provider = "mock"
	cfg.HTTPPort = 18080
	return cfg
}

func TestNewAssemblesApp(t *testing.T) {
	app, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if app.Board() == nil || app.Orchestrator() == nil {
		t.Fatal("app missing core components")
	}
	if len(app.runners) != 3 {
		t.Errorf("runners = %d, want all three agents", len(app.runners))
	}
}

func TestNewRespectsAgentToggles(t *testing.T) {
	cfg := testConfig()
	cfg.Agents.TaskScheduler = false
	cfg.Agents.BehaviorCoach = false

	app, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(app.runners) != 1 {
		t.Errorf("runners = %d, want 1", len(app.runners))
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.HTTPPort = -1

	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewWithRedisPersistence(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	app, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if app.store == nil {
		t.Fatal("context store not attached")
	}
	app.store.Close()
}

func TestSweepDeadlinesPostsEvents(t *testing.T) {
	app, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	board := app.Board()
	board.RegisterAgent("TaskManagerAgent")

	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	board.SetShared("current_tasks", []map[string]any{
		{"title": "Finish lab report", "due_date": tomorrow},
	})

	app.sweepDeadlines()

	var found bool
	for _, ev := range board.RecentEvents(10) {
		if ev.Type == "deadline_approaching" && ev.Source == "deadline_sweep" {
			found = true
			if ev.Data["task"] != "Finish lab report" {
				t.Errorf("event task = %v", ev.Data["task"])
			}
		}
	}
	if !found {
		t.Fatal("deadline_approaching not posted")
	}

	// The reaction table routes the event to the task manager.
	rec, _ := board.Agent("TaskManagerAgent")
	if rec.CurrentGoal != "reschedule_tasks" {
		t.Errorf("task manager goal = %q", rec.CurrentGoal)
	}
}

func TestSweepDeadlinesNoTasks(t *testing.T) {
	app, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	app.sweepDeadlines()

	if n := app.Board().EventCount(); n != 0 {
		t.Errorf("event count = %d, want 0", n)
	}
}
