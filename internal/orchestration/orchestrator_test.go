package orchestration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow-ai/studyflow/blackboard"
	"github.com/studyflow-ai/studyflow/internal/llm/provider"
	"github.com/studyflow-ai/studyflow/internal/study"
	"github.com/studyflow-ai/studyflow/pkg/observability"
	"github.com/studyflow-ai/studyflow/pkg/vectorstore"
)

func setupOrchestrator(t *testing.T) (*Orchestrator, *blackboard.Board, *provider.MockProvider) {
	t.Helper()

	board := blackboard.New()
	mock := provider.NewMockProvider("mock")

	store, err := vectorstore.NewMemoryStore(vectorstore.EmbeddingDims, 0)
	require.NoError(t, err)

	return New(board, mock, vectorstore.NewRetriever(store)), board, mock
}

const plannerJSON = `{
	"daily_study_plan": [
		{"task_id": 1, "task_name": "Calculus review", "day_of_week": "Monday",
		 "start_time": "09:00 AM", "end_time": "10:00 AM",
		 "estimated_duration_minutes": 60, "priority": "High", "category": "Math"}
	],
	"general_reminders": [{"name": "Sleep well", "recurring": "daily"}]
}`

func TestPlanStudySuccess(t *testing.T) {
	orch, board, mock := setupOrchestrator(t)
	mock.EnqueueResponse(plannerJSON)
	mock.EnqueueResponse(`{"tasks": [{"title": "Calculus review", "due_date": "2026-09-07"}]}`)

	resp := orch.PlanStudy(context.Background(), PlanRequest{
		Subjects:   []Subject{{Name: "Math", Difficulty: "hard"}},
		DailyHours: 3,
	})

	require.True(t, resp.Success, "error: %s", resp.Error)
	require.NotNil(t, resp.StudyPlan)
	assert.Len(t, resp.StudyPlan.DailyStudyPlan, 1)
	assert.Equal(t, "enabled", resp.AutonomousMonitoring)

	require.NotNil(t, resp.FormattedSchedule)
	assert.Equal(t, "success", resp.FormattedSchedule.Status)
	require.NotNil(t, resp.CalendarEvents)
	assert.Equal(t, 1, resp.CalendarEvents.EventsCreated)

	// The plan and derived tasks land in the shared context for the agents.
	_, ok := board.Shared("current_study_plan")
	assert.True(t, ok, "current_study_plan not shared")
	_, ok = board.Shared("current_tasks")
	assert.True(t, ok, "current_tasks not shared")

	events := board.RecentEvents(5)
	require.Len(t, events, 1)
	assert.Equal(t, "new_study_plan_created", events[0].Type)
	assert.Equal(t, "human", events[0].Source)
}

func TestPlanStudyStripsCodeFences(t *testing.T) {
	orch, _, mock := setupOrchestrator(t)
	mock.EnqueueResponse("```json\n" + plannerJSON + "\n```")
	mock.EnqueueResponse(`{"tasks": []}`)

	resp := orch.PlanStudy(context.Background(), PlanRequest{Subjects: []Subject{{Name: "Math"}}})

	require.True(t, resp.Success)
	assert.Empty(t, resp.StudyPlan.Error)
	assert.Len(t, resp.StudyPlan.DailyStudyPlan, 1)
}

func TestPlanStudyMalformedPlanFallsBack(t *testing.T) {
	orch, _, mock := setupOrchestrator(t)
	mock.EnqueueResponse("Sure! Here is your study plan: wake up early and...")
	mock.EnqueueResponse(`{"tasks": []}`)

	resp := orch.PlanStudy(context.Background(), PlanRequest{Subjects: []Subject{{Name: "Math"}}})

	require.True(t, resp.Success)
	require.NotNil(t, resp.StudyPlan)
	assert.NotEmpty(t, resp.StudyPlan.Error)
	assert.NotEmpty(t, resp.StudyPlan.RawResponse)
}

func TestPlanStudyProviderFailure(t *testing.T) {
	orch, board, mock := setupOrchestrator(t)
	mock.EnqueueError(errors.New("rate limited"))

	resp := orch.PlanStudy(context.Background(), PlanRequest{Subjects: []Subject{{Name: "Math"}}})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "rate limited")
	assert.Equal(t, "error", resp.AutonomousMonitoring)
	assert.Equal(t, 0, board.EventCount(), "failed planning must not post events")
}

func TestDeriveTasksFallsBackToPlan(t *testing.T) {
	orch, board, mock := setupOrchestrator(t)
	mock.EnqueueResponse(plannerJSON)
	mock.EnqueueResponse("not json at all")

	resp := orch.PlanStudy(context.Background(), PlanRequest{Subjects: []Subject{{Name: "Math"}}})
	require.True(t, resp.Success)

	v, ok := board.Shared("current_tasks")
	require.True(t, ok)
	tasks, ok := v.([]study.Task)
	require.True(t, ok, "current_tasks has unexpected type %T", v)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Calculus review", tasks[0].Title)
	assert.Equal(t, 60, tasks[0].EstimatedMinutes)
}

func TestUploadNotesSuccess(t *testing.T) {
	orch, board, mock := setupOrchestrator(t)
	mock.EnqueueResponse(`{"key_concepts": ["cells"], "summary": "biology basics"}`)

	resp := orch.UploadNotes(context.Background(), NotesRequest{
		Content: "The cell is the basic unit of life.",
		Subject: "biology",
	})

	require.True(t, resp.Success, "error: %s", resp.Error)
	assert.NotEmpty(t, resp.DocumentID)
	assert.Equal(t, "biology basics", resp.AgentProcessing["summary"])

	events := board.RecentEvents(1)
	require.Len(t, events, 1)
	assert.Equal(t, "new_knowledge_added", events[0].Type)
	assert.Equal(t, "biology", events[0].Data["subject"])
}

func TestUploadNotesEmptyContent(t *testing.T) {
	orch, _, _ := setupOrchestrator(t)

	resp := orch.UploadNotes(context.Background(), NotesRequest{Content: "   "})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "no content provided")
}

func TestUploadNotesMalformedAgentJSON(t *testing.T) {
	orch, _, mock := setupOrchestrator(t)
	mock.EnqueueResponse("just plain text, no JSON")

	resp := orch.UploadNotes(context.Background(), NotesRequest{Content: "some notes"})

	// Ingestion succeeds even when the summarizer misbehaves.
	require.True(t, resp.Success)
	assert.Contains(t, resp.AgentProcessing, "raw_response")
}

func TestAskDoubtNaturalLanguage(t *testing.T) {
	orch, _, mock := setupOrchestrator(t)
	mock.EnqueueResponse("A derivative measures how a function changes as its input changes.")

	resp := orch.AskDoubt(context.Background(), DoubtRequest{Question: "What is a derivative?"})

	require.True(t, resp.Success, "error: %s", resp.Error)
	assert.Equal(t, "natural_language", resp.Format)
	assert.Equal(t, "TutorAgent", resp.Agent)
	assert.Contains(t, resp.Answer, "derivative")
}

func TestAskDoubtUnwrapsJSONAnswer(t *testing.T) {
	orch, _, mock := setupOrchestrator(t)
	mock.EnqueueResponse(`{"answer": "Photosynthesis converts light into chemical energy."}`)

	resp := orch.AskDoubt(context.Background(), DoubtRequest{Question: "Explain photosynthesis"})

	require.True(t, resp.Success)
	assert.Equal(t, "Photosynthesis converts light into chemical energy.", resp.Answer)
}

func TestAskDoubtProviderFailure(t *testing.T) {
	orch, _, mock := setupOrchestrator(t)
	mock.EnqueueError(errors.New("model overloaded"))

	resp := orch.AskDoubt(context.Background(), DoubtRequest{Question: "anything"})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "model overloaded")
}

func TestAnalyzeProgressHealthy(t *testing.T) {
	orch, board, mock := setupOrchestrator(t)
	mock.EnqueueResponse(`{"insight": "keep going"}`)

	resp := orch.AnalyzeProgress(context.Background(), ProgressRequest{CompletedTasks: 3, TotalTasks: 4})

	require.True(t, resp.Success)
	assert.Equal(t, "excellent", resp.Status)
	assert.Equal(t, 75.0, resp.CompletionPercentage)
	assert.NotEmpty(t, resp.Recommendations)
	assert.Equal(t, 0, board.EventCount(), "healthy progress must not raise alarms")

	assert.Equal(t, "excellent", resp.FocusStrategy.Status)
	assert.Equal(t, 0.75, resp.FocusStrategy.Score)
	assert.Contains(t, resp.FocusStrategy.Primary, "Maintain current routine")
}

func TestAnalyzeProgressLowRaisesAlarm(t *testing.T) {
	orch, board, mock := setupOrchestrator(t)
	board.AddGoal(blackboard.StudyGoal{Subject: "overall", CurrentProgress: 0.5})
	mock.EnqueueResponse(`{"insight": "struggling"}`)

	resp := orch.AnalyzeProgress(context.Background(), ProgressRequest{CompletedTasks: 1, TotalTasks: 4})

	require.True(t, resp.Success)
	assert.Equal(t, "low", resp.Status)
	assert.Equal(t, "low", resp.FocusStrategy.Status)
	assert.Contains(t, resp.FocusStrategy.Primary, "shorter sessions")

	// Both the board's own threshold and the manual check fire.
	var fromSystem, fromManual bool
	for _, ev := range board.RecentEvents(10) {
		if ev.Type != "low_progress_detected" {
			continue
		}
		switch ev.Source {
		case "system":
			fromSystem = true
		case "manual_progress_check":
			fromManual = true
		}
	}
	assert.True(t, fromSystem, "board threshold event missing")
	assert.True(t, fromManual, "manual check event missing")

	goals := board.Goals()
	assert.Equal(t, 0.25, goals[0].CurrentProgress)
}

// handlerRequestCount reads the counter for one (handler, status) pair from
// the default registry, or 0 when the series does not exist yet.
func handlerRequestCount(t *testing.T, handler, status string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "studyflow_handler_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["handler"] == handler && labels["status"] == status {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestAnalyzeProgressPersonaFailureRecordsError(t *testing.T) {
	observability.InitMetrics()
	orch, _, mock := setupOrchestrator(t)
	mock.EnqueueError(errors.New("model overloaded"))

	before := handlerRequestCount(t, "analyze_progress", "error")
	resp := orch.AnalyzeProgress(context.Background(), ProgressRequest{CompletedTasks: 3, TotalTasks: 4})

	require.True(t, resp.Success, "the local analysis still succeeds")
	assert.Contains(t, resp.AgentInsights, "error")
	assert.Equal(t, before+1, handlerRequestCount(t, "analyze_progress", "error"))
}

func TestCompletionDefaultsCarriedOnRequests(t *testing.T) {
	board := blackboard.New()
	mock := provider.NewMockProvider("mock")
	store, err := vectorstore.NewMemoryStore(vectorstore.EmbeddingDims, 0)
	require.NoError(t, err)

	orch := New(board, mock, vectorstore.NewRetriever(store),
		WithCompletionDefaults(0.4, 900))
	mock.EnqueueResponse(`{"insight": "ok"}`)

	orch.AnalyzeProgress(context.Background(), ProgressRequest{CompletedTasks: 1, TotalTasks: 1})

	require.Len(t, mock.Calls, 1)
	assert.Equal(t, 0.4, mock.Calls[0].Temperature)
	assert.Equal(t, 900, mock.Calls[0].MaxTokens)
}

func TestSystemStatusIdempotent(t *testing.T) {
	orch, board, _ := setupOrchestrator(t)
	board.RegisterAgent("ProgressAnalyzerAgent")
	board.SetShared("zeta", 1)
	board.SetShared("alpha", 2)
	board.PostEvent("something_happened", nil, "test")

	first := orch.SystemStatus()
	second := orch.SystemStatus()

	assert.Equal(t, first, second, "repeated reads with no writes must match")
	assert.True(t, first.Success)
	assert.Equal(t, []string{"alpha", "zeta"}, first.SharedContextKeys)
	require.Len(t, first.RecentEvents, 1)
	require.Contains(t, first.Agents, "ProgressAnalyzerAgent")
}

func TestRunPersonaInvalidJSONWrapped(t *testing.T) {
	orch, _, mock := setupOrchestrator(t)
	long := strings.Repeat("x", 600)
	mock.EnqueueResponse(long)

	raw, err := orch.runPersona(context.Background(), "TestAgent", "prompt", map[string]any{}, false)
	require.NoError(t, err)

	assert.Contains(t, raw, `"error"`)
	assert.Contains(t, raw, "Invalid JSON response from agent")
	assert.Contains(t, raw, `"agent":"TestAgent"`)
	// The raw excerpt is truncated with a trailing ellipsis.
	assert.Contains(t, raw, "...")
	assert.NotContains(t, raw, strings.Repeat("x", 501))
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"  plain text  ", "plain text"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFences(tt.in))
	}
}

func TestUnwrapNaturalAnswer(t *testing.T) {
	assert.Equal(t, "plain answer", unwrapNaturalAnswer("plain answer"))
	assert.Equal(t, "inner", unwrapNaturalAnswer(`{"answer": "inner"}`))
	assert.Equal(t, "inner", unwrapNaturalAnswer(`{"response": "inner"}`))
	assert.Equal(t, "inner", unwrapNaturalAnswer(`{"explanation": "inner"}`))
	assert.Equal(t, `{"other": "field"}`, unwrapNaturalAnswer(`{"other": "field"}`))
	assert.Equal(t, "{not json}", unwrapNaturalAnswer("{not json}"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefgh", 5))
}
