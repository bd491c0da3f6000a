// Package orchestration receives human-initiated requests, runs the one-shot
// personas against the text-generation provider, updates the blackboard and
// posts events so the autonomous agents can react on their own schedule.
//
// Every handler returns an envelope with a success flag; internal failures
// are converted into success:false with a human-readable error. Nothing
// raised inside a handler crosses its boundary.
package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/studyflow-ai/studyflow/agents"
	"github.com/studyflow-ai/studyflow/blackboard"
	"github.com/studyflow-ai/studyflow/internal/llm/provider"
	"github.com/studyflow-ai/studyflow/internal/study"
	"github.com/studyflow-ai/studyflow/pkg/observability"
	"github.com/studyflow-ai/studyflow/pkg/vectorstore"
)

// rawExcerptLimit is how much raw model output a fallback payload carries.
const rawExcerptLimit = 500

// Orchestrator coordinates one-shot request handling over the blackboard.
type Orchestrator struct {
	board       *blackboard.Board
	provider    provider.Provider
	retriever   *vectorstore.Retriever
	temperature float64
	maxTokens   int
	now         func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithCompletionDefaults sets the sampling temperature and token cap carried
// on every persona completion request. Zero values leave the provider's own
// defaults in effect.
func WithCompletionDefaults(temperature float64, maxTokens int) Option {
	return func(o *Orchestrator) {
		o.temperature = temperature
		o.maxTokens = maxTokens
	}
}

// New creates an orchestrator over the given board, provider and retriever.
func New(board *blackboard.Board, p provider.Provider, retriever *vectorstore.Retriever, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		board:     board,
		provider:  p,
		retriever: retriever,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Subject is one subject in a study-plan request.
type Subject struct {
	Name       string `json:"name"`
	Difficulty string `json:"difficulty,omitempty"`
	ExamDate   string `json:"exam_date,omitempty"`
}

// PlanRequest asks for a weekly study plan.
type PlanRequest struct {
	Subjects   []Subject `json:"subjects"`
	DailyHours int       `json:"daily_hours"`
}

// PlanResponse is the study-plan envelope.
type PlanResponse struct {
	Success              bool                  `json:"success"`
	StudyPlan            *study.Plan           `json:"study_plan,omitempty"`
	CalendarEvents       *study.CalendarResult `json:"calendar_events,omitempty"`
	FormattedSchedule    *study.ScheduleTable  `json:"formatted_schedule,omitempty"`
	AutonomousMonitoring string                `json:"autonomous_monitoring,omitempty"`
	Message              string                `json:"message,omitempty"`
	Error                string                `json:"error,omitempty"`
}

// PlanStudy creates a study plan, stores it for the autonomous agents to
// monitor, derives tasks and simulated calendar events, and posts
// new_study_plan_created.
func (o *Orchestrator) PlanStudy(ctx context.Context, req PlanRequest) PlanResponse {
	start := o.now()

	raw, err := o.runPersona(ctx, agents.StudyPlannerName, studyPlannerPrompt, req, false)
	if err != nil {
		observability.RecordHandlerRequest("plan_study", "error", time.Since(start))
		return PlanResponse{
			Success:              false,
			Error:                fmt.Sprintf("Study plan creation failed: %v", err),
			AutonomousMonitoring: "error",
		}
	}

	var plan study.Plan
	if uerr := json.Unmarshal([]byte(raw), &plan); uerr != nil {
		plan = study.Plan{
			Error:       "Failed to parse study plan JSON",
			RawResponse: truncate(raw, rawExcerptLimit),
		}
	}

	o.board.SetShared("current_study_plan", plan)
	o.board.PostEvent("new_study_plan_created", map[string]any{
		"subjects":    len(req.Subjects),
		"daily_hours": req.DailyHours,
	}, "human")

	tasks := o.deriveTasks(ctx, plan)
	o.board.SetShared("current_tasks", tasks)

	calendar := study.BuildCalendarEvents(plan, o.now())
	schedule := study.FormatPlanTable(plan)

	observability.RecordHandlerRequest("plan_study", "ok", time.Since(start))
	return PlanResponse{
		Success:              true,
		StudyPlan:            &plan,
		CalendarEvents:       &calendar,
		FormattedSchedule:    &schedule,
		AutonomousMonitoring: "enabled",
		Message:              "Study plan created with calendar integration and autonomous monitoring!",
	}
}

// deriveTasks asks the task-manager persona to break the plan into tasks
// with due dates. When the persona fails or returns unusable JSON, tasks are
// derived directly from the plan so the scheduler always has something to
// sweep.
func (o *Orchestrator) deriveTasks(ctx context.Context, plan study.Plan) []study.Task {
	planJSON, _ := json.Marshal(plan)

	raw, err := o.runPersona(ctx, agents.TaskManagerName, taskManagerPrompt, json.RawMessage(planJSON), false)
	if err == nil {
		var parsed struct {
			Tasks []study.Task `json:"tasks"`
		}
		if uerr := json.Unmarshal([]byte(raw), &parsed); uerr == nil && len(parsed.Tasks) > 0 {
			return parsed.Tasks
		}
	}

	tasks := make([]study.Task, 0, len(plan.DailyStudyPlan))
	for _, pt := range plan.DailyStudyPlan {
		tasks = append(tasks, study.Task{
			Title:            pt.TaskName,
			Description:      pt.Description,
			Priority:         pt.Priority,
			Category:         pt.Category,
			EstimatedMinutes: pt.DurationMinutes,
		})
	}
	return tasks
}

// NotesRequest carries study material to ingest.
type NotesRequest struct {
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// NotesResponse is the note-ingestion envelope.
type NotesResponse struct {
	Success         bool           `json:"success"`
	DocumentID      string         `json:"document_id,omitempty"`
	AgentProcessing map[string]any `json:"agent_processing,omitempty"`
	Message         string         `json:"message,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// UploadNotes stores the content in the retrieval store, has the knowledge
// persona summarize it, and posts new_knowledge_added.
func (o *Orchestrator) UploadNotes(ctx context.Context, req NotesRequest) NotesResponse {
	start := o.now()

	docID, err := o.retriever.Add(ctx, req.Content, map[string]any{
		"subject":      orDefault(req.Subject, "general"),
		"content_type": "note",
		"title":        req.Title,
	})
	if err != nil {
		observability.RecordHandlerRequest("upload_notes", "error", time.Since(start))
		return NotesResponse{
			Success: false,
			Error:   fmt.Sprintf("Notes processing failed: %v", err),
			Message: "Failed to process notes",
		}
	}

	processing := map[string]any{}
	raw, perr := o.runPersona(ctx, "KnowledgeAgent", knowledgePrompt, req, false)
	if perr != nil {
		processing["error"] = perr.Error()
	} else if uerr := json.Unmarshal([]byte(raw), &processing); uerr != nil {
		processing = map[string]any{"raw_response": truncate(raw, rawExcerptLimit)}
	}

	o.board.PostEvent("new_knowledge_added", map[string]any{
		"subject": orDefault(req.Subject, "general"),
		"length":  len(req.Content),
	}, "human")

	observability.RecordHandlerRequest("upload_notes", "ok", time.Since(start))
	return NotesResponse{
		Success:         true,
		DocumentID:      docID,
		AgentProcessing: processing,
		Message:         "Notes processed and added to knowledge base successfully!",
	}
}

// DoubtRequest is a tutoring question.
type DoubtRequest struct {
	Question string `json:"question"`
}

// DoubtResponse is the tutoring envelope.
type DoubtResponse struct {
	Success bool                 `json:"success"`
	Answer  string               `json:"answer,omitempty"`
	Format  string               `json:"format,omitempty"`
	Agent   string               `json:"agent,omitempty"`
	Sources []vectorstore.Source `json:"sources,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// AskDoubt retrieves context for the question and has the tutor persona
// answer in natural language.
func (o *Orchestrator) AskDoubt(ctx context.Context, req DoubtRequest) DoubtResponse {
	start := o.now()

	retrieval, err := o.retriever.Retrieve(ctx, req.Question)
	if err != nil {
		// Retrieval failure degrades to an uncontextualized answer.
		log.Printf("orchestrator: retrieval failed: %v", err)
		retrieval = vectorstore.RetrievalResult{Context: "No additional study material available."}
	}

	payload := map[string]any{
		"question": req.Question,
		"context":  retrieval.Context,
	}
	raw, err := o.runPersona(ctx, "TutorAgent", tutorPrompt, payload, true)
	if err != nil {
		observability.RecordHandlerRequest("ask_doubt", "error", time.Since(start))
		return DoubtResponse{
			Success: false,
			Agent:   "TutorAgent",
			Error:   fmt.Sprintf("Tutoring failed: %v", err),
		}
	}

	observability.RecordHandlerRequest("ask_doubt", "ok", time.Since(start))
	return DoubtResponse{
		Success: true,
		Answer:  unwrapNaturalAnswer(raw),
		Format:  "natural_language",
		Agent:   "TutorAgent",
		Sources: retrieval.Sources,
	}
}

// ProgressRequest is a manual progress check.
type ProgressRequest struct {
	CompletedTasks int          `json:"completed_tasks"`
	TotalTasks     int          `json:"total_tasks"`
	Tasks          []study.Task `json:"tasks,omitempty"`
}

// ProgressResponse is the progress-analysis envelope.
type ProgressResponse struct {
	Success              bool                     `json:"success"`
	CurrentAnalysis      study.ProductivityReport `json:"current_analysis"`
	FocusStrategy        study.FocusStrategy      `json:"focus_strategy"`
	AgentInsights        map[string]any           `json:"agent_insights,omitempty"`
	AutonomousInsights   any                      `json:"autonomous_insights,omitempty"`
	SystemStatus         string                   `json:"system_status,omitempty"`
	Recommendations      []string                 `json:"recommendations,omitempty"`
	CompletionPercentage float64                  `json:"completion_percentage"`
	Status               string                   `json:"status,omitempty"`
	Error                string                   `json:"error,omitempty"`
}

// AnalyzeProgress runs a fresh productivity analysis, updates the overall
// study progress on the board (which may itself raise low_progress_detected)
// and folds in the autonomous analyzer's latest result.
func (o *Orchestrator) AnalyzeProgress(ctx context.Context, req ProgressRequest) ProgressResponse {
	start := o.now()

	report := study.AnalyzeProductivity(req.CompletedTasks, req.TotalTasks)

	if req.TotalTasks > 0 {
		progress := float64(req.CompletedTasks) / float64(req.TotalTasks)
		o.board.UpdateStudyProgress("overall", progress)

		if progress < 0.3 {
			o.board.PostEvent("low_progress_detected", map[string]any{
				"progress": progress,
				"analysis": report,
			}, "manual_progress_check")
		}
	}

	insights := map[string]any{}
	status := "ok"
	raw, perr := o.runPersona(ctx, agents.ProgressAnalyzerName, progressAnalyzerPrompt, req, false)
	if perr != nil {
		insights["error"] = perr.Error()
		status = "error"
	} else if uerr := json.Unmarshal([]byte(raw), &insights); uerr != nil {
		insights = map[string]any{"raw_response": truncate(raw, rawExcerptLimit)}
	}

	autonomous, _ := o.board.Shared(agents.ProgressAnalyzerName + "_last_result")

	observability.RecordHandlerRequest("analyze_progress", status, time.Since(start))
	return ProgressResponse{
		Success:              true,
		CurrentAnalysis:      report,
		FocusStrategy:        study.SuggestFocusStrategy(report.Status, report.Score),
		AgentInsights:        insights,
		AutonomousInsights:   autonomous,
		SystemStatus:         "autonomous_monitoring_active",
		Recommendations:      report.Recommendations,
		CompletionPercentage: report.CompletionPercentage,
		Status:               report.Status,
	}
}

// StatusResponse is the read-only system aggregate exposed to external
// callers.
type StatusResponse struct {
	Success           bool                              `json:"success"`
	Agents            map[string]blackboard.AgentRecord `json:"agents"`
	RecentEvents      []blackboard.Event                `json:"recent_events"`
	SharedContextKeys []string                          `json:"shared_context_keys"`
}

// SystemStatus aggregates every agent record, the last five events and the
// shared context key set. Repeated calls with no intervening writes return
// identical snapshots.
func (o *Orchestrator) SystemStatus() StatusResponse {
	keys := o.board.SharedKeys()
	sort.Strings(keys)

	return StatusResponse{
		Success:           true,
		Agents:            o.board.Agents(),
		RecentEvents:      o.board.RecentEvents(5),
		SharedContextKeys: keys,
	}
}

// runPersona performs one synchronous persona call: mark the persona
// working, build the prompt, call the provider, and for JSON personas strip
// fences and validate. The returned error is the only failure channel;
// handlers convert it into their envelope.
func (o *Orchestrator) runPersona(ctx context.Context, name, systemPrompt string, payload any, naturalLanguage bool) (string, error) {
	o.board.UpdateAgentStatus(name, blackboard.StatusWorking, "on_demand_request")
	defer o.board.UpdateAgentStatus(name, blackboard.StatusIdle, "")

	input, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal persona input: %w", err)
	}

	instruction := "Please respond in JSON format."
	if naturalLanguage {
		instruction = "Provide a clear, natural language response."
	}

	resp, err := o.provider.CreateCompletion(ctx, provider.CompletionRequest{
		Messages: []provider.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("User Input: %s\n\n%s", input, instruction)},
		},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}

	text := strings.TrimSpace(resp.Content)
	if naturalLanguage {
		return text, nil
	}

	text = stripCodeFences(text)
	if !json.Valid([]byte(text)) {
		fallback, _ := json.Marshal(map[string]string{
			"error":        "Invalid JSON response from agent",
			"agent":        name,
			"raw_response": truncate(text, rawExcerptLimit),
		})
		return string(fallback), nil
	}
	return text, nil
}

// stripCodeFences removes markdown code fences the model may wrap JSON in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// unwrapNaturalAnswer extracts the answer field when a JSON object slipped
// through a natural-language persona.
func unwrapNaturalAnswer(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return trimmed
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return trimmed
	}
	for _, key := range []string{"answer", "response", "explanation"} {
		if v, ok := parsed[key].(string); ok && v != "" {
			return v
		}
	}
	return trimmed
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
