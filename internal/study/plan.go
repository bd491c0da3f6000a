package study

import (
	"fmt"
	"time"
)

// PlanTask is one scheduled slot inside a weekly study plan.
type PlanTask struct {
	TaskID          int    `json:"task_id"`
	TaskName        string `json:"task_name"`
	Description     string `json:"description"`
	DayOfWeek       string `json:"day_of_week"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"estimated_duration_minutes"`
	Priority        string `json:"priority"`
	Category        string `json:"category"`
	Subject         string `json:"subject"`
	DifficultyLevel string `json:"difficulty_level"`
}

// Reminder is a recurring study-strategy reminder attached to a plan.
type Reminder struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	Recurring   string `json:"recurring"`
}

// Plan is the structured weekly study plan produced by the planner persona.
// When parsing the generated text fails, Error and RawResponse carry the
// fallback payload instead of the schedule.
type Plan struct {
	DailyStudyPlan   []PlanTask     `json:"daily_study_plan"`
	GeneralReminders []Reminder     `json:"general_reminders"`
	WeeklySummary    map[string]any `json:"weekly_summary,omitempty"`
	Error            string         `json:"error,omitempty"`
	RawResponse      string         `json:"raw_response,omitempty"`
}

// TableRow is one formatted schedule entry.
type TableRow struct {
	Time        string `json:"time"`
	Task        string `json:"task"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Duration    string `json:"duration"`
	Category    string `json:"category"`
}

// ScheduleTable is a per-day view of a plan for display.
type ScheduleTable struct {
	Status      string                `json:"status"`
	Schedule    map[string][]TableRow `json:"schedule_table,omitempty"`
	TotalTasks  int                   `json:"total_tasks"`
	DaysCovered int                   `json:"days_covered"`
	Reminders   []Reminder            `json:"reminders,omitempty"`
	Message     string                `json:"message,omitempty"`
}

// FormatPlanTable groups a plan's tasks by day with formatted time slots and
// durations.
func FormatPlanTable(plan Plan) ScheduleTable {
	if len(plan.DailyStudyPlan) == 0 {
		return ScheduleTable{Status: "error", Message: "no tasks found in study plan"}
	}

	schedule := make(map[string][]TableRow)
	for _, task := range plan.DailyStudyPlan {
		day := task.DayOfWeek
		if day == "" {
			day = "Unscheduled"
		}

		slot := "Not scheduled"
		if task.StartTime != "" && task.EndTime != "" {
			slot = task.StartTime + " - " + task.EndTime
		}

		name := task.TaskName
		if name == "" {
			name = "Unnamed Task"
		}
		priority := task.Priority
		if priority == "" {
			priority = "Medium"
		}
		category := task.Category
		if category == "" {
			category = "Study"
		}

		schedule[day] = append(schedule[day], TableRow{
			Time:        slot,
			Task:        name,
			Description: task.Description,
			Priority:    priority,
			Duration:    formatDuration(task.DurationMinutes),
			Category:    category,
		})
	}

	return ScheduleTable{
		Status:      "success",
		Schedule:    schedule,
		TotalTasks:  len(plan.DailyStudyPlan),
		DaysCovered: len(schedule),
		Reminders:   plan.GeneralReminders,
	}
}

func formatDuration(minutes int) string {
	if minutes <= 0 {
		return "Not specified"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

// CalendarEvent is one simulated calendar entry derived from a plan task.
// Real calendar integration stays outside this system's boundary; the event
// shape matches what a calendar sync would consume.
type CalendarEvent struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration"`
	Priority        string `json:"priority"`
	Category        string `json:"category"`
	Day             string `json:"day"`
}

// CalendarResult reports the outcome of building events from a plan.
type CalendarResult struct {
	Status        string          `json:"status"`
	Message       string          `json:"message"`
	EventsCreated int             `json:"events_created"`
	Events        []CalendarEvent `json:"events,omitempty"`
}

// calendarPreviewLimit caps how many events a result carries for display.
const calendarPreviewLimit = 5

// BuildCalendarEvents converts a plan's tasks into calendar events anchored
// to the next occurrence of each task's weekday.
func BuildCalendarEvents(plan Plan, now time.Time) CalendarResult {
	if len(plan.DailyStudyPlan) == 0 {
		return CalendarResult{Status: "error", Message: "no tasks found in study plan"}
	}

	events := make([]CalendarEvent, 0, len(plan.DailyStudyPlan))
	for i, task := range plan.DailyStudyPlan {
		id := task.TaskID
		if id == 0 {
			id = i + 1
		}
		title := task.TaskName
		if title == "" {
			title = "Study Session"
		}
		duration := task.DurationMinutes
		if duration == 0 {
			duration = 60
		}
		priority := task.Priority
		if priority == "" {
			priority = "Medium"
		}
		category := task.Category
		if category == "" {
			category = "Study"
		}
		day := task.DayOfWeek
		if day == "" {
			day = "Unscheduled"
		}

		events = append(events, CalendarEvent{
			ID:              id,
			Title:           title,
			Description:     task.Description,
			StartTime:       eventTime(task.StartTime, task.DayOfWeek, now),
			EndTime:         eventTime(task.EndTime, task.DayOfWeek, now),
			DurationMinutes: duration,
			Priority:        priority,
			Category:        category,
			Day:             day,
		})
	}

	preview := events
	if len(preview) > calendarPreviewLimit {
		preview = preview[:calendarPreviewLimit]
	}

	return CalendarResult{
		Status:        "success",
		Message:       fmt.Sprintf("Created %d calendar events", len(events)),
		EventsCreated: len(events),
		Events:        preview,
	}
}

var weekdays = map[string]time.Weekday{
	"Sunday": time.Sunday, "Monday": time.Monday, "Tuesday": time.Tuesday,
	"Wednesday": time.Wednesday, "Thursday": time.Thursday,
	"Friday": time.Friday, "Saturday": time.Saturday,
}

var clockLayouts = []string{"03:04 PM", "3:04 PM", "15:04"}

// eventTime anchors a "09:00 AM" + "Monday" pair to the next occurrence of
// that weekday. Unparseable inputs fall back to now.
func eventTime(clock, day string, now time.Time) string {
	target, ok := weekdays[day]
	if !ok {
		return now.Format(time.RFC3339)
	}

	daysAhead := (int(target) - int(now.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	date := now.AddDate(0, 0, daysAhead)

	t := time.Date(date.Year(), date.Month(), date.Day(), 9, 0, 0, 0, now.Location())
	for _, layout := range clockLayouts {
		if parsed, err := time.Parse(layout, clock); err == nil {
			t = time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
			break
		}
	}
	return t.Format(time.RFC3339)
}
