package study

import (
	"encoding/json"
	"fmt"
	"time"
)

// Task is one schedulable unit of work with an optional due date.
type Task struct {
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	DueDate          string `json:"due_date,omitempty"`
	Priority         string `json:"priority,omitempty"`
	Category         string `json:"category,omitempty"`
	EstimatedMinutes int    `json:"estimated_duration_minutes,omitempty"`
	Completed        bool   `json:"completed,omitempty"`
}

// DeadlineAlert flags one task due within the alert window.
type DeadlineAlert struct {
	Task     string `json:"task"`
	DaysLeft int    `json:"days_left"`
	DueDate  string `json:"due_date"`
	Urgency  string `json:"urgency"`
}

// DeadlineReport is the result of a deadline sweep.
type DeadlineReport struct {
	Alerts  []DeadlineAlert `json:"alerts"`
	Count   int             `json:"count"`
	Summary string          `json:"summary"`
}

// dueDateLayouts are the date formats accepted for task due dates, tried in
// order. Dates that match none of them are skipped, not errors.
var dueDateLayouts = []string{"2006-01-02", "01/02/2006", "02-01-2006"}

// CheckUpcomingDeadlines scans tasks for due dates within three days of now
// and classifies urgency: critical (<=1 day), urgent (<=2), upcoming (<=3).
// Tasks without a parseable due date are ignored.
func CheckUpcomingDeadlines(tasks []Task, now time.Time) DeadlineReport {
	today := now.Truncate(24 * time.Hour)
	var alerts []DeadlineAlert

	for _, task := range tasks {
		if task.DueDate == "" {
			continue
		}
		due, ok := parseDueDate(task.DueDate)
		if !ok {
			continue
		}

		daysLeft := int(due.Sub(today).Hours() / 24)
		if daysLeft > 3 {
			continue
		}

		urgency := "upcoming"
		switch {
		case daysLeft <= 1:
			urgency = "critical"
		case daysLeft <= 2:
			urgency = "urgent"
		}

		title := task.Title
		if title == "" {
			title = "Unnamed task"
		}
		alerts = append(alerts, DeadlineAlert{
			Task:     title,
			DaysLeft: daysLeft,
			DueDate:  due.Format("2006-01-02"),
			Urgency:  urgency,
		})
	}

	return DeadlineReport{
		Alerts:  alerts,
		Count:   len(alerts),
		Summary: fmt.Sprintf("Found %d upcoming deadlines", len(alerts)),
	}
}

func parseDueDate(s string) (time.Time, bool) {
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TasksFromAny normalizes a loosely-typed task list (as stored in the shared
// context by one-shot handlers) into []Task via a JSON round-trip. Anything
// that does not look like a task list yields an empty slice.
func TasksFromAny(v any) []Task {
	switch tasks := v.(type) {
	case []Task:
		return tasks
	case nil:
		return nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var tasks []Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil
	}
	return tasks
}
