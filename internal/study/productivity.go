// Package study holds the pure domain helpers the agents and orchestrator
// consume: productivity analysis, deadline checking, focus strategies and
// study-plan shaping. Nothing in this package touches the blackboard or any
// external service.
package study

import "math"

// ProductivityReport summarizes completed-versus-total task performance.
type ProductivityReport struct {
	Score                float64  `json:"productivity_score"`
	Status               string   `json:"status"`
	Insight              string   `json:"insight"`
	Recommendations      []string `json:"recommendations"`
	CompletionPercentage float64  `json:"completion_percentage"`
	TasksRemaining       int      `json:"tasks_remaining"`
}

// AnalyzeProductivity scores completed/total and classifies the result:
// >=0.75 excellent, >=0.5 good, otherwise low. A non-positive total is
// treated as one task so the ratio stays defined.
func AnalyzeProductivity(completed, total int) ProductivityReport {
	if total <= 0 {
		total = 1
	}
	score := math.Round(float64(completed)/float64(total)*100) / 100

	status := "low"
	switch {
	case score >= 0.75:
		status = "excellent"
	case score >= 0.5:
		status = "good"
	}

	insight := "Needs better focus and consistency"
	if status == "excellent" {
		insight = "Student is highly consistent"
	}

	return ProductivityReport{
		Score:                score,
		Status:               status,
		Insight:              insight,
		Recommendations:      productivityRecommendations(status),
		CompletionPercentage: score * 100,
		TasksRemaining:       total - completed,
	}
}

func productivityRecommendations(status string) []string {
	switch status {
	case "excellent":
		return []string{
			"Maintain your excellent study routine",
			"Consider helping peers or exploring advanced topics",
			"Set new challenging goals to continue growth",
		}
	case "good":
		return []string{
			"Use Pomodoro technique (25-5) for better focus",
			"Review and optimize your study schedule",
			"Take regular breaks to maintain productivity",
		}
	default:
		return []string{
			"Break large tasks into smaller, manageable chunks",
			"Use shorter study sessions (15-20 minutes) initially",
			"Eliminate distractions during study time",
			"Consider changing study environment or time",
		}
	}
}
