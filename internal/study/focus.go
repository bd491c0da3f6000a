package study

// FocusStrategy bundles a primary focus technique with supporting tactics
// and schedule advice for one productivity band.
type FocusStrategy struct {
	Primary        string   `json:"recommended_strategy"`
	Techniques     []string `json:"techniques"`
	ScheduleAdvice string   `json:"schedule_advice"`
	Score          float64  `json:"productivity_score"`
	Status         string   `json:"status"`
}

// SuggestFocusStrategy selects a strategy bundle by productivity status.
// Unrecognized statuses get the low-productivity bundle.
func SuggestFocusStrategy(status string, score float64) FocusStrategy {
	var s FocusStrategy
	switch status {
	case "excellent":
		s = FocusStrategy{
			Primary:        "Maintain current routine with short revision sessions",
			Techniques:     []string{"Active recall", "Spaced repetition", "Teaching others"},
			ScheduleAdvice: "Continue current schedule with optional advanced topics",
		}
	case "good":
		s = FocusStrategy{
			Primary:        "Use Pomodoro (25-5) with one long break after 4 sessions",
			Techniques:     []string{"Time blocking", "Priority matrix", "Regular reviews"},
			ScheduleAdvice: "Optimize current schedule with better time management",
		}
	default:
		s = FocusStrategy{
			Primary:        "Start with shorter sessions (15-20 min) and gradually increase",
			Techniques:     []string{"Eliminate distractions", "Change environment", "Reward system"},
			ScheduleAdvice: "Restructure schedule with more breaks and easier tasks first",
		}
	}
	s.Score = score
	s.Status = status
	return s
}
