package study

import "testing"

func TestAnalyzeProductivity(t *testing.T) {
	tests := []struct {
		name       string
		completed  int
		total      int
		wantScore  float64
		wantStatus string
	}{
		{"three of four", 3, 4, 0.75, "excellent"},
		{"all done", 4, 4, 1.0, "excellent"},
		{"half done", 2, 4, 0.5, "good"},
		{"one of four", 1, 4, 0.25, "low"},
		{"nothing done", 0, 4, 0.0, "low"},
		{"two of three rounds", 2, 3, 0.67, "good"},
		{"zero total treated as one", 0, 0, 0.0, "low"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeProductivity(tt.completed, tt.total)
			if got.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", got.Score, tt.wantScore)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
			if len(got.Recommendations) == 0 {
				t.Error("recommendations empty")
			}
			if got.CompletionPercentage != got.Score*100 {
				t.Errorf("completion = %v, want %v", got.CompletionPercentage, got.Score*100)
			}
		})
	}
}

func TestAnalyzeProductivityRemaining(t *testing.T) {
	got := AnalyzeProductivity(3, 10)
	if got.TasksRemaining != 7 {
		t.Errorf("tasks remaining = %d, want 7", got.TasksRemaining)
	}
}

func TestSuggestFocusStrategy(t *testing.T) {
	tests := []struct {
		status      string
		wantPrimary string
	}{
		{"excellent", "Maintain current routine with short revision sessions"},
		{"good", "Use Pomodoro (25-5) with one long break after 4 sessions"},
		{"low", "Start with shorter sessions (15-20 min) and gradually increase"},
		{"garbage", "Start with shorter sessions (15-20 min) and gradually increase"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := SuggestFocusStrategy(tt.status, 0.5)
			if got.Primary != tt.wantPrimary {
				t.Errorf("primary = %q, want %q", got.Primary, tt.wantPrimary)
			}
			if got.Score != 0.5 || got.Status != tt.status {
				t.Errorf("echo fields wrong: %+v", got)
			}
			if len(got.Techniques) != 3 {
				t.Errorf("techniques = %v", got.Techniques)
			}
		})
	}
}
