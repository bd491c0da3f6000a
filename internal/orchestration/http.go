package orchestration

import (
	"encoding/json"
	"log"
	"net/http"
)

// Routes returns the HTTP handlers for the request surface, keyed by
// pattern, ready to mount on the observability server.
func (o *Orchestrator) Routes() map[string]http.Handler {
	return map[string]http.Handler{
		"/api/plan": postJSON(func(r *http.Request, req *PlanRequest) any {
			return o.PlanStudy(r.Context(), *req)
		}),
		"/api/notes": postJSON(func(r *http.Request, req *NotesRequest) any {
			return o.UploadNotes(r.Context(), *req)
		}),
		"/api/doubt": postJSON(func(r *http.Request, req *DoubtRequest) any {
			return o.AskDoubt(r.Context(), *req)
		}),
		"/api/progress": postJSON(func(r *http.Request, req *ProgressRequest) any {
			return o.AnalyzeProgress(r.Context(), *req)
		}),
		"/api/status": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			writeJSON(w, o.SystemStatus())
		}),
	}
}

// postJSON adapts a typed handler into an http.Handler that decodes a JSON
// body and encodes the envelope back.
func postJSON[T any](handle func(*http.Request, *T) any) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req T
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONStatus(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "invalid request body: " + err.Error(),
			})
			return
		}

		writeJSON(w, handle(r, &req))
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("orchestration: encode response: %v", err)
	}
}
