package worker

import (
	"encoding/json"
	"net/http"
)

// HealthHandler serves the worker liveness probe with the job counters.
func HealthHandler(version string, job *RefreshJob) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]interface{}{
			"status":  "healthy",
			"version": version,
		}
		if job != nil {
			body["jobs"] = job.MetricsSnapshot()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body)
	})
}
