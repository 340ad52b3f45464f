package http

import (
	"context"
	"net/http"
)

// ReaperRunner is the minimal interface needed to trigger one reaper sweep.
type ReaperRunner interface {
	RunOnce(ctx context.Context) (int, error)
}

// HandleAdminReaperRunOnce returns an HTTP handler for
// GET /admin/reaper/run-once, synchronously triggering one sweep.
func HandleAdminReaperRunOnce(svc ReaperRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		reaped, err := svc.RunOnce(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, reaperRunResponse{Reaped: reaped})
	}
}

type reaperRunResponse struct {
	Reaped int `json:"reaped"`
}
