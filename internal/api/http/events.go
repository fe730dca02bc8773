package http

import (
	"context"
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/examhub/internal/sync"
)

type EventReader interface {
	Since(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

// GET /events?after=<offset>&limit=<n> pages through the lifecycle event log.
func ListEventsHandler(events EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		if limit > 1000 {
			limit = 1000
		}
		list, err := events.Since(r.Context(), after, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
