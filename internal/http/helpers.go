package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lucro/internal/pnl"
	"lucro/internal/storage"
)

// errorResponse is the JSON envelope for every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps a service failure to a status code. Unknown
// uploads become 404, everything else an opaque 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrUploadNotFound) {
		writeError(w, http.StatusNotFound, "upload not found")
		return
	}
	slog.ErrorContext(r.Context(), "Request failed", "url", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// parseDateRange reads optional start/end query parameters as ISO
// year-month labels and widens them to full calendar months.
func parseDateRange(r *http.Request) (pnl.DateRange, error) {
	var rng pnl.DateRange

	if v := strings.TrimSpace(r.URL.Query().Get("start")); v != "" {
		t, err := time.Parse("2006-01", v)
		if err != nil {
			return rng, errors.New("invalid start month, want YYYY-MM")
		}
		rng.Start = t
	}
	if v := strings.TrimSpace(r.URL.Query().Get("end")); v != "" {
		t, err := time.Parse("2006-01", v)
		if err != nil {
			return rng, errors.New("invalid end month, want YYYY-MM")
		}
		// End of the last requested month.
		rng.End = t.AddDate(0, 1, 0).Add(-time.Nanosecond)
	}
	if !rng.Start.IsZero() && !rng.End.IsZero() && rng.End.Before(rng.Start) {
		return rng, errors.New("end month precedes start month")
	}
	return rng, nil
}

// requireUploadID reads the upload_id query parameter.
func requireUploadID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.URL.Query().Get("upload_id"))
	if id == "" {
		return "", errors.New("missing upload_id")
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}
