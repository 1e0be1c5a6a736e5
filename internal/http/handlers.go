package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"lucro/internal/core"
	"lucro/internal/ingest"
	"lucro/internal/mapping"
	"lucro/internal/pnl"
	"lucro/internal/services"
)

const defaultUploadsLimit = 20

// handleUploads ingests a new export (POST) or lists recent uploads (GET).
func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleIngest(w, r)
	case http.MethodGet:
		s.handleListUploads(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleIngest accepts the export either as a multipart "file" field or
// as the raw request body.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadMaxBytes)

	filename, content, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(content) == 0 {
		writeError(w, http.StatusBadRequest, "empty upload")
		return
	}

	res, err := s.svc.Ingest(r.Context(), filename, content)
	if err != nil {
		var parseErr *ingest.ParseError
		if errors.As(err, &parseErr) {
			writeError(w, http.StatusUnprocessableEntity, parseErr.Error())
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func readUpload(r *http.Request) (filename string, content []byte, err error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, errors.New("missing multipart file field")
		}
		defer file.Close()
		content, err = io.ReadAll(file)
		if err != nil {
			return "", nil, errors.New("upload too large or unreadable")
		}
		return header.Filename, content, nil
	}

	content, err = io.ReadAll(r.Body)
	if err != nil {
		return "", nil, errors.New("upload too large or unreadable")
	}
	filename = strings.TrimSpace(r.URL.Query().Get("filename"))
	if filename == "" {
		filename = "upload.csv"
	}
	return filename, content, nil
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultUploadsLimit)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	uploads, err := s.svc.Uploads(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploads)
}

// handleStatement returns the monthly P&L statement for an upload.
func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uploadID, err := requireUploadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rng, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := s.svc.Statement(r.Context(), uploadID, rng)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uploadID, err := requireUploadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dash, err := s.svc.Dashboard(r.Context(), uploadID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uploadID, err := requireUploadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	months, err := queryInt(r, "months", 0)
	if err != nil || months < 0 {
		writeError(w, http.StatusBadRequest, "invalid months")
		return
	}

	fc, err := s.svc.Forecast(r.Context(), uploadID, months)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

// handleDrillDown lists the transactions behind one (line, month) cell.
func (s *Server) handleDrillDown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uploadID, err := requireUploadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lineNum, err := queryInt(r, "line", 0)
	if err != nil || lineNum == 0 {
		writeError(w, http.StatusBadRequest, "missing or invalid line")
		return
	}
	month, err := core.ParseMonth(strings.TrimSpace(r.URL.Query().Get("month")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month, want YYYY-MM")
		return
	}
	rng, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.svc.DrillDown(r.Context(), uploadID, core.Line(lineNum), month, rng)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// handleMappings serves the active rule catalog and accepts wholesale
// replacements.
func (s *Server) handleMappings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rules, err := s.svc.Mappings(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rules)

	case http.MethodPut:
		var rules []mapping.Rule
		if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
			writeError(w, http.StatusBadRequest, "invalid catalog payload")
			return
		}
		if err := s.svc.ReplaceMappings(r.Context(), rules); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.InfoContext(r.Context(), "Mapping catalog replaced", "rules", len(rules))
		writeJSON(w, http.StatusOK, map[string]int{"rules": len(rules)})

	default:
		w.Header().Set("Allow", "GET, PUT")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleOverrides stores manual values for overridable lines.
func (s *Server) handleOverrides(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.Header().Set("Allow", "PUT")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uploadID, err := requireUploadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var overrides pnl.Overrides
	if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
		writeError(w, http.StatusBadRequest, "invalid overrides payload")
		return
	}

	if err := s.svc.SetOverrides(r.Context(), uploadID, overrides); err != nil {
		if errors.Is(err, services.ErrLineNotOverridable) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"lines": len(overrides)})
}

// handleExports queues an asynchronous report export.
func (s *Server) handleExports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		UploadID string `json:"upload_id"`
		Format   string `json:"format"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid export payload")
		return
	}
	if strings.TrimSpace(req.UploadID) == "" {
		writeError(w, http.StatusBadRequest, "missing upload_id")
		return
	}

	if err := s.svc.QueueExport(r.Context(), req.UploadID, req.Format); err != nil {
		if errors.Is(err, services.ErrUnsupportedFormat) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
