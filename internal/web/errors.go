package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/datakeep/ingest-core/internal/artifact"
	"github.com/datakeep/ingest-core/internal/format"
	"github.com/datakeep/ingest-core/internal/ingest"
	"github.com/datakeep/ingest-core/internal/metadata"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusForError maps pipeline error codes onto HTTP status codes:
// not-found conditions are 404, selection/type/settings problems are 400,
// storage/database/unexpected failures are 500.
func statusForError(err error) int {
	switch ingest.ErrorCode(err) {
	case metadata.CodeSourceNotFound, metadata.CodeDatasetNotFound:
		return http.StatusNotFound
	case format.CodeUnsupportedType, format.CodeParseFailed,
		ingest.CodeNoSheetsSelected, ingest.CodeNoTargetName, ingest.CodeBadSettings:
		return http.StatusBadRequest
	case artifact.CodeWriteFailed, metadata.CodeMetadataFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error with the request id and returns the
// JSON envelope with an appropriate status.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	code := ingest.ErrorCode(err)

	slog.Error("request failed",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", code,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	respondJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func badRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}
