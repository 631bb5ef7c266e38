package kanban_api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"siteboard/internal/repository/kanban_repository"
	"siteboard/internal/repository/project_repository"
	"siteboard/internal/services/kanban_services"
)

// Request body caps, applied before decoding.
const (
	maxJSONSize     = 10 << 10
	maxMoveJSONSize = 5 << 10
)

// decodeJSON enforces the payload cap and decodes the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}

func handleError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case kanban_services.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, kanban_services.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, kanban_repository.ErrItemNotFound),
		errors.Is(err, kanban_repository.ErrColumnNotFound),
		errors.Is(err, kanban_repository.ErrBoardNotFound),
		errors.Is(err, kanban_repository.ErrCategoryNotFound),
		errors.Is(err, kanban_repository.ErrProjectNotFound),
		errors.Is(err, project_repository.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, kanban_repository.ErrNoActiveColumn):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, kanban_repository.ErrRejectedColumnMissing):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, kanban_repository.ErrConflict):
		writeError(w, http.StatusConflict, "conflicting concurrent update, try again")
	case errors.As(err, &maxBytesErr):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	default:
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
			errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			writeError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
		log.Printf("ERROR: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
