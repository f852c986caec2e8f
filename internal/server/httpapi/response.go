package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/timekeeper/internal/common"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorStatus maps a service error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, common.ErrorInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, common.ErrorTransientStore):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, common.ErrorNotConfigured):
		return http.StatusNotImplemented, "not_configured"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status for err. Only client errors carry the
// error text; token failures and server errors get a fixed message.
func writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	var msg string
	switch status {
	case http.StatusUnauthorized:
		msg = common.ErrorUnauthorized.Error()
	case http.StatusServiceUnavailable:
		msg = common.ErrorTransientStore.Error()
	case http.StatusNotImplemented:
		msg = "export storage is not configured"
	case http.StatusInternalServerError:
		msg = http.StatusText(status)
	default:
		msg = err.Error()
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", common.ErrorValidation, err)
	}
	return nil
}
