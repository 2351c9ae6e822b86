package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/casinobroker/platform/internal/domain"
)

// errorEnvelope is the wire shape used for every error response.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// RespondError renders err into the §6 error envelope, using the
// *domain.AppError status/code pair when available and falling back to a
// generic 500 INTERNAL_ERROR otherwise.
func RespondError(w http.ResponseWriter, err error) {
	appErr := domain.AsAppError(err)
	RespondJSON(w, appErr.Status, errorEnvelope{Error: errorBody{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}})
}

// DecodeJSON reads and decodes a JSON request body into dst, rejecting
// bodies larger than maxBytes.
func DecodeJSON(r *http.Request, maxBytes int64, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrValidation("malformed request body: " + err.Error())
	}
	return nil
}

// readAllLimited reads the full request body bounded by maxBytes, for
// handlers that need the raw bytes (e.g. to verify an HMAC signature over
// the exact wire payload) rather than a decoded struct.
func readAllLimited(r *http.Request, maxBytes int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBytes))
	if err != nil {
		return nil, domain.ErrValidation("request body too large or unreadable")
	}
	return body, nil
}
