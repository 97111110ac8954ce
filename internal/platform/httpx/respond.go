package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// ErrorBody is the machine-readable part of a failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// Envelope wraps every response with an explicit success flag.
type Envelope struct {
	OK    bool       `json:"ok"`
	Error *ErrorBody `json:"error,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// DecodeJSON decodes a JSON request body into target, rejecting unknown
// fields. Decode failures are reported as invalid arguments.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(target); err != nil {
		return shared.Invalid("malformed request body: %s", fmt.Sprint(err))
	}
	return nil
}
