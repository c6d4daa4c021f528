package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/crmkit/segmint/internal/errs"
)

const (
	maxRequestBodySize = 1 << 20 // 1 MB

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100

	generateFallbackMessage = "Failed to process natural language query"
)

// ===== HTTP Helpers =====

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a size-limited JSON body into v. It writes the error
// response itself and reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RequestTooLargeError(w, r, "Request body exceeds 1MB limit")
			return false
		}
		BadRequestError(w, r, ErrCodeInvalidJSON, "Request body must be valid JSON")
		return false
	}
	return true
}

// parseLimit reads the limit query parameter. Missing, malformed or
// out-of-range values fall back to the default.
func parseLimit(r *http.Request) int {
	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil && l > 0 && l <= maxHistoryLimit {
			limit = l
		}
	}
	return limit
}

// serviceMessage picks the message shown to callers for a failed generation.
func serviceMessage(err error) string {
	var se *errs.ServiceError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return generateFallbackMessage
}
