package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const apiKeyHeader = "X-API-Key"

// maxBodySize caps request bodies; every body this API accepts is tiny.
const maxBodySize = 64 << 10

// RequireAPIKey rejects any request whose X-API-Key header does not match
// the configured service secret. Constant-time compare so the gate itself
// leaks nothing about the secret.
func (a *API) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(a.secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decodeJSON decodes a JSON body into T, enforcing the body size cap. On
// failure it writes the error response and returns ok=false.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "request body is required")
		default:
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return req, false
	}
	return req, true
}
