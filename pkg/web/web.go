// Package web holds the JSON request and response helpers used by every
// handler.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"bookstore/pkg/apperr"
)

const maxBodyBytes = 1 << 20

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error string `json:"error"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as {"error": "..."} with the status its kind maps to.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusFor(err), ErrorBody{Error: err.Error()})
}

// DecodeJSON decodes a JSON request body into dst. Malformed bodies are
// reported as invalid input.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalidf("request body is empty")
		}
		return apperr.Invalidf("invalid request body: %v", err)
	}
	return nil
}

// Validator is implemented by request structs that check their own fields.
type Validator interface {
	Validate() error
}

// DecodeValid decodes the body into dst and runs its Validate method.
func DecodeValid(w http.ResponseWriter, r *http.Request, dst Validator) error {
	if err := DecodeJSON(w, r, dst); err != nil {
		return err
	}
	return dst.Validate()
}

// PathInt parses a positive integer path value.
func PathInt(raw, name string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperr.Invalidf("invalid %s: %q", name, raw)
	}
	return n, nil
}

// Query parses the raw query string. Unlike r.URL.Query it reports malformed
// pairs, such as ones containing a semicolon, instead of dropping them.
func Query(r *http.Request) (url.Values, error) {
	v, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		return nil, apperr.Invalidf("invalid query string: %v", err)
	}
	return v, nil
}

// QueryPositiveInt parses an optional positive integer query parameter,
// returning def when the parameter is absent.
func QueryPositiveInt(r *http.Request, name string, def int) (int, error) {
	v, err := Query(r)
	if err != nil {
		return 0, err
	}
	raw := v.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperr.New(apperr.ErrInvalid, fmt.Sprintf("%s must be a positive integer", name))
	}
	return n, nil
}
