package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// APIError is an error response from the backend API.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
}

// Error payload codes used by the hosted API.
const (
	// codeUniqueViolation is the postgres error code surfaced when an
	// insert hits a unique constraint.
	codeUniqueViolation = "23505"
	// codeNoRows is surfaced when a single-object request matches no row.
	codeNoRows = "PGRST116"
)

// errorPayload covers the error body shapes of the auth, table, and
// storage endpoints.
type errorPayload struct {
	Message     string `json:"message"`
	Msg         string `json:"msg"`
	ErrorField  string `json:"error"`
	Description string `json:"error_description"`
	Code        any    `json:"code"`
	ErrorCode   string `json:"error_code"`
	Details     string `json:"details"`
}

func parseAPIError(resp *http.Response) *APIError {
	defer resp.Body.Close()
	apiErr := &APIError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || len(body) == 0 {
		apiErr.Message = resp.Status
		return apiErr
	}

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = string(body)
		return apiErr
	}

	switch {
	case payload.Message != "":
		apiErr.Message = payload.Message
	case payload.Msg != "":
		apiErr.Message = payload.Msg
	case payload.Description != "":
		apiErr.Message = payload.Description
	case payload.ErrorField != "":
		apiErr.Message = payload.ErrorField
	default:
		apiErr.Message = resp.Status
	}

	switch code := payload.Code.(type) {
	case string:
		apiErr.Code = code
	case float64:
		// auth endpoints report numeric status codes here
	}
	if apiErr.Code == "" {
		apiErr.Code = payload.ErrorCode
	}
	apiErr.Details = payload.Details

	return apiErr
}

// IsUniqueViolation reports whether err is a unique-constraint rejection.
// Callers treat this as "already in the desired state", not a failure.
func IsUniqueViolation(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == codeUniqueViolation || apiErr.Status == http.StatusConflict
}

// IsNoRows reports whether err means a single-object request matched nothing.
func IsNoRows(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == codeNoRows || apiErr.Status == http.StatusNotAcceptable
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
