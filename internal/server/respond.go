package server

import (
	"encoding/json"
	"errors"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"studio-portal/internal/workflow"
)

const maxBodyBytes = 1 << 20

// response is the body of every API reply: the action Result plus an
// optional payload.
type response struct {
	workflow.Result
	Data any `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeResult renders err (nil for success) with data.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, err error, data any) {
	s.writeResultStatus(w, r, http.StatusOK, err, data)
}

func (s *Server) writeResultStatus(w http.ResponseWriter, r *http.Request, okStatus int, err error, data any) {
	res := workflow.ResultOf(err)
	if res.Success {
		writeJSON(w, okStatus, response{Result: res, Data: data})
		return
	}
	status := statusFor(res.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, response{Result: res})
}

func statusFor(code workflow.Code) int {
	switch code {
	case workflow.CodeNotAuthenticated:
		return http.StatusUnauthorized
	case workflow.CodeForbidden:
		return http.StatusForbidden
	case workflow.CodeNotFound, workflow.CodeRevisionNotFound:
		return http.StatusNotFound
	case workflow.CodeEmptySelection, workflow.CodeLimitExceeded, workflow.CodeInvalidInput:
		return http.StatusUnprocessableEntity
	case workflow.CodeLockedState, workflow.CodeAlreadySubmitted, workflow.CodeNotAllApproved,
		workflow.CodeStageMismatch, workflow.CodeInvalidTransition, workflow.CodeRevisionNotPending,
		workflow.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &workflow.Error{Code: workflow.CodeInvalidInput, Message: "request body is empty"}
		}
		return &workflow.Error{Code: workflow.CodeInvalidInput, Message: "invalid JSON body", Cause: err}
	}
	return nil
}

// filenameParam returns the unescaped {filename} route parameter.
func filenameParam(r *http.Request) (string, error) {
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil || name == "" {
		return "", &workflow.Error{Code: workflow.CodeInvalidInput, Message: "invalid filename"}
	}
	return name, nil
}

// clean strips markup from client free text. The result is plain text, so
// entities bluemonday escapes are decoded again.
func (s *Server) clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
}
