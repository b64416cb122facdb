package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/naveenspark/gatehouse/pkg/domain"
)

// ErrNoTokenSource is returned by authenticated calls on a client built without tokens.
var ErrNoTokenSource = errors.New("client has no access token source")

// timeoutMarkers are substrings that identify a timed-out transport call
// when the error chain carries no typed timeout.
var timeoutMarkers = []string{"timeout of", "Client.Timeout exceeded", "i/o timeout"}

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError or a
// Problem with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	var p *domain.Problem
	if errors.As(err, &p) {
		return p.Status == code
	}
	return false
}

// Translate normalizes any transport failure into a Problem.
//
// Timeouts become TimeoutExceeded with status 0. Error responses whose body
// is a well-formed Problem are passed through unchanged. Everything else is
// reported as an unknown error with status 500.
func Translate(err error) *domain.Problem {
	if err == nil {
		return nil
	}
	var p *domain.Problem
	if errors.As(err, &p) {
		return p
	}

	msg := err.Error()
	// The message of an HTTPError carries the response body, so only its
	// decoded Problem counts; timeout markers inside it are server text.
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if p, ok := decodeProblem(httpErr.Body); ok {
			return p
		}
	} else if isTimeout(err) {
		return &domain.Problem{
			ID:     domain.ProblemTimeout,
			Title:  msg,
			Status: 0,
			Detail: msg,
		}
	}

	return &domain.Problem{
		ID:     domain.ProblemUnknown,
		Title:  "Unknown Error",
		Status: 500,
		Detail: "An unknown error occurred: " + msg,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	for _, marker := range timeoutMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// decodeProblem accepts a body only if detail, id and title are strings and
// status is a number.
func decodeProblem(body []byte) (*domain.Problem, bool) {
	if len(body) == 0 {
		return nil, false
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false
	}
	detail, ok := raw["detail"].(string)
	if !ok {
		return nil, false
	}
	id, ok := raw["id"].(string)
	if !ok {
		return nil, false
	}
	title, ok := raw["title"].(string)
	if !ok {
		return nil, false
	}
	status, ok := raw["status"].(float64)
	if !ok {
		return nil, false
	}
	return &domain.Problem{ID: id, Title: title, Status: int(status), Detail: detail}, true
}
