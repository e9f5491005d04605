package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewEvent creates a new audit event for an endpoint call.
func NewEvent(endpoint string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Endpoint:  endpoint,
	}
}

// WithUser adds caller information to the event.
func (e *Event) WithUser(userID, email string) *Event {
	e.UserID = userID
	e.UserEmail = email
	return e
}

// WithRequest adds HTTP request information to the event.
func (e *Event) WithRequest(method, path, remoteAddr string) *Event {
	e.Method = method
	e.Path = path
	e.RemoteAddr = remoteAddr
	return e
}

// WithParameters adds sanitized parameters to the event.
func (e *Event) WithParameters(params map[string]any) *Event {
	e.Parameters = SanitizeParameters(params)
	return e
}

// WithResult adds result information to the event. A status below 400
// counts as success.
func (e *Event) WithResult(status int, errorMsg string, durationMS int64) *Event {
	e.Status = status
	e.Success = status > 0 && status < 400
	e.ErrorMessage = errorMsg
	e.DurationMS = durationMS
	return e
}

// WithRequestID adds a request ID to the event.
func (e *Event) WithRequestID(requestID string) *Event {
	e.RequestID = requestID
	return e
}

// sensitiveKeys are redacted wherever they appear, case-insensitively.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"authorization": true,
	"credentials":   true,
}

// SanitizeParameters removes sensitive parameters from the event.
func SanitizeParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		if sensitiveKeys[strings.ToLower(k)] {
			sanitized[k] = "[REDACTED]"
		} else {
			sanitized[k] = v
		}
	}
	return sanitized
}
