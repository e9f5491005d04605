package audit

import (
	"testing"

	"github.com/google/uuid"
)

const (
	redactedValue       = "[REDACTED]"
	eventTestDurationMS = 100
)

func TestNewEvent(t *testing.T) {
	event := NewEvent("permissions.get")

	if event.Endpoint != "permissions.get" {
		t.Errorf("Endpoint = %q, want %q", event.Endpoint, "permissions.get")
	}
	if _, err := uuid.Parse(event.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", event.ID, err)
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
}

func TestEvent_Builders(t *testing.T) {
	event := NewEvent("profile.get").
		WithUser("user123", "user@example.com").
		WithRequest("GET", "/profile/abc", "10.0.0.1:1234").
		WithParameters(map[string]any{"subject": "abc"}).
		WithResult(200, "", eventTestDurationMS).
		WithRequestID("req-123")

	if event.UserID != "user123" {
		t.Errorf("UserID = %q, want %q", event.UserID, "user123")
	}
	if event.UserEmail != "user@example.com" {
		t.Errorf("UserEmail = %q, want %q", event.UserEmail, "user@example.com")
	}
	if event.Method != "GET" || event.Path != "/profile/abc" || event.RemoteAddr != "10.0.0.1:1234" {
		t.Errorf("request fields not set: %+v", event)
	}
	if event.Parameters["subject"] != "abc" {
		t.Error("Parameters not set correctly")
	}
	if !event.Success {
		t.Error("Success = false, want true")
	}
	if event.Status != 200 {
		t.Errorf("Status = %d, want 200", event.Status)
	}
	if event.DurationMS != eventTestDurationMS {
		t.Errorf("DurationMS = %d, want %d", event.DurationMS, eventTestDurationMS)
	}
	if event.RequestID != "req-123" {
		t.Errorf("RequestID = %q, want %q", event.RequestID, "req-123")
	}
}

func TestEvent_WithResultFailure(t *testing.T) {
	for _, status := range []int{0, 400, 403, 404, 500, 503} {
		e := NewEvent("health").WithResult(status, "boom", 1)
		if e.Success {
			t.Errorf("status %d should not count as success", status)
		}
	}
}

func TestSanitizeParameters(t *testing.T) {
	params := map[string]any{
		"limit":    eventTestDurationMS,
		"password": "secret123",
		"Token":    "abc123",
		"api_key":  "key",
		"id":       "perm-1",
	}

	got := SanitizeParameters(params)

	if got["limit"] != eventTestDurationMS {
		t.Errorf("limit = %v, want %d", got["limit"], eventTestDurationMS)
	}
	if got["id"] != "perm-1" {
		t.Errorf("id = %v, want perm-1", got["id"])
	}
	for _, k := range []string{"password", "Token", "api_key"} {
		if got[k] != redactedValue {
			t.Errorf("%s = %v, want %s", k, got[k], redactedValue)
		}
	}
	if params["password"] != "secret123" {
		t.Error("input map must not be modified")
	}
}

func TestSanitizeParameters_Nil(t *testing.T) {
	if SanitizeParameters(nil) != nil {
		t.Error("SanitizeParameters(nil) should return nil")
	}
}
