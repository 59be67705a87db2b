package common

import (
	"encoding/json"
	"time"
)

// StatusSuccess marks a successful response body.
const StatusSuccess = "success"

// Timestamp marshals as RFC 3339 in UTC.
type Timestamp time.Time

// NewTimestamp returns the current UTC time.
func NewTimestamp() Timestamp {
	return Timestamp(time.Now().UTC())
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts RFC 3339 with or without fractional seconds.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed.UTC())
	return nil
}

// APIResponse wraps the bodies of the history, export and job routes.
// Analysis outcomes keep their own status/message/code envelope, and errors
// on every route use that envelope too.
type APIResponse[T any] struct {
	Status    string    `json:"status"`
	Data      T         `json:"data"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp Timestamp `json:"timestamp"`
}

// NewSuccessResponse wraps data with the success status and the current time.
func NewSuccessResponse[T any](data T, requestID string) APIResponse[T] {
	return APIResponse[T]{
		Status:    StatusSuccess,
		Data:      data,
		RequestID: requestID,
		Timestamp: NewTimestamp(),
	}
}

// Succeeded reports whether the body carries the success status.
func (r APIResponse[T]) Succeeded() bool {
	return r.Status == StatusSuccess
}

// HealthStatus indicates the health of a component or service.
type HealthStatus string

const (
	HealthUp       HealthStatus = "up"
	HealthDown     HealthStatus = "down"
	HealthDegraded HealthStatus = "degraded"
)

// ComponentHealth provides health information for a specific component.
type ComponentHealth struct {
	Name    string        `json:"name"`
	Status  HealthStatus  `json:"status"`
	Latency time.Duration `json:"latency"`
	Message string        `json:"message,omitempty"`
}

//Personal.AI order the ending
