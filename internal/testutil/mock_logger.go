// Package testutil provides fakes and fixtures shared by package tests.
package testutil

import (
	"context"
	"sync"

	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
)

// MockLogger implements logging.Logger for testing purposes.
// It records log messages and can be used to verify logging behavior.
type MockLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

// LogMessage represents a single log entry captured by MockLogger.
type LogMessage struct {
	Level   string
	Message string
	Fields  []logging.Field
}

// NewMockLogger creates a new MockLogger instance.
func NewMockLogger() *MockLogger {
	return &MockLogger{
		Messages: make([]LogMessage, 0),
	}
}

func (m *MockLogger) log(level, msg string, fields []logging.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  fields,
	})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) {
	m.log("debug", msg, fields)
}

func (m *MockLogger) Info(msg string, fields ...logging.Field) {
	m.log("info", msg, fields)
}

func (m *MockLogger) Warn(msg string, fields ...logging.Field) {
	m.log("warn", msg, fields)
}

func (m *MockLogger) Error(msg string, fields ...logging.Field) {
	m.log("error", msg, fields)
}

func (m *MockLogger) Fatal(msg string, fields ...logging.Field) {
	m.log("fatal", msg, fields)
}

// With records fields on a child sharing the parent's message buffer.
func (m *MockLogger) With(fields ...logging.Field) logging.Logger {
	return &childLogger{parent: m, fields: fields}
}

func (m *MockLogger) WithContext(ctx context.Context) logging.Logger {
	if id := logging.RunIDFromContext(ctx); id != "" {
		return m.With(logging.String("run_id", id))
	}
	return m
}

func (m *MockLogger) Named(string) logging.Logger { return m }

func (m *MockLogger) Sync() error { return nil }

type childLogger struct {
	parent *MockLogger
	fields []logging.Field
}

func (c *childLogger) merge(fields []logging.Field) []logging.Field {
	return append(append([]logging.Field(nil), c.fields...), fields...)
}

func (c *childLogger) Debug(msg string, f ...logging.Field) { c.parent.log("debug", msg, c.merge(f)) }
func (c *childLogger) Info(msg string, f ...logging.Field)  { c.parent.log("info", msg, c.merge(f)) }
func (c *childLogger) Warn(msg string, f ...logging.Field)  { c.parent.log("warn", msg, c.merge(f)) }
func (c *childLogger) Error(msg string, f ...logging.Field) { c.parent.log("error", msg, c.merge(f)) }
func (c *childLogger) Fatal(msg string, f ...logging.Field) { c.parent.log("fatal", msg, c.merge(f)) }

func (c *childLogger) With(fields ...logging.Field) logging.Logger {
	return &childLogger{parent: c.parent, fields: c.merge(fields)}
}
func (c *childLogger) WithContext(context.Context) logging.Logger { return c }
func (c *childLogger) Named(string) logging.Logger                 { return c }
func (c *childLogger) Sync() error                                 { return nil }

// GetMessages returns a copy of all logged messages.
func (m *MockLogger) GetMessages() []LogMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]LogMessage, len(m.Messages))
	copy(result, m.Messages)
	return result
}

// Clear removes all logged messages.
func (m *MockLogger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = m.Messages[:0]
}

// HasMessage checks if a message with the given level and content was logged.
func (m *MockLogger) HasMessage(level, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, logged := range m.Messages {
		if logged.Level == level && logged.Message == msg {
			return true
		}
	}
	return false
}

// FieldValue returns the value of key on the first message matching msg.
func (m *MockLogger) FieldValue(msg, key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, logged := range m.Messages {
		if logged.Message != msg {
			continue
		}
		for _, f := range logged.Fields {
			if f.Key == key {
				return f.Value, true
			}
		}
	}
	return nil, false
}

//Personal.AI order the ending
