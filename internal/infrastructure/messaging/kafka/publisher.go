package kafka

import (
	"context"

	"github.com/turtacn/EconSOM/internal/domain/run"
	"github.com/turtacn/EconSOM/pkg/errors"
)

const sourceService = "econsom"

// RunPublisher announces finished runs on the completed topic.
type RunPublisher struct {
	producer MessagePublisher
	topic    string
}

func NewRunPublisher(p MessagePublisher, topic string) *RunPublisher {
	return &RunPublisher{producer: p, topic: topic}
}

// PublishCompleted implements run.Publisher.
func (p *RunPublisher) PublishCompleted(ctx context.Context, s *run.Summary) error {
	if s == nil {
		return errors.InvalidParam("run summary is required")
	}
	env, err := NewEventEnvelope(EventAnalysisCompleted, sourceService, s)
	if err != nil {
		return err
	}
	env.Metadata = map[string]string{"status": string(s.Status), "source": string(s.Source)}
	msg, err := env.ToMessage(p.topic, s.ID)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

// RequestPublisher queues analysis requests for the worker.
type RequestPublisher struct {
	producer MessagePublisher
	topic    string
}

func NewRequestPublisher(p MessagePublisher, topic string) *RequestPublisher {
	return &RequestPublisher{producer: p, topic: topic}
}

// Submit assigns an id when missing and returns it.
func (p *RequestPublisher) Submit(ctx context.Context, req *run.Request) (string, error) {
	if req == nil {
		return "", errors.InvalidParam("run request is required")
	}
	if req.ID == "" {
		req.ID = run.NewID()
	}
	env, err := NewEventEnvelope(EventAnalysisRequested, sourceService, req)
	if err != nil {
		return "", err
	}
	msg, err := env.ToMessage(p.topic, req.ID)
	if err != nil {
		return "", err
	}
	if err := p.producer.Publish(ctx, msg); err != nil {
		return "", err
	}
	return req.ID, nil
}

// DecodeRequest reads an analysis request from a consumed envelope.
func DecodeRequest(env *EventEnvelope) (*run.Request, error) {
	if env.EventType != EventAnalysisRequested {
		return nil, errors.New(errors.ErrCodeValidation, "unexpected event type").WithDetail(env.EventType)
	}
	var req run.Request
	if err := env.DecodePayload(&req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = env.EventID
	}
	return &req, nil
}

//Personal.AI order the ending
