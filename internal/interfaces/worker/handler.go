// Package worker turns consumed analysis requests into pipeline runs.
package worker

import (
	"context"
	"time"

	"github.com/turtacn/EconSOM/internal/domain/run"
	"github.com/turtacn/EconSOM/internal/infrastructure/database/redis"
	"github.com/turtacn/EconSOM/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/pkg/errors"
	"github.com/turtacn/EconSOM/pkg/types/common"
)

// Message outcomes reported to metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeRunError  = "run_error"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
)

// Executor runs one queued request; analysis.Service satisfies it.
type Executor interface {
	Execute(ctx context.Context, req *run.Request) (*run.Summary, error)
}

// Metrics observes handled messages.
type Metrics interface {
	ObserveMessage(outcome string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveMessage(string, time.Duration) {}

// Options tune a Handler.  Zero values take defaults.
type Options struct {
	Timeout time.Duration
	LockTTL time.Duration
}

// Handler consumes analysis.requested events.
type Handler struct {
	exec    Executor
	locks   redis.LockFactory
	metrics Metrics
	opts    Options
	logger  logging.Logger
}

// NewHandler wires a handler.  locks may be nil, in which case redelivered
// requests can run twice.
func NewHandler(exec Executor, locks redis.LockFactory, metrics Metrics, opts Options, logger logging.Logger) *Handler {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	return &Handler{exec: exec, locks: locks, metrics: metrics, opts: opts, logger: logger.Named("worker")}
}

// Handle implements common.MessageHandler.  Undecodable messages are marked
// non-retryable so the consumer dead-letters them at once.
func (h *Handler) Handle(ctx context.Context, msg *common.Message) error {
	start := time.Now()

	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		h.observe(OutcomeRejected, start)
		return &kafka.NonRetryable{Err: err}
	}
	req, err := kafka.DecodeRequest(env)
	if err != nil {
		h.observe(OutcomeRejected, start)
		return &kafka.NonRetryable{Err: err}
	}
	if req.Source == "" {
		req.Source = run.SourceWorker
	}

	ctx = logging.ContextWithRunID(ctx, req.ID)
	log := h.logger.WithContext(ctx)

	if h.locks != nil {
		lock := h.locks.NewMutex("run:"+req.ID, redis.WithLockTTL(h.opts.LockTTL), redis.WithWatchdog(true))
		ok, err := lock.TryLock(ctx)
		if err != nil {
			h.observe(OutcomeFailed, start)
			return err
		}
		if !ok {
			log.Info("run already in progress elsewhere, skipping")
			h.observe(OutcomeDuplicate, start)
			return nil
		}
		defer func() {
			if err := lock.Unlock(context.Background()); err != nil {
				log.Warn("failed to release run lock", logging.Err(err))
			}
		}()
	}

	runCtx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	sum, err := h.exec.Execute(runCtx, req)
	if err != nil {
		if permanent(err) {
			h.observe(OutcomeRejected, start)
			return &kafka.NonRetryable{Err: err}
		}
		h.observe(OutcomeFailed, start)
		log.Error("run failed", logging.Err(err))
		return err
	}

	outcome := OutcomeSuccess
	if !sum.Succeeded() {
		outcome = OutcomeRunError
	}
	h.observe(outcome, start)
	log.Info("run finished",
		logging.String("status", string(sum.Status)),
		logging.String("code", sum.Code),
		logging.Int64("duration_ms", sum.DurationMS))
	return nil
}

// permanent reports request errors that fail the same way on redelivery.
// Busy and conflict answers stay retryable.
func permanent(err error) bool {
	code := errors.GetCode(err)
	if code == errors.CodeRateLimit || code == errors.CodeConflict {
		return false
	}
	return errors.IsClientError(code)
}

func (h *Handler) observe(outcome string, start time.Time) {
	h.metrics.ObserveMessage(outcome, time.Since(start))
}

//Personal.AI order the ending
