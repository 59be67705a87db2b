package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/EconSOM/internal/domain/run"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/pkg/errors"
)

const (
	DefaultHistorySize = 200
	DefaultHistoryTTL  = 7 * 24 * time.Hour
)

// RunHistory keeps the newest run summaries in a capped list, plus one key
// per run for lookups by id.  Trained maps are never stored.
type RunHistory struct {
	client *Client
	logger logging.Logger
	size   int64
	ttl    time.Duration
}

// NewRunHistory keeps at most size summaries for ttl after the last write.
func NewRunHistory(client *Client, log logging.Logger, size int, ttl time.Duration) *RunHistory {
	if size <= 0 {
		size = DefaultHistorySize
	}
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &RunHistory{client: client, logger: log, size: int64(size), ttl: ttl}
}

func (h *RunHistory) listKey() string       { return h.client.KeyPrefix() + "runs" }
func (h *RunHistory) runKey(id string) string { return h.client.KeyPrefix() + "run:" + id }

// Record prepends s and trims the list in one transaction.
func (h *RunHistory) Record(ctx context.Context, s *run.Summary) error {
	if s == nil || s.ID == "" {
		return errors.InvalidParam("run summary needs an id")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode run summary")
	}

	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, h.listKey(), data)
	pipe.LTrim(ctx, h.listKey(), 0, h.size-1)
	pipe.Expire(ctx, h.listKey(), h.ttl)
	pipe.Set(ctx, h.runKey(s.ID), data, h.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to record run summary")
	}
	return nil
}

// Recent returns up to limit summaries, newest first.  Entries that no
// longer decode are skipped.
func (h *RunHistory) Recent(ctx context.Context, limit int) ([]*run.Summary, error) {
	if limit <= 0 {
		return []*run.Summary{}, nil
	}
	raw, err := h.client.LRange(ctx, h.listKey(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read run history")
	}
	out := make([]*run.Summary, 0, len(raw))
	for _, item := range raw {
		var s run.Summary
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			h.logger.Warn("skipping unreadable run summary", logging.Err(err))
			continue
		}
		out = append(out, &s)
	}
	return out, nil
}

// Get returns one summary by run id.
func (h *RunHistory) Get(ctx context.Context, id string) (*run.Summary, error) {
	data, err := h.client.Get(ctx, h.runKey(id)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.New(errors.ErrCodeNotFound, "run not found").WithDetail(id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read run summary")
	}
	var s run.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode run summary")
	}
	return &s, nil
}

// Len reports how many summaries the list holds.
func (h *RunHistory) Len(ctx context.Context) (int64, error) {
	return h.client.LLen(ctx, h.listKey()).Result()
}

//Personal.AI order the ending
