package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/EconSOM/internal/config"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/EconSOM/pkg/errors"
	"github.com/turtacn/EconSOM/pkg/types/common"
)

// queueReader hands out queued messages, then blocks until cancelled.
type queueReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *queueReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *queueReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *queueReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*common.ProducerMessage
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *common.ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) sent() []*common.ProducerMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*common.ProducerMessage(nil), p.msgs...)
}

func newTestConsumer(r ReaderInterface, dl MessagePublisher, retries int) *Consumer {
	c := NewConsumerWithReader(r, ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "g",
		Topics:  []string{"requests"},
		RetryConfig: RetryConfig{
			MaxRetries:      retries,
			DeadLetterTopic: "dead",
		},
	}, dl, logging.NewNopLogger())
	c.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return c
}

func TestValidateConsumerConfig(t *testing.T) {
	valid := ConsumerConfig{Brokers: []string{"b"}, GroupID: "g", Topics: []string{"t"}}
	assert.NoError(t, ValidateConsumerConfig(valid))

	cases := map[string]func(c *ConsumerConfig){
		"no brokers": func(c *ConsumerConfig) { c.Brokers = nil },
		"no group":   func(c *ConsumerConfig) { c.GroupID = "" },
		"no topics":  func(c *ConsumerConfig) { c.Topics = nil },
		"offset":     func(c *ConsumerConfig) { c.AutoOffsetReset = "middle" },
		"retries":    func(c *ConsumerConfig) { c.RetryConfig.MaxRetries = -1 },
	}
	for name, mutate := range cases {
		cfg := valid
		mutate(&cfg)
		assert.Error(t, ValidateConsumerConfig(cfg), name)
	}
}

func TestConsumerConfigFrom(t *testing.T) {
	cfg := ConsumerConfigFrom(config.KafkaConfig{
		Brokers:         []string{"k:9092"},
		GroupID:         "econsom-worker",
		RequestTopic:    "req",
		DeadLetterTopic: "dlq",
		MaxRetries:      2,
	}, config.WorkerConfig{Concurrency: 4})

	assert.Equal(t, []string{"req"}, cfg.Topics)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 2, cfg.RetryConfig.MaxRetries)
	assert.Equal(t, "dlq", cfg.RetryConfig.DeadLetterTopic)
}

func TestProcessMessage_RetriesThenSucceeds(t *testing.T) {
	c := newTestConsumer(&queueReader{}, &recordingPublisher{}, 3)
	var calls int
	handler := func(context.Context, *common.Message) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}

	err := c.processMessage(context.Background(), &common.Message{Topic: "requests"}, handler)
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, int64(2), c.metrics.MessagesRetried.Load())
}

func TestProcessMessage_DeadLettersAfterRetries(t *testing.T) {
	dl := &recordingPublisher{}
	c := newTestConsumer(&queueReader{}, dl, 2)
	var calls int
	handler := func(context.Context, *common.Message) error {
		calls++
		return apperrors.New(apperrors.ErrCodeEmptyData, "no data")
	}

	msg := &common.Message{Topic: "requests", Key: []byte("r1"), Value: []byte("{}"), Headers: map[string]string{"trace_id": "t"}}
	err := c.processMessage(context.Background(), msg, handler)
	assert.Error(t, err)
	assert.Equal(t, 3, calls)

	sent := dl.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "dead", sent[0].Topic)
	assert.Equal(t, []byte("r1"), sent[0].Key)
	assert.Equal(t, "requests", sent[0].Headers[HeaderOriginalTopic])
	assert.Equal(t, "3", sent[0].Headers[HeaderAttempts])
	assert.Equal(t, string(apperrors.ErrCodeEmptyData), sent[0].Headers[HeaderErrorCode])
	assert.Equal(t, "t", sent[0].Headers["trace_id"])
	_, ok := msg.Headers[HeaderOriginalTopic]
	assert.False(t, ok, "original headers must not be modified")
}

func TestProcessMessage_NonRetryableSkipsRetries(t *testing.T) {
	dl := &recordingPublisher{}
	c := newTestConsumer(&queueReader{}, dl, 5)
	var calls int
	handler := func(context.Context, *common.Message) error {
		calls++
		return &NonRetryable{Err: errors.New("bad json")}
	}

	assert.Error(t, c.processMessage(context.Background(), &common.Message{Topic: "requests"}, handler))
	assert.Equal(t, 1, calls)
	assert.Len(t, dl.sent(), 1)
	assert.Equal(t, "bad json", dl.sent()[0].Headers[HeaderErrorMessage])
}

func TestProcessMessage_DeadLetterFailureIsLogged(t *testing.T) {
	dl := &recordingPublisher{err: errors.New("broker down")}
	c := newTestConsumer(&queueReader{}, dl, 0)

	err := c.processMessage(context.Background(), &common.Message{Topic: "requests"}, func(context.Context, *common.Message) error {
		return errors.New("fail")
	})
	assert.EqualError(t, err, "fail")
	assert.Equal(t, int64(0), c.metrics.MessagesDeadLettered.Load())
}

func TestConsumer_CommitsHandledAndFailedMessages(t *testing.T) {
	r := &queueReader{queue: []kafka.Message{
		{Topic: "requests", Offset: 10, Value: []byte("ok")},
		{Topic: "requests", Offset: 11, Value: []byte("bad")},
		{Topic: "unrouted", Offset: 12, Value: []byte("?")},
	}}
	dl := &recordingPublisher{}
	c := newTestConsumer(r, dl, 0)

	var handled atomic.Int32
	c.Subscribe("requests", func(_ context.Context, m *common.Message) error {
		handled.Add(1)
		if string(m.Value) == "bad" {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyRunning)
	require.Eventually(t, func() bool { return len(r.commits()) == 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())

	assert.Equal(t, []int64{10, 11, 12}, r.commits())
	assert.Equal(t, int32(2), handled.Load())
	assert.Len(t, dl.sent(), 1)
	assert.True(t, r.closed)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap["consumed"])
	assert.Equal(t, int64(1), snap["processed"])
	assert.Equal(t, int64(1), snap["failed"])
	assert.False(t, c.Running())
}

func TestConsumer_CancelledHandlerIsNotCommitted(t *testing.T) {
	r := &queueReader{queue: []kafka.Message{{Topic: "requests", Offset: 7}}}
	c := newTestConsumer(r, nil, 0)

	started := make(chan struct{})
	c.Subscribe("requests", func(ctx context.Context, _ *common.Message) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	require.NoError(t, c.Start(context.Background()))
	<-started
	require.NoError(t, c.Close())
	assert.Empty(t, r.commits())
}

//Personal.AI order the ending
