package kafka

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/EconSOM/internal/config"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/pkg/errors"
	"github.com/turtacn/EconSOM/pkg/types/common"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
)

// Dead-letter headers.
const (
	HeaderOriginalTopic = "original_topic"
	HeaderErrorMessage  = "error_message"
	HeaderErrorCode     = "error_code"
	HeaderAttempts      = "attempts"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	DeadLetterTopic string
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers           []string
	GroupID           string
	Topics            []string
	AutoOffsetReset   string
	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	MaxWait           time.Duration
	FetchMinBytes     int
	FetchMaxBytes     int
	// Concurrency is the number of handler goroutines sharing the reader.
	Concurrency int
	Security    SecurityConfig
	RetryConfig RetryConfig
}

// ConsumerConfigFrom maps the application kafka and worker sections.
func ConsumerConfigFrom(c config.KafkaConfig, w config.WorkerConfig) ConsumerConfig {
	return ConsumerConfig{
		Brokers:     c.Brokers,
		GroupID:     c.GroupID,
		Topics:      []string{c.RequestTopic},
		Concurrency: w.Concurrency,
		Security:    securityFrom(c),
		RetryConfig: RetryConfig{
			MaxRetries:      c.MaxRetries,
			DeadLetterTopic: c.DeadLetterTopic,
		},
	}
}

// ConsumerMetrics holds consumer counters.
type ConsumerMetrics struct {
	MessagesConsumed     atomic.Int64
	MessagesProcessed    atomic.Int64
	MessagesFailed       atomic.Int64
	MessagesRetried      atomic.Int64
	MessagesDeadLettered atomic.Int64
	Lag                  atomic.Int64
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessagePublisher sends dead letters.  *Producer satisfies it.
type MessagePublisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// NonRetryable marks handler errors that retrying cannot fix, such as
// undecodable payloads.  They go straight to the dead-letter topic.
type NonRetryable struct{ Err error }

func (e *NonRetryable) Error() string { return e.Err.Error() }
func (e *NonRetryable) Unwrap() error { return e.Err }

// Consumer reads a consumer group and dispatches by topic.  Offsets are
// committed once a message is handled, dead-lettered or dropped.
type Consumer struct {
	reader ReaderInterface
	config ConsumerConfig
	logger logging.Logger

	handlers map[string]common.MessageHandler
	mu       sync.RWMutex

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	deadLetter MessagePublisher
	metrics    *ConsumerMetrics
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewConsumer creates a new Consumer.  Dead letters go through deadLetter,
// which may be nil when no dead-letter topic is configured.
func NewConsumer(cfg ConsumerConfig, deadLetter MessagePublisher, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	applyConsumerDefaults(&cfg)

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	tlsCfg, err := cfg.Security.tlsConfig()
	if err != nil {
		return nil, err
	}
	dialer.TLS = tlsCfg
	mech, err := cfg.Security.saslMechanism()
	if err != nil {
		return nil, err
	}
	dialer.SASLMechanism = mech

	readerCfg := kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       cfg.Topics,
		MinBytes:          cfg.FetchMinBytes,
		MaxBytes:          cfg.FetchMaxBytes,
		MaxWait:           cfg.MaxWait,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		StartOffset:       kafka.FirstOffset,
		Dialer:            dialer,
	}
	if cfg.AutoOffsetReset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}

	return NewConsumerWithReader(kafka.NewReader(readerCfg), cfg, deadLetter, logger), nil
}

// NewConsumerWithReader wraps an existing reader.
func NewConsumerWithReader(r ReaderInterface, cfg ConsumerConfig, deadLetter MessagePublisher, logger logging.Logger) *Consumer {
	applyConsumerDefaults(&cfg)
	return &Consumer{
		reader:     r,
		config:     cfg,
		logger:     logger,
		handlers:   make(map[string]common.MessageHandler),
		deadLetter: deadLetter,
		metrics:    &ConsumerMetrics{},
		sleep:      sleepCtx,
	}
}

func applyConsumerDefaults(cfg *ConsumerConfig) {
	if cfg.AutoOffsetReset == "" {
		cfg.AutoOffsetReset = "earliest"
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 3 * time.Second
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 5 * time.Second
	}
	if cfg.FetchMinBytes == 0 {
		cfg.FetchMinBytes = 1
	}
	if cfg.FetchMaxBytes == 0 {
		cfg.FetchMaxBytes = 10 * 1024 * 1024
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.RetryConfig.RetryBackoff == 0 {
		cfg.RetryConfig.RetryBackoff = time.Second
	}
	if cfg.RetryConfig.MaxRetryBackoff == 0 {
		cfg.RetryConfig.MaxRetryBackoff = 30 * time.Second
	}
}

// Subscribe routes a topic to handler.
func (c *Consumer) Subscribe(topic string, handler common.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("Subscribed to topic", logging.String("topic", topic))
}

// Start launches the fetch loops and returns immediately.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	for i := 0; i < c.config.Concurrency; i++ {
		c.wg.Add(1)
		go c.consumeLoop(ctx)
	}

	c.logger.Info("Kafka consumer started",
		logging.String("group", c.config.GroupID),
		logging.Strings("topics", c.config.Topics),
		logging.Int("concurrency", c.config.Concurrency))
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for ctx.Err() == nil {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("FetchMessage failed", logging.Err(err))
			if c.sleep(ctx, time.Second) != nil {
				return
			}
			continue
		}
		c.metrics.MessagesConsumed.Add(1)
		if m.HighWaterMark > 0 {
			c.metrics.Lag.Store(m.HighWaterMark - m.Offset - 1)
		}

		c.handle(ctx, m)

		// A cancelled handler leaves the offset uncommitted so the
		// message is redelivered to the next group member.
		if ctx.Err() != nil {
			return
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("CommitMessages failed", logging.Err(err), logging.Int64("offset", m.Offset))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	msg := fromKafkaMessage(m)

	c.mu.RLock()
	handler, ok := c.handlers[m.Topic]
	c.mu.RUnlock()
	if !ok {
		c.logger.Warn("No handler for topic", logging.String("topic", m.Topic))
		return
	}

	if err := c.processMessage(ctx, msg, handler); err != nil {
		c.metrics.MessagesFailed.Add(1)
		return
	}
	c.metrics.MessagesProcessed.Add(1)
}

// processMessage runs handler with exponential backoff and dead-letters the
// message once retries run out.  The returned error is the last handler
// error.
func (c *Consumer) processMessage(ctx context.Context, msg *common.Message, handler common.MessageHandler) error {
	rc := c.config.RetryConfig
	backoff := rc.RetryBackoff
	attempts := 1

	err := handler(ctx, msg)
	for err != nil && attempts <= rc.MaxRetries && !isNonRetryable(err) {
		c.metrics.MessagesRetried.Add(1)
		if sErr := c.sleep(ctx, backoff); sErr != nil {
			return sErr
		}
		attempts++
		err = handler(ctx, msg)

		backoff *= 2
		if backoff > rc.MaxRetryBackoff {
			backoff = rc.MaxRetryBackoff
		}
	}
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	c.logger.Error("Message processing failed",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Int("attempts", attempts),
		logging.Err(err))
	c.sendDeadLetter(ctx, msg, err, attempts)
	return err
}

func (c *Consumer) sendDeadLetter(ctx context.Context, msg *common.Message, cause error, attempts int) {
	topic := c.config.RetryConfig.DeadLetterTopic
	if c.deadLetter == nil || topic == "" {
		return
	}
	headers := make(map[string]string, len(msg.Headers)+4)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderErrorMessage] = cause.Error()
	headers[HeaderAttempts] = strconv.Itoa(attempts)
	if code := errors.GetCode(cause); code != errors.CodeUnknown {
		headers[HeaderErrorCode] = string(code)
	}

	dl := &common.ProducerMessage{Topic: topic, Key: msg.Key, Value: msg.Value, Headers: headers}
	if err := c.deadLetter.Publish(ctx, dl); err != nil {
		c.logger.Error("Failed to send to dead letter topic", logging.String("topic", topic), logging.Err(err))
		return
	}
	c.metrics.MessagesDeadLettered.Add(1)
}

// Snapshot copies the counters.
func (c *Consumer) Snapshot() map[string]int64 {
	return map[string]int64{
		"consumed":      c.metrics.MessagesConsumed.Load(),
		"processed":     c.metrics.MessagesProcessed.Load(),
		"failed":        c.metrics.MessagesFailed.Load(),
		"retried":       c.metrics.MessagesRetried.Load(),
		"dead_lettered": c.metrics.MessagesDeadLettered.Load(),
		"lag":           c.metrics.Lag.Load(),
	}
}

// Running reports whether the fetch loops are active.
func (c *Consumer) Running() bool { return c.running.Load() }

// Close stops the loops, waits for in-flight handlers and closes the reader.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return c.reader.Close()
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	err := c.reader.Close()
	c.logger.Info("Kafka consumer closed", logging.Int64("consumed", c.metrics.MessagesConsumed.Load()))
	return err
}

func fromKafkaMessage(m kafka.Message) *common.Message {
	msg := &common.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

func isNonRetryable(err error) bool {
	var nr *NonRetryable
	return errors.As(err, &nr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "group id required")
	}
	if len(cfg.Topics) == 0 {
		return errors.New(errors.ErrCodeValidation, "at least one topic required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.New(errors.ErrCodeValidation, "invalid auto offset reset")
	}
	if cfg.RetryConfig.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "max retries must be >= 0")
	}
	return nil
}

//Personal.AI order the ending
