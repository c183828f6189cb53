// Package consumer polls Kafka in batches, hands each batch to a handler and
// moves the records the handler reports as failed to a retry or dead-letter
// topic before committing.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// AttemptHeader counts deliveries of a record across retry hops.
const AttemptHeader = "x-attempt"

// Message is a transport-neutral view of one record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ID identifies a message within a batch.
func (m *Message) ID() string {
	return m.Topic + "/" + strconv.FormatInt(int64(m.Partition), 10) + "/" + strconv.FormatInt(m.Offset, 10)
}

// Attempt is the delivery count carried in the headers, starting at 1.
func (m *Message) Attempt() int {
	n, err := strconv.Atoi(m.Headers[AttemptHeader])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// BatchHandler processes a batch and returns the ids of the messages that
// failed. Failures of one message never affect the others.
type BatchHandler interface {
	HandleBatch(ctx context.Context, msgs []*Message) (failedIDs []string)
}

// Republisher re-produces failed messages.
type Republisher interface {
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

// Config describes one consumer group.
type Config struct {
	Brokers     []string
	Group       string
	Topics      []string
	RetryTopic  string
	DLQTopic    string
	MaxAttempts int
	MaxPoll     int
}

// Consumer owns the franz-go client.
type Consumer struct {
	cfg         Config
	client      *kgo.Client
	handler     BatchHandler
	republisher Republisher
	logger      *slog.Logger
	metrics     *Metrics
}

// Option configures the Consumer.
type Option func(*Consumer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Consumer) {
		c.metrics = m
	}
}

// WithRepublisher overrides where failed messages go. Defaults to a producer
// on the consumer's own client.
func WithRepublisher(r Republisher) Option {
	return func(c *Consumer) {
		c.republisher = r
	}
}

// New joins the consumer group. Offsets are committed manually after each
// batch has been handled.
func New(cfg Config, handler BatchHandler, opts ...Option) (*Consumer, error) {
	if len(cfg.Topics) == 0 {
		return nil, errors.New("consumer requires at least one topic")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxPoll <= 0 {
		cfg.MaxPoll = 10
	}
	topics := cfg.Topics
	if cfg.RetryTopic != "" {
		topics = append(append([]string{}, topics...), cfg.RetryTopic)
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	c := &Consumer{cfg: cfg, client: client, handler: handler, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.republisher == nil {
		c.republisher = clientRepublisher{client: client}
	}
	return c, nil
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()
	for {
		fetches := c.client.PollRecords(ctx, c.cfg.MaxPoll)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		for _, fe := range fetches.Errors() {
			c.logger.ErrorContext(ctx, "kafka fetch error", "topic", fe.Topic, "partition", fe.Partition, "error", fe.Err)
		}

		var msgs []*Message
		fetches.EachRecord(func(r *kgo.Record) {
			msgs = append(msgs, fromRecord(r))
		})
		if len(msgs) > 0 {
			if err := c.process(ctx, msgs); err != nil {
				c.client.AllowRebalance()
				return err
			}
			if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
				c.logger.ErrorContext(ctx, "kafka commit failed", "error", err)
			}
		}
		c.client.AllowRebalance()
	}
}

// process hands the batch over and reroutes failures. An error means the
// batch must not be committed.
func (c *Consumer) process(ctx context.Context, msgs []*Message) error {
	failed := c.handler.HandleBatch(ctx, msgs)
	c.metrics.ObserveBatch(len(msgs), len(failed))
	if len(failed) == 0 {
		return nil
	}
	byID := make(map[string]*Message, len(msgs))
	for _, m := range msgs {
		byID[m.ID()] = m
	}
	for _, fid := range failed {
		m, ok := byID[fid]
		if !ok {
			c.logger.WarnContext(ctx, "handler reported unknown message id", "message_id", fid)
			continue
		}
		if err := c.reroute(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) reroute(ctx context.Context, m *Message) error {
	next := m.Attempt() + 1
	topic := c.cfg.RetryTopic
	if next > c.cfg.MaxAttempts || topic == "" {
		topic = c.cfg.DLQTopic
	}
	if topic == "" {
		c.logger.ErrorContext(ctx, "dropping failed message, no retry or dead-letter topic", "message_id", m.ID())
		return nil
	}
	headers := make(map[string]string, len(m.Headers)+1)
	for k, v := range m.Headers {
		headers[k] = v
	}
	headers[AttemptHeader] = strconv.Itoa(next)
	if err := c.republisher.Publish(ctx, topic, string(m.Key), m.Value, headers); err != nil {
		return fmt.Errorf("reroute %s: %w", m.ID(), err)
	}
	c.metrics.IncRerouted(topic)
	c.logger.WarnContext(ctx, "message rerouted", "message_id", m.ID(), "topic", topic, "attempt", next)
	return nil
}

func fromRecord(r *kgo.Record) *Message {
	headers := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   headers,
		Timestamp: r.Timestamp,
	}
}

type clientRepublisher struct {
	client *kgo.Client
}

func (p clientRepublisher) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	rec := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	for k, v := range headers {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	return p.client.ProduceSync(ctx, rec).FirstErr()
}
