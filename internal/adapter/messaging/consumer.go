package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/catalog-service/internal/port"
)

const (
	DefaultTopic = "inventory.deleted"
	DefaultGroup = "catalog-service"

	defaultRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 30 * time.Second
)

// MessageReader is the part of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeletionHandler reacts to an inventory record being deleted. A non-nil
// error means the event should be handled again.
type DeletionHandler interface {
	Handle(ctx context.Context, sku string) error
}

type inventoryDeleted struct {
	SKU string `json:"sku"`
}

// Consumer feeds inventory deletion events to a DeletionHandler. A message is
// committed once handled, malformed ones included. Failed handling is retried
// with backoff and the message stays uncommitted until it succeeds.
type Consumer struct {
	logger       *zap.Logger
	reader       MessageReader
	handler      DeletionHandler
	idem         port.CacheRepository
	tracer       trace.Tracer
	retryBackoff time.Duration
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

// NewConsumer builds a consumer. idem may be nil, in which case redelivered
// messages are handled again; the deactivation they trigger is idempotent.
func NewConsumer(logger *zap.Logger, reader MessageReader, handler DeletionHandler, idem port.CacheRepository) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		logger:       logger,
		reader:       reader,
		handler:      handler,
		idem:         idem,
		tracer:       otel.Tracer("catalog-service/consumer"),
		retryBackoff: defaultRetryBackoff,
	}
}

// Run consumes until ctx is cancelled or the reader fails. A message whose
// handling is interrupted by cancellation is left uncommitted so the broker
// redelivers it.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.process(ctx, msg); err != nil {
			c.logger.Warn("message left uncommitted", zap.String("key", messageKey(msg)), zap.Error(err))
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			// A redelivery of this offset must be handled, not skipped.
			c.release(ctx, msg)
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("commit failed", zap.String("key", messageKey(msg)), zap.Error(err))
		}
	}
}

// process handles msg, retrying failures until they succeed or ctx ends.
// The dedupe claim is held while retrying and released when giving up.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	key := messageKey(msg)
	log := c.logger.With(zap.String("key", key))

	if c.idem != nil {
		fresh, err := c.idem.SetIdempotency(ctx, key)
		switch {
		case err != nil:
			log.Warn("idempotency check failed, handling anyway", zap.Error(err))
		case !fresh:
			log.Info("duplicate message skipped")
			return nil
		}
	}

	var ev inventoryDeleted
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		log.Error("unmarshal failed", zap.Error(err))
		return nil
	}
	ev.SKU = strings.TrimSpace(ev.SKU)

	backoff := c.retryBackoff
	for attempt := 1; ; attempt++ {
		err := c.handle(ctx, msg, ev.SKU)
		if err == nil {
			return nil
		}
		log.Warn("handling failed, retrying", zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			c.release(ctx, msg)
			return fmt.Errorf("handle %s: %w", ev.SKU, err)
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, sku string) error {
	msgCtx := ExtractHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeInventoryDeleted",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
			attribute.String("inventory.sku", sku),
		))
	defer span.End()

	if err := c.handler.Handle(msgCtx, sku); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (c *Consumer) release(ctx context.Context, msg kafka.Message) {
	if c.idem == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.idem.ReleaseIdempotency(ctx, messageKey(msg)); err != nil {
		c.logger.Error("release idempotency key failed", zap.String("key", messageKey(msg)), zap.Error(err))
	}
}

func messageKey(msg kafka.Message) string {
	return fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}
