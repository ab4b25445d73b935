// Package publisher provides Observer implementations that hand recorded
// events to external transports. Stream fan-out and projection mechanics
// stay outside the kernel; these observers only publish at the boundary.
package publisher

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/eskit-go/eskit/aggregate"
)

const defaultWriteTimeout = 10 * time.Second

// KafkaObserver publishes every recorded event to a Kafka topic, keyed
// by originator id so one aggregate's events stay in partition order.
// Publishing is best effort: a failed write is reported through
// OnObserveFailed by the Repository and never fails the save.
type KafkaObserver struct {
	writer     *kafka.Writer
	serializer aggregate.Serializer
	timeout    time.Duration
	onFailed   func(error)
}

// KafkaOption configures a KafkaObserver.
type KafkaOption func(*KafkaObserver)

// WithWriteTimeout bounds each publish call (default 10s).
func WithWriteTimeout(d time.Duration) KafkaOption {
	return func(o *KafkaObserver) { o.timeout = d }
}

// WithFailureHandler installs a callback for publish failures.
func WithFailureHandler(fn func(error)) KafkaOption {
	return func(o *KafkaObserver) { o.onFailed = fn }
}

// NewKafkaObserver builds an observer over an existing writer. The
// serializer should be the same one the repository records with, so
// consumers see the stored representation.
func NewKafkaObserver(writer *kafka.Writer, serializer aggregate.Serializer, opts ...KafkaOption) *KafkaObserver {
	o := &KafkaObserver{
		writer:     writer,
		serializer: serializer,
		timeout:    defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WillObserve implements the aggregate.Observer interface
func (o *KafkaObserver) WillObserve(_ *aggregate.Root, _ aggregate.Event) bool {
	return true
}

// Observe implements the aggregate.Observer interface
func (o *KafkaObserver) Observe(_ *aggregate.Root, event aggregate.Event) error {
	record, err := o.serializer.MarshalEvent(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	return o.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OriginatorID()),
		Value: record.Data,
	})
}

// OnObserveFailed implements the aggregate.Observer interface
func (o *KafkaObserver) OnObserveFailed(err error) {
	if o.onFailed != nil {
		o.onFailed(err)
	}
}
