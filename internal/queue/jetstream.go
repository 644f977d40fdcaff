package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName     = "NOTIFICATIONS"
	SubjectPrefix  = "notifications"
	SubjectPattern = "notifications.*"

	// Log subjects
	SubjectImmediate = "notifications.immediate"
	SubjectProcess   = "notifications.process"
)

// Queue is the durable at-least-once log. A successful Publish is persisted;
// Consume binds a durable consumer that replays from the start of the stream
// on first bind and acknowledges per message.
type Queue interface {
	Publish(subject string, v interface{}) error
	Consume(subject string, handler func(data []byte) error) error
	Close()
}

// JetStreamQueue backs the Queue contract with a single NATS JetStream
// stream covering all notifications.* subjects.
type JetStreamQueue struct {
	nc *nats.Conn
	js jetstream.JetStream

	consumeContexts []jetstream.ConsumeContext
}

// NewJetStreamQueue connects to NATS and ensures the notifications stream
// exists.
func NewJetStreamQueue(url string) (*JetStreamQueue, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("init JetStream: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPattern},
		Storage:  jetstream.FileStorage,
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", StreamName, err)
	}

	log.Printf("Connected to NATS JetStream (stream=%s)", StreamName)
	return &JetStreamQueue{nc: nc, js: js}, nil
}

// Publish JSON-encodes v and appends it to the stream, waiting for the
// JetStream ack so a nil return means the message is persisted.
func (q *JetStreamQueue) Publish(subject string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", subject, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := q.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Consume binds (creating if absent) a durable explicit-ack consumer filtered
// to subject and invokes handler once per message in publish order. Handler
// success acks the message; handler failure leaves it unacknowledged for
// redelivery.
func (q *JetStreamQueue) Consume(subject string, handler func(data []byte) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	durable := consumerName(subject)
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
		MaxDeliver:    -1,
	})
	if err != nil {
		return fmt.Errorf("ensure consumer %s: %w", durable, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(msg.Data()); err != nil {
			log.Printf("Error processing message on %s: %v", subject, err)
			return
		}
		if err := msg.Ack(); err != nil {
			log.Printf("Error acking message on %s: %v", subject, err)
		}
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", subject, err)
	}

	q.consumeContexts = append(q.consumeContexts, cc)
	log.Printf("Durable consumer %s bound to %s", durable, subject)
	return nil
}

// Close drains consumers and the connection.
func (q *JetStreamQueue) Close() {
	for _, cc := range q.consumeContexts {
		cc.Stop()
	}
	if q.nc != nil {
		if err := q.nc.Drain(); err != nil {
			log.Printf("Error draining NATS connection: %v", err)
		}
	}
}

func consumerName(subject string) string {
	return strings.ReplaceAll(subject, ".", "_") + "_consumer"
}
