// Package kafka carries the queue side of the pipeline: the submission
// consumer used by the worker, the producers for submission and
// visualization-ready events, the event envelope and topic provisioning.
package kafka

import (
	"context"
	"time"
)

// Message is a consumed record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string]string
}

// ProducerMessage is a record to publish.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one consumed record. A returned error is retried
// up to the configured limit; the record is committed either way.
type MessageHandler func(ctx context.Context, msg *Message) error

//Personal.AI order the ending
