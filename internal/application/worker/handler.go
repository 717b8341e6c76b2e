package worker

import (
	"context"
	"time"

	kafkainfra "github.com/turtacn/compound-analysis/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
)

// Handler adapts the processor to the queue consumer. Malformed records are
// returned as errors so the consumer dead-letters them when configured.
func (p *Processor) Handler() kafkainfra.MessageHandler {
	return func(ctx context.Context, msg *kafkainfra.Message) error {
		start := time.Now()
		var sub kafkainfra.SubmissionMessage
		err := kafkainfra.DecodeEvent(msg, &sub)
		if err == nil {
			err = sub.Validate()
		}
		if err != nil {
			p.logger.Warn("malformed submission",
				logging.String("topic", msg.Topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
			p.opts.Metrics.RecordQueueMessage(msg.Topic, time.Since(start), err)
			return err
		}

		err = p.Process(ctx, sub)
		p.opts.Metrics.RecordQueueMessage(msg.Topic, time.Since(start), err)
		return err
	}
}

//Personal.AI order the ending
