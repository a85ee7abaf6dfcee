package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Message wraps a Job with its RabbitMQ delivery information
type Message struct {
	Job         *Job
	DeliveryTag uint64
	Channel     *amqp.Channel
}

// Ack acknowledges the message
func (m *Message) Ack() error {
	if m.Channel == nil {
		return fmt.Errorf("ack %s: %w", m.describe(), ErrQueueClosed)
	}
	if err := m.Channel.Ack(m.DeliveryTag, false); err != nil {
		return fmt.Errorf("ack %s: %w", m.describe(), err)
	}
	return nil
}

// Nack negatively acknowledges the message. Without requeue the broker
// dead-letters it.
func (m *Message) Nack(requeue bool) error {
	if m.Channel == nil {
		return fmt.Errorf("nack %s: %w", m.describe(), ErrQueueClosed)
	}
	if err := m.Channel.Nack(m.DeliveryTag, false, requeue); err != nil {
		return fmt.Errorf("nack %s: %w", m.describe(), err)
	}
	return nil
}

// GetJob returns the decoded job
func (m *Message) GetJob() *Job {
	return m.Job
}

// LogFields ties a log entry to the job, its node and the delivery
func (m *Message) LogFields() []zap.Field {
	return append(JobLogFields(m.Job), zap.Uint64("delivery_tag", m.DeliveryTag))
}

func (m *Message) describe() string {
	if m.Job == nil {
		return fmt.Sprintf("delivery %d", m.DeliveryTag)
	}
	if m.Job.NodeID != nil {
		return fmt.Sprintf("%s job %s for node %s", m.Job.Type, m.Job.ID, *m.Job.NodeID)
	}
	return fmt.Sprintf("%s job %s", m.Job.Type, m.Job.ID)
}

var _ MessageInterface = (*Message)(nil)
