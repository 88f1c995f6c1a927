package job

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/rabbitmq/amqp091-go"

	"github.com/dmvolok/sdbench/internal/sdnext"
)

var _ Source = (*AMQPQueueSource)(nil)

// AMQPQueueSource fetches jobs from a RabbitMQ queue. Deliveries are taken
// with a basic get and acknowledged manually from Complete, which gives the
// same at-least-once lifecycle as the HTTP queue: an unacked delivery is
// requeued when the connection drops.
type AMQPQueueSource struct {
	Template sdnext.GenerationRequest
	URL      string
	Queue    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	ch      *amqp091.Channel
	pending map[string]amqp091.Delivery
}

func (s *AMQPQueueSource) Next(ctx context.Context) (*Job, error) {
	ch, err := s.channel()
	if err != nil {
		return nil, fmt.Errorf("job.AMQPQueueSource: %w", err)
	}

	d, ok, err := ch.Get(s.Queue, false)
	if err != nil {
		s.reset()
		return nil, fmt.Errorf("job.AMQPQueueSource: %w", err)
	}
	if !ok {
		return nil, ErrNoJob
	}

	var desc descriptor
	if err = json.Unmarshal(d.Body, &desc); err != nil {
		_ = d.Nack(false, false)
		return nil, fmt.Errorf("job.AMQPQueueSource: invalid message body: %w", err)
	}

	j, err := desc.job(s.Template)
	if err != nil {
		_ = d.Nack(false, false)
		return nil, err
	}
	j.MessageID = strconv.FormatUint(d.DeliveryTag, 10)

	s.mu.Lock()
	if s.pending == nil {
		s.pending = make(map[string]amqp091.Delivery)
	}
	s.pending[j.MessageID] = d
	s.mu.Unlock()

	return j, nil
}

// Complete acks the job's delivery.
func (s *AMQPQueueSource) Complete(ctx context.Context, j *Job) error {
	s.mu.Lock()
	d, ok := s.pending[j.MessageID]
	delete(s.pending, j.MessageID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job.AMQPQueueSource: no pending delivery for message %q", j.MessageID)
	}

	if err := d.Ack(false); err != nil {
		return fmt.Errorf("job.AMQPQueueSource: %w", err)
	}
	return nil
}

func (s *AMQPQueueSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.ch = nil
	return err
}

func (s *AMQPQueueSource) channel() (*amqp091.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch != nil && !s.ch.IsClosed() {
		return s.ch, nil
	}

	conn, err := amqp091.Dial(s.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	_, err = ch.QueueDeclare(s.Queue, true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err = ch.Qos(1, 0, false); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s.conn = conn
	s.ch = ch
	return ch, nil
}

func (s *AMQPQueueSource) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = nil
	s.ch = nil
}
