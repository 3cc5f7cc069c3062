package queue

import (
	"context"
	"encoding/json"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/dto"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/interfaces"
)

// MailPublisher hands rendered emails to the mail worker over Kafka.
type MailPublisher struct {
	producer interfaces.ProducerHandler
}

func NewMailPublisher(producer interfaces.ProducerHandler) *MailPublisher {
	return &MailPublisher{producer: producer}
}

func (m *MailPublisher) Send(ctx context.Context, msg dto.MailMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return m.producer.PublishMessage(ctx, []byte("mail."+msg.Kind), value)
}

func (m *MailPublisher) Queues() bool { return true }
