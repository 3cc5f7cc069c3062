package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/domain"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/dto"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper/utils"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/interfaces"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/logging"
)

// OutcomeRecorder stores the delivery result on the notification record.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, id, okStatus string, sendErr error)
}

// MailHandler consumes queued MailMessages and delivers them over SMTP.
type MailHandler struct {
	mailer   interfaces.Mailer
	outcomes OutcomeRecorder
	log      logging.Logger
}

func NewMailHandler(mailer interfaces.Mailer, outcomes OutcomeRecorder, log logging.Logger) *MailHandler {
	if log == nil {
		log = logging.Nop()
	}
	return &MailHandler{mailer: mailer, outcomes: outcomes, log: log}
}

func (h *MailHandler) HandleMessage(ctx context.Context, key, value []byte) error {
	var msg dto.MailMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		h.log.Warn(ctx, "invalid mail payload", "key", string(key), "error", err)
		return fmt.Errorf("decode mail message: %w", err)
	}
	if msg.To == "" {
		return fmt.Errorf("mail message %s has no recipient", msg.NotificationID)
	}

	err := h.mailer.Send(ctx, msg)
	if h.outcomes != nil {
		h.outcomes.RecordOutcome(ctx, msg.NotificationID, domain.NotificationSent, err)
	}
	if err != nil {
		return fmt.Errorf("send %s mail: %w", msg.Kind, err)
	}

	h.log.Info(ctx, "mail delivered", "kind", msg.Kind, "to", utils.MaskEmail(msg.To), "notification_id", msg.NotificationID)
	return nil
}
