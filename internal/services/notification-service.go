package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/domain"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/dto"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper/utils"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/interfaces"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/logging"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/repository"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/templates"
)

var ErrMailerUnavailable = errors.New("mailer not configured")

const (
	subjectVerify = "Verifikasi Email Anda"
	subjectReset  = "Reset Password"
)

// NotificationService renders account emails and dispatches them. Every
// dispatch is recorded in the notifications table first; the record's status
// is the only thing updated with the outcome.
type NotificationService struct {
	repo        repository.NotificationRepository
	mailer      interfaces.Mailer
	log         logging.Logger
	frontendURL string
}

func NewNotificationService(repo repository.NotificationRepository, mailer interfaces.Mailer, log logging.Logger, frontendURL string) *NotificationService {
	return &NotificationService{repo: repo, mailer: mailer, log: log, frontendURL: frontendURL}
}

func (n *NotificationService) SendVerification(ctx context.Context, user *domain.User, tok IssuedToken, ttlText string, resend bool) error {
	html, err := templates.Render(templates.VerifyEmail, templates.LinkData{
		Name:      user.Name,
		Link:      n.frontendURL + "/verify-email/" + tok.Plain,
		ExpiresIn: ttlText,
		Resend:    resend,
	})
	if err != nil {
		return err
	}
	return n.dispatch(ctx, user, domain.NotificationVerifyEmail, subjectVerify, html)
}

func (n *NotificationService) SendPasswordReset(ctx context.Context, user *domain.User, tok IssuedToken, ttlText string) error {
	html, err := templates.Render(templates.ResetPassword, templates.LinkData{
		Name:      user.Name,
		Link:      n.frontendURL + "/reset-password/" + tok.Plain,
		ExpiresIn: ttlText,
	})
	if err != nil {
		return err
	}
	return n.dispatch(ctx, user, domain.NotificationResetPassword, subjectReset, html)
}

func (n *NotificationService) dispatch(ctx context.Context, user *domain.User, kind, subject, html string) error {
	record := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Kind:      kind,
		Channel:   domain.ChannelEmail,
		Recipient: user.Email,
		Subject:   subject,
		Status:    domain.NotificationPending,
	}
	recorded := true
	if err := n.repo.Create(ctx, record); err != nil {
		// still try to deliver; the record is bookkeeping only
		recorded = false
		n.log.Error(ctx, "notification record failed", "kind", kind, "user_id", user.ID, "error", err)
	}
	// an unrecorded message carries no id so the worker has nothing to update
	notificationID := record.ID
	if !recorded {
		notificationID = ""
	}

	var sendErr error
	if n.mailer == nil {
		sendErr = ErrMailerUnavailable
	} else {
		sendErr = n.mailer.Send(ctx, dto.MailMessage{
			NotificationID: notificationID,
			Kind:           kind,
			To:             user.Email,
			Subject:        subject,
			HTML:           html,
		})
	}

	if sendErr != nil {
		n.log.Warn(ctx, "notification dispatch failed",
			"kind", kind, "user_id", user.ID, "to", utils.MaskEmail(user.Email), "error", sendErr)
	}
	if recorded {
		n.RecordOutcome(ctx, record.ID, n.successStatus(), sendErr)
	}
	return sendErr
}

func (n *NotificationService) successStatus() string {
	if q, ok := n.mailer.(interfaces.QueueingMailer); ok && q.Queues() {
		return domain.NotificationQueued
	}
	return domain.NotificationSent
}

// RecordOutcome stores the result of one delivery attempt. The mail worker
// calls it with NotificationSent after draining the queue.
func (n *NotificationService) RecordOutcome(ctx context.Context, id, okStatus string, sendErr error) {
	if id == "" {
		return
	}
	status := okStatus
	var lastErr *string
	if sendErr != nil {
		status = domain.NotificationFailed
		msg := sendErr.Error()
		lastErr = &msg
	}
	if err := n.repo.MarkAttempt(ctx, id, status, lastErr); err != nil {
		n.log.Error(ctx, "notification status update failed", "id", id, "error", err)
	}
}
