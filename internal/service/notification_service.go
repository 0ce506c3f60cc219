package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
)

// EmailResult reports a delivery attempt. Send never returns a Go error;
// failure is data, and the engine treats it as non-fatal.
type EmailResult struct {
	Success   bool
	Error     string
	RequestID string
}

// EmailSender is the outbound email collaborator contract.
type EmailSender interface {
	Send(ctx context.Context, recipients []string, subject, htmlBody string) EmailResult
}

// LogEmailSender is the default sender: it logs the delivery attempt and
// reports success. Subjects may reference tickets; bodies never contain
// secure-key plaintext.
type LogEmailSender struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewLogEmailSender builds the logging sender.
func NewLogEmailSender(logger *zap.Logger, cfg config.NotificationConfig) *LogEmailSender {
	return &LogEmailSender{logger: logger, cfg: cfg}
}

// Send logs the outbound mail and returns a generated request ID.
func (s *LogEmailSender) Send(_ context.Context, recipients []string, subject, _ string) EmailResult {
	requestID := uuid.NewString()
	if !s.cfg.Enabled {
		return EmailResult{Success: false, Error: "notifications disabled", RequestID: requestID}
	}
	s.logger.Info("email queued",
		zap.String("from", s.cfg.EmailFrom),
		zap.Strings("to", recipients),
		zap.String("subject", subject),
		zap.String("request_id", requestID))
	return EmailResult{Success: true, RequestID: requestID}
}

// NotificationService turns domain events into email notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     EmailSender
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender EmailSender, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, sender: sender, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketEvent("ticket created"))
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketEvent("ticket status changed"))
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketEvent("ticket assigned"))
	n.dispatcher.Subscribe(events.EventTicketMessageAdded, n.handleTicketEvent("new ticket message"))
}

func (n *NotificationService) handleTicketEvent(subject string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		n.logger.Info("notification event",
			zap.String("type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))

		body := fmt.Sprintf("<p>Ticket %s: %s.</p>", event.TicketID, subject)
		result := n.sender.Send(ctx, nil, subject, body)
		if !result.Success {
			n.logger.Warn("notification delivery failed",
				zap.String("type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.String("error", result.Error),
				zap.String("request_id", result.RequestID))
		}
		return nil
	}
}
