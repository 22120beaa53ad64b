// Package notify turns appointment lifecycle events into outbound email and
// SMS, recording every attempt in the notifications table.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pawdesk/pawdesk/services/notification-service/internal/email"
	"github.com/pawdesk/pawdesk/services/notification-service/internal/sms"
	"github.com/pawdesk/pawdesk/services/notification-service/internal/storage"
)

const (
	EventAppointmentBooked      = "clinic.appointment.booked.v1"
	EventAppointmentRescheduled = "clinic.appointment.rescheduled.v1"
	EventAppointmentCancelled   = "clinic.appointment.cancelled.v1"
)

// AppointmentEvent mirrors the payload the clinic-service writes to its
// outbox.
type AppointmentEvent struct {
	AppointmentID   int64     `json:"appointment_id"`
	DoctorID        int64     `json:"doctor_id"`
	UserID          int64     `json:"user_id"`
	PetID           int64     `json:"pet_id"`
	StartDatetime   time.Time `json:"start_datetime"`
	EndDatetime     time.Time `json:"end_datetime"`
	AppointmentType string    `json:"appointment_type"`
	Status          string    `json:"status"`
}

type Store interface {
	Insert(ctx context.Context, n storage.Notification) error
	GetContact(ctx context.Context, userID int64) (storage.Contact, error)
}

type Notifier struct {
	store  Store
	email  email.Sender
	sms    sms.Sender
	logger *slog.Logger
}

func New(store Store, emailSender email.Sender, smsSender sms.Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		store:  store,
		email:  emailSender,
		sms:    smsSender,
		logger: logger,
	}
}

// HandleEvent processes one appointment event. Unknown event types and
// malformed payloads are logged and dropped; a failed send is recorded with
// status "failed" but is not retried, the row is the audit trail.
func (n *Notifier) HandleEvent(ctx context.Context, eventType string, payload []byte) error {
	var evt AppointmentEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		n.logger.Error("invalid appointment event payload", "err", err, "event_type", eventType)
		return nil
	}
	if evt.AppointmentID == 0 || evt.UserID == 0 {
		n.logger.Error("missing appointment event fields", "event_type", eventType)
		return nil
	}
	subject, body, ok := composeMessage(eventType, evt)
	if !ok {
		n.logger.Warn("unhandled event type", "event_type", eventType)
		return nil
	}

	contact, err := n.store.GetContact(ctx, evt.UserID)
	if err != nil {
		return fmt.Errorf("lookup contact for user %d: %w", evt.UserID, err)
	}

	if contact.Email != "" {
		status := "sent"
		if err := n.email.Send(contact.Email, subject, body); err != nil {
			status = "failed"
			n.logger.Error("email send failed", "err", err, "appointment_id", evt.AppointmentID)
		}
		if err := n.record(ctx, evt, "email", contact.Email, subject, status); err != nil {
			return err
		}
	}
	if contact.Phone != "" {
		status := "sent"
		if err := n.sms.Send(ctx, contact.Phone, body); err != nil {
			status = "failed"
			n.logger.Error("sms send failed", "err", err, "appointment_id", evt.AppointmentID)
		}
		if err := n.record(ctx, evt, "sms", contact.Phone, subject, status); err != nil {
			return err
		}
	}
	if contact.Email == "" && contact.Phone == "" {
		n.logger.Warn("user has no contact channels", "user_id", evt.UserID)
	}
	return nil
}

func (n *Notifier) record(ctx context.Context, evt AppointmentEvent, channel, recipient, subject, status string) error {
	return n.store.Insert(ctx, storage.Notification{
		AppointmentID: evt.AppointmentID,
		UserID:        evt.UserID,
		Channel:       channel,
		Recipient:     recipient,
		Subject:       subject,
		Payload: map[string]any{
			"doctor_id":        evt.DoctorID,
			"pet_id":           evt.PetID,
			"start_datetime":   evt.StartDatetime.Format(time.RFC3339),
			"appointment_type": evt.AppointmentType,
		},
		Status: status,
	})
}

func composeMessage(eventType string, evt AppointmentEvent) (subject, body string, ok bool) {
	when := evt.StartDatetime.Format("Mon, 2 Jan 2006 at 15:04")
	switch eventType {
	case EventAppointmentBooked:
		return "Appointment booked",
			fmt.Sprintf("Your %s appointment on %s has been booked and is awaiting confirmation.", evt.AppointmentType, when),
			true
	case EventAppointmentRescheduled:
		return "Appointment rescheduled",
			fmt.Sprintf("Your %s appointment has been moved to %s.", evt.AppointmentType, when),
			true
	case EventAppointmentCancelled:
		return "Appointment cancelled",
			fmt.Sprintf("Your %s appointment on %s has been cancelled.", evt.AppointmentType, when),
			true
	}
	return "", "", false
}
