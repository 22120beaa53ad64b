package storage

import (
	"context"
	"encoding/json"

	"github.com/pawdesk/pawdesk/libs/db"
)

type Notification struct {
	AppointmentID int64
	UserID        int64
	Channel       string
	Recipient     string
	Subject       string
	Payload       map[string]any
	Status        string
}

// Contact is what the users table knows about reaching someone.
type Contact struct {
	Email string
	Phone string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (appointment_id, user_id, channel, recipient, subject, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.AppointmentID, n.UserID, n.Channel, n.Recipient, n.Subject, payload, n.Status)
	return err
}

func (r *Repository) GetContact(ctx context.Context, userID int64) (Contact, error) {
	var c Contact
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(email, ''), COALESCE(phone, '')
		FROM users
		WHERE id = $1
	`, userID).Scan(&c.Email, &c.Phone)
	return c, err
}
