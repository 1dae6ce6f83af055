package store

import (
	"database/sql"
	"fmt"

	"github.com/GollaBharath/Gamify/internal/model"
)

type SubscriberStore struct {
	db *sql.DB
}

func NewSubscriberStore(db *sql.DB) *SubscriberStore {
	return &SubscriberStore{db: db}
}

func scanSubscriber(scanner interface{ Scan(...any) error }) (*model.Subscriber, error) {
	var s model.Subscriber
	var subscribed int
	var unsubscribedAt sql.NullTime

	err := scanner.Scan(&s.ID, &s.Email, &subscribed, &s.SubscribedAt, &unsubscribedAt)
	if err != nil {
		return nil, err
	}

	s.Subscribed = subscribed != 0
	if unsubscribedAt.Valid {
		s.UnsubscribedAt = &unsubscribedAt.Time
	}
	return &s, nil
}

const subscriberCols = `id, email, subscribed, subscribed_at, unsubscribed_at`

func (s *SubscriberStore) Create(email string) (*model.Subscriber, error) {
	result, err := s.db.Exec(`INSERT INTO subscribers (email) VALUES (?)`, email)
	if err != nil {
		return nil, fmt.Errorf("insert subscriber: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+subscriberCols+` FROM subscribers WHERE id = ?`, id)
	return scanSubscriber(row)
}

func (s *SubscriberStore) GetByEmail(email string) (*model.Subscriber, error) {
	row := s.db.QueryRow(`SELECT `+subscriberCols+` FROM subscribers WHERE email = ?`, email)
	sub, err := scanSubscriber(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	return sub, nil
}

// Resubscribe reactivates a previously unsubscribed address.
func (s *SubscriberStore) Resubscribe(email string) error {
	_, err := s.db.Exec(
		`UPDATE subscribers SET subscribed = 1, subscribed_at = CURRENT_TIMESTAMP, unsubscribed_at = NULL WHERE email = ?`,
		email,
	)
	if err != nil {
		return fmt.Errorf("resubscribe: %w", err)
	}
	return nil
}

func (s *SubscriberStore) Unsubscribe(email string) error {
	_, err := s.db.Exec(
		`UPDATE subscribers SET subscribed = 0, unsubscribed_at = CURRENT_TIMESTAMP WHERE email = ?`,
		email,
	)
	if err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

// ListSubscribed returns every active subscriber for a bulk send.
func (s *SubscriberStore) ListSubscribed() ([]model.Subscriber, error) {
	rows, err := s.db.Query(`SELECT ` + subscriberCols + ` FROM subscribers WHERE subscribed = 1 ORDER BY subscribed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// CountSubscribed returns the number of active subscribers.
func (s *SubscriberStore) CountSubscribed() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM subscribers WHERE subscribed = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return count, nil
}
