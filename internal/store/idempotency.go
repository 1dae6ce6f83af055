package store

import (
	"database/sql"
	"fmt"
	"time"
)

// IdempotencyStore persists award responses keyed by the client-supplied
// Idempotency-Key header so retried requests replay instead of double-crediting.
type IdempotencyStore struct {
	db *sql.DB
}

func NewIdempotencyStore(db *sql.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Get returns the stored response for (key, userID), or ok=false.
func (s *IdempotencyStore) Get(key string, userID int64) (status int, body []byte, ok bool, err error) {
	row := s.db.QueryRow(
		`SELECT response_status, response_body FROM idempotency_keys WHERE key = ? AND user_id = ?`,
		key, userID,
	)
	err = row.Scan(&status, &body)
	if err == sql.ErrNoRows {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("get idempotency key: %w", err)
	}
	return status, body, true, nil
}

// Save records a response for later replay. A concurrent duplicate insert is
// ignored; the first stored response wins.
func (s *IdempotencyStore) Save(key string, userID int64, status int, body []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO idempotency_keys (key, user_id, response_status, response_body) VALUES (?, ?, ?, ?)
		 ON CONFLICT (key, user_id) DO NOTHING`,
		key, userID, status, body,
	)
	if err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	return nil
}

// PurgeOlderThan deletes stored responses past their useful retry window.
// The cutoff is computed in SQL so it compares against CURRENT_TIMESTAMP
// in the same format the rows were written with.
func (s *IdempotencyStore) PurgeOlderThan(age time.Duration) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM idempotency_keys WHERE created_at < datetime('now', ?)`,
		fmt.Sprintf("-%d seconds", int(age.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("purge idempotency keys: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
