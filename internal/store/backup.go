package store

import (
	"database/sql"
	"fmt"

	"github.com/GollaBharath/Gamify/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

func (s *BackupStore) Record(objectKey string, sizeBytes int64) (*model.BackupRecord, error) {
	result, err := s.db.Exec(
		`INSERT INTO backups (object_key, size_bytes) VALUES (?, ?)`,
		objectKey, sizeBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert backup record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT id, object_key, size_bytes, created_at FROM backups WHERE id = ?`, id)
	var rec model.BackupRecord
	if err := row.Scan(&rec.ID, &rec.ObjectKey, &rec.SizeBytes, &rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("get backup record: %w", err)
	}
	return &rec, nil
}

// List returns backup records newest first.
func (s *BackupStore) List(limit int) ([]model.BackupRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, object_key, size_bytes, created_at FROM backups ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var recs []model.BackupRecord
	for rows.Next() {
		var rec model.BackupRecord
		if err := rows.Scan(&rec.ID, &rec.ObjectKey, &rec.SizeBytes, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan backup record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
