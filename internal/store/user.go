package store

import (
	"database/sql"
	"fmt"

	"github.com/GollaBharath/Gamify/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var passwordHash sql.NullString
	var googleID sql.NullString

	err := scanner.Scan(&u.ID, &u.Username, &u.Email, &passwordHash, &googleID, &u.Role, &u.Points, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	u.PasswordHash = passwordHash.String
	if googleID.Valid {
		u.GoogleID = &googleID.String
	}
	return &u, nil
}

const userCols = `id, username, email, password_hash, google_id, role, points, created_at, updated_at`

// Create inserts a locally-registered user. passwordHash may be empty for
// accounts created through an OAuth provider.
func (s *UserStore) Create(username, email, passwordHash, role string) (*model.User, error) {
	var hash sql.NullString
	if passwordHash != "" {
		hash = sql.NullString{String: passwordHash, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO users (username, email, password_hash, role) VALUES (?, ?, ?, ?)`,
		username, email, hash, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// CreateFromGoogle inserts a user provisioned from a Google profile.
func (s *UserStore) CreateFromGoogle(googleID, username, email string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (username, email, google_id, role) VALUES (?, ?, ?, 'Member')`,
		username, email, googleID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert google user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByGoogleID(googleID string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE google_id = ?`, googleID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by google id: %w", err)
	}
	return u, nil
}

// GetByEmailOrUsername backs the duplicate check at registration: one account
// per login identity.
func (s *UserStore) GetByEmailOrUsername(email, username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ? OR username = ?`, email, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email or username: %w", err)
	}
	return u, nil
}

// SetRole updates a user's role. Only values from the closed role set should
// reach this; callers validate with auth.ParseRole.
func (s *UserStore) SetRole(id int64, role string) error {
	_, err := s.db.Exec(
		`UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}
