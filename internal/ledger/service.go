package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/GollaBharath/Gamify/internal/auth"
	"github.com/GollaBharath/Gamify/internal/model"
)

var (
	// ErrUserNotFound means the award target does not exist. No writes are
	// visible when this is returned.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidAmount covers zero and negative amounts; only credits exist.
	ErrInvalidAmount = errors.New("amount must be a positive integer")
	// ErrMissingReason covers an absent or blank justification.
	ErrMissingReason = errors.New("reason is required")
)

// Service owns the transactions table: it appends ledger entries and serves
// the history read path. The balance on users and the matching ledger row are
// written inside one SQL transaction, with the balance change expressed as an
// in-place increment, so concurrent awards can neither lose updates nor leave
// the balance and the ledger disagreeing.
type Service struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// AwardResult reports the created ledger entry and the balance after it.
type AwardResult struct {
	Transaction model.Transaction `json:"transaction"`
	Balance     int               `json:"balance"`
}

// Award credits amount points to userID, attributed to actorID. The caller's
// authorization has already been checked by the role middleware; this method
// does not re-check it.
func (s *Service) Award(ctx context.Context, actorID, userID int64, amount int, reason string) (*AwardResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrMissingReason
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin award tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE users SET points = points + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		amount, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("increment points: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrUserNotFound
	}

	reference := uuid.NewString()
	inserted, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (reference, user_id, actor_id, amount, type, reason) VALUES (?, ?, ?, ?, ?, ?)`,
		reference, userID, actorID, amount, model.TypeCredit, reason,
	)
	if err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}
	txnID, err := inserted.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	var txn model.Transaction
	row := tx.QueryRowContext(ctx,
		`SELECT id, reference, user_id, actor_id, amount, type, reason, created_at FROM transactions WHERE id = ?`,
		txnID,
	)
	if err := row.Scan(&txn.ID, &txn.Reference, &txn.UserID, &txn.ActorID, &txn.Amount, &txn.Type, &txn.Reason, &txn.CreatedAt); err != nil {
		return nil, fmt.Errorf("read transaction: %w", err)
	}

	var balance int
	if err := tx.QueryRowContext(ctx, `SELECT points FROM users WHERE id = ?`, userID).Scan(&balance); err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit award: %w", err)
	}

	s.logger.Info("points awarded",
		"user_id", userID,
		"actor_id", actorID,
		"amount", amount,
		"balance", balance,
		"reference", reference,
	)

	return &AwardResult{Transaction: txn, Balance: balance}, nil
}

const historyQuery = `
SELECT t.id, t.reference, t.user_id, t.actor_id, t.amount, t.type, t.reason, t.created_at,
       u.username, u.email, a.username, a.email
FROM transactions t
JOIN users u ON u.id = t.user_id
JOIN users a ON a.id = t.actor_id
`

// History returns transactions newest first, each joined with the user's and
// actor's display fields. Members are always scoped to their own history no
// matter what filter they pass; privileged roles may filter by user id or,
// with filterUserID zero, read across all accounts.
func (s *Service) History(ctx context.Context, requesterID int64, requesterRole auth.Role, filterUserID int64) ([]model.TransactionDetail, error) {
	if !requesterRole.CanViewAllHistory() {
		filterUserID = requesterID
	}

	query := historyQuery
	var args []any
	if filterUserID != 0 {
		query += `WHERE t.user_id = ?
`
		args = append(args, filterUserID)
	}
	query += `ORDER BY t.created_at DESC, t.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var details []model.TransactionDetail
	for rows.Next() {
		var d model.TransactionDetail
		err := rows.Scan(
			&d.ID, &d.Reference, &d.UserID, &d.ActorID, &d.Amount, &d.Type, &d.Reason, &d.CreatedAt,
			&d.User.Username, &d.User.Email, &d.Actor.Username, &d.Actor.Email,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		d.User.ID = d.UserID
		d.Actor.ID = d.ActorID
		details = append(details, d)
	}
	return details, rows.Err()
}

// Drift is a user whose stored balance no longer equals the sum of their
// ledger entries.
type Drift struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Points    int    `json:"points"`
	LedgerSum int    `json:"ledger_sum"`
}

// VerifyBalances recomputes every balance from the ledger and reports any
// user whose points column disagrees. With all writes going through Award
// this returns nothing; it exists so drift from operator intervention or
// partial restores is detectable rather than silent.
func (s *Service) VerifyBalances(ctx context.Context) ([]Drift, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.points, COALESCE(SUM(t.amount), 0) AS ledger_sum
		FROM users u
		LEFT JOIN transactions t ON t.user_id = u.id
		GROUP BY u.id
		HAVING u.points <> COALESCE(SUM(t.amount), 0)
	`)
	if err != nil {
		return nil, fmt.Errorf("verify balances: %w", err)
	}
	defer rows.Close()

	var drifts []Drift
	for rows.Next() {
		var d Drift
		if err := rows.Scan(&d.UserID, &d.Username, &d.Points, &d.LedgerSum); err != nil {
			return nil, fmt.Errorf("scan drift row: %w", err)
		}
		drifts = append(drifts, d)
	}
	return drifts, rows.Err()
}
