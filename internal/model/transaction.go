package model

import "time"

// TypeCredit is the only transaction type with a write path; the amount
// column stays signed so a future debit path does not need a migration.
const TypeCredit = "credit"

type Transaction struct {
	ID        int64     `json:"id"`
	Reference string    `json:"reference"`
	UserID    int64     `json:"user_id"`
	ActorID   int64     `json:"actor_id"`
	Amount    int       `json:"amount"`
	Type      string    `json:"type"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRef carries the display fields joined onto history rows at read time.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type TransactionDetail struct {
	Transaction
	User  UserRef `json:"user"`
	Actor UserRef `json:"actor"`
}
