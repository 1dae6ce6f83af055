package model

import "time"

type Subscriber struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	Subscribed     bool       `json:"subscribed"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`
}
