package domain

import "time"

type AccountID string

// Identity is an externally authenticated principal resolved from a session token.
type Identity struct {
	AccountID AccountID
	Email     string
}

// Account is a row of the external accounts store.
type Account struct {
	ID        AccountID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
