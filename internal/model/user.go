package model

import "time"

// User is a ticket buyer.  Buyers do not log in; the row is keyed by email
// and refreshed with the latest name/phone on every purchase.
type User struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Admin is a dashboard operator.  PasswordHash never leaves the server.
type Admin struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewsletterSubscriber is an email collected by the marketing pages.
type NewsletterSubscriber struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session roles carried in the JWT "role" claim.
const (
	RoleAdmin     = "ADMIN"
	RoleAffiliate = "AFFILIATE"
)
