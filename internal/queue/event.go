// Package queue defines the outbound email messages exchanged over RabbitMQ
// and the worker that delivers them.
package queue

import "time"

// EmailQueueName is the durable queue holding outbound email jobs.
const EmailQueueName = "email.outbound"

// Email kinds; each maps to a template in internal/mail.
const (
	KindAffiliateWelcome  = "affiliate_welcome"
	KindOrderConfirmation = "order_confirmation"
)

// EmailMessage is one email job.  Exactly one payload matching Kind is set.
type EmailMessage struct {
	Kind     string             `json:"kind"`
	To       string             `json:"to"`
	Welcome  *AffiliateWelcome  `json:"welcome,omitempty"`
	Order    *OrderConfirmation `json:"order,omitempty"`
	QueuedAt time.Time          `json:"queued_at"`
}

// AffiliateWelcome is sent when an admin creates an affiliate account.
// TempPassword is empty when the admin chose the password.
type AffiliateWelcome struct {
	Name         string `json:"name"`
	ReferralCode string `json:"referral_code"`
	ReferralLink string `json:"referral_link"`
	LoginURL     string `json:"login_url"`
	TempPassword string `json:"temp_password,omitempty"`
}

// OrderConfirmation is sent once an order is paid and confirmed.
type OrderConfirmation struct {
	CustomerName string       `json:"customer_name"`
	OrderNumber  string       `json:"order_number"`
	Total        string       `json:"total"`
	Tickets      []TicketLine `json:"tickets"`
}

// TicketLine is one admission ticket listed in the confirmation email.
type TicketLine struct {
	Type     string `json:"type"`
	Quantity uint32 `json:"quantity"`
	Code     string `json:"code"`
}

// Payload returns the template data for Kind, or nil if it is missing.
func (m EmailMessage) Payload() any {
	switch m.Kind {
	case KindAffiliateWelcome:
		if m.Welcome != nil {
			return m.Welcome
		}
	case KindOrderConfirmation:
		if m.Order != nil {
			return m.Order
		}
	}
	return nil
}
