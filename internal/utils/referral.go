package utils

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewReferralCode derives a short shareable code from the affiliate's name
// followed by random characters, e.g. "JANE-7KQ4XP".  Uniqueness is
// enforced by the database; callers retry on collision.
func NewReferralCode(name string) (string, error) {
	suffix, err := randomFrom(codeAlphabet, 6)
	if err != nil {
		return "", err
	}
	prefix := codePrefix(name)
	if prefix == "" {
		return suffix, nil
	}
	return prefix + "-" + suffix, nil
}

func codePrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		} else if b.Len() > 0 {
			break
		}
		if b.Len() == 8 {
			break
		}
	}
	return b.String()
}

// NormalizeReferralCode trims and upper-cases user input.
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ReferralLink builds the public landing URL carrying code as ?ref=.
func ReferralLink(appURL, code string) string {
	u, err := url.Parse(appURL)
	if err != nil || u.Host == "" {
		return strings.TrimRight(appURL, "/") + "/?ref=" + url.QueryEscape(code)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	q := u.Query()
	q.Set("ref", code)
	u.RawQuery = q.Encode()
	return u.String()
}

// NewOrderNumber returns the public identifier of an order.
func NewOrderNumber() string { return uuid.NewString() }

// NewTicketCode returns the code printed on an admission ticket.
func NewTicketCode() string { return strings.ToUpper(uuid.NewString()) }
