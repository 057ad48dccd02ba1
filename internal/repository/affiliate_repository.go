package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// AffiliateRepo manages referral partners.
type AffiliateRepo struct{ db *sql.DB }

func NewAffiliateRepo(db *sql.DB) *AffiliateRepo { return &AffiliateRepo{db: db} }

// ErrCodeTaken is returned by Create when the generated referral code
// collides with an existing one; callers generate a new code and retry.
var ErrCodeTaken = errors.New("referral code taken")

const affiliateColumns = `id, name, email, password_hash, referral_code, commission_rate, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAffiliate(row rowScanner) (*model.Affiliate, error) {
	var a model.Affiliate
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.ReferralCode,
		&a.CommissionRate, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts an affiliate and populates its ID and timestamps.
func (r *AffiliateRepo) Create(ctx context.Context, a *model.Affiliate) error {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO affiliates (name, email, password_hash, referral_code, commission_rate, is_active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Name, a.Email, a.PasswordHash, a.ReferralCode, a.CommissionRate, a.IsActive)
	if err != nil {
		switch {
		case duplicateKey(err, "uq_affiliates_email"):
			return ErrEmailExists
		case duplicateKey(err, "uq_affiliates_code"):
			return ErrCodeTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*a = *created
	return nil
}

// GetByID fetches an affiliate regardless of its active flag.
func (r *AffiliateRepo) GetByID(ctx context.Context, id uint64) (*model.Affiliate, error) {
	return scanAffiliate(r.db.QueryRowContext(ctx,
		"SELECT "+affiliateColumns+" FROM affiliates WHERE id = ? LIMIT 1", id))
}

// GetByEmail fetches an affiliate by normalized email.
func (r *AffiliateRepo) GetByEmail(ctx context.Context, email string) (*model.Affiliate, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanAffiliate(r.db.QueryRowContext(ctx,
		"SELECT "+affiliateColumns+" FROM affiliates WHERE email = ? LIMIT 1", email))
}

// activeByCodeTx resolves a referral code during checkout.  Unknown and
// inactive codes yield ErrNotFound.
func activeByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*model.Affiliate, error) {
	return scanAffiliate(tx.QueryRowContext(ctx,
		"SELECT "+affiliateColumns+" FROM affiliates WHERE referral_code = ? AND is_active = 1 LIMIT 1", code))
}

// List returns all affiliates ordered by name.
func (r *AffiliateRepo) List(ctx context.Context) ([]model.Affiliate, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+affiliateColumns+" FROM affiliates ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Affiliate, 0)
	for rows.Next() {
		a, err := scanAffiliate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// SetActive toggles whether the affiliate can log in and earn referrals.
func (r *AffiliateRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE affiliates SET is_active = ? WHERE id = ?", active, id)
	if err != nil {
		return err
	}
	return requireRow(ctx, r.db, res, "SELECT 1 FROM affiliates WHERE id = ?", id)
}

// UpdatePassword replaces the stored hash.
func (r *AffiliateRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE affiliates SET password_hash = ? WHERE id = ?", hash, id)
	if err != nil {
		return err
	}
	return requireRow(ctx, r.db, res, "SELECT 1 FROM affiliates WHERE id = ?", id)
}

// requireRow maps "no rows affected" to ErrNotFound when the row is truly
// missing.  MySQL reports zero affected rows for no-op updates too, so the
// existence query disambiguates.
func requireRow(ctx context.Context, db *sql.DB, res sql.Result, existsQ string, args ...any) error {
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	var one int
	if err := db.QueryRowContext(ctx, existsQ, args...).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
