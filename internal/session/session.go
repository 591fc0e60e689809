package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"nawaem/backend/internal/domain"
)

var ErrNotFound = errors.New("session not found")

// Session is the per-login working state: who is selling and what is in the
// cart. It lives outside the ledger and is gone after logout or expiry.
type Session struct {
	ID          string            `json:"id"`
	Username    string            `json:"username"`
	Role        string            `json:"role"`
	Cart        []domain.CartLine `json:"cart"`
	LastInvoice *domain.Invoice   `json:"last_invoice,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

func New(username string, role string, ttl time.Duration, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      role,
		Cart:      []domain.CartLine{},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	// Update applies fn to the stored session and persists the result. Calls
	// for the same id do not interleave.
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
}
