package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nawaem/backend/internal/domain"
)

func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	sess := New("cashier", domain.RoleCashier, time.Hour, time.Now())
	require.NoError(t, st.Save(ctx, sess))

	got, err := st.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "cashier", got.Username)
	assert.Empty(t, got.Cart)

	updated, err := st.Update(ctx, sess.ID, func(s *Session) error {
		s.Cart = append(s.Cart, domain.CartLine{VariantID: 7, Name: "Dress", Qty: 2, UnitPrice: decimal.NewFromInt(100)})
		return nil
	})
	require.NoError(t, err)
	require.Len(t, updated.Cart, 1)

	got, err = st.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Cart, 1)
	assert.Equal(t, 2, got.Cart[0].Qty)
	assert.True(t, got.Cart[0].UnitPrice.Equal(decimal.NewFromInt(100)))

	boom := errors.New("boom")
	_, err = st.Update(ctx, sess.ID, func(s *Session) error {
		s.Cart = nil
		return boom
	})
	assert.ErrorIs(t, err, boom)
	got, err = st.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Cart, 1, "failed update must not persist")

	require.NoError(t, st.Delete(ctx, sess.ID))
	_, err = st.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Update(ctx, "missing", func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreExpiresSessions(t *testing.T) {
	st := NewMemoryStore()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	sess := New("admin", domain.RoleAdmin, time.Minute, now)
	require.NoError(t, st.Save(context.Background(), sess))

	now = now.Add(2 * time.Minute)
	_, err := st.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("NAWAEM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set NAWAEM_TEST_REDIS_ADDR to run redis integration test")
	}
	st := NewRedisStore(addr, os.Getenv("NAWAEM_TEST_REDIS_PASSWORD"), 0)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Ping(context.Background()))

	exerciseStore(t, st)
}
