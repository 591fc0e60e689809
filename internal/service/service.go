package service

import (
	"context"
	"errors"
	"log"
	"time"

	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/session"
	"nawaem/backend/internal/store"
	"nawaem/backend/internal/xid"
)

var (
	ErrForbidden       = errors.New("admin role required")
	ErrInvalidPIN      = errors.New("invalid manager pin")
	ErrNoSession       = errors.New("session required")
	ErrSaleNotRecorded = errors.New("sale could not be recorded")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type PINVerifier interface {
	ValidateManagerPIN(pin string) bool
}

type Options struct {
	StoreName         string
	Location          *time.Location
	PhoneCountryCode  string
	LowStockThreshold int
	TopProducts       int
	PIN               PINVerifier
	Now               func() time.Time
}

type Service struct {
	repo     store.Repository
	sessions session.Store
	opts     Options
}

func New(repo store.Repository, sessions session.Store, opts Options) *Service {
	if opts.StoreName == "" {
		opts.StoreName = "Nawaem Boutique"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.TopProducts < 1 {
		opts.TopProducts = 10
	}
	if opts.LowStockThreshold < 0 {
		opts.LowStockThreshold = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:     repo,
		sessions: sessions,
		opts:     opts,
	}
}

func (s *Service) Location() *time.Location {
	return s.opts.Location
}

func (s *Service) now() time.Time {
	return s.opts.Now().UTC()
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// requireManager gates sale corrections: admin role plus the manager PIN.
func (s *Service) requireManager(ctx context.Context, pin string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if s.opts.PIN == nil || !s.opts.PIN.ValidateManagerPIN(pin) {
		return ErrInvalidPIN
	}
	return nil
}

func (s *Service) ListAuditLogs(ctx context.Context, q domain.WindowQuery, limit int) ([]domain.AuditLog, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	w, err := s.ResolveWindow(q)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, w.From, w.To, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
