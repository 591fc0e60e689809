package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"nawaem/backend/internal/config"
	"nawaem/backend/internal/httpapi"
	"nawaem/backend/internal/service"
	"nawaem/backend/internal/session"
	"nawaem/backend/internal/store"
	"nawaem/backend/internal/store/memory"
	pgstore "nawaem/backend/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()
	if err := run(config.Load()); err != nil {
		log.Fatalf("[server] %v", err)
	}
	log.Println("[server] stopped")
}

func run(cfg config.Config) error {
	if err := validateSecurityConfig(cfg); err != nil {
		return fmt.Errorf("invalid security configuration: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("invalid store configuration: %w", err)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	var closers []func() error
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Printf("[server] WARN: close: %v", err)
			}
		}
	}()

	repo, closeRepo, err := openRepository(startCtx, cfg)
	if err != nil {
		return err
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}
	sessions, closeSessions := openSessions(startCtx, cfg)
	if closeSessions != nil {
		closers = append(closers, closeSessions)
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.SessionTTL(), cfg.ManagerPIN, repo, sessions)
	svc := service.New(repo, sessions, service.Options{
		StoreName:         cfg.StoreName,
		Location:          loc,
		PhoneCountryCode:  cfg.PhoneCountryCode,
		LowStockThreshold: cfg.LowStockThreshold,
		PIN:               auth,
	})
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, cfg.LoginRatePerMinute)

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[server] %s listening on %s, store time %s", cfg.StoreName, srv.Addr, loc)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelDrain()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Printf("[server] WARN: shutdown: %v", err)
	}
	return nil
}

// openRepository picks Postgres when DATABASE_URL is set and never falls back
// to memory in that case.
func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func() error, error) {
	if cfg.DatabaseURL == "" {
		log.Println("[server] repository: in-memory demo catalog")
		return memory.NewSeeded(), nil, nil
	}

	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	if cfg.AutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		log.Println("[server] schema applied")
	}
	log.Println("[server] repository: postgres")
	return pg, pg.Close, nil
}

func openSessions(ctx context.Context, cfg config.Config) (session.Store, func() error) {
	if cfg.RedisAddr == "" {
		log.Println("[server] sessions: in-memory")
		return session.NewMemoryStore(), nil
	}

	rs := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rs.Ping(ctx); err != nil {
		log.Printf("[server] WARN: redis at %s unreachable (%v), sessions stay in memory", cfg.RedisAddr, err)
		_ = rs.Close()
		return session.NewMemoryStore(), nil
	}
	log.Println("[server] sessions: redis")
	return rs, rs.Close
}

func validateSecurityConfig(cfg config.Config) error {
	switch {
	case len(cfg.AuthSecret) < 32:
		return errors.New("AUTH_SECRET needs at least 32 characters")
	case len(cfg.ManagerPIN) < 6:
		return errors.New("MANAGER_PIN needs at least 6 digits")
	}
	if err := validatePINStrength(cfg.ManagerPIN); err != nil {
		return fmt.Errorf("MANAGER_PIN rejected: %w", err)
	}
	return nil
}

var guessablePINs = []string{"123456", "654321", "121212", "112233", "123123", "696969", "101010", "159753"}

// validatePINStrength rejects PINs a bystander could guess at the till.
func validatePINStrength(pin string) error {
	if pin == "" || strings.Trim(pin, "0123456789") != "" {
		return errors.New("digits only")
	}
	for _, weak := range guessablePINs {
		if pin == weak {
			return errors.New("well-known PIN")
		}
	}
	if strings.Count(pin, pin[:1]) == len(pin) {
		return errors.New("single repeated digit")
	}
	if runOf(pin, 1) || runOf(pin, -1) {
		return errors.New("digits in sequence")
	}
	return nil
}

func runOf(pin string, step int) bool {
	for i := 1; i < len(pin); i++ {
		if int(pin[i])-int(pin[i-1]) != step {
			return false
		}
	}
	return true
}
