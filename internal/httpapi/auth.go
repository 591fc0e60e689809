package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/session"
	"nawaem/backend/internal/store"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInvalidToken       = errors.New("invalid or expired token")
	errAccountInactive    = errors.New("account is inactive")
)

type AuthManager struct {
	secret     []byte
	tokenTTL   time.Duration
	managerPIN string
	users      UserStore
	sessions   session.Store
}

// UserStore is the source of truth for staff accounts. Nothing is cached in
// the auth manager, so deactivations apply on the next login.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// Session tokens carry the session id as jti; the session itself holds the cart.
type sessionClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, managerPIN string, users UserStore, sessions session.Store) *AuthManager {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	// An empty PIN leaves no hash behind, which disables PIN-gated actions.
	var pinHash string
	if pin := strings.TrimSpace(managerPIN); pin != "" {
		if hashed, err := HashPassword(pin); err == nil {
			pinHash = hashed
		}
	}

	return &AuthManager{
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		managerPIN: pinHash,
		users:      users,
		sessions:   sessions,
	}
}

func normalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func (a *AuthManager) findUser(ctx context.Context, username string) (domain.UserAccount, bool, error) {
	accounts, err := a.users.ListUsers(ctx)
	if err != nil {
		return domain.UserAccount{}, false, err
	}
	for _, account := range accounts {
		if normalizeUsername(account.Username) == username {
			return account, true, nil
		}
	}
	return domain.UserAccount{}, false, nil
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	username := normalizeUsername(req.Username)
	account, ok, err := a.findUser(ctx, username)
	if err != nil {
		return domain.LoginResponse{}, fmt.Errorf("load users: %w", err)
	}
	if !ok || !a.checkPassword(ctx, account, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if !account.Active {
		return domain.LoginResponse{}, errAccountInactive
	}

	sess := session.New(username, account.Role, a.tokenTTL, time.Now())
	if err := a.sessions.Save(ctx, sess); err != nil {
		return domain.LoginResponse{}, fmt.Errorf("create session: %w", err)
	}
	token, err := a.sign(sess)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		CSRFToken:   a.CSRFToken(sess.ID),
		Role:        account.Role,
		ExpiresAt:   sess.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// checkPassword compares against the stored bcrypt hash. Accounts seeded with
// a plain-text password are accepted once and rewritten as a hash.
func (a *AuthManager) checkPassword(ctx context.Context, account domain.UserAccount, input string) bool {
	if strings.TrimSpace(input) == "" || account.Password == "" {
		return false
	}
	if isPasswordHash(account.Password) {
		return bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(input)) == nil
	}
	if subtle.ConstantTimeCompare([]byte(account.Password), []byte(input)) != 1 {
		return false
	}
	if hashed, err := HashPassword(input); err == nil {
		if err := a.users.UpdateUserPassword(ctx, normalizeUsername(account.Username), hashed); err != nil {
			log.Printf("[auth] WARN: rehash password for %s: %v", account.Username, err)
		}
	}
	return true
}

// Authenticate validates the token and loads its live session. A token whose
// session was logged out or expired is rejected.
func (a *AuthManager) Authenticate(ctx context.Context, raw string) (domain.Actor, *session.Session, error) {
	var claims sessionClaims
	_, err := jwtlib.ParseWithClaims(raw, &claims, func(*jwtlib.Token) (any, error) {
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithExpirationRequired())
	if err != nil || claims.Subject == "" || claims.ID == "" {
		return domain.Actor{}, nil, errInvalidToken
	}

	sess, err := a.sessions.Get(ctx, claims.ID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return domain.Actor{}, nil, errors.New("session ended")
	case err != nil:
		return domain.Actor{}, nil, err
	case sess.Username != claims.Subject:
		return domain.Actor{}, nil, errInvalidToken
	}
	return domain.Actor{Username: sess.Username, Role: sess.Role}, sess, nil
}

func (a *AuthManager) Logout(ctx context.Context, sessionID string) error {
	return a.sessions.Delete(ctx, sessionID)
}

func (a *AuthManager) sign(sess *session.Session) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.Username,
			IssuedAt:  jwtlib.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwtlib.NewNumericDate(sess.ExpiresAt),
			Issuer:    "nawaem",
		},
		Role: sess.Role,
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
}

// CSRFToken is bound to the session, so it dies with it.
func (a *AuthManager) CSRFToken(sessionID string) string {
	h := hmac.New(sha256.New, a.secret)
	fmt.Fprintf(h, "csrf:%s", sessionID)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *AuthManager) ValidateCSRFToken(sessionID string, token string) bool {
	if token == "" || sessionID == "" {
		return false
	}
	return hmac.Equal([]byte(token), []byte(a.CSRFToken(sessionID)))
}

func (a *AuthManager) ValidateManagerPIN(pin string) bool {
	pin = strings.TrimSpace(pin)
	if pin == "" || a.managerPIN == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.managerPIN), []byte(pin)) == nil
}

func (a *AuthManager) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	username := normalizeUsername(req.Username)
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = domain.RoleCashier
	}
	switch {
	case len(username) < 4:
		return domain.User{}, fmt.Errorf("%w: username must be at least 4 characters", store.ErrInvalidInput)
	case strings.ContainsAny(username, " \t\r\n"):
		return domain.User{}, fmt.Errorf("%w: username must not contain spaces", store.ErrInvalidInput)
	case len(strings.TrimSpace(req.Password)) < 6:
		return domain.User{}, fmt.Errorf("%w: password must be at least 6 characters", store.ErrInvalidInput)
	case role != domain.RoleCashier && role != domain.RoleAdmin:
		return domain.User{}, fmt.Errorf("%w: role must be admin or cashier", store.ErrInvalidInput)
	}

	if _, exists, err := a.findUser(ctx, username); err != nil {
		return domain.User{}, err
	} else if exists {
		return domain.User{}, store.ErrConflict
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	account := domain.UserAccount{
		Username:  username,
		Password:  hash,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.users.CreateUser(ctx, account); err != nil {
		return domain.User{}, err
	}
	return publicUser(account), nil
}

func (a *AuthManager) ListUsers(ctx context.Context) ([]domain.User, error) {
	accounts, err := a.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]domain.User, 0, len(accounts))
	for _, account := range accounts {
		result = append(result, publicUser(account))
	}
	slices.SortFunc(result, func(x, y domain.User) int {
		return strings.Compare(x.Username, y.Username)
	})
	return result, nil
}

func publicUser(account domain.UserAccount) domain.User {
	return domain.User{
		Username:  normalizeUsername(account.Username),
		Role:      account.Role,
		Active:    account.Active,
		CreatedAt: account.CreatedAt,
	}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isPasswordHash(value string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
