package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"journey-circle/internal/domain"
	"journey-circle/internal/repository"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Hash de relleno para igualar el costo cuando el email no existe.
const fallbackCredentialHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// SessionService emite, resuelve e invalida tokens de sesion opacos.
type SessionService struct {
	logger  *zap.Logger
	members repository.MemberRepository
	store   SessionStore
	limiter RateLimiter
	ttl     time.Duration
}

func NewSessionService(logger *zap.Logger, members repository.MemberRepository, store SessionStore, limiter RateLimiter, ttl time.Duration) *SessionService {
	if store == nil {
		store = NewMemorySessionStore()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionService{
		logger:  logger,
		members: members,
		store:   store,
		limiter: limiter,
		ttl:     ttl,
	}
}

// Authenticate valida credenciales y emite un token nuevo en cada login.
func (s *SessionService) Authenticate(ctx context.Context, emailAddr, password, sourceAddr string) (domain.Session, error) {
	if s.members == nil {
		return domain.Session{}, errors.New("session service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.Session{}, ErrInvalidCredentials
	}

	if s.limiter != nil {
		if !s.limiter.Allow("login:" + emailAddr) {
			return domain.Session{}, ErrRateLimited
		}
		if sourceAddr != "" && !s.limiter.Allow("login-ip:"+sourceAddr) {
			return domain.Session{}, ErrRateLimited
		}
	}

	member, err := s.members.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword([]byte(fallbackCredentialHash), []byte(password))
			return domain.Session{}, ErrInvalidCredentials
		}
		return domain.Session{}, err
	}
	if member.CredentialHash == "" {
		return domain.Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.CredentialHash), []byte(password)); err != nil {
		return domain.Session{}, ErrInvalidCredentials
	}

	token, err := newSessionToken()
	if err != nil {
		return domain.Session{}, err
	}
	now := time.Now().UTC()
	session := domain.Session{
		Token:     token,
		MemberID:  member.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.Store(session.Token, session.MemberID, s.ttl); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// Resolve devuelve el miembro dueno del token o ErrUnauthenticated.
func (s *SessionService) Resolve(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthenticated
	}
	memberID, ok, err := s.store.Lookup(token)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUnauthenticated
	}
	return memberID, nil
}

// Invalidate destruye la sesion; es idempotente.
func (s *SessionService) Invalidate(_ context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.store.Delete(token)
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
