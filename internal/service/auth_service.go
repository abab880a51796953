package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"garage_door/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = time.Hour

// Domain errors for auth flows.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidToken    = errors.New("invalid token")
)

// AuthService issues and verifies the bearer identity tokens used by the
// remote-button and snooze flows, and answers allow-list membership.
type AuthService struct {
	authRepo repository.Authorization
	cfg      Config
	allowed  map[string]struct{}
}

func NewAuthService(repo repository.Authorization, cfg Config) *AuthService {
	allowed := make(map[string]struct{}, len(cfg.AllowedEmails))
	for _, email := range cfg.AllowedEmails {
		allowed[normalizeEmail(email)] = struct{}{}
	}
	return &AuthService{authRepo: repo, cfg: cfg, allowed: allowed}
}

var _ Authorization = (*AuthService)(nil)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp hashes the password and creates a new operator account.
func (s *AuthService) SignUp(email, password string) (int, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("invalid password: %w", err)
	}
	return s.authRepo.Create(normalizeEmail(email), hash)
}

// Claims defines JWT claims. The email is the caller identity checked against
// the allow-list.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// GenerateToken validates credentials and returns a signed JWT.
func (s *AuthService) GenerateToken(email, password string) (string, error) {
	u, err := s.authRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidPassword
	}
	return s.issueToken(u.Email)
}

// ParseToken parses a JWT and returns the caller email.
func (s *AuthService) ParseToken(accessToken string) (string, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.SigningKey), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Email == "" {
		return "", ErrInvalidToken
	}
	return claims.Email, nil
}

// VerifyPushKey compares the caller's API key against the configured
// per-deployment key.
func (s *AuthService) VerifyPushKey(key string) bool {
	if s.cfg.PushKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.cfg.PushKey), []byte(key)) == 1
}

// IsAllowed reports whether the identity is on the authorized-requester list.
func (s *AuthService) IsAllowed(email string) bool {
	_, ok := s.allowed[normalizeEmail(email)]
	return ok
}

func (s *AuthService) issueToken(email string) (string, error) {
	ttl := s.cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: email,
	})
	return token.SignedString([]byte(s.cfg.SigningKey))
}

// helper: hash password safely
func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
