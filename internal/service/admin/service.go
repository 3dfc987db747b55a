package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"log/slog"

	"github.com/splax/jserrlog/internal/domain"
	"github.com/splax/jserrlog/internal/repository"
	"github.com/splax/jserrlog/pkg/config"
	"github.com/splax/jserrlog/pkg/crypto"
	jwtpkg "github.com/splax/jserrlog/pkg/jwt"
)

// ErrBadCredentials reports a failed admin login.
var ErrBadCredentials = errors.New("admin: invalid credentials")

// ErrLoginDisabled reports that no admin password hash is configured.
var ErrLoginDisabled = errors.New("admin: no password hash configured")

// Service implements the administrative operations: session issuance and
// validation, bulk read, and bulk clear of the error store.
type Service struct {
	repo   repository.ErrorRepository
	logger *slog.Logger
	cfg    config.ServiceConfig
}

// New constructs a Service.
func New(repo repository.ErrorRepository, logger *slog.Logger, cfg config.ServiceConfig) Service {
	return Service{repo: repo, logger: logger, cfg: cfg}
}

// Login verifies admin credentials and issues a signed session token.
func (s Service) Login(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(s.cfg.AdminPasswordHash) == "" {
		return "", ErrLoginDisabled
	}
	nameOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUser)) == 1
	passErr := crypto.ComparePassword([]byte(s.cfg.AdminPasswordHash), password)
	if !nameOK || passErr != nil {
		s.logger.Warn("admin login rejected", "username", username)
		return "", ErrBadCredentials
	}
	tok, err := jwtpkg.GenerateToken(username, s.cfg.JWTSecret, s.cfg.SessionTTL)
	if err != nil {
		return "", err
	}
	s.logger.Info("admin logged in", "username", username)
	return tok, nil
}

// Authorize validates a session token and returns its claims. A token
// without the admin capability is rejected.
func (s Service) Authorize(token string) (*jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, errors.New("token required")
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	if !claims.Admin {
		return nil, errors.New("admin capability required")
	}
	return claims, nil
}

// List returns every stored error, newest first.
func (s Service) List(ctx context.Context) ([]domain.ErrorRecord, error) {
	return s.repo.ListErrors(ctx)
}

// Clear removes every stored error. Clearing an empty store is a no-op.
func (s Service) Clear(ctx context.Context) error {
	if err := s.repo.ClearErrors(ctx); err != nil {
		return err
	}
	s.logger.Info("error log cleared")
	return nil
}
