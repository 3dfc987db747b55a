package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/splax/jserrlog/internal/domain"
	"github.com/splax/jserrlog/pkg/config"
	"github.com/splax/jserrlog/pkg/crypto"
)

type stubErrorRepository struct {
	mu      sync.Mutex
	records []domain.ErrorRecord
	cleared int
}

func (s *stubErrorRepository) InsertError(ctx context.Context, record *domain.ErrorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.ID = int64(len(s.records) + 1)
	s.records = append(s.records, *record)
	return nil
}

func (s *stubErrorRepository) ListErrors(ctx context.Context) ([]domain.ErrorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ErrorRecord(nil), s.records...), nil
}

func (s *stubErrorRepository) ClearErrors(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.cleared++
	return nil
}

func (s *stubErrorRepository) CountErrors(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

func testConfig(t *testing.T, password string) config.ServiceConfig {
	t.Helper()
	hash, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return config.ServiceConfig{
		JWTSecret:         "test-secret",
		AdminUser:         "admin",
		AdminPasswordHash: string(hash),
		SessionTTL:        time.Hour,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoginIssuesAuthorizableToken(t *testing.T) {
	svc := New(&stubErrorRepository{}, discardLogger(), testConfig(t, "hunter2"))

	tok, err := svc.Login(context.Background(), "admin", "hunter2")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	claims, err := svc.Authorize(tok)
	if err != nil {
		t.Fatalf("Authorize rejected fresh token: %v", err)
	}
	if claims.Username != "admin" || !claims.Admin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := New(&stubErrorRepository{}, discardLogger(), testConfig(t, "hunter2"))

	if _, err := svc.Login(context.Background(), "admin", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password: got %v, want ErrBadCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "intruder", "hunter2"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong username: got %v, want ErrBadCredentials", err)
	}
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	cfg := testConfig(t, "hunter2")
	cfg.AdminPasswordHash = ""
	svc := New(&stubErrorRepository{}, discardLogger(), cfg)

	if _, err := svc.Login(context.Background(), "admin", "hunter2"); !errors.Is(err, ErrLoginDisabled) {
		t.Fatalf("got %v, want ErrLoginDisabled", err)
	}
}

func TestAuthorizeRejectsForeignToken(t *testing.T) {
	svc := New(&stubErrorRepository{}, discardLogger(), testConfig(t, "hunter2"))

	if _, err := svc.Authorize(""); err == nil {
		t.Fatal("empty token accepted")
	}
	if _, err := svc.Authorize("not-a-jwt"); err == nil {
		t.Fatal("garbage token accepted")
	}

	otherCfg := testConfig(t, "hunter2")
	otherCfg.JWTSecret = "different-secret"
	other := New(&stubErrorRepository{}, discardLogger(), otherCfg)
	tok, err := other.Login(context.Background(), "admin", "hunter2")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if _, err := svc.Authorize(tok); err == nil {
		t.Fatal("token signed with a different secret accepted")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	repo := &stubErrorRepository{}
	svc := New(repo, discardLogger(), testConfig(t, "hunter2"))

	if err := svc.Clear(context.Background()); err != nil {
		t.Fatalf("clearing empty store failed: %v", err)
	}
	_ = repo.InsertError(context.Background(), &domain.ErrorRecord{Message: "boom"})
	if err := svc.Clear(context.Background()); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	records, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty store after clear, got %d records", len(records))
	}
}
