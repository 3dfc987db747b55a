package ingest

import (
	"context"
	"encoding/json"
	"time"

	"log/slog"

	"github.com/splax/jserrlog/internal/domain"
	"github.com/splax/jserrlog/internal/repository"
	"github.com/splax/jserrlog/internal/ws"
)

// Report carries the raw, untrusted fields of one submitted error. Every
// field may be absent (empty) or malformed; Append degrades bad values to
// defaults instead of failing.
type Report struct {
	Message   string
	Source    string
	Lineno    string
	Colno     string
	Stack     string
	UserAgent string
}

// Service normalizes and persists submitted error reports.
type Service struct {
	repo   repository.ErrorRepository
	hub    *ws.Hub
	logger *slog.Logger
	now    func() time.Time
}

// New constructs an ingest service.
func New(repo repository.ErrorRepository, hub *ws.Hub, logger *slog.Logger) Service {
	return Service{repo: repo, hub: hub, logger: logger, now: time.Now}
}

// Append coerces a raw report into an ErrorRecord and stores it. The
// record's timestamp is the server clock and its ip_address is the
// transport-observed peer; any client-supplied values for either are
// ignored. Returns the stored record with its assigned id.
func (s Service) Append(ctx context.Context, report Report, peerAddress string) (*domain.ErrorRecord, error) {
	record := &domain.ErrorRecord{
		Timestamp: s.now().UTC(),
		Message:   sanitizeLine(report.Message),
		Source:    sanitizeLine(report.Source),
		Lineno:    coerceInt(report.Lineno),
		Colno:     coerceInt(report.Colno),
		Stack:     sanitizeBlock(report.Stack),
		UserAgent: sanitizeLine(report.UserAgent),
		IPAddress: peerAddress,
	}
	if err := s.repo.InsertError(ctx, record); err != nil {
		return nil, err
	}
	s.logger.Info("error report stored", "id", record.ID, "source", record.Source, "ip", record.IPAddress)
	s.broadcast(record)
	return record, nil
}

func (s Service) broadcast(record *domain.ErrorRecord) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		s.logger.Warn("failed to marshal error record", "error", err)
		return
	}
	s.hub.Broadcast(payload)
}

// coerceInt parses the leading decimal prefix of the value, matching how
// the browser-side fields arrive as loosely typed strings. Anything without
// a usable non-negative prefix becomes 0.
func coerceInt(value string) int {
	i := 0
	for i < len(value) && (value[i] == ' ' || value[i] == '\t') {
		i++
	}
	start := i
	for i < len(value) && value[i] >= '0' && value[i] <= '9' {
		i++
	}
	if i == start {
		return 0
	}
	n := 0
	for _, c := range value[start:i] {
		n = n*10 + int(c-'0')
		if n > 1<<31-1 {
			return 1<<31 - 1
		}
	}
	return n
}
