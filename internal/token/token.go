// Package token implements the two capability tokens guarding the service:
// the possession-proof token carried by submitted error reports and the
// single-use anti-replay nonce protecting the destructive clear action.
// They are separate named types with separate validation paths and are
// never interchangeable.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidSubmitToken reports a missing or unverifiable possession-proof
// token on an error report submission.
var ErrInvalidSubmitToken = errors.New("token: invalid submission token")

// ErrInvalidClearNonce reports a missing, unknown, expired, or already
// consumed clear nonce.
var ErrInvalidClearNonce = errors.New("token: invalid or consumed clear nonce")

const submitAction = "submit-error-report"

// SubmitIssuer mints and verifies possession-proof tokens. Tokens are a
// keyed hash over the action name and a coarse time bucket, so they are
// stateless to verify and stay valid for at least one full bucket after
// issue (the current and previous bucket both verify).
type SubmitIssuer struct {
	secret []byte
	bucket time.Duration
	now    func() time.Time
}

// NewSubmitIssuer constructs an issuer keyed by secret. Bucket controls how
// long a minted token remains valid; values at or below zero fall back to
// 12 hours.
func NewSubmitIssuer(secret string, bucket time.Duration) *SubmitIssuer {
	if bucket <= 0 {
		bucket = 12 * time.Hour
	}
	return &SubmitIssuer{secret: []byte(secret), bucket: bucket, now: time.Now}
}

// Mint returns a possession-proof token for the current time bucket.
func (i *SubmitIssuer) Mint() string {
	return i.sign(i.currentBucket())
}

// Verify checks a presented token against the current and previous bucket.
func (i *SubmitIssuer) Verify(presented string) error {
	if presented == "" {
		return ErrInvalidSubmitToken
	}
	current := i.currentBucket()
	for _, bucket := range []int64{current, current - 1} {
		if hmac.Equal([]byte(presented), []byte(i.sign(bucket))) {
			return nil
		}
	}
	return ErrInvalidSubmitToken
}

func (i *SubmitIssuer) currentBucket() int64 {
	return i.now().Unix() / int64(i.bucket/time.Second)
}

func (i *SubmitIssuer) sign(bucket int64) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(submitAction))
	mac.Write([]byte("|"))
	mac.Write([]byte(strconv.FormatInt(bucket, 10)))
	return hex.EncodeToString(mac.Sum(nil))[:20]
}

// ClearNonces tracks single-use anti-replay nonces for the clear-logs
// action. A nonce is minted per page render and invalidated on first
// presentation; presenting it again fails.
type ClearNonces struct {
	mu     sync.Mutex
	issued map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

// NewClearNonces constructs a nonce store. TTL bounds how long an unused
// nonce stays redeemable; values at or below zero fall back to 30 minutes.
func NewClearNonces(ttl time.Duration) *ClearNonces {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ClearNonces{issued: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

// Mint issues a fresh nonce and records it as redeemable.
func (n *ClearNonces) Mint() string {
	nonce := uuid.NewString()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prune()
	n.issued[nonce] = n.now().Add(n.ttl)
	return nonce
}

// Consume redeems a nonce, invalidating it for any later presentation.
func (n *ClearNonces) Consume(nonce string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	deadline, ok := n.issued[nonce]
	if !ok {
		return ErrInvalidClearNonce
	}
	delete(n.issued, nonce)
	if n.now().After(deadline) {
		return ErrInvalidClearNonce
	}
	return nil
}

// prune drops expired nonces; callers hold the lock.
func (n *ClearNonces) prune() {
	now := n.now()
	for nonce, deadline := range n.issued {
		if now.After(deadline) {
			delete(n.issued, nonce)
		}
	}
}
