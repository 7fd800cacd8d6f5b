package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gfn-loan-service/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCodeInvalid = errors.New("VERIFICATION_CODE_INVALID")
	ErrCodeExpired = errors.New("VERIFICATION_CODE_EXPIRED")
)

const (
	codeKeyPrefix     = "loan:verification:code:"
	consumedKeyPrefix = "loan:verification:consumed:"
	consumedRetention = 30 * 24 * time.Hour
	codeDigits        = 6
)

// IssuedCodeGate issues a random code per application that expires after ttl and
// unlocks exactly once.
type IssuedCodeGate struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger
}

func NewIssuedCodeGate(rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *IssuedCodeGate {
	return &IssuedCodeGate{
		rdb:    rdb,
		ttl:    ttl,
		now:    time.Now,
		logger: log.WithFields(map[string]interface{}{"component": "verification-gate"}),
	}
}

func (g *IssuedCodeGate) Mode() string {
	return "issued"
}

// Issue replaces any outstanding code for receiptNumber with a fresh one.
func (g *IssuedCodeGate) Issue(ctx context.Context, receiptNumber string) (Issued, error) {
	code, err := randomCode(codeDigits)
	if err != nil {
		return Issued{}, fmt.Errorf("generate code: %w", err)
	}

	issued := Issued{
		Code:          code,
		ExpiresAt:     g.now().Add(g.ttl).UTC(),
		ReceiptNumber: receiptNumber,
	}
	payload, err := json.Marshal(issued)
	if err != nil {
		return Issued{}, err
	}

	pipe := g.rdb.TxPipeline()
	pipe.Set(ctx, codeKeyPrefix+receiptNumber, payload, g.ttl)
	pipe.Del(ctx, consumedKeyPrefix+receiptNumber)
	if _, err := pipe.Exec(ctx); err != nil {
		return Issued{}, fmt.Errorf("store verification code: %w", err)
	}

	g.logger.Info("Verification code issued", map[string]interface{}{
		"receiptNumber": receiptNumber,
		"expiresAt":     issued.ExpiresAt,
	})
	return issued, nil
}

// Status returns the current state for receiptNumber.
func (g *IssuedCodeGate) Status(ctx context.Context, receiptNumber string) (State, error) {
	issued, err := g.load(ctx, receiptNumber)
	if err == nil {
		return issued, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	raw, err := g.rdb.Get(ctx, consumedKeyPrefix+receiptNumber).Result()
	if errors.Is(err, redis.Nil) {
		return Pending{ReceiptNumber: receiptNumber}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load consumed marker: %w", err)
	}
	var consumed Consumed
	if err := json.Unmarshal([]byte(raw), &consumed); err != nil {
		return nil, fmt.Errorf("decode consumed marker: %w", err)
	}
	return consumed, nil
}

// Consume checks candidate against the outstanding code and, on a match, consumes it.
// Only one concurrent caller can consume a given code.
func (g *IssuedCodeGate) Consume(ctx context.Context, receiptNumber, candidate string) (Consumed, error) {
	issued, err := g.load(ctx, receiptNumber)
	if errors.Is(err, redis.Nil) {
		return Consumed{}, ErrCodeExpired
	}
	if err != nil {
		return Consumed{}, err
	}

	now := g.now()
	if issued.Expired(now) {
		return Consumed{}, ErrCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(issued.Code), []byte(candidate)) != 1 {
		return Consumed{}, ErrCodeInvalid
	}

	deleted, err := g.rdb.Del(ctx, codeKeyPrefix+receiptNumber).Result()
	if err != nil {
		return Consumed{}, fmt.Errorf("consume verification code: %w", err)
	}
	if deleted != 1 {
		return Consumed{}, ErrCodeExpired
	}

	consumed := Consumed{ReceiptNumber: receiptNumber, ConsumedAt: now.UTC()}
	if payload, err := json.Marshal(consumed); err == nil {
		if err := g.rdb.Set(ctx, consumedKeyPrefix+receiptNumber, payload, consumedRetention).Err(); err != nil {
			g.logger.Warn("Failed to record consumed verification code", map[string]interface{}{
				"receiptNumber": receiptNumber,
				"error":         err.Error(),
			})
		}
	}
	return consumed, nil
}

// Verify adapts Consume to the Gate interface. Mismatch and expiry are a false result, not an error.
func (g *IssuedCodeGate) Verify(ctx context.Context, receiptNumber, candidate string) (bool, error) {
	_, err := g.Consume(ctx, receiptNumber, candidate)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrCodeInvalid), errors.Is(err, ErrCodeExpired):
		return false, nil
	default:
		return false, err
	}
}

func (g *IssuedCodeGate) load(ctx context.Context, receiptNumber string) (Issued, error) {
	raw, err := g.rdb.Get(ctx, codeKeyPrefix+receiptNumber).Result()
	if err != nil {
		return Issued{}, err
	}
	var issued Issued
	if err := json.Unmarshal([]byte(raw), &issued); err != nil {
		return Issued{}, fmt.Errorf("decode verification code: %w", err)
	}
	return issued, nil
}

func randomCode(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
