// Package identifier allocates the human-facing numbers of the ledger:
// 10-digit account numbers and Mastercard-range debit card numbers.
//
// Candidates are drawn at random and rejected while the supplied existence
// check reports them taken. The generator never reserves a value, so callers
// must still insert under a UNIQUE constraint and retry on conflict.
package identifier

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	accountNumberMin = 1_000_000_000
	accountNumberMax = 9_999_999_999

	cardPrefixMin = 5200
	cardPrefixMax = 5299
	cardGroupMin  = 1000
	cardGroupMax  = 9999

	expiryYears = 5
)

// ExistsFunc reports whether a candidate identifier is already in use.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Generator is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a generator drawing from src. A nil src seeds a ChaCha8 stream
// from crypto/rand.
func New(src rand.Source) *Generator {
	if src == nil {
		var seed [32]byte
		if _, err := crand.Read(seed[:]); err != nil {
			binary.LittleEndian.PutUint64(seed[:], uint64(time.Now().UnixNano()))
		}
		src = rand.NewChaCha8(seed)
	}
	return &Generator{rnd: rand.New(src)}
}

func (g *Generator) between(lo, hi int64) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + g.rnd.Int64N(hi-lo+1)
}

// AccountNumber returns a 10-digit number not reported by exists.
func (g *Generator) AccountNumber(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.unique(ctx, exists, g.accountCandidate)
}

// CardNumber returns a "dddd dddd dddd dddd" number whose first group is in
// the 5200-5299 range and which is not reported by exists.
func (g *Generator) CardNumber(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.unique(ctx, exists, g.cardCandidate)
}

// Expiry returns a "MM/YY" expiry with a random month, five years after now.
func (g *Generator) Expiry(now time.Time) string {
	month := g.between(1, 12)
	year := (now.Year() + expiryYears) % 100
	return fmt.Sprintf("%02d/%02d", month, year)
}

// CVV returns a three digit security code.
func (g *Generator) CVV() string {
	return fmt.Sprintf("%d", g.between(100, 999))
}

func (g *Generator) accountCandidate() string {
	return fmt.Sprintf("%d", g.between(accountNumberMin, accountNumberMax))
}

func (g *Generator) cardCandidate() string {
	return fmt.Sprintf("%d %d %d %d",
		g.between(cardPrefixMin, cardPrefixMax),
		g.between(cardGroupMin, cardGroupMax),
		g.between(cardGroupMin, cardGroupMax),
		g.between(cardGroupMin, cardGroupMax),
	)
}

// unique keeps drawing until exists rejects nothing. There is no attempt
// limit; the loop ends only on success, a lookup error or ctx cancellation.
func (g *Generator) unique(ctx context.Context, exists ExistsFunc, next func() string) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := next()
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check identifier uniqueness: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
}
