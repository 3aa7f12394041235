// Package numbering generates unique record numbers for subscriptions,
// due schedules, and invoices. Numbers combine a prefix with a ULID and
// are checked against the store before use; a collision simply triggers
// another draw.
package numbering

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/subledger/billing-engine/pkg/timeutil"
)

// Common number prefixes
const (
	PrefixSubscription = "SUB"
	PrefixDueSchedule  = "DS"
	PrefixInvoice      = "INV"
	PrefixContract     = "CTR"
)

const maxAttempts = 5

// Generator implements ports.NumberGenerator
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewGenerator creates a new number generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Next returns a fresh number with the given prefix. The exists callback
// reports whether a candidate is already taken; collisions regenerate.
func (g *Generator) Next(ctx context.Context, prefix string, exists func(ctx context.Context, number string) (bool, error)) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate, err := g.draw(prefix)
		if err != nil {
			return "", err
		}
		if exists == nil {
			return candidate, nil
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check number uniqueness: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("generate %s number: no unique candidate after %d attempts", prefix, maxAttempts)
}

func (g *Generator) draw(prefix string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(timeutil.Now()), g.entropy)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return fmt.Sprintf("%s-%s", prefix, id.String()), nil
}
