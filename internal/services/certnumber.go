package services

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"
)

const (
	certNumberPrefix = "LUM"
	letters          = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	alnum            = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NumberGenerator produces certificate numbers of the form
// LUM2026-483920-7152-QXB-9K2P7. Entropy is high enough that collisions are
// effectively theoretical; the issuer still checks both stores and falls back
// to Disambiguate if it somehow runs out of retries.
type NumberGenerator struct {
	prefix string
	mu     sync.Mutex
	rng    *rand.Rand
}

func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{
		prefix: certNumberPrefix,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *NumberGenerator) Generate(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%s%d-%06d-%04d-%s-%s",
		g.prefix,
		now.Year(),
		g.rng.Intn(1000000),
		g.rng.Intn(10000),
		g.randomString(letters, 3),
		g.randomString(alnum, 5),
	)
}

// Disambiguate forces uniqueness deterministically by appending the current
// nanosecond timestamp. Used only when every random attempt collided.
func (g *NumberGenerator) Disambiguate(base string, now time.Time) string {
	return base + "-" + strconv.FormatInt(now.UnixNano(), 36)
}

func (g *NumberGenerator) randomString(charset string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = charset[g.rng.Intn(len(charset))]
	}
	return string(b)
}
