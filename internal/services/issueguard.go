package services

import (
	"context"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/utils"
)

// IssueGuard is the auto-issue duplicate-invocation hint: a short lease per
// (user, entity) that keeps near-simultaneous completion events from firing
// the issuer twice. It is deliberately best-effort; the database's active_key
// unique index is what actually prevents duplicate certificates.
type IssueGuard interface {
	TryAcquire(ctx context.Context, key string) bool
}

const issueGuardTTL = 30 * time.Second

// NewIssueGuard returns a Redis-backed guard when REDIS_ADDR is configured
// (shared across instances), and an in-process one otherwise.
func NewIssueGuard(baseLog *logger.Logger) IssueGuard {
	guardLog := baseLog.With("service", "IssueGuard")

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", nil))
	if addr == "" {
		guardLog.Info("REDIS_ADDR not set, using in-process issue guard")
		return newLocalIssueGuard()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		guardLog.Warn("redis ping failed, falling back to in-process issue guard", "error", err)
		_ = rdb.Close()
		return newLocalIssueGuard()
	}

	guardLog.Info("using redis issue guard", "addr", addr)
	return &redisIssueGuard{log: guardLog, rdb: rdb}
}

type redisIssueGuard struct {
	log *logger.Logger
	rdb *goredis.Client
}

func (g *redisIssueGuard) TryAcquire(ctx context.Context, key string) bool {
	ok, err := g.rdb.SetNX(ctx, "autoissue:"+key, 1, issueGuardTTL).Result()
	if err != nil {
		// Guard unavailability must never block issuance; let it through and
		// rely on the storage constraint.
		g.log.Warn("issue guard acquire failed, proceeding without lease", "key", key, "error", err)
		return true
	}
	return ok
}

type localIssueGuard struct {
	mu     sync.Mutex
	leases map[string]time.Time
}

func newLocalIssueGuard() *localIssueGuard {
	return &localIssueGuard{leases: make(map[string]time.Time)}
}

func (g *localIssueGuard) TryAcquire(_ context.Context, key string) bool {
	now := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	if until, held := g.leases[key]; held && now.Before(until) {
		return false
	}
	g.leases[key] = now.Add(issueGuardTTL)
	return true
}
