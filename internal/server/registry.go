package server

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/nikbrunner/marks/internal/query"
	"github.com/nikbrunner/marks/internal/service"
	"github.com/nikbrunner/marks/internal/session"
	"github.com/nikbrunner/marks/internal/storage"
)

const (
	defaultMaxClients = 1024
	defaultClientIdle = 30 * time.Minute
)

// registry holds one query.Client per user so each user keeps a warm cache.
// It keeps at most size clients and drops a client unused for idle.
type registry struct {
	mu      sync.Mutex
	clients *expirable.LRU[string, *query.Client]
	newFn   func(userID string) *query.Client
}

func newRegistry(backend storage.Backend, svcOpts service.Options, cacheOpts query.CacheOptions,
	size int, idle time.Duration, logger *zap.Logger) *registry {
	if size <= 0 {
		size = defaultMaxClients
	}
	if idle <= 0 {
		idle = defaultClientIdle
	}
	evicted := func(userID string, _ *query.Client) {
		logger.Debug("client evicted", zap.String("user_id", userID))
	}
	return &registry{
		clients: expirable.NewLRU[string, *query.Client](size, evicted, idle),
		newFn: func(userID string) *query.Client {
			l := logger.With(zap.String("user_id", userID))
			svc := service.New(storage.NewScope(backend, session.Static(userID)), l, svcOpts)
			opts := cacheOpts
			opts.Logger = l
			return query.NewClient(svc, query.NewCache(opts), l)
		},
	}
}

func (r *registry) client(userID string) *query.Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients.Get(userID)
	if !ok {
		c = r.newFn(userID)
	}
	// Adding again restarts the idle timer.
	r.clients.Add(userID, c)
	return c
}

func (r *registry) len() int {
	return r.clients.Len()
}
