package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/nikbrunner/marks/internal/query"
	"github.com/nikbrunner/marks/internal/service"
	"github.com/nikbrunner/marks/internal/storage"
)

func TestRegistry_ReusesClientPerUser(t *testing.T) {
	r := newRegistry(storage.NewMemoryStorage(), service.Options{}, query.CacheOptions{}, 0, 0, zaptest.NewLogger(t))

	a := r.client("alice")
	assert.Same(t, a, r.client("alice"))
	assert.NotSame(t, a, r.client("bob"))
	assert.Equal(t, 2, r.len())
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	r := newRegistry(storage.NewMemoryStorage(), service.Options{}, query.CacheOptions{}, 2, time.Hour, zaptest.NewLogger(t))

	alice := r.client("alice")
	r.client("bob")
	r.client("alice")
	r.client("carol")

	assert.Equal(t, 2, r.len())
	assert.Same(t, alice, r.client("alice"), "recently used client kept")
}

func TestRegistry_DropsIdleClients(t *testing.T) {
	r := newRegistry(storage.NewMemoryStorage(), service.Options{}, query.CacheOptions{}, 0, 20*time.Millisecond, zaptest.NewLogger(t))

	alice := r.client("alice")
	time.Sleep(60 * time.Millisecond)
	assert.NotSame(t, alice, r.client("alice"))
}
