package agrion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agrion/agrion/config"
	"github.com/agrion/agrion/database"
	"github.com/agrion/agrion/database/memstore"
	"github.com/agrion/agrion/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWait = 2 * time.Second
	testTick = 10 * time.Millisecond
)

type recordingSink struct {
	mu     sync.Mutex
	events []model.AuditEvent
	err    error
}

func (s *recordingSink) LogEvent(_ context.Context, event model.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) Events() []model.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditEvent(nil), s.events...)
}

// recordingSinkStore keeps a store and the sink wired to the same engine together.
type recordingSinkStore struct {
	*memstore.MemStore
	sink *recordingSink
}

func fixedVolatility(v float64) VolatilitySource {
	return VolatilityFunc(func(context.Context, model.Farm) (float64, error) { return v, nil })
}

func fixedPrice(p float64) PriceSource {
	return PriceFunc(func(context.Context, string) (float64, error) { return p, nil })
}

// newTestAgrion builds an engine over an in-memory store with default policies and no redis.
func newTestAgrion(t *testing.T, opts ...Option) (*Agrion, *memstore.MemStore) {
	t.Helper()
	store := memstore.New()
	return newTestAgrionWithStore(t, store, opts...), store
}

func newTestAgrionWithStore(t *testing.T, ds database.IDataSource, opts ...Option) *Agrion {
	t.Helper()
	config.MockConfig(&config.Configuration{})
	a, err := NewAgrion(ds, opts...)
	require.NoError(t, err)
	return a
}

func newEngineWithSink(t *testing.T, opts ...Option) (*Agrion, *memstore.MemStore, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	store := memstore.New()
	a := newTestAgrionWithStore(t, store, append([]Option{WithAuditSink(sink)}, opts...)...)
	return a, store, sink
}

func TestNewAgrion_Defaults(t *testing.T) {
	a, _ := newTestAgrion(t)

	assert.IsType(t, DiseaseNameTargeting{}, a.targeting)
	assert.IsType(t, LogSink{}, a.auditSink)
	assert.IsType(t, &RandomOracle{}, a.volatility)
	assert.IsType(t, &RandomOracle{}, a.prices)
	assert.Nil(t, a.queue)
	assert.Nil(t, a.redis)
	assert.NoError(t, a.Close())
}

func TestNewAgrion_Options(t *testing.T) {
	sink := &recordingSink{}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a, _ := newTestAgrion(t,
		WithAuditSink(sink),
		WithVolatilitySource(fixedVolatility(0.3)),
		WithPriceSource(fixedPrice(25)),
		WithClock(func() time.Time { return now }),
		WithTargetingPolicy(TargetingFunc(func(context.Context, database.Store, model.OutbreakZone) ([]model.IrrigationZone, error) {
			return nil, errors.New("unused")
		})),
	)

	assert.Same(t, sink, a.auditSink)
	assert.Equal(t, now, a.now())
	vol, err := a.volatility.Volatility(context.Background(), model.Farm{})
	require.NoError(t, err)
	assert.Equal(t, 0.3, vol)
	assert.Equal(t, 0.85, a.Config().Transformer.Efficiency)
}

func TestSQLFilesEmbedded(t *testing.T) {
	entries, err := SQLFiles.ReadDir("sql")
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}
