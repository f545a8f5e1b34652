// Package datatable implements the data-table and timeseries lookup
// service the engine consults while a model is being assembled: a
// key→value or key→array store plus per-step series aligned to the
// model calendar, with an in-memory backend and a Redis-backed cache
// in front of it.
package datatable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned when a requested (table, row) pair is
// absent from the backing store.
var ErrKeyNotFound = errors.New("datatable: key not found")

// Table is the engine's read-only view over an external data table
// and timeseries service, consulted only during network construction,
// never from the per-step run loop.
type Table interface {
	// Lookup returns a scalar value for (table, row).
	Lookup(ctx context.Context, table, row string) (float64, error)
	// LookupArray returns a vector value for (table, row), e.g. a
	// monthly profile or control-curve break list.
	LookupArray(ctx context.Context, table, row string) ([]float64, error)
	// TimeseriesAt returns the value aligned to the model calendar at
	// the given step index, optionally scoped to a scenario group
	// index (groupIndex < 0 means "not scenario-indexed").
	TimeseriesAt(ctx context.Context, name string, stepIndex, groupIndex int) (float64, error)
	Close() error
}

func key(table, row string) string {
	return fmt.Sprintf("datatable:%s:%s", table, row)
}

func timeseriesKey(name string, stepIndex, groupIndex int) string {
	if groupIndex < 0 {
		return fmt.Sprintf("timeseries:%s:%d", name, stepIndex)
	}
	return fmt.Sprintf("timeseries:%s:%d:%d", name, groupIndex, stepIndex)
}

// Memory is an in-process Table backed by plain maps, used as the
// fallback when no Redis endpoint is configured and in tests.
type Memory struct {
	mu         sync.RWMutex
	scalars    map[string]float64
	arrays     map[string][]float64
	timeseries map[string]float64
}

// NewMemory builds an empty Memory table.
func NewMemory() *Memory {
	return &Memory{
		scalars:    make(map[string]float64),
		arrays:     make(map[string][]float64),
		timeseries: make(map[string]float64),
	}
}

// SeedScalar inserts a scalar row, for use by loaders/tests.
func (m *Memory) SeedScalar(table, row string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scalars[key(table, row)] = value
}

// SeedArray inserts an array row, for use by loaders/tests.
func (m *Memory) SeedArray(table, row string, values []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]float64, len(values))
	copy(cp, values)
	m.arrays[key(table, row)] = cp
}

// SeedTimeseries inserts a per-step value, for use by loaders/tests.
func (m *Memory) SeedTimeseries(name string, stepIndex, groupIndex int, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeseries[timeseriesKey(name, stepIndex, groupIndex)] = value
}

// Lookup implements Table.
func (m *Memory) Lookup(_ context.Context, table, row string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.scalars[key(table, row)]
	if !ok {
		return 0, ErrKeyNotFound
	}
	return v, nil
}

// LookupArray implements Table.
func (m *Memory) LookupArray(_ context.Context, table, row string) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.arrays[key(table, row)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out, nil
}

// TimeseriesAt implements Table.
func (m *Memory) TimeseriesAt(_ context.Context, name string, stepIndex, groupIndex int) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.timeseries[timeseriesKey(name, stepIndex, groupIndex)]
	if !ok {
		if groupIndex >= 0 {
			if v2, ok2 := m.timeseries[timeseriesKey(name, stepIndex, -1)]; ok2 {
				return v2, nil
			}
		}
		return 0, ErrKeyNotFound
	}
	return v, nil
}

// Close implements Table.
func (m *Memory) Close() error { return nil }

// Redis is a Table backed by go-redis/v9, fronting a Memory fallback
// for keys the cache has not seen. Values are stored JSON-encoded.
type Redis struct {
	client   *redis.Client
	fallback *Memory
	ttl      time.Duration
}

// RedisOptions configures a Redis-backed Table.
type RedisOptions struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	DefaultTTL time.Duration
}

// NewRedis dials a Redis-backed Table, pinging the server once at
// construction so misconfiguration fails fast.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: poolSize,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("datatable: redis ping failed: %w", err)
	}
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Redis{client: client, fallback: NewMemory(), ttl: ttl}, nil
}

// Lookup implements Table, consulting Redis first and the in-memory
// seed data (set via SeedScalar, e.g. loaded once at startup) on a
// cache miss.
func (r *Redis) Lookup(ctx context.Context, table, row string) (float64, error) {
	data, err := r.client.Get(ctx, key(table, row)).Bytes()
	if err == nil {
		var v float64
		if jerr := json.Unmarshal(data, &v); jerr == nil {
			return v, nil
		}
	}
	return r.fallback.Lookup(ctx, table, row)
}

// LookupArray implements Table.
func (r *Redis) LookupArray(ctx context.Context, table, row string) ([]float64, error) {
	data, err := r.client.Get(ctx, key(table, row)).Bytes()
	if err == nil {
		var v []float64
		if jerr := json.Unmarshal(data, &v); jerr == nil {
			return v, nil
		}
	}
	return r.fallback.LookupArray(ctx, table, row)
}

// TimeseriesAt implements Table.
func (r *Redis) TimeseriesAt(ctx context.Context, name string, stepIndex, groupIndex int) (float64, error) {
	data, err := r.client.Get(ctx, timeseriesKey(name, stepIndex, groupIndex)).Bytes()
	if err == nil {
		var v float64
		if jerr := json.Unmarshal(data, &v); jerr == nil {
			return v, nil
		}
	}
	return r.fallback.TimeseriesAt(ctx, name, stepIndex, groupIndex)
}

// Seed primes both the Redis store and the in-memory fallback with a
// scalar row, used by loaders that read an external data table once
// at construction time and want subsequent lookups warm.
func (r *Redis) Seed(ctx context.Context, table, row string, value float64) error {
	r.fallback.SeedScalar(table, row, value)
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key(table, row), data, r.ttl).Err()
}

// Close implements Table.
func (r *Redis) Close() error {
	return r.client.Close()
}
