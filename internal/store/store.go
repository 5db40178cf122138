// Package store keeps the current seed of named sequences so that several callers
// can advance one shared chain. Stores hold seeds only; every value is still
// computed by the pure xorshift operations.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/GwennKoi/XorShiftLPC/internal/xorshift"
)

var (
	ErrNotFound = errors.New("sequence not found")
	ErrConflict = errors.New("sequence changed concurrently")
)

// AdvanceFunc maps the stored seed to the one to store next.
// It may be called more than once per Advance, so it must not have side effects
// beyond the values it captures.
type AdvanceFunc func(cur xorshift.Seed) (xorshift.Seed, error)

type Store interface {
	Get(ctx context.Context, name string) (xorshift.Seed, error)
	Put(ctx context.Context, name string, seed xorshift.Seed) error
	Delete(ctx context.Context, name string) error
	// Advance atomically replaces the stored seed with fn's result.
	Advance(ctx context.Context, name string, fn AdvanceFunc) (xorshift.Seed, error)
}

type Memory struct {
	mu    sync.Mutex
	seeds map[string]xorshift.Seed
}

func NewMemory() *Memory {
	return &Memory{seeds: map[string]xorshift.Seed{}}
}

func (m *Memory) Get(_ context.Context, name string) (xorshift.Seed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.seeds[name]
	if !ok {
		return 0, ErrNotFound
	}
	return s, nil
}

func (m *Memory) Put(_ context.Context, name string, seed xorshift.Seed) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seeds[name] = seed.Sanitize()
	return nil
}

func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seeds[name]; !ok {
		return ErrNotFound
	}
	delete(m.seeds, name)
	return nil
}

func (m *Memory) Advance(_ context.Context, name string, fn AdvanceFunc) (xorshift.Seed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.seeds[name]
	if !ok {
		return 0, ErrNotFound
	}
	next, err := fn(cur)
	if err != nil {
		return 0, err
	}
	next = next.Sanitize()
	m.seeds[name] = next
	return next, nil
}
