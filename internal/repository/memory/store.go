// Package memory is an in-process storage backend. It keeps the same
// transactional and conditional-update contracts as the MongoDB backend and
// backs the service tests and STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

type txKey struct{}

type tables struct {
	farmers    map[string]models.Farmer
	milk       map[string]models.MilkEntry
	charts     map[string]models.RateChart
	deductions map[string]models.Deduction
	inventory  map[string]models.InventoryTransaction
	rules      map[string]models.BonusRuleConfig
	payments   map[string]models.BonusPayment
	bills      map[string]models.Bill
}

func (t tables) clone() tables {
	return tables{
		farmers:    maps.Clone(t.farmers),
		milk:       maps.Clone(t.milk),
		charts:     maps.Clone(t.charts),
		deductions: maps.Clone(t.deductions),
		inventory:  maps.Clone(t.inventory),
		rules:      maps.Clone(t.rules),
		payments:   maps.Clone(t.payments),
		bills:      maps.Clone(t.bills),
	}
}

// Store holds every collection in memory. Transactions are serialized:
// txMu is held for the whole unit of work, and every access made outside a
// transaction takes it too, so no caller ever observes a half-applied unit.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	t    tables
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{t: tables{
		farmers:    map[string]models.Farmer{},
		milk:       map[string]models.MilkEntry{},
		charts:     map[string]models.RateChart{},
		deductions: map[string]models.Deduction{},
		inventory:  map[string]models.InventoryTransaction{},
		rules:      map[string]models.BonusRuleConfig{},
		payments:   map[string]models.BonusPayment{},
		bills:      map[string]models.Bill{},
	}}
}

// Repositories exposes the store through the repository contracts.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Transactor:  s,
		Farmers:     &farmerRepo{s},
		MilkEntries: &milkRepo{s},
		RateCharts:  &chartRepo{s},
		Deductions:  &deductionRepo{s},
		Inventory:   &inventoryRepo{s},
		Bonuses:     &bonusRepo{s},
		Bills:       &billRepo{s},
	}
}

// WithTransaction runs fn with exclusive access and restores the previous
// state if fn fails.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.t.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (s *Store) read(ctx context.Context, fn func(t *tables)) {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.t)
}

func (s *Store) write(ctx context.Context, fn func(t *tables) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.t)
}
