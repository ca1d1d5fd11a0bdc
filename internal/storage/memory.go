package storage

import (
	"context"
	"sync"

	"github.com/pauljones0/gallery-price-sync/internal/models"
)

// Memory keeps products in process memory. It is lost on restart.
type Memory struct {
	mu       sync.RWMutex
	products map[string]models.ProductRecord
}

func NewMemory() *Memory {
	return &Memory{products: make(map[string]models.ProductRecord)}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) List(_ context.Context, ids []string) (map[string]models.ProductRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]models.ProductRecord)
	if len(ids) == 0 {
		for id, p := range m.products {
			out[id] = p
		}
		return out, nil
	}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (models.ProductRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return models.ProductRecord{}, models.ErrProductNotFound
	}
	return p, nil
}

func (m *Memory) Create(_ context.Context, p models.ProductRecord) (models.ProductRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.products[p.ID]; exists {
		return models.ProductRecord{}, models.ErrProductExists
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *Memory) Update(_ context.Context, id string, u models.ProductUpdate) (models.ProductRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return models.ProductRecord{}, models.ErrProductNotFound
	}
	u.Apply(&p)
	m.products[id] = p
	return p, nil
}

func (m *Memory) Put(_ context.Context, p models.ProductRecord) error {
	m.mu.Lock()
	m.products[p.ID] = p
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.products, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products), nil
}
