package demo

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryRepository is an in-process Repository.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MemoryRepository struct {
	mu    sync.Mutex
	todos []TodoElement
	saves int
}

// NewMemoryRepository creates a repository holding todos.
func NewMemoryRepository(todos ...TodoElement) *MemoryRepository {
	return &MemoryRepository{todos: slices.Clone(todos)}
}

// Load returns the saved todos.
func (r *MemoryRepository) Load(ctx context.Context) ([]TodoElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.todos), nil
}

// Save replaces the saved todos.
func (r *MemoryRepository) Save(ctx context.Context, todos []TodoElement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.todos = slices.Clone(todos)
	r.saves++
	return nil
}

// Search returns the titles of saved todos containing query,
// case-insensitively, in list order.
func (r *MemoryRepository) Search(ctx context.Context, query string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	q := strings.ToLower(query)
	var out []string
	for _, t := range r.todos {
		if strings.Contains(strings.ToLower(t.State.Title), q) {
			out = append(out, t.State.Title)
		}
	}
	return out, nil
}

// Saves returns how many times Save succeeded.
func (r *MemoryRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}
