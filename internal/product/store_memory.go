package product

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemStore struct {
	mu    sync.RWMutex
	items []Product

	now   func() time.Time
	newID func() string
}

func NewMemStore() *MemStore {
	return &MemStore{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return "p_" + uuid.NewString() },
	}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context, q ListQuery) (Page, error) {
	q = q.normalized()
	needle := strings.ToLower(q.Search)

	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := s.items
	if needle != "" {
		filtered = make([]Product, 0, len(s.items))
		for _, p := range s.items {
			if strings.Contains(strings.ToLower(p.Name), needle) {
				filtered = append(filtered, p)
			}
		}
	}

	total := len(filtered)
	pages := totalPages(total, q.Limit)

	out := Page{
		Total:      total,
		Page:       q.Page,
		TotalPages: pages,
		Data:       []Product{},
	}
	if q.Page > pages {
		return out, nil
	}

	start := (q.Page - 1) * q.Limit
	end := min(start+q.Limit, total)
	out.Data = make([]Product, 0, end-start)
	for _, p := range filtered[start:end] {
		out.Data = append(out.Data, p.clone())
	}
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Product{}, ErrNotFound
	}
	return s.items[i].clone(), nil
}

func (s *MemStore) Create(ctx context.Context, d Draft) (Product, error) {
	if err := d.Validate(); err != nil {
		return Product{}, err
	}

	p := Product{
		ID:          s.newID(),
		Name:        d.Name,
		Price:       *d.Price,
		Description: d.Description,
		CreatedAt:   s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, p.clone())
	return p, nil
}

func (s *MemStore) Update(ctx context.Context, id string, patch Patch) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Product{}, ErrNotFound
	}

	p := s.items[i]
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Description != nil {
		d := *patch.Description
		p.Description = &d
	}
	now := s.now()
	p.UpdatedAt = &now

	s.items[i] = p
	return p.clone(), nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

// indexOf expects s.mu to be held.
func (s *MemStore) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
