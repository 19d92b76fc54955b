// Package store keeps the in-memory state of the embedded collaborator
// domains.
package store

import (
	"errors"
	"sync"

	"github.com/fairyhunter13/product-composite-service/internal/model"
)

// ErrDuplicateKey is returned when inserting an entity whose key exists.
var ErrDuplicateKey = errors.New("duplicate key")

// Products holds products by id.
type Products struct {
	mu sync.RWMutex
	m  map[int]model.Product
}

// NewProducts returns an empty product store.
func NewProducts() *Products {
	return &Products{m: make(map[int]model.Product)}
}

func (s *Products) Get(id int) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[id]
	return p, ok
}

// Insert adds p, failing with ErrDuplicateKey if the id exists.
func (s *Products) Insert(p model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[p.ProductID]; ok {
		return ErrDuplicateKey
	}
	s.m[p.ProductID] = p
	return nil
}

// Delete removes the product and reports whether it existed.
func (s *Products) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[id]
	delete(s.m, id)
	return ok
}

// Owned holds entities owned by a product, in insertion order per product.
type Owned[T any] struct {
	mu    sync.RWMutex
	keyOf func(T) (productID, id int)
	m     map[int][]T
}

// NewRecommendations returns a store for recommendations.
func NewRecommendations() *Owned[model.Recommendation] {
	return newOwned(func(r model.Recommendation) (int, int) { return r.ProductID, r.RecommendationID })
}

// NewReviews returns a store for reviews.
func NewReviews() *Owned[model.Review] {
	return newOwned(func(r model.Review) (int, int) { return r.ProductID, r.ReviewID })
}

func newOwned[T any](keyOf func(T) (int, int)) *Owned[T] {
	return &Owned[T]{keyOf: keyOf, m: make(map[int][]T)}
}

// Insert adds v, failing with ErrDuplicateKey if the (productId, id) pair exists.
func (s *Owned[T]) Insert(v T) error {
	pid, id := s.keyOf(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.m[pid] {
		if _, cid := s.keyOf(cur); cid == id {
			return ErrDuplicateKey
		}
	}
	s.m[pid] = append(s.m[pid], v)
	return nil
}

// ListByProduct returns a copy of the product's entities. The result is
// never nil.
func (s *Owned[T]) ListByProduct(productID int) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]T, 0, len(s.m[productID])), s.m[productID]...)
}

// DeleteByProduct removes every entity of the product and returns how many
// were removed.
func (s *Owned[T]) DeleteByProduct(productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.m[productID])
	delete(s.m, productID)
	return n
}
