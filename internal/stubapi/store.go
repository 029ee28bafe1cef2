package stubapi

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/abgdnv/catalogadmin/internal/catalog"
)

// ErrProductNotFound is returned for ids the store does not hold.
var ErrProductNotFound = errors.New("product not found")

// ProductStore is the storage behind the stub API.
type ProductStore interface {
	// FindAll returns every product ordered by id.
	// Returns an empty slice if no products exist.
	FindAll() []catalog.Product

	// Create assigns the next id to payload and stores it.
	Create(payload catalog.Payload) catalog.Product

	// Update replaces the product with the given id.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(id int64, payload catalog.Payload) (catalog.Product, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(id int64) error
}

// inMemory implements ProductStore using a map keyed by id.
type inMemory struct {
	mu       sync.RWMutex
	products map[int64]catalog.Product
	nextID   int64
}

// NewInMemoryStore creates a store seeded with the given products.
// Ids are taken from the seed; new ids continue after the largest one.
func NewInMemoryStore(seed ...catalog.Product) ProductStore {
	s := &inMemory{
		products: make(map[int64]catalog.Product, len(seed)),
		nextID:   1,
	}
	for _, p := range seed {
		s.products[p.ID] = p
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
	}
	return s
}

func (s *inMemory) FindAll() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]catalog.Product, 0, len(s.products))
	for _, id := range slices.Sorted(maps.Keys(s.products)) {
		list = append(list, s.products[id])
	}
	return list
}

func (s *inMemory) Create(payload catalog.Payload) catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	product := payload.WithID(s.nextID)
	s.nextID++
	s.products[product.ID] = product
	return product
}

func (s *inMemory) Update(id int64, payload catalog.Payload) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return catalog.Product{}, ErrProductNotFound
	}
	product := payload.WithID(id)
	s.products[id] = product
	return product, nil
}

func (s *inMemory) DeleteByID(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}
