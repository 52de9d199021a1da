package config

import (
	"fmt"
	"sort"
	"sync"
)

// QueryRegistry stores the data fetcher operation catalogue.
type QueryRegistry struct {
	queries map[string]*QueryDef
	mu      sync.RWMutex
}

// NewQueryRegistry creates a new query registry.
func NewQueryRegistry(queries map[string]*QueryDef) *QueryRegistry {
	copied := make(map[string]*QueryDef, len(queries))
	for k, v := range queries {
		copied[k] = v
	}
	return &QueryRegistry{queries: copied}
}

// Get retrieves a query definition by name.
func (r *QueryRegistry) Get(name string) (*QueryDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, exists := r.queries[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrQueryNotFound, name)
	}
	return q, nil
}

// Has checks if a query exists in the catalogue.
func (r *QueryRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.queries[name]
	return exists
}

// Names returns all query names in canonical order.
func (r *QueryRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.queries))
	for name := range r.queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of catalogued queries.
func (r *QueryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.queries)
}

// StoreRegistry holds the fixed table and secondary-index definitions of the
// operational store. Unknown names are programmer errors surfaced as typed
// errors that abort the orchestration.
type StoreRegistry struct {
	tables  map[string]*TableDef
	indexes map[string]*IndexDef
	mu      sync.RWMutex
}

// NewStoreRegistry creates a new store registry.
func NewStoreRegistry(tables map[string]*TableDef, indexes map[string]*IndexDef) *StoreRegistry {
	t := make(map[string]*TableDef, len(tables))
	for k, v := range tables {
		t[k] = v
	}
	i := make(map[string]*IndexDef, len(indexes))
	for k, v := range indexes {
		i[k] = v
	}
	return &StoreRegistry{tables: t, indexes: i}
}

// Table retrieves a table definition by name.
func (r *StoreRegistry) Table(name string) (*TableDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tables[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return t, nil
}

// Index retrieves a secondary index definition by symbolic name.
func (r *StoreRegistry) Index(name string) (*IndexDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, exists := r.indexes[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	return i, nil
}

// IndexNames returns all symbolic index names in canonical order.
func (r *StoreRegistry) IndexNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.indexes))
	for name := range r.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTable checks if a table is defined.
func (r *StoreRegistry) HasTable(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tables[name]
	return exists
}

// HasIndex checks if an index is defined.
func (r *StoreRegistry) HasIndex(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.indexes[name]
	return exists
}

// TableCount returns the number of defined tables.
func (r *StoreRegistry) TableCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// IndexCount returns the number of defined indexes.
func (r *StoreRegistry) IndexCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.indexes)
}
