package kvstore

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-memory Store implementation.
// Records are kept encoded, so callers never share memory with the store
// and metadata behaves as it does in the persistent backends.
// Thread-safe for concurrent reads and writes.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string][]byte
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string][]byte),
	}
}

// Get returns the record for id.
func (m *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	b, ok := m.rows[id]
	m.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	return DecodeRecord(b)
}

// GetBulk returns the records that exist for ids.
func (m *MemoryStore) GetBulk(ctx context.Context, ids []string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(ids))
	for _, id := range UniqueIDs(ids) {
		b, ok := m.rows[id]
		if !ok {
			continue
		}
		r, err := DecodeRecord(b)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Put upserts a record.
func (m *MemoryStore) Put(ctx context.Context, r Record) error {
	return m.PutBatch(ctx, []Record{r})
}

// PutBatch upserts records atomically.
func (m *MemoryStore) PutBatch(ctx context.Context, rs []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded := make([][]byte, len(rs))
	for i, r := range rs {
		if err := ValidateRecord(r); err != nil {
			return err
		}
		r.Sets = NormalizeSets(r.Sets)
		b, err := EncodeRecord(r)
		if err != nil {
			return err
		}
		encoded[i] = b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range rs {
		m.rows[r.ID] = encoded[i]
	}
	return nil
}

// UnionColumn adds values to a set column under the store lock.
func (m *MemoryStore) UnionColumn(ctx context.Context, key, column string, values []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrInvalidID
	}
	if err := ValidateColumn(column); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := Record{ID: key}
	if b, ok := m.rows[key]; ok {
		var err error
		if r, err = DecodeRecord(b); err != nil {
			return err
		}
	}
	if r.Sets == nil {
		r.Sets = make(map[string][]string, 1)
	}
	r.Sets[column] = UnionSorted(r.Sets[column], values)

	b, err := EncodeRecord(r)
	if err != nil {
		return err
	}
	m.rows[key] = b
	return nil
}

// Len returns the number of records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// NormalizeSets sorts and de-duplicates every column and drops empty ones.
func NormalizeSets(sets map[string][]string) map[string][]string {
	if len(sets) == 0 {
		return nil
	}
	out := make(map[string][]string, len(sets))
	for col, vals := range sets {
		if len(vals) == 0 {
			continue
		}
		s := slices.Clone(vals)
		slices.Sort(s)
		out[col] = slices.Compact(s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MemoryProvider hands out one MemoryStore per table name.
type MemoryProvider struct {
	mu     sync.Mutex
	tables map[string]*MemoryStore
}

// NewMemoryProvider creates an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{tables: make(map[string]*MemoryStore)}
}

// Table returns the store for name, creating it on first use.
func (p *MemoryProvider) Table(_ context.Context, name string) (Store, error) {
	return p.MemoryTable(name), nil
}

// MemoryTable is Table with the concrete type.
func (p *MemoryProvider) MemoryTable(name string) *MemoryStore {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.tables[name]
	if !ok {
		s = NewMemoryStore()
		p.tables[name] = s
	}
	return s
}

var (
	_ Store    = (*MemoryStore)(nil)
	_ Provider = (*MemoryProvider)(nil)
)
