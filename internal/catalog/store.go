package catalog

import (
	"sync"
	"sync/atomic"

	"github.com/lumenlauncher/lumen/internal/errors"
	"github.com/lumenlauncher/lumen/internal/match"
	"github.com/lumenlauncher/lumen/internal/normalize"
)

// Spec describes one item for registration. Matcher is the registry
// name to resolve at registration time; empty means the default.
type Spec struct {
	ID      string
	Labels  []string
	Payload any
	Matcher string
}

// Store is the engine's item store. Mutations (Upsert, Remove, Replace)
// are linearizable with respect to each other; Snapshot is wait-free
// for readers and frozen at call time.
type Store struct {
	normalizer *normalize.Normalizer
	registry   *match.Registry

	mu     sync.Mutex // serializes writers
	view   atomic.Pointer[Snapshot]
	closed atomic.Bool
}

// NewStore creates an empty store. The normalizer must be the same one
// used to normalize queries so labels and queries compare in the same
// form.
func NewStore(n *normalize.Normalizer, reg *match.Registry) *Store {
	s := &Store{normalizer: n, registry: reg}
	s.view.Store(&Snapshot{byID: map[string]*Item{}})
	return s
}

// Upsert inserts or replaces the item with the given id using the
// default matcher. Idempotent: re-applying an identical registration
// publishes no new snapshot.
func (s *Store) Upsert(id string, labels []string, payload any) error {
	return s.UpsertSpec(Spec{ID: id, Labels: labels, Payload: payload})
}

// UpsertSpec inserts or replaces an item, resolving its matcher by name.
func (s *Store) UpsertSpec(spec Spec) error {
	item, err := s.build(spec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return errors.StoreClosedError("upsert on closed store")
	}

	cur := s.view.Load()
	if prev, ok := cur.byID[spec.ID]; ok && prev.equivalent(spec.Labels, spec.Payload, spec.Matcher) {
		return nil
	}

	next := cur.cloneWith(item)
	s.view.Store(next)
	return nil
}

// Remove deletes the item with the given id. Removing an unknown id is
// a no-op, not an error. Snapshots taken earlier keep seeing the item.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return errors.StoreClosedError("remove on closed store")
	}

	cur := s.view.Load()
	if _, ok := cur.byID[id]; !ok {
		return nil
	}
	s.view.Store(cur.cloneWithout(id))
	return nil
}

// Replace swaps the entire catalog for the given items in one
// publication. Used by providers after a full rescan.
func (s *Store) Replace(specs []Spec) error {
	items := make([]*Item, 0, len(specs))
	byID := make(map[string]*Item, len(specs))
	for _, spec := range specs {
		item, err := s.build(spec)
		if err != nil {
			return err
		}
		if _, dup := byID[spec.ID]; dup {
			return errors.New(errors.ErrCodeItemInvalid, "duplicate item id "+spec.ID, nil)
		}
		items = append(items, item)
		byID[spec.ID] = item
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return errors.StoreClosedError("replace on closed store")
	}
	s.view.Store(&Snapshot{items: items, byID: byID})
	return nil
}

// Snapshot returns the current frozen view. O(1): a single atomic load.
// Fails only when the store has been closed.
func (s *Store) Snapshot() (*Snapshot, error) {
	if s.closed.Load() {
		return nil, errors.StoreClosedError("snapshot on closed store")
	}
	return s.view.Load(), nil
}

// Len returns the current item count.
func (s *Store) Len() int {
	return s.view.Load().Len()
}

// Close marks the store unavailable. Held snapshots remain usable;
// further mutations and snapshot acquisitions fail with a retryable
// store-closed error.
func (s *Store) Close() {
	s.closed.Store(true)
}

// build validates a spec, resolves its matcher, and precomputes the
// normalized match form of every label.
func (s *Store) build(spec Spec) (*Item, error) {
	if spec.ID == "" {
		return nil, errors.New(errors.ErrCodeItemInvalid, "item id must not be empty", nil)
	}
	if len(spec.Labels) == 0 {
		return nil, errors.New(errors.ErrCodeItemInvalid, "item "+spec.ID+" has no labels", nil)
	}

	matcher, err := s.registry.Resolve(spec.Matcher)
	if err != nil {
		return nil, errors.New(errors.ErrCodeItemInvalid, err.Error(), err)
	}

	labels := make([]string, len(spec.Labels))
	copy(labels, spec.Labels)
	normalized := make([]match.Text, len(labels))
	for i, l := range labels {
		normalized[i] = match.NewText(s.normalizer.Normalize(l))
	}

	return &Item{
		ID:          spec.ID,
		Labels:      labels,
		Payload:     spec.Payload,
		matcherName: spec.Matcher,
		matcher:     matcher,
		normalized:  normalized,
	}, nil
}

// Snapshot is a frozen, read-only view of the catalog. Safe for
// concurrent use; never mutated after publication.
type Snapshot struct {
	items []*Item
	byID  map[string]*Item
}

// Len returns the number of items in the snapshot.
func (sn *Snapshot) Len() int { return len(sn.items) }

// At returns the item at index i.
func (sn *Snapshot) At(i int) *Item { return sn.items[i] }

// Get returns the item with the given id, if present.
func (sn *Snapshot) Get(id string) (*Item, bool) {
	it, ok := sn.byID[id]
	return it, ok
}

func (sn *Snapshot) cloneWith(item *Item) *Snapshot {
	next := &Snapshot{
		items: make([]*Item, 0, len(sn.items)+1),
		byID:  make(map[string]*Item, len(sn.byID)+1),
	}
	for _, it := range sn.items {
		if it.ID == item.ID {
			continue
		}
		next.items = append(next.items, it)
		next.byID[it.ID] = it
	}
	next.items = append(next.items, item)
	next.byID[item.ID] = item
	return next
}

func (sn *Snapshot) cloneWithout(id string) *Snapshot {
	next := &Snapshot{
		items: make([]*Item, 0, len(sn.items)),
		byID:  make(map[string]*Item, len(sn.byID)),
	}
	for _, it := range sn.items {
		if it.ID == id {
			continue
		}
		next.items = append(next.items, it)
		next.byID[it.ID] = it
	}
	return next
}
