package match

import (
	"fmt"
	"sort"
	"sync"
)

// Matcher names built into every registry.
const (
	NameSubsequence = "subsequence"
	NameFuzzy       = "fuzzy"
)

// DefaultName is the matcher used when an item registers without one.
const DefaultName = NameSubsequence

// Registry maps matcher names to implementations. Collaborators may
// register their own variants; resolution happens once at catalog
// registration time, never per keystroke.
type Registry struct {
	mu       sync.RWMutex
	matchers map[string]Matcher
}

// NewRegistry creates a registry pre-populated with the built-in
// matchers.
func NewRegistry() *Registry {
	return &Registry{
		matchers: map[string]Matcher{
			NameSubsequence: Subsequence{},
			NameFuzzy:       Fuzzy{},
		},
	}
}

// Register adds a named matcher. Registering an existing name is an
// error so a collaborator cannot silently replace the built-ins.
func (r *Registry) Register(name string, m Matcher) error {
	if name == "" {
		return fmt.Errorf("matcher name must not be empty")
	}
	if m == nil {
		return fmt.Errorf("matcher %q must not be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.matchers[name]; exists {
		return fmt.Errorf("matcher %q already registered", name)
	}
	r.matchers[name] = m
	return nil
}

// Resolve returns the matcher for name. An empty name resolves to the
// default matcher.
func (r *Registry) Resolve(name string) (Matcher, error) {
	if name == "" {
		name = DefaultName
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matchers[name]
	if !ok {
		return nil, fmt.Errorf("unknown matcher %q (registered: %v)", name, r.names())
	}
	return m, nil
}

// Names returns the registered matcher names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.matchers))
	for name := range r.matchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
