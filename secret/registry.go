package secret

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory creates a Provider from its settings, which may be nil.
type ProviderFactory func(cfg map[string]any) (Provider, error)

// Registry maps provider names to factories. A deployment that keeps its
// signing key in another secret manager registers a factory for it before
// the configuration is loaded.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]ProviderFactory)}
}

// Register adds a provider factory. Names are unique.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return ErrInvalidProvider
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
	}
	r.providers[name] = factory
	return nil
}

// Create instantiates the provider registered as name.
func (r *Registry) Create(name string, cfg map[string]any) (Provider, error) {
	name = strings.TrimSpace(name)

	r.mu.RLock()
	factory, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	p, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("secret: create provider %q: %w", name, err)
	}
	return p, nil
}

// List returns registered provider names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewResolver creates every registered provider, passing each the entry of
// configs under its name, and returns a resolver over all of them.
func (r *Registry) NewResolver(strict bool, configs map[string]map[string]any) (*Resolver, error) {
	res := NewResolver(strict)
	for _, name := range r.List() {
		p, err := r.Create(name, configs[name])
		if err != nil {
			return nil, err
		}
		res.Register(p)
	}
	return res, nil
}

// DefaultRegistry holds the built-in env and file providers.
var DefaultRegistry = NewRegistry()

func init() {
	_ = DefaultRegistry.Register("env", func(map[string]any) (Provider, error) {
		return EnvProvider{}, nil
	})
	_ = DefaultRegistry.Register("file", newFileProvider)
}

// newFileProvider reads an optional "dir" setting.
func newFileProvider(cfg map[string]any) (Provider, error) {
	raw, ok := cfg["dir"]
	if !ok {
		return FileProvider{}, nil
	}
	dir, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("file provider dir must be a string, got %T", raw)
	}
	return FileProvider{Dir: dir}, nil
}
