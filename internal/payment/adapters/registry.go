package adapters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smallbiznis/menusready/internal/payment/domain"
)

// Registry maps a provider name to the factory that builds its gateway.
// Names are matched case-insensitively.
type Registry struct {
	factories map[string]domain.AdapterFactory
}

// NewRegistry registers factories in order. Nil factories are skipped and
// the first factory for a provider wins.
func NewRegistry(factories ...domain.AdapterFactory) *Registry {
	r := &Registry{factories: make(map[string]domain.AdapterFactory, len(factories))}
	for _, factory := range factories {
		_ = r.Register(factory)
	}
	return r
}

func (r *Registry) Register(factory domain.AdapterFactory) error {
	if factory == nil {
		return domain.ErrInvalidProvider
	}
	name := normalize(factory.Provider())
	if name == "" {
		return domain.ErrInvalidProvider
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s already registered", domain.ErrInvalidProvider, name)
	}
	r.factories[name] = factory
	return nil
}

func (r *Registry) ProviderExists(provider string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[normalize(provider)]
	return ok
}

// Providers lists registered provider names, sorted.
func (r *Registry) Providers() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewAdapter builds the gateway for provider. Factory errors are wrapped
// with the provider name and keep their sentinel.
func (r *Registry) NewAdapter(provider string, cfg domain.AdapterConfig) (domain.Gateway, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	name := normalize(provider)
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrProviderNotFound, name)
	}
	gw, err := factory.NewAdapter(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s adapter: %w", name, err)
	}
	return gw, nil
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
