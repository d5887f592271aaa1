package adapters

import (
	"fmt"
	"sync"

	"github.com/brettbedarf/dok"
	"github.com/brettbedarf/dok/config"
)

// Factory builds a gateway from the runtime config
type Factory func(cfg *config.Config) (dok.Gateway, error)

// Registry ties gateway factories to a remote type key
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register ties a factory to a remote type key. The first registration for a
// key wins; later ones are ignored.
func (r *Registry) Register(remoteType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[remoteType]; exists {
		return
	}
	r.factories[remoteType] = f
}

// GetFactory returns the factory registered for remoteType
func (r *Registry) GetFactory(remoteType string) (Factory, error) {
	r.mu.RLock()
	f, ok := r.factories[remoteType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no gateway factory for %q", remoteType)
	}
	return f, nil
}

// NewGateway picks the factory based on cfg.RemoteType and builds the gateway
func (r *Registry) NewGateway(cfg *config.Config) (dok.Gateway, error) {
	f, err := r.GetFactory(cfg.RemoteType)
	if err != nil {
		return nil, err
	}
	return f(cfg)
}

var defaultRegistry = NewRegistry()

// Register adds a factory to the default registry
func Register(remoteType string, f Factory) {
	defaultRegistry.Register(remoteType, f)
}

// NewGateway builds a gateway from the default registry.
// Built-ins must be registered first with [RegisterBuiltins].
func NewGateway(cfg *config.Config) (dok.Gateway, error) {
	return defaultRegistry.NewGateway(cfg)
}
