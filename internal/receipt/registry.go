package receipt

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry maps retailers to their parsing strategy
type Registry struct {
	mu         sync.RWMutex
	strategies map[RetailerType]Strategy
	fallback   Strategy
}

// NewRegistry creates an empty registry that resolves unregistered retailers to fallback
func NewRegistry(fallback Strategy) *Registry {
	return &Registry{
		strategies: make(map[RetailerType]Strategy),
		fallback:   fallback,
	}
}

// NewDefaultRegistry registers the dedicated Walmart, Target and Costco
// strategies with the generic strategy as fallback
func NewDefaultRegistry(logger *zerolog.Logger) *Registry {
	r := NewRegistry(NewGenericStrategy(logger))
	r.Register(RetailerWalmart, NewWalmartStrategy(logger))
	r.Register(RetailerTarget, NewTargetStrategy(logger))
	r.Register(RetailerCostco, NewCostcoStrategy(logger))
	return r
}

// Register registers a strategy for a retailer
func (r *Registry) Register(retailer RetailerType, strategy Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[retailer] = strategy
}

// Get retrieves the dedicated strategy for a retailer
func (r *Registry) Get(retailer RetailerType) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[retailer]
	return s, ok
}

// Resolve returns the dedicated strategy for a retailer or the fallback
func (r *Registry) Resolve(retailer RetailerType) Strategy {
	if s, ok := r.Get(retailer); ok {
		return s
	}
	return r.fallback
}

// List returns all retailers with a dedicated strategy
func (r *Registry) List() []RetailerType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]RetailerType, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	return ids
}
