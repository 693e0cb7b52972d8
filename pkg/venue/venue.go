package venue

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/model"
)

// Provider is the contract a venue implementation must satisfy. Both calls
// are network-bound and may take hundreds of milliseconds to seconds.
type Provider interface {
	Name() string
	Quote(ctx context.Context, assetIn, assetOut string, amountIn decimal.Decimal) (*model.Quote, error)
	Execute(ctx context.Context, order *model.Order, referencePrice decimal.Decimal) (*model.ExecutionResult, error)
}

// Registry holds providers in registration order. That order doubles as
// the fixed priority used to break quote ties.
type Registry struct {
	providers []Provider
	byName    map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Provider),
	}
}

func (r *Registry) Register(p Provider) {
	if _, ok := r.byName[p.Name()]; ok {
		return
	}
	r.providers = append(r.providers, p)
	r.byName[p.Name()] = p
}

// Providers returns all providers in priority order.
func (r *Registry) Providers() []Provider {
	return r.providers
}

func (r *Registry) Provider(name string) (Provider, error) {
	if p, ok := r.byName[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no provider registered for venue %q", name)
}

func (r *Registry) Len() int {
	return len(r.providers)
}
