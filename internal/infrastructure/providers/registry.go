// Package providers implements the ProviderAdapter port for each print
// vendor. Each adapter owns one vendor's wire formats, authentication and
// status vocabulary; everything above the adapter interface is
// vendor-agnostic.
package providers

import (
	"fmt"
	"sync"
	"time"

	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/infrastructure/config"
)

// Registry holds the active set of provider adapters. It is constructed
// once at startup and injected; nothing registers into it ambiently.
type Registry struct {
	mu       sync.RWMutex
	adapters map[pod.ProviderCode]pod.ProviderAdapter
	order    []pod.ProviderCode
}

// NewRegistry creates a new empty Registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[pod.ProviderCode]pod.ProviderAdapter),
	}
}

// NewRegistryFromConfig builds a registry holding every enabled vendor
func NewRegistryFromConfig(cfg config.ProvidersConfig) (*Registry, error) {
	r := NewRegistry()

	if cfg.Lulu.Enabled {
		adapter, err := NewLuluAdapter(&LuluConfig{
			APIKey:         cfg.Lulu.APIKey,
			APISecret:      cfg.Lulu.APISecret,
			WebhookSecret:  cfg.Lulu.WebhookSecret,
			APIBaseURL:     cfg.Lulu.BaseURL,
			IsSandbox:      cfg.Lulu.Environment == "sandbox",
			TimeoutSeconds: int(cfg.Lulu.Timeout / time.Second),
		})
		if err != nil {
			return nil, fmt.Errorf("lulu adapter: %w", err)
		}
		r.Register(adapter)
	}

	if cfg.Peecho.Enabled {
		// Peecho has no key/secret pair; the secret slot carries the merchant ID
		adapter, err := NewPeechoAdapter(&PeechoConfig{
			APIKey:         cfg.Peecho.APIKey,
			MerchantID:     cfg.Peecho.APISecret,
			WebhookSecret:  cfg.Peecho.WebhookSecret,
			APIBaseURL:     cfg.Peecho.BaseURL,
			IsSandbox:      cfg.Peecho.Environment == "sandbox",
			TimeoutSeconds: int(cfg.Peecho.Timeout / time.Second),
		})
		if err != nil {
			return nil, fmt.Errorf("peecho adapter: %w", err)
		}
		r.Register(adapter)
	}

	return r, nil
}

// Register adds an adapter to the registry. Registering the same provider
// code twice replaces the earlier adapter but keeps its position.
func (r *Registry) Register(adapter pod.ProviderAdapter) {
	if adapter == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	code := adapter.Code()
	if _, exists := r.adapters[code]; !exists {
		r.order = append(r.order, code)
	}
	r.adapters[code] = adapter
}

// Get returns the adapter for a provider code
func (r *Registry) Get(code pod.ProviderCode) (pod.ProviderAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[code]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider: %s", code)
	}
	return adapter, nil
}

// All returns every registered adapter in registration order
func (r *Registry) All() []pod.ProviderAdapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapters := make([]pod.ProviderAdapter, 0, len(r.order))
	for _, code := range r.order {
		adapters = append(adapters, r.adapters[code])
	}
	return adapters
}

// Codes returns the registered provider codes in registration order
func (r *Registry) Codes() []pod.ProviderCode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]pod.ProviderCode, len(r.order))
	copy(codes, r.order)
	return codes
}

// SupportingSpec returns the adapters whose capability check accepts the spec
func (r *Registry) SupportingSpec(spec pod.PrintSpec) []pod.ProviderAdapter {
	var supporting []pod.ProviderAdapter
	for _, adapter := range r.All() {
		if adapter.SupportsSpec(spec) {
			supporting = append(supporting, adapter)
		}
	}
	return supporting
}

// Ensure Registry implements the ProviderRegistry interface
var _ pod.ProviderRegistry = (*Registry)(nil)
