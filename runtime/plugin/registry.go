package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ActionCall carries the input for one action invocation: the params declared
// on the flow node (already templated) and the execution's current variables.
type ActionCall struct {
	Params    map[string]any
	Variables map[string]any
}

// ProviderQuery carries the input for a provider read.
type ProviderQuery struct {
	Query map[string]any
}

// CallResult is the uniform result shape for actions and providers.
type CallResult struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Action is a named, side-effecting operation invocable from a flow.
type Action interface {
	Execute(ctx context.Context, call ActionCall) (*CallResult, error)
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(ctx context.Context, call ActionCall) (*CallResult, error)

func (f ActionFunc) Execute(ctx context.Context, call ActionCall) (*CallResult, error) {
	return f(ctx, call)
}

// Provider is a named, read-only data fetch. Providers carry no flow-branching
// semantics; they serve direct queries outside the engine walk.
type Provider interface {
	Get(ctx context.Context, query ProviderQuery) (*CallResult, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, query ProviderQuery) (*CallResult, error)

func (f ProviderFunc) Get(ctx context.Context, query ProviderQuery) (*CallResult, error) {
	return f(ctx, query)
}

type actionEntry struct {
	plugin      string
	name        string
	inputSchema map[string]any
	action      Action
}

type providerEntry struct {
	plugin   string
	name     string
	provider Provider
}

// Registry holds the actions and providers plugins register during their
// lifecycle. Lookups are safe for concurrent use; writes happen only during
// lifecycle transitions, which the Manager serializes.
type Registry struct {
	mu        sync.RWMutex
	actions   map[string]*actionEntry
	providers map[string]*providerEntry
}

func NewRegistry() *Registry {
	return &Registry{
		actions:   make(map[string]*actionEntry),
		providers: make(map[string]*providerEntry),
	}
}

// RegisterAction records an action under "<pluginName>.<actionName>".
// The schema is advisory metadata describing the expected params.
func (r *Registry) RegisterAction(pluginName, actionName string, inputSchema map[string]any, action Action) error {
	if pluginName == "" || actionName == "" {
		return fmt.Errorf("action registration requires plugin and action names")
	}
	if action == nil {
		return fmt.Errorf("action %s.%s is nil", pluginName, actionName)
	}

	key := serviceKey(pluginName, actionName)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[key]; exists {
		return fmt.Errorf("action %s already registered", key)
	}
	r.actions[key] = &actionEntry{
		plugin:      pluginName,
		name:        actionName,
		inputSchema: inputSchema,
		action:      action,
	}
	return nil
}

// RegisterProvider records a provider under "<pluginName>.<providerName>".
func (r *Registry) RegisterProvider(pluginName, providerName string, provider Provider) error {
	if pluginName == "" || providerName == "" {
		return fmt.Errorf("provider registration requires plugin and provider names")
	}
	if provider == nil {
		return fmt.Errorf("provider %s.%s is nil", pluginName, providerName)
	}

	key := serviceKey(pluginName, providerName)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[key]; exists {
		return fmt.Errorf("provider %s already registered", key)
	}
	r.providers[key] = &providerEntry{plugin: pluginName, name: providerName, provider: provider}
	return nil
}

// Action resolves a registered action.
func (r *Registry) Action(pluginName, actionName string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.actions[serviceKey(pluginName, actionName)]
	if !ok {
		return nil, false
	}
	return entry.action, true
}

// ActionSchema returns the advisory input schema registered with an action.
func (r *Registry) ActionSchema(pluginName, actionName string) (map[string]any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.actions[serviceKey(pluginName, actionName)]
	if !ok {
		return nil, false
	}
	return entry.inputSchema, true
}

// Provider resolves a registered provider.
func (r *Registry) Provider(pluginName, providerName string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.providers[serviceKey(pluginName, providerName)]
	if !ok {
		return nil, false
	}
	return entry.provider, true
}

// RemovePlugin drops every action and provider the named plugin registered.
// Called by the Manager during teardown.
func (r *Registry) RemovePlugin(pluginName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, entry := range r.actions {
		if entry.plugin == pluginName {
			delete(r.actions, key)
		}
	}
	for key, entry := range r.providers {
		if entry.plugin == pluginName {
			delete(r.providers, key)
		}
	}
}

// ActionNames returns all registered action keys, sorted.
func (r *Registry) ActionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for key := range r.actions {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// ProviderNames returns all registered provider keys, sorted.
func (r *Registry) ProviderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for key := range r.providers {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

func serviceKey(pluginName, name string) string {
	return pluginName + "." + name
}
