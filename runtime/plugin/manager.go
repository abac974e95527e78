package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

var (
	// ErrMissingDependency means a plugin names a dependency that was never registered.
	ErrMissingDependency = errors.New("missing plugin dependency")
	// ErrDependencyCycle means the declared dependency graph is not acyclic.
	ErrDependencyCycle = errors.New("plugin dependency cycle")
	// ErrAlreadyStarted means Start was called twice on the same manager.
	ErrAlreadyStarted = errors.New("plugin manager already started")
)

// Plugin is a declarative capability module. Init runs once during Start with
// a handle to the shared registry; Destroy runs once during Stop. Either hook
// may be nil.
type Plugin struct {
	Name         string
	Version      string
	Dependencies []string

	Init    func(ctx context.Context, reg *Registry) error
	Destroy func(ctx context.Context) error
}

// Manager owns plugin descriptors and drives their ordered lifecycle.
// Registration is passive; dependency resolution happens when Start is
// attempted, so plugins may be registered in any order.
type Manager struct {
	l        *slog.Logger
	registry *Registry

	mu       sync.Mutex
	plugins  map[string]*Plugin
	regOrder []string // registration order, used as the topological tie-break
	started  []string // names in init-completion order
	running  bool
	stopped  bool
}

func NewManager(l *slog.Logger, registry *Registry) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Manager{
		l:        l,
		registry: registry,
		plugins:  make(map[string]*Plugin),
	}
}

// Registry returns the shared service registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Register records a plugin descriptor without running any of its code.
// Dependencies do not need to be registered yet.
func (m *Manager) Register(p *Plugin) error {
	if p == nil {
		return fmt.Errorf("plugin cannot be nil")
	}
	if p.Name == "" {
		return fmt.Errorf("plugin name cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.plugins[p.Name]; exists {
		return fmt.Errorf("plugin %s already registered", p.Name)
	}
	m.plugins[p.Name] = p
	m.regOrder = append(m.regOrder, p.Name)
	return nil
}

// Start resolves the dependency graph and runs every Init hook in topological
// order, sequentially. A plugin's Init only runs after all of its declared
// dependencies completed theirs, so it may call into their registered
// services. An Init failure aborts the sequence; plugins already initialized
// are left running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyStarted
	}

	order, err := m.resolveOrder()
	if err != nil {
		return err
	}

	m.running = true
	for _, name := range order {
		p := m.plugins[name]
		if p.Init != nil {
			if err := p.Init(ctx, m.registry); err != nil {
				return fmt.Errorf("initializing plugin %s: %w", name, err)
			}
		}
		m.started = append(m.started, name)
		m.l.Info("plugin initialized", "plugin", name, "version", p.Version)
	}

	return nil
}

// Stop runs Destroy hooks in reverse init order and removes each plugin's
// registry entries. Destroy errors are logged, never propagated: partial
// cleanup must not prevent the rest of the teardown. Stop is idempotent;
// repeated or concurrent calls run each hook at most once.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil
	}
	m.stopped = true

	for i := len(m.started) - 1; i >= 0; i-- {
		name := m.started[i]
		p := m.plugins[name]
		if p.Destroy != nil {
			if err := p.Destroy(ctx); err != nil {
				m.l.Error("plugin destroy failed", "plugin", name, "error", err)
			}
		}
		m.registry.RemovePlugin(name)
		m.l.Info("plugin destroyed", "plugin", name)
	}

	m.started = nil
	return nil
}

// resolveOrder computes a topological order over the declared dependencies.
// Missing dependencies and cycles are configuration errors surfaced here, at
// start time, not at registration. Ties break by registration order so
// repeated starts of the same configuration behave identically.
func (m *Manager) resolveOrder() ([]string, error) {
	for _, name := range m.regOrder {
		for _, dep := range m.plugins[name].Dependencies {
			if _, ok := m.plugins[dep]; !ok {
				return nil, fmt.Errorf("plugin %s requires %s: %w", name, dep, ErrMissingDependency)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		visited
	)

	state := make(map[string]int, len(m.plugins))
	order := make([]string, 0, len(m.plugins))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("%w: %v", ErrDependencyCycle, append(path, name))
		}

		state[name] = visiting
		deps := append([]string(nil), m.plugins[name].Dependencies...)
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = visited
		order = append(order, name)
		return nil
	}

	for _, name := range m.regOrder {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}

	return order, nil
}
