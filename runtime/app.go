package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flowgrid/flowgrid/runtime/condition"
	"github.com/flowgrid/flowgrid/runtime/plugin"
)

// App wires the orchestration triad together: the shared registry, the plugin
// lifecycle manager, the condition evaluator, and the engine, plus the flow
// definitions loaded from disk or registered programmatically. Multiple Apps
// can coexist in one process; nothing here is global.
type App struct {
	Logger     *slog.Logger
	Registry   *plugin.Registry
	Plugins    *plugin.Manager
	Conditions *condition.Evaluator
	Engine     *Engine

	mu    sync.RWMutex
	flows map[string]Flow
}

// NewApp builds an app and, when flowsDir is non-empty, loads every flow
// document found there.
func NewApp(l *slog.Logger, flowsDir string) (*App, error) {
	registry := plugin.NewRegistry()
	conditions := condition.NewEvaluator(condition.DefaultConfig())

	app := &App{
		Logger:     l,
		Registry:   registry,
		Plugins:    plugin.NewManager(l, registry),
		Conditions: conditions,
		Engine:     NewEngine(l, registry, conditions),
		flows:      make(map[string]Flow),
	}

	if flowsDir != "" {
		flows, err := LoadFlows(flowsDir)
		if err != nil {
			return nil, err
		}
		app.flows = flows
	}

	return app, nil
}

// RegisterFlow validates and records a flow definition.
func (a *App) RegisterFlow(flow Flow) error {
	if err := flow.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flows[flow.ID] = flow
	return nil
}

// RegisterPlugin records a plugin with the lifecycle manager.
func (a *App) RegisterPlugin(p *plugin.Plugin) error {
	return a.Plugins.Register(p)
}

// Flow returns a registered flow by id.
func (a *App) Flow(id string) (Flow, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	flow, ok := a.flows[id]
	return flow, ok
}

// Flows returns all registered flows keyed by id.
func (a *App) Flows() map[string]Flow {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]Flow, len(a.flows))
	for id, f := range a.flows {
		out[id] = f
	}
	return out
}

// Start brings up all registered plugins in dependency order.
func (a *App) Start(ctx context.Context) error {
	return a.Plugins.Start(ctx)
}

// Stop tears down all started plugins in reverse order. Idempotent.
func (a *App) Stop(ctx context.Context) error {
	return a.Plugins.Stop(ctx)
}

// ExecuteFlow runs a registered flow by id.
func (a *App) ExecuteFlow(ctx context.Context, id string, variables map[string]any) (*Execution, error) {
	flow, ok := a.Flow(id)
	if !ok {
		return nil, fmt.Errorf("flow %s not found", id)
	}
	return a.Engine.Execute(ctx, &flow, variables)
}
