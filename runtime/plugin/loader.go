package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Factory builds a plugin from optional configuration. Factories may perform
// I/O (reading manifests, probing endpoints) and are resolved concurrently by
// LoadParallel.
type Factory func(ctx context.Context, config map[string]any) (*Plugin, error)

// Source describes where a plugin comes from: either a ready instance or a
// factory plus its config. Exactly one of Plugin or Factory should be set.
type Source struct {
	Plugin  *Plugin
	Factory Factory
	Config  map[string]any
}

// LoadParallel resolves all sources concurrently and returns the plugins that
// resolved successfully, in source order. Failures are isolated per source:
// one broken factory never fails its siblings. This is discovery only; the
// Manager still initializes the result strictly in dependency order.
func LoadParallel(ctx context.Context, l *slog.Logger, sources []Source) []*Plugin {
	results := make([]*Plugin, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			p, err := resolveSource(ctx, src)
			if err != nil {
				l.Error("plugin source failed to resolve", "index", i, "error", err)
				return
			}
			results[i] = p
		}(i, src)
	}
	wg.Wait()

	loaded := make([]*Plugin, 0, len(sources))
	for _, p := range results {
		if p != nil {
			loaded = append(loaded, p)
		}
	}
	return loaded
}

func resolveSource(ctx context.Context, src Source) (*Plugin, error) {
	switch {
	case src.Plugin != nil:
		return src.Plugin, nil
	case src.Factory != nil:
		p, err := src.Factory(ctx, src.Config)
		if err != nil {
			return nil, fmt.Errorf("plugin factory: %w", err)
		}
		if p == nil {
			return nil, fmt.Errorf("plugin factory returned nil")
		}
		return p, nil
	default:
		return nil, fmt.Errorf("plugin source has neither instance nor factory")
	}
}
