package plugin

import (
	"context"
	"errors"
	"testing"
)

func TestLoadParallel(t *testing.T) {
	static := &Plugin{Name: "static"}
	sources := []Source{
		{Plugin: static},
		{Factory: func(ctx context.Context, config map[string]any) (*Plugin, error) {
			return &Plugin{Name: config["name"].(string)}, nil
		}, Config: map[string]any{"name": "built"}},
		{Factory: func(ctx context.Context, config map[string]any) (*Plugin, error) {
			return nil, errors.New("bad manifest")
		}},
		{}, // neither instance nor factory
	}

	loaded := LoadParallel(context.Background(), testLogger(), sources)

	if len(loaded) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(loaded))
	}
	// Source order is preserved for the survivors.
	if loaded[0] != static {
		t.Errorf("expected static instance first, got %v", loaded[0].Name)
	}
	if loaded[1].Name != "built" {
		t.Errorf("factory config should reach the plugin, got %q", loaded[1].Name)
	}
}

func TestLoadParallelAllFail(t *testing.T) {
	sources := []Source{
		{Factory: func(ctx context.Context, config map[string]any) (*Plugin, error) {
			return nil, errors.New("nope")
		}},
		{Factory: func(ctx context.Context, config map[string]any) (*Plugin, error) {
			return nil, nil // nil plugin without error is also a failure
		}},
	}

	loaded := LoadParallel(context.Background(), testLogger(), sources)
	if len(loaded) != 0 {
		t.Errorf("expected no plugins, got %d", len(loaded))
	}
}
