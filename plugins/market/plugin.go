// Package market provides an in-memory quote store. It exists mainly to feed
// condition flows with numeric data without an external feed: a "set" action
// writes quotes, a "snapshot" action and a "quote" provider read them back.
package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowgrid/flowgrid/runtime"
	"github.com/flowgrid/flowgrid/runtime/plugin"
)

const Name = "market"

// Quote is one stored price point.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetInput is the typed input of the set action.
type SetInput struct {
	Symbol string  `json:"symbol" validate:"required"`
	Price  float64 `json:"price" validate:"gte=0"`
}

type store struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

func (s *store) set(symbol string, price float64) Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := Quote{Symbol: symbol, Price: price, UpdatedAt: time.Now()}
	s.quotes[symbol] = q
	return q
}

func (s *store) get(symbol string) (Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[symbol]
	return q, ok
}

func (s *store) snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.quotes))
	for symbol, q := range s.quotes {
		out[symbol] = map[string]any{"price": q.Price, "updatedAt": q.UpdatedAt}
	}
	return out
}

// New builds the market plugin.
func New() *plugin.Plugin {
	quotes := &store{quotes: make(map[string]Quote)}

	return &plugin.Plugin{
		Name:    Name,
		Version: "1.0.0",
		Init: func(ctx context.Context, r *plugin.Registry) error {
			err := r.RegisterAction(Name, "set", map[string]any{
				"symbol": "string (required)",
				"price":  "number",
			}, plugin.ActionFunc(
				func(ctx context.Context, call plugin.ActionCall) (*plugin.CallResult, error) {
					var input SetInput
					if err := runtime.InitializeConfig(&input, call.Params); err != nil {
						return nil, runtime.NewActionError("INVALID_INPUT", err)
					}
					q := quotes.set(input.Symbol, input.Price)
					data, err := runtime.StructToMap(q)
					if err != nil {
						return nil, err
					}
					return &plugin.CallResult{Success: true, Data: data, Timestamp: time.Now()}, nil
				}))
			if err != nil {
				return err
			}

			err = r.RegisterAction(Name, "snapshot", nil, plugin.ActionFunc(
				func(ctx context.Context, call plugin.ActionCall) (*plugin.CallResult, error) {
					return &plugin.CallResult{Success: true, Data: quotes.snapshot(), Timestamp: time.Now()}, nil
				}))
			if err != nil {
				return err
			}

			return r.RegisterProvider(Name, "quote", plugin.ProviderFunc(
				func(ctx context.Context, query plugin.ProviderQuery) (*plugin.CallResult, error) {
					symbol, _ := query.Query["symbol"].(string)
					if symbol == "" {
						return nil, fmt.Errorf("quote provider requires a symbol")
					}
					q, ok := quotes.get(symbol)
					if !ok {
						return nil, fmt.Errorf("no quote for %s", symbol)
					}
					data, err := runtime.StructToMap(q)
					if err != nil {
						return nil, err
					}
					return &plugin.CallResult{Success: true, Data: data, Timestamp: time.Now()}, nil
				}))
		},
		Destroy: func(ctx context.Context) error {
			quotes.mu.Lock()
			quotes.quotes = make(map[string]Quote)
			quotes.mu.Unlock()
			return nil
		},
	}
}
