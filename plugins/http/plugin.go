// Package http provides an outbound HTTP request action backed by resty.
package http

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/flowgrid/flowgrid/runtime"
	"github.com/flowgrid/flowgrid/runtime/plugin"
)

const Name = "http"

// Config holds the plugin configuration with declarative tags.
type Config struct {
	Timeout     time.Duration `json:"timeout" default:"30s" validate:"gte=1s"`
	MaxRetries  int           `json:"maxRetries" default:"3" validate:"gte=0,lte=10"`
	Debug       bool          `json:"debug" default:"false"`
	RetryWaitMS int           `json:"retryWaitMs" default:"100" validate:"gte=0,lte=10000"`
}

// RequestInput is the typed input of the request action.
type RequestInput struct {
	URL         string         `json:"url" validate:"required,url"`
	Method      string         `json:"method" validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	Headers     map[string]any `json:"headers"`
	QueryParams map[string]any `json:"queryParams"`
	Body        map[string]any `json:"body"`
}

// RequestOutput is the typed output of the request action.
type RequestOutput struct {
	Status     string         `json:"status"`
	StatusCode int            `json:"statusCode"`
	IsError    bool           `json:"isError"`
	Body       map[string]any `json:"body"`
}

// New builds the http plugin. The raw config map is merged over defaults and
// validated up front; the resty client is created at Init time so a stopped
// plugin holds no client.
func New(rawConfig map[string]any) (*plugin.Plugin, error) {
	var cfg Config
	if err := runtime.InitializeConfig(&cfg, rawConfig); err != nil {
		return nil, fmt.Errorf("http plugin config: %w", err)
	}

	var client *resty.Client

	return &plugin.Plugin{
		Name:    Name,
		Version: "1.0.0",
		Init: func(ctx context.Context, r *plugin.Registry) error {
			client = resty.New().
				SetTimeout(cfg.Timeout).
				SetRetryCount(cfg.MaxRetries).
				SetRetryWaitTime(time.Duration(cfg.RetryWaitMS) * time.Millisecond).
				SetDebug(cfg.Debug)

			return r.RegisterAction(Name, "request", inputSchema(), plugin.ActionFunc(
				func(ctx context.Context, call plugin.ActionCall) (*plugin.CallResult, error) {
					return request(ctx, client, call)
				}))
		},
		Destroy: func(ctx context.Context) error {
			client = nil
			return nil
		},
	}, nil
}

func request(ctx context.Context, client *resty.Client, call plugin.ActionCall) (*plugin.CallResult, error) {
	var input RequestInput
	if err := runtime.InitializeConfig(&input, call.Params); err != nil {
		return nil, runtime.NewActionError("INVALID_INPUT", err)
	}

	response := map[string]any{}
	errorResponse := map[string]any{}

	resp, err := client.R().
		SetContext(ctx).
		SetHeaders(runtime.ToStringValueMap(input.Headers)).
		SetQueryParams(runtime.ToStringValueMap(input.QueryParams)).
		SetBody(input.Body).
		SetResult(&response).
		SetError(&errorResponse).
		Execute(input.Method, input.URL)

	if err != nil {
		return nil, runtime.NewActionError("REQUEST_FAILED", err).
			WithMetadata("url", input.URL).
			WithMetadata("method", input.Method)
	}

	output := RequestOutput{
		Status:     resp.Status(),
		StatusCode: resp.StatusCode(),
		IsError:    resp.IsError(),
	}
	if resp.IsError() {
		output.Body = errorResponse
	} else {
		output.Body = response
	}

	data, err := runtime.StructToMap(output)
	if err != nil {
		return nil, err
	}

	result := &plugin.CallResult{
		Success:   !resp.IsError(),
		Data:      data,
		Timestamp: time.Now(),
	}
	if resp.IsError() {
		result.Error = fmt.Sprintf("HTTP %s", resp.Status())
	}
	return result, nil
}

func inputSchema() map[string]any {
	return map[string]any{
		"url":         "string (required)",
		"method":      "GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS (required)",
		"headers":     "map of header values",
		"queryParams": "map of query parameters",
		"body":        "request body object",
	}
}
