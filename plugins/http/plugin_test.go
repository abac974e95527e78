package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowgrid/flowgrid/runtime/plugin"
)

func startPlugin(t *testing.T, rawConfig map[string]any) *plugin.Registry {
	t.Helper()
	p, err := New(rawConfig)
	if err != nil {
		t.Fatalf("new plugin: %v", err)
	}

	registry := plugin.NewRegistry()
	if err := p.Init(context.Background(), registry); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = p.Destroy(context.Background()) })
	return registry
}

func TestNewAppliesDefaults(t *testing.T) {
	p, err := New(nil)
	if err != nil {
		t.Fatalf("new plugin: %v", err)
	}
	if p.Name != Name {
		t.Errorf("expected name %s, got %s", Name, p.Name)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(map[string]any{"maxRetries": 50}); err == nil {
		t.Error("expected config validation error")
	}
}

func TestRequestAction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "abc" {
			t.Errorf("missing header, got %q", r.Header.Get("X-Token"))
		}
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("missing query param, got %q", r.URL.Query().Get("page"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"balance": 42.5})
	}))
	defer server.Close()

	registry := startPlugin(t, nil)
	action, ok := registry.Action(Name, "request")
	if !ok {
		t.Fatal("request action not registered")
	}

	result, err := action.Execute(context.Background(), plugin.ActionCall{Params: map[string]any{
		"url":         server.URL,
		"method":      "GET",
		"headers":     map[string]any{"X-Token": "abc"},
		"queryParams": map[string]any{"page": 2},
	}})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Errorf("expected success, got error %q", result.Error)
	}

	data := result.Data.(map[string]any)
	if data["statusCode"] != float64(200) {
		t.Errorf("expected status 200, got %v", data["statusCode"])
	}
	body := data["body"].(map[string]any)
	if body["balance"] != 42.5 {
		t.Errorf("expected decoded body, got %v", body)
	}
}

func TestRequestActionPostBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["amount"] != float64(10) {
			t.Errorf("unexpected body %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "tx-1"})
	}))
	defer server.Close()

	registry := startPlugin(t, nil)
	action, _ := registry.Action(Name, "request")

	result, err := action.Execute(context.Background(), plugin.ActionCall{Params: map[string]any{
		"url":    server.URL,
		"method": "POST",
		"body":   map[string]any{"amount": 10},
	}})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Errorf("expected success, got %q", result.Error)
	}
}

func TestRequestActionServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{"reason": "upstream down"})
	}))
	defer server.Close()

	registry := startPlugin(t, map[string]any{"maxRetries": 0})
	action, _ := registry.Action(Name, "request")

	result, err := action.Execute(context.Background(), plugin.ActionCall{Params: map[string]any{
		"url":    server.URL,
		"method": "GET",
	}})
	if err != nil {
		t.Fatalf("transport succeeded, should not error: %v", err)
	}
	if result.Success {
		t.Error("5xx response must report Success=false")
	}
	if result.Error == "" {
		t.Error("expected error text for 5xx response")
	}

	data := result.Data.(map[string]any)
	if data["isError"] != true {
		t.Errorf("expected isError, got %v", data["isError"])
	}
	body := data["body"].(map[string]any)
	if body["reason"] != "upstream down" {
		t.Errorf("expected error body preserved, got %v", body)
	}
}

func TestRequestActionInvalidInput(t *testing.T) {
	registry := startPlugin(t, nil)
	action, _ := registry.Action(Name, "request")

	_, err := action.Execute(context.Background(), plugin.ActionCall{Params: map[string]any{
		"url":    "not a url",
		"method": "GET",
	}})
	if err == nil {
		t.Error("expected validation error for malformed url")
	}
}

func TestRequestActionConnectionFailure(t *testing.T) {
	registry := startPlugin(t, map[string]any{"maxRetries": 0, "timeout": "1s"})
	action, _ := registry.Action(Name, "request")

	_, err := action.Execute(context.Background(), plugin.ActionCall{Params: map[string]any{
		"url":    "http://127.0.0.1:1",
		"method": "GET",
	}})
	if err == nil {
		t.Error("expected transport error")
	}
}
