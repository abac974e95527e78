package runtime

import (
	"strings"
	"testing"
	"time"
)

type endpointConfig struct {
	URL        string        `json:"url" default:"https://rpc.example.com" validate:"url_format"`
	Listen     string        `json:"listen" default:"localhost:8545" validate:"hostname_port"`
	Timeout    time.Duration `json:"timeout" default:"30s"`
	MaxRetries int           `json:"maxRetries" default:"3" validate:"gte=0,lte=10"`
}

func TestInitializeConfigDefaults(t *testing.T) {
	var cfg endpointConfig
	if err := InitializeConfig(&cfg, nil); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if cfg.URL != "https://rpc.example.com" {
		t.Errorf("expected default url, got %s", cfg.URL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.MaxRetries)
	}
}

func TestInitializeConfigMerge(t *testing.T) {
	var cfg endpointConfig
	err := InitializeConfig(&cfg, map[string]any{
		"url":     "https://rpc.other.com",
		"timeout": "5s",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if cfg.URL != "https://rpc.other.com" {
		t.Errorf("raw values must win over defaults, got %s", cfg.URL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("expected duration string conversion, got %v", cfg.Timeout)
	}
	if cfg.Listen != "localhost:8545" {
		t.Errorf("untouched fields keep defaults, got %s", cfg.Listen)
	}
}

func TestInitializeConfigValidation(t *testing.T) {
	var cfg endpointConfig
	err := InitializeConfig(&cfg, map[string]any{"maxRetries": 99})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(err.Error(), "MaxRetries") {
		t.Errorf("error should name the failing field, got %v", err)
	}
}

func TestHostnamePortValidator(t *testing.T) {
	type cfg struct {
		Addr string `json:"addr" validate:"hostname_port"`
	}

	if err := validateStruct(cfg{Addr: "localhost:8080"}); err != nil {
		t.Errorf("valid addr rejected: %v", err)
	}
	for _, bad := range []string{"localhost", ":8080", "localhost:", "localhost:notaport"} {
		if err := validateStruct(cfg{Addr: bad}); err == nil {
			t.Errorf("expected rejection of %q", bad)
		}
	}
}

func TestURLFormatValidator(t *testing.T) {
	type cfg struct {
		URL string `json:"url" validate:"url_format"`
	}

	if err := validateStruct(cfg{URL: "https://example.com/path"}); err != nil {
		t.Errorf("valid url rejected: %v", err)
	}
	for _, bad := range []string{"example.com", "://nope", "https://"} {
		if err := validateStruct(cfg{URL: bad}); err == nil {
			t.Errorf("expected rejection of %q", bad)
		}
	}
}

func TestApplyDefaultsNil(t *testing.T) {
	if err := ApplyDefaults(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestMapToStructWeakTyping(t *testing.T) {
	type payload struct {
		Count   int    `json:"count"`
		Enabled bool   `json:"enabled"`
		Name    string `json:"name"`
	}

	var p payload
	// JSON round-trips hand us float64 for every number.
	err := MapToStruct(map[string]any{"count": float64(7), "enabled": "true", "name": "watcher"}, &p)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Count != 7 || !p.Enabled || p.Name != "watcher" {
		t.Errorf("unexpected result: %+v", p)
	}
}

func TestStructToMap(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Inner struct {
			Value int `json:"value"`
		} `json:"inner"`
	}
	p := payload{Name: "x"}
	p.Inner.Value = 4

	m, err := StructToMap(p)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if m["name"] != "x" {
		t.Errorf("expected json tag keys, got %v", m)
	}
	inner, _ := m["inner"].(map[string]any)
	if inner == nil || inner["value"] != float64(4) {
		t.Errorf("expected nested map, got %v", m["inner"])
	}
}

func TestToStringValueMap(t *testing.T) {
	out := ToStringValueMap(map[string]any{
		"s": "text",
		"i": 42,
		"b": true,
		"n": nil,
	})
	if out["s"] != "text" || out["i"] != "42" || out["b"] != "true" || out["n"] != "" {
		t.Errorf("unexpected conversion: %v", out)
	}
}
