package runtime

import (
	"os"
	"path/filepath"
	"testing"
)

const yamlFlow = `
id: balance-watch
name: Balance watcher
version: "1.0"
nodes:
  - id: start
    type: trigger
  - id: fetch
    type: action
    data:
      pluginName: http
      actionName: request
  - id: done
    type: output
edges:
  - id: e1
    source: start
    target: fetch
  - id: e2
    source: fetch
    target: done
`

const jsonFlow = `{
  "id": "price-alert",
  "name": "Price alert",
  "nodes": [
    {"id": "start", "type": "trigger"},
    {"id": "done", "type": "output"}
  ],
  "edges": [
    {"id": "e1", "source": "start", "target": "done"}
  ]
}`

func writeFlowFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFlowFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFlowFile(t, dir, "watch.yaml", yamlFlow)

	flow, err := LoadFlowFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if flow.ID != "balance-watch" || len(flow.Nodes) != 3 || len(flow.Edges) != 2 {
		t.Errorf("unexpected flow: %+v", flow)
	}
	if data := flow.Nodes[1].Data; data["pluginName"] != "http" {
		t.Errorf("node data not decoded: %v", data)
	}
}

func TestLoadFlowFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFlowFile(t, dir, "alert.json", jsonFlow)

	flow, err := LoadFlowFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if flow.ID != "price-alert" {
		t.Errorf("unexpected flow id %s", flow.ID)
	}
}

func TestLoadFlowFileRejectsInvalidFlow(t *testing.T) {
	dir := t.TempDir()
	path := writeFlowFile(t, dir, "bad.yaml", "id: broken\nnodes: []\n")

	if _, err := LoadFlowFile(path); err == nil {
		t.Error("expected validation error for empty node list")
	}
}

func TestLoadFlowFileUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFlowFile(t, dir, "flow.toml", "id = \"x\"")

	if _, err := LoadFlowFile(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestLoadFlows(t *testing.T) {
	dir := t.TempDir()
	writeFlowFile(t, dir, "watch.yaml", yamlFlow)
	writeFlowFile(t, dir, "alert.json", jsonFlow)

	flows, err := LoadFlows(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(flows) != 2 {
		t.Fatalf("expected 2 flows, got %d", len(flows))
	}
	if _, ok := flows["balance-watch"]; !ok {
		t.Error("missing balance-watch")
	}
	if _, ok := flows["price-alert"]; !ok {
		t.Error("missing price-alert")
	}
}

func TestLoadFlowsDuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeFlowFile(t, dir, "a.yaml", yamlFlow)
	writeFlowFile(t, dir, "b.yaml", yamlFlow)

	if _, err := LoadFlows(dir); err == nil {
		t.Error("expected duplicate id error")
	}
}
