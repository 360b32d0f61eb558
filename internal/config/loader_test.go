package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestExpandEnv_VarSet(t *testing.T) {
	t.Setenv("ENGRAM_TEST_VAR", "hello")
	out, err := expandEnv([]byte("value: ${ENGRAM_TEST_VAR}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "value: hello" {
		t.Errorf("got %q, want %q", out, "value: hello")
	}
}

func TestExpandEnv_DefaultUsed(t *testing.T) {
	out, err := expandEnv([]byte("value: ${ENGRAM_UNSET_VAR:-fallback}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "value: fallback" {
		t.Errorf("got %q, want %q", out, "value: fallback")
	}
}

func TestExpandEnv_DefaultOverridden(t *testing.T) {
	t.Setenv("ENGRAM_TEST_VAR", "real")
	out, err := expandEnv([]byte("value: ${ENGRAM_TEST_VAR:-fallback}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "value: real" {
		t.Errorf("got %q, want %q", out, "value: real")
	}
}

func TestExpandEnv_EmptyDefault(t *testing.T) {
	out, err := expandEnv([]byte("value: ${ENGRAM_UNSET_VAR:-}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "value: " {
		t.Errorf("got %q, want %q", out, "value: ")
	}
}

func TestExpandEnv_Unresolved(t *testing.T) {
	_, err := expandEnv([]byte("value: ${ENGRAM_UNSET_VAR}"))
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "ENGRAM_UNSET_VAR") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestExpandEnv_MultipleUnresolved(t *testing.T) {
	_, err := expandEnv([]byte("a: ${ENGRAM_MISSING_ONE}\nb: ${ENGRAM_MISSING_TWO}"))
	if err == nil {
		t.Fatal("expected error for unresolved variables")
	}
	for _, name := range []string{"ENGRAM_MISSING_ONE", "ENGRAM_MISSING_TWO"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should name %s: %v", name, err)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("ENGRAM_TEST_PATH", "/tmp/engram")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `version: "1"
modules:
  memory.sqlite:
    path: ${ENGRAM_TEST_PATH}/engram.db
  provider.gemini:
    model: ${ENGRAM_TEST_MODEL:-gemini-2.5-flash}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Version != "1" {
		t.Errorf("version = %q, want %q", cfg.Version, "1")
	}
	if len(cfg.Modules) != 2 {
		t.Fatalf("got %d modules, want 2", len(cfg.Modules))
	}

	var sqliteCfg struct {
		Path string `yaml:"path"`
	}
	node := cfg.Modules["memory.sqlite"]
	if err := node.Decode(&sqliteCfg); err != nil {
		t.Fatalf("decoding module config: %v", err)
	}
	if sqliteCfg.Path != "/tmp/engram/engram.db" {
		t.Errorf("path = %q, want %q", sqliteCfg.Path, "/tmp/engram/engram.db")
	}

	var providerCfg struct {
		Model string `yaml:"model"`
	}
	node = cfg.Modules["provider.gemini"]
	if err := node.Decode(&providerCfg); err != nil {
		t.Fatalf("decoding module config: %v", err)
	}
	if providerCfg.Model != "gemini-2.5-flash" {
		t.Errorf("model = %q, want %q", providerCfg.Model, "gemini-2.5-flash")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolve_SortedOrder(t *testing.T) {
	cfg := &Config{
		Version: "1",
		Modules: map[string]yaml.Node{
			"memory.sqlite":         {},
			"agent":                 {},
			"provider.gemini":       {},
			"gateway":               {},
			"memory.postgres":       {},
			"cron":                  {},
			"observability.tracing": {},
		},
	}
	got := Resolve(cfg)
	want := []string{
		"agent",
		"cron",
		"gateway",
		"memory.postgres",
		"memory.sqlite",
		"observability.tracing",
		"provider.gemini",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d IDs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
