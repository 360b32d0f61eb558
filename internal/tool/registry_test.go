package tool

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func echoCapability(prefix string) Func {
	return func(_ context.Context, argument string) (string, error) {
		return prefix + argument, nil
	}
}

func TestRegistryRegister_EmptyName(t *testing.T) {
	t.Parallel()

	r := NewEmptyRegistry()
	err := r.Register("", echoCapability(""), "desc")
	if !errors.Is(err, ErrEmptyToolName) {
		t.Fatalf("expected ErrEmptyToolName, got %v", err)
	}
}

func TestRegistryRegister_WhitespaceName(t *testing.T) {
	t.Parallel()

	r := NewEmptyRegistry()
	err := r.Register("   ", echoCapability(""), "desc")
	if !errors.Is(err, ErrEmptyToolName) {
		t.Fatalf("expected ErrEmptyToolName, got %v", err)
	}
}

func TestRegistryRegister_NilCapability(t *testing.T) {
	t.Parallel()

	r := NewEmptyRegistry()
	err := r.Register("echo", nil, "desc")
	if !errors.Is(err, ErrNilCapability) {
		t.Fatalf("expected ErrNilCapability, got %v", err)
	}
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	r := NewEmptyRegistry()
	if err := r.Register("echo", echoCapability("got: "), "echoes input"); err != nil {
		t.Fatalf("register error: %v", err)
	}

	c, ok := r.Resolve("echo")
	if !ok {
		t.Fatal("expected echo to resolve")
	}
	out, err := c.Invoke(context.Background(), "hi")
	if err != nil {
		t.Fatalf("invoke error: %v", err)
	}
	if out != "got: hi" {
		t.Fatalf("output = %q, want %q", out, "got: hi")
	}

	if _, ok := r.Resolve("missing"); ok {
		t.Fatal("missing name should not resolve")
	}
}

func TestRegistryRegister_CanonicalName(t *testing.T) {
	t.Parallel()

	r := NewEmptyRegistry()
	if err := r.Register(" echo ", echoCapability(""), "desc"); err != nil {
		t.Fatalf("register error: %v", err)
	}
	if _, ok := r.Resolve("echo"); !ok {
		t.Fatal("trimmed name should resolve")
	}
}

func TestRegistryRegister_LastWins(t *testing.T) {
	t.Parallel()

	r := NewEmptyRegistry()
	if err := r.Register("echo", echoCapability("first: "), "first"); err != nil {
		t.Fatalf("register error: %v", err)
	}
	if err := r.Register("echo", echoCapability("second: "), "second"); err != nil {
		t.Fatalf("register error: %v", err)
	}

	c, ok := r.Resolve("echo")
	if !ok {
		t.Fatal("expected echo to resolve")
	}
	out, err := c.Invoke(context.Background(), "x")
	if err != nil {
		t.Fatalf("invoke error: %v", err)
	}
	if out != "second: x" {
		t.Fatalf("output = %q, want replacement capability", out)
	}

	regs := r.List()
	if len(regs) != 1 {
		t.Fatalf("got %d registrations, want 1", len(regs))
	}
	if regs[0].Description != "second" {
		t.Fatalf("description = %q, want %q", regs[0].Description, "second")
	}
}

func TestRegistryList_InsertionOrder(t *testing.T) {
	t.Parallel()

	r := NewEmptyRegistry()
	names := []string{"zeta", "alpha", "mid"}
	for _, name := range names {
		if err := r.Register(name, echoCapability(""), "tool "+name); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	// Re-registering keeps the original position.
	if err := r.Register("zeta", echoCapability("new"), "tool zeta v2"); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	regs := r.List()
	if len(regs) != len(names) {
		t.Fatalf("got %d registrations, want %d", len(regs), len(names))
	}
	for i, name := range names {
		if regs[i].Name != name {
			t.Errorf("position %d: got %q, want %q", i, regs[i].Name, name)
		}
	}
	if regs[0].Description != "tool zeta v2" {
		t.Errorf("replaced description = %q, want updated", regs[0].Description)
	}
}

func TestRegistryDescribe(t *testing.T) {
	t.Parallel()

	r := NewEmptyRegistry()
	if err := r.Register("echo", echoCapability(""), "echoes input"); err != nil {
		t.Fatalf("register error: %v", err)
	}
	if err := r.Register("noop", echoCapability(""), "does nothing"); err != nil {
		t.Fatalf("register error: %v", err)
	}

	descs := r.Describe()
	if len(descs) != 2 {
		t.Fatalf("got %d descriptions, want 2", len(descs))
	}
	if descs["echo"] != "echoes input" {
		t.Errorf("echo description = %q", descs["echo"])
	}
	if descs["noop"] != "does nothing" {
		t.Errorf("noop description = %q", descs["noop"])
	}

	// Mutating the returned map must not affect the registry.
	descs["echo"] = "changed"
	if r.Describe()["echo"] != "echoes input" {
		t.Error("Describe should return a copy")
	}
}

func TestRegistryNames(t *testing.T) {
	t.Parallel()

	r := NewEmptyRegistry()
	for _, name := range []string{"c", "a", "b"} {
		if err := r.Register(name, echoCapability(""), ""); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	names := r.Names()
	want := []string{"c", "a", "b"}
	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	r := NewEmptyRegistry()
	if err := r.Register("echo", echoCapability(""), "echoes"); err != nil {
		t.Fatalf("register error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = r.Register("echo", echoCapability(""), "echoes")
				if _, ok := r.Resolve("echo"); !ok {
					t.Error("echo should always resolve")
					return
				}
				_ = r.List()
				_ = r.Describe()
			}
		}()
	}
	wg.Wait()
}

func TestNewRegistry_Builtins(t *testing.T) {
	t.Parallel()

	r := NewRegistry(BuiltinConfig{WorkDir: t.TempDir()})

	want := []string{"file_read", "file_write", "file_list", "web_search", "calculate", "get_time"}
	names := r.Names()
	if len(names) != len(want) {
		t.Fatalf("got %d builtins, want %d: %v", len(names), len(want), names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("position %d: got %q, want %q", i, names[i], name)
		}
	}

	for _, reg := range r.List() {
		if reg.Description == "" {
			t.Errorf("builtin %s has no description", reg.Name)
		}
	}
}
