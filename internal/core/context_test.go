package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"

	"gopkg.in/yaml.v3"
)

// seqModule implements every lifecycle phase and records each call in a
// shared journal as "<id>:<phase>".
type seqModule struct {
	id      ModuleID
	journal *[]string
	key     *string // Configure decodes {key: ...} into it when set

	configureErr error
	provisionErr error
	validateErr  error
	startErr     error
	stopErr      error
}

func (m *seqModule) ModuleInfo() ModuleInfo {
	proto := *m
	return ModuleInfo{
		ID:  m.id,
		New: func() Module { cp := proto; return &cp },
	}
}

func (m *seqModule) note(phase string) {
	if m.journal != nil {
		*m.journal = append(*m.journal, string(m.id)+":"+phase)
	}
}

func (m *seqModule) Configure(node *yaml.Node) error {
	m.note("configure")
	if m.key != nil {
		var parsed struct {
			Key string `yaml:"key"`
		}
		if err := node.Decode(&parsed); err != nil {
			return err
		}
		*m.key = parsed.Key
	}
	return m.configureErr
}

func (m *seqModule) Provision(_ *AppContext) error { m.note("provision"); return m.provisionErr }
func (m *seqModule) Validate() error               { m.note("validate"); return m.validateErr }
func (m *seqModule) Start() error                  { m.note("start"); return m.startErr }
func (m *seqModule) Stop(_ context.Context) error  { m.note("stop"); return m.stopErr }

// provOnlyModule provisions and nothing else.
type provOnlyModule struct {
	id      ModuleID
	journal *[]string
}

func (m *provOnlyModule) ModuleInfo() ModuleInfo {
	proto := *m
	return ModuleInfo{
		ID:  m.id,
		New: func() Module { cp := proto; return &cp },
	}
}

func (m *provOnlyModule) Provision(_ *AppContext) error {
	if m.journal != nil {
		*m.journal = append(*m.journal, string(m.id)+":provision")
	}
	return nil
}

func quietContext(t *testing.T) *AppContext {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAppContext(logger, t.TempDir(), t.TempDir())
}

func configNode(t *testing.T, src string) yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(src), &node); err != nil {
		t.Fatal(err)
	}
	return *node.Content[0]
}

func TestAppContext_ForModule_TagsLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := NewAppContext(logger, "/data", "/work")
	ctx.ForModule("memory.sqlite").Logger.Info("hello")

	if !bytes.Contains(buf.Bytes(), []byte("memory.sqlite")) {
		t.Errorf("module-scoped log line should carry the module ID, got: %s", buf.String())
	}
}

func TestAppContext_ServiceTable(t *testing.T) {
	ctx := quietContext(t)

	if _, ok := ctx.Service("memory.store"); ok {
		t.Fatal("Service should miss before registration")
	}

	// Registered from one module scope, visible everywhere.
	ctx.ForModule("memory.sqlite").RegisterService("memory.store", 42)

	if svc, ok := ctx.Service("memory.store"); !ok || svc != 42 {
		t.Errorf("root scope sees (%v, %v), want (42, true)", svc, ok)
	}
	if svc, ok := ctx.ForModule("gateway").Service("memory.store"); !ok || svc != 42 {
		t.Errorf("sibling scope sees (%v, %v), want (42, true)", svc, ok)
	}

	// A second registration under the same name wins.
	ctx.RegisterService("memory.store", 43)
	if svc, _ := ctx.Service("memory.store"); svc != 43 {
		t.Errorf("after re-registration Service = %v, want 43", svc)
	}
}

func TestAppContext_LoadModule_PhaseOrder(t *testing.T) {
	t.Cleanup(resetRegistry)

	var journal []string
	key := ""
	RegisterModule(&seqModule{id: "test.order", journal: &journal, key: &key})

	ctx := quietContext(t).WithModuleConfigs(map[string]yaml.Node{
		"test.order": configNode(t, "key: hello"),
	})

	mod, err := ctx.LoadModule("test.order")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mod == nil {
		t.Fatal("expected a module instance")
	}

	want := []string{"test.order:configure", "test.order:provision", "test.order:validate"}
	if !slices.Equal(journal, want) {
		t.Errorf("journal = %v, want %v", journal, want)
	}
	if key != "hello" {
		t.Errorf("decoded key = %q, want %q", key, "hello")
	}
}

func TestAppContext_LoadModule_PhaseFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		module func(id ModuleID, journal *[]string) *seqModule
		last   string // final journal entry before the failure surfaced
	}{
		{
			name: "configure",
			module: func(id ModuleID, j *[]string) *seqModule {
				return &seqModule{id: id, journal: j, configureErr: boom}
			},
			last: "configure",
		},
		{
			name: "provision",
			module: func(id ModuleID, j *[]string) *seqModule {
				return &seqModule{id: id, journal: j, provisionErr: boom}
			},
			last: "provision",
		},
		{
			name: "validate",
			module: func(id ModuleID, j *[]string) *seqModule {
				return &seqModule{id: id, journal: j, validateErr: boom}
			},
			last: "validate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(resetRegistry)

			var journal []string
			id := ModuleID("test.fail." + tt.name)
			RegisterModule(tt.module(id, &journal))

			ctx := quietContext(t).WithModuleConfigs(map[string]yaml.Node{
				string(id): configNode(t, "key: v"),
			})

			if _, err := ctx.LoadModule(string(id)); !errors.Is(err, boom) {
				t.Fatalf("error = %v, want wrapped boom", err)
			}
			if len(journal) == 0 || journal[len(journal)-1] != string(id)+":"+tt.last {
				t.Errorf("journal = %v, want it to end at %s", journal, tt.last)
			}
		})
	}
}

func TestAppContext_LoadModule_UnknownID(t *testing.T) {
	t.Cleanup(resetRegistry)

	if _, err := quietContext(t).LoadModule("does.not.exist"); err == nil {
		t.Fatal("expected error for unknown module")
	}
}

func TestAppContext_LoadModule_NoConfigSkipsConfigure(t *testing.T) {
	t.Cleanup(resetRegistry)

	var journal []string
	RegisterModule(&seqModule{id: "test.noconfig", journal: &journal})

	if _, err := quietContext(t).LoadModule("test.noconfig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slices.Contains(journal, "test.noconfig:configure") {
		t.Errorf("Configure ran without a config section: %v", journal)
	}
	if !slices.Contains(journal, "test.noconfig:provision") {
		t.Errorf("Provision should still run: %v", journal)
	}
}

func TestAppContext_LoadModule_ConfigIgnoredForPlainModule(t *testing.T) {
	t.Cleanup(resetRegistry)

	var journal []string
	RegisterModule(&provOnlyModule{id: "test.plain", journal: &journal})

	ctx := quietContext(t).WithModuleConfigs(map[string]yaml.Node{
		"test.plain": configNode(t, "key: v"),
	})

	if _, err := ctx.LoadModule("test.plain"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Contains(journal, "test.plain:provision") {
		t.Errorf("Provision should run: %v", journal)
	}
}

func TestAppContext_ForModule_KeepsConfigs(t *testing.T) {
	ctx := quietContext(t).WithModuleConfigs(map[string]yaml.Node{
		"test.mod": configNode(t, "key: v"),
	})

	child := ctx.ForModule("test.mod")
	if _, ok := child.moduleConfigs["test.mod"]; !ok {
		t.Error("module scope should see the config map")
	}
}

func TestApp_StartStopOrder(t *testing.T) {
	t.Cleanup(resetRegistry)

	var journal []string
	for _, id := range []ModuleID{"test.a", "test.b", "test.c"} {
		RegisterModule(&seqModule{id: id, journal: &journal})
	}

	app := NewApp(quietContext(t))
	if err := app.LoadModules([]string{"test.a", "test.b", "test.c"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	app.Stop()

	var starts, stops []string
	for _, entry := range journal {
		switch {
		case slices.Contains([]string{"test.a:start", "test.b:start", "test.c:start"}, entry):
			starts = append(starts, entry)
		case slices.Contains([]string{"test.a:stop", "test.b:stop", "test.c:stop"}, entry):
			stops = append(stops, entry)
		}
	}

	if want := []string{"test.a:start", "test.b:start", "test.c:start"}; !slices.Equal(starts, want) {
		t.Errorf("starts = %v, want %v", starts, want)
	}
	if want := []string{"test.c:stop", "test.b:stop", "test.a:stop"}; !slices.Equal(stops, want) {
		t.Errorf("stops = %v, want %v", stops, want)
	}
}

func TestApp_StartFailureUnwinds(t *testing.T) {
	t.Cleanup(resetRegistry)

	var journal []string
	RegisterModule(&seqModule{id: "test.first", journal: &journal})
	RegisterModule(&seqModule{id: "test.broken", journal: &journal, startErr: errors.New("no")})

	app := NewApp(quietContext(t))
	if err := app.LoadModules([]string{"test.first", "test.broken"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); err == nil {
		t.Fatal("expected Start to fail")
	}

	if !slices.Contains(journal, "test.first:stop") {
		t.Errorf("the started module should be stopped again: %v", journal)
	}
	if slices.Contains(journal, "test.broken:stop") {
		t.Errorf("the module that failed to start must not be stopped: %v", journal)
	}
}

func TestApp_StopSkipsUnstarted(t *testing.T) {
	t.Cleanup(resetRegistry)

	var journal []string
	RegisterModule(&seqModule{id: "test.idle", journal: &journal})

	app := NewApp(quietContext(t))
	if err := app.LoadModules([]string{"test.idle"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	app.Stop()

	if slices.Contains(journal, "test.idle:stop") {
		t.Errorf("Stop must skip modules that never started: %v", journal)
	}
}

func TestApp_TeardownStopsLoaded(t *testing.T) {
	t.Cleanup(resetRegistry)

	var journal []string
	RegisterModule(&seqModule{id: "test.torn", journal: &journal})

	app := NewApp(quietContext(t))
	if err := app.LoadModules([]string{"test.torn"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	app.Teardown()

	if !slices.Contains(journal, "test.torn:stop") {
		t.Errorf("Teardown should stop loaded modules even before Start: %v", journal)
	}
}

func TestApp_LoadModulesFailureCleansUp(t *testing.T) {
	t.Cleanup(resetRegistry)

	var journal []string
	RegisterModule(&seqModule{id: "test.ok", journal: &journal})
	RegisterModule(&seqModule{id: "test.bad", journal: &journal, provisionErr: errors.New("no")})

	app := NewApp(quietContext(t))
	if err := app.LoadModules([]string{"test.ok", "test.bad"}); err == nil {
		t.Fatal("expected LoadModules to fail")
	}

	if !slices.Contains(journal, "test.ok:stop") {
		t.Errorf("modules loaded before the failure should be stopped: %v", journal)
	}
}
