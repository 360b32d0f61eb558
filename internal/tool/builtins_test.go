package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func invokeBuiltin(t *testing.T, r *Registry, name, argument string) string {
	t.Helper()
	c, ok := r.Resolve(name)
	if !ok {
		t.Fatalf("builtin %s not registered", name)
	}
	out, err := c.Invoke(context.Background(), argument)
	if err != nil {
		t.Fatalf("%s invoke error: %v", name, err)
	}
	return out
}

func TestFileRead(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("remember the milk"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry(BuiltinConfig{WorkDir: dir})

	out := invokeBuiltin(t, r, "file_read", "notes.txt")
	if out != "remember the milk" {
		t.Errorf("got %q, want file contents", out)
	}
}

func TestFileRead_Missing(t *testing.T) {
	t.Parallel()

	r := NewRegistry(BuiltinConfig{WorkDir: t.TempDir()})

	out := invokeBuiltin(t, r, "file_read", "ghost.txt")
	if out != "Error: File 'ghost.txt' does not exist" {
		t.Errorf("got %q", out)
	}
}

func TestFileWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRegistry(BuiltinConfig{WorkDir: dir})

	out := invokeBuiltin(t, r, "file_write", "todo.txt: buy milk")
	if out != "Successfully wrote to 'todo.txt'" {
		t.Fatalf("got %q", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "todo.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "buy milk" {
		t.Errorf("file contents = %q, want %q", data, "buy milk")
	}
}

func TestFileWrite_CreatesParentDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRegistry(BuiltinConfig{WorkDir: dir})

	out := invokeBuiltin(t, r, "file_write", "deep/nested/note.txt: hello")
	if out != "Successfully wrote to 'deep/nested/note.txt'" {
		t.Fatalf("got %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "deep", "nested", "note.txt")); err != nil {
		t.Errorf("expected nested file: %v", err)
	}
}

func TestFileWrite_ArgumentWithColons(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRegistry(BuiltinConfig{WorkDir: dir})

	// Only the first colon splits path from content.
	invokeBuiltin(t, r, "file_write", "log.txt: 12:30 lunch")
	data, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "12:30 lunch" {
		t.Errorf("file contents = %q, want %q", data, "12:30 lunch")
	}
}

func TestFileWrite_MissingContent(t *testing.T) {
	t.Parallel()

	r := NewRegistry(BuiltinConfig{WorkDir: t.TempDir()})

	out := invokeBuiltin(t, r, "file_write", "just-a-path.txt")
	if !strings.HasPrefix(out, "Error writing file:") {
		t.Errorf("got %q, want error text", out)
	}
}

func TestFileList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry(BuiltinConfig{WorkDir: dir})

	out := invokeBuiltin(t, r, "file_list", ".")
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), out)
	}
	if lines[0] != "[FILE] a.txt" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "[DIR] sub" {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestFileList_DefaultsToWorkDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "only.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry(BuiltinConfig{WorkDir: dir})

	out := invokeBuiltin(t, r, "file_list", "")
	if out != "[FILE] only.txt" {
		t.Errorf("got %q", out)
	}
}

func TestFileList_Empty(t *testing.T) {
	t.Parallel()

	r := NewRegistry(BuiltinConfig{WorkDir: t.TempDir()})

	out := invokeBuiltin(t, r, "file_list", ".")
	if out != "Directory is empty" {
		t.Errorf("got %q", out)
	}
}

func TestFileList_Missing(t *testing.T) {
	t.Parallel()

	r := NewRegistry(BuiltinConfig{WorkDir: t.TempDir()})

	out := invokeBuiltin(t, r, "file_list", "nowhere")
	if out != "Error: Directory 'nowhere' does not exist" {
		t.Errorf("got %q", out)
	}
}

func TestWebSearch_Placeholder(t *testing.T) {
	t.Parallel()

	r := NewRegistry(BuiltinConfig{WorkDir: t.TempDir()})

	out := invokeBuiltin(t, r, "web_search", "golang generics")
	want := "Web search results for: 'golang generics'\n[This is a placeholder implementation]"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestGetTime_FixedClock(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	r := NewRegistry(BuiltinConfig{
		WorkDir: t.TempDir(),
		Now:     func() time.Time { return fixed },
	})

	out := invokeBuiltin(t, r, "get_time", "")
	if out != "Current time: 2025-03-14 09:26:53" {
		t.Errorf("got %q", out)
	}
}
