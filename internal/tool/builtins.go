package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BuiltinConfig configures the built-in capabilities.
type BuiltinConfig struct {
	// WorkDir is the root directory for relative paths in the file
	// capabilities. Defaults to the current directory.
	WorkDir string

	// Now reports the current time for get_time. Defaults to time.Now.
	Now func() time.Time
}

// builtins implements the default capability set. File paths in outputs
// echo the argument text, not the resolved path.
type builtins struct {
	workDir string
	now     func() time.Time
}

func registerBuiltins(r *Registry, cfg BuiltinConfig) {
	b := builtins{workDir: cfg.WorkDir, now: cfg.Now}
	if b.workDir == "" {
		b.workDir = "."
	}
	if b.now == nil {
		b.now = time.Now
	}

	defaults := []struct {
		name string
		fn   Func
		desc string
	}{
		{"file_read", b.fileRead, "Read contents of a file"},
		{"file_write", b.fileWrite, "Write content to a file (argument format: 'path: content')"},
		{"file_list", b.fileList, "List files in a directory"},
		{"web_search", b.webSearch, "Search the web for information"},
		{"calculate", b.calculate, "Perform mathematical calculations"},
		{"get_time", b.getTime, "Get current date and time"},
	}
	for _, d := range defaults {
		// Names are static and non-empty, registration cannot fail.
		_ = r.Register(d.name, d.fn, d.desc)
	}
}

// path resolves a capability argument against the work directory.
// Absolute paths are honored as given.
func (b builtins) path(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(b.workDir, p)
}

func (b builtins) fileRead(_ context.Context, argument string) (string, error) {
	name := strings.TrimSpace(argument)
	path := b.path(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Sprintf("Error: File '%s' does not exist", name), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err), nil
	}
	return string(data), nil
}

func (b builtins) fileWrite(_ context.Context, argument string) (string, error) {
	rawPath, content, ok := strings.Cut(argument, ":")
	if !ok {
		return "Error writing file: expected 'path: content'", nil
	}
	name := strings.TrimSpace(rawPath)
	content = strings.TrimPrefix(content, " ")

	path := b.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Sprintf("Error writing file: %v", err), nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Sprintf("Error writing file: %v", err), nil
	}
	return fmt.Sprintf("Successfully wrote to '%s'", name), nil
}

func (b builtins) fileList(_ context.Context, argument string) (string, error) {
	name := strings.TrimSpace(argument)
	if name == "" {
		name = "."
	}
	path := b.path(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Sprintf("Error: Directory '%s' does not exist", name), nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Sprintf("Error listing directory: %v", err), nil
	}
	if len(entries) == 0 {
		return "Directory is empty", nil
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		kind := "[FILE]"
		if entry.IsDir() {
			kind = "[DIR]"
		}
		lines = append(lines, kind+" "+entry.Name())
	}
	return strings.Join(lines, "\n"), nil
}

// webSearch is a placeholder. A real deployment would back it with a
// search API.
func (b builtins) webSearch(_ context.Context, argument string) (string, error) {
	query := strings.TrimSpace(argument)
	return fmt.Sprintf("Web search results for: '%s'\n[This is a placeholder implementation]", query), nil
}

func (b builtins) calculate(_ context.Context, argument string) (string, error) {
	return evaluateExpression(argument), nil
}

func (b builtins) getTime(_ context.Context, _ string) (string, error) {
	return "Current time: " + b.now().Format("2006-01-02 15:04:05"), nil
}
