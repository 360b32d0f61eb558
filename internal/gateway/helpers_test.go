package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/flemzord/engram/internal/agent"
	ctxengine "github.com/flemzord/engram/internal/context"
	"github.com/flemzord/engram/internal/memory"
	"github.com/flemzord/engram/internal/provider/providertest"
	"github.com/flemzord/engram/internal/tool"
	"gopkg.in/yaml.v3"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestGateway wires a Gateway to a live orchestrator over an
// in-memory store, without starting the HTTP server.
func newTestGateway(t *testing.T, gen *providertest.MockGenerator, auth AuthConfig) (*Gateway, memory.Store) {
	t.Helper()
	logger := discardLogger()
	store := memory.NewInMemoryStore()
	assembler := ctxengine.NewAssembler(store, logger, ctxengine.Config{})
	tools := tool.NewRegistry(tool.BuiltinConfig{WorkDir: t.TempDir()})
	orch := agent.NewOrchestrator(store, assembler, gen, tools, logger, agent.Config{})

	g := &Gateway{}
	g.config = Config{Auth: auth}
	g.config.defaults()
	g.logger = logger
	g.metrics = NewMetrics("engram")
	g.wsConns = make(map[*websocket.Conn]struct{})
	g.orch = orch
	g.tools = tools
	g.store = store
	g.startedAt = time.Now()
	return g, store
}

// doJSON runs one request against the gateway router and decodes the
// JSON response body into out (when out is non-nil).
func doJSON(t *testing.T, h http.Handler, method, target string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if out != nil && rr.Code < 300 {
		if err := json.NewDecoder(rr.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rr
}

// newRawRequest builds a request with a raw string body.
func newRawRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, target, strings.NewReader(body))
}

// record runs a request through a handler and returns the recorder.
func record(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// freeAddr returns a free TCP address on localhost.
func freeAddr(t *testing.T) string {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}
	return addr
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}
