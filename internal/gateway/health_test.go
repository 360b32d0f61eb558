package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/flemzord/engram/internal/memory"
	"github.com/flemzord/engram/internal/provider/providertest"
)

// brokenStore fails every stats probe.
type brokenStore struct {
	memory.Store
}

func (s brokenStore) Stats(context.Context) (memory.Stats, error) {
	return memory.Stats{}, errors.New("connection refused")
}

func TestHandleHealthz(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t, &providertest.MockGenerator{}, AuthConfig{})
	router := g.buildRouter()

	var body map[string]string
	rr := doJSON(t, router, http.MethodGet, "/healthz", nil, &body)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestHandleReadyz_Ready(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t, &providertest.MockGenerator{}, AuthConfig{})
	router := g.buildRouter()

	var body map[string]string
	rr := doJSON(t, router, http.MethodGet, "/readyz", nil, &body)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if body["status"] != "ready" {
		t.Errorf("status = %q, want ready", body["status"])
	}
}

func TestHandleReadyz_StoreDown(t *testing.T) {
	t.Parallel()

	g, store := newTestGateway(t, &providertest.MockGenerator{}, AuthConfig{})
	g.store = brokenStore{store}
	router := g.buildRouter()

	rr := doJSON(t, router, http.MethodGet, "/readyz", nil, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestHandleReadyz_NoStore(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(t, &providertest.MockGenerator{}, AuthConfig{})
	g.store = nil
	router := g.buildRouter()

	rr := doJSON(t, router, http.MethodGet, "/readyz", nil, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}
