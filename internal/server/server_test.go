package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alfredjeanlab/convgraph/internal/conversion"
	"github.com/alfredjeanlab/convgraph/internal/graph"
	"github.com/alfredjeanlab/convgraph/internal/model"
	"github.com/alfredjeanlab/convgraph/internal/registry"
)

type testEnv struct {
	srv     *Server
	reg     *registry.Registry
	graph   *graph.Store
	handler http.Handler
}

// newTestServer wires a registry, adapter, service and Server with the given
// registrations already in place. The SSE feed is started.
func newTestServer(t *testing.T, token string, regs ...*model.Registration) *testEnv {
	t.Helper()
	r := registry.New()
	t.Cleanup(func() { r.Close() })
	for _, reg := range regs {
		if _, err := r.Register(context.Background(), reg); err != nil {
			t.Fatalf("Register(%s): %v", reg.ID, err)
		}
	}

	g := graph.New()
	a := conversion.NewAdapter(g, nil)
	if err := a.Start(r); err != nil {
		t.Fatalf("adapter start: %v", err)
	}
	t.Cleanup(a.Close)

	srv := New(r, conversion.NewService(g, r), nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("server start: %v", err)
	}
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, reg: r, graph: g, handler: srv.NewHTTPHandler(token)}
}

func conv(id, in, out string) *model.Registration {
	return &model.Registration{ID: id, Kind: model.KindConverter, InFormat: in, OutFormat: out}
}

func validator(id, in, out string) *model.Registration {
	return &model.Registration{ID: id, Kind: model.KindValidator, InFormat: in, OutFormat: out}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_FindConvertersRequiresFormats(t *testing.T) {
	env := newTestServer(t, "")
	for _, tc := range [][2]string{{"", "B"}, {"A", ""}, {"  ", "B"}} {
		_, err := env.srv.FindConverters(context.Background(), tc[0], tc[1])
		if _, ok := err.(inputError); !ok {
			t.Errorf("FindConverters(%q, %q) err = %v, want inputError", tc[0], tc[1], err)
		}
	}
}

func TestServer_RegisterDefaultsKind(t *testing.T) {
	env := newTestServer(t, "")
	reg, err := env.srv.Register(context.Background(), &model.Registration{InFormat: "A", OutFormat: "B"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.Kind != model.KindConverter || reg.ID == "" {
		t.Fatalf("registration = %+v", reg)
	}
}

func TestServer_ListRegistrationsEmptyIsNotNil(t *testing.T) {
	env := newTestServer(t, "")
	resp, err := env.srv.ListRegistrations(context.Background(), "(type=validator)")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Registrations == nil || resp.Total != 0 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestServer_Graph(t *testing.T) {
	env := newTestServer(t, "", conv("ab", "A", "B"), validator("v", "B", "file:text/csv"))
	g := env.srv.Graph()
	if g.Stats.Edges != 1 || g.Stats.Vertices != 2 {
		t.Fatalf("graph = %+v", g)
	}
}
