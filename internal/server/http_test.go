package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alfredjeanlab/convgraph/internal/events"
	"github.com/alfredjeanlab/convgraph/internal/model"
	"github.com/alfredjeanlab/convgraph/internal/peers"
	"github.com/alfredjeanlab/convgraph/internal/rpc"
)

// doRequest sends a request through the handler and returns the recorder.
func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestServer(t, "secret")
	rec := doRequest(t, env.handler, http.MethodGet, "/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if resp["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", resp)
	}
}

func TestHandleFindConverters(t *testing.T) {
	env := newTestServer(t, "",
		conv("csv-tsv", "text/csv", "text/tsv"),
		conv("tsv-file", "text/tsv", "file:text/tsv"),
		validator("tsv-check", "file:text/tsv", "file-ext:tsv"),
	)

	rec := doRequest(t, env.handler, http.MethodGet, "/v1/converters?in=text/csv&out=file-ext:tsv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
	var resp rpc.FindConvertersResponse
	decodeJSON(t, rec, &resp)
	if len(resp.Chains) != 1 {
		t.Fatalf("expected 1 chain, got %+v", resp.Chains)
	}
	var ids []string
	for _, s := range resp.Chains[0].Steps {
		ids = append(ids, s.ID)
	}
	if got := strings.Join(ids, ","); got != "csv-tsv,tsv-file,tsv-check" {
		t.Fatalf("steps = %s", got)
	}
}

func TestHandleFindConverters_PassThroughAndEmpty(t *testing.T) {
	env := newTestServer(t, "", conv("ab", "A", "B"))

	rec := doRequest(t, env.handler, http.MethodGet, "/v1/converters?in=A&out=A", nil)
	var resp rpc.FindConvertersResponse
	decodeJSON(t, rec, &resp)
	if len(resp.Chains) != 1 || !resp.Chains[0].PassThrough || len(resp.Chains[0].Steps) != 0 {
		t.Fatalf("identity chains = %+v", resp.Chains)
	}

	rec = doRequest(t, env.handler, http.MethodGet, "/v1/converters?in=B&out=A", nil)
	resp = rpc.FindConvertersResponse{}
	decodeJSON(t, rec, &resp)
	if resp.Chains == nil || len(resp.Chains) != 0 {
		t.Fatalf("unreachable chains = %+v, want empty list", resp.Chains)
	}
}

func TestHandleFindConverters_MissingParams(t *testing.T) {
	env := newTestServer(t, "")
	rec := doRequest(t, env.handler, http.MethodGet, "/v1/converters?in=A", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleListRegistrations(t *testing.T) {
	env := newTestServer(t, "", conv("ab", "A", "B"), validator("v", "B", "file:x"))

	for _, tc := range []struct {
		filter string
		want   int
		code   int
	}{
		{"", 2, http.StatusOK},
		{"(type=validator)", 1, http.StatusOK},
		{"(in_data=Z)", 0, http.StatusOK},
		{"(type=", 0, http.StatusBadRequest},
	} {
		rec := doRequest(t, env.handler, http.MethodGet, "/v1/registrations?filter="+urlEscape(tc.filter), nil)
		if rec.Code != tc.code {
			t.Fatalf("filter %q: expected %d, got %d; body: %s", tc.filter, tc.code, rec.Code, rec.Body.String())
		}
		if tc.code != http.StatusOK {
			continue
		}
		var resp rpc.ListRegistrationsResponse
		decodeJSON(t, rec, &resp)
		if resp.Total != tc.want || len(resp.Registrations) != tc.want {
			t.Errorf("filter %q: total = %d, want %d", tc.filter, resp.Total, tc.want)
		}
	}
}

func urlEscape(s string) string {
	r := strings.NewReplacer("(", "%28", ")", "%29", "=", "%3D", "&", "%26", "!", "%21", "*", "%2A")
	return r.Replace(s)
}

func TestHandleRegistrationLifecycle(t *testing.T) {
	env := newTestServer(t, "")

	rec := doRequest(t, env.handler, http.MethodPost, "/v1/registrations", map[string]any{
		"id": "ab", "in_format": "A", "out_format": "B", "label": "A to B",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d; body: %s", rec.Code, rec.Body.String())
	}
	var created model.Registration
	decodeJSON(t, rec, &created)
	if created.Kind != model.KindConverter || created.Label != "A to B" {
		t.Fatalf("created = %+v", created)
	}
	waitFor(t, "edge A->B", func() bool { return env.graph.Edge("A", "B") != nil })

	rec = doRequest(t, env.handler, http.MethodPost, "/v1/registrations", map[string]any{"id": "ab", "in_format": "A", "out_format": "B"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", rec.Code)
	}

	rec = doRequest(t, env.handler, http.MethodGet, "/v1/registrations/ab", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, env.handler, http.MethodPut, "/v1/registrations/ab", map[string]any{"id": "ignored", "in_format": "A", "out_format": "C"})
	if rec.Code != http.StatusOK {
		t.Fatalf("modify: expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
	waitFor(t, "edge moved to A->C", func() bool {
		return env.graph.Edge("A", "C") != nil && env.graph.Edge("A", "B") == nil
	})

	rec = doRequest(t, env.handler, http.MethodDelete, "/v1/registrations/ab", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	waitFor(t, "edge removed", func() bool { return env.graph.Edge("A", "C") == nil })

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = doRequest(t, env.handler, method, "/v1/registrations/ab", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s after delete: expected 404, got %d", method, rec.Code)
		}
	}
	rec = doRequest(t, env.handler, http.MethodPut, "/v1/registrations/ab", map[string]any{"in_format": "A", "out_format": "C"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("modify after delete: expected 404, got %d", rec.Code)
	}
}

func TestHandleRegister_BadInput(t *testing.T) {
	env := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/v1/registrations", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, env.handler, http.MethodPost, "/v1/registrations", map[string]any{"kind": "bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad kind: expected 400, got %d", rec.Code)
	}
}

func TestHandleGetGraph(t *testing.T) {
	env := newTestServer(t, "", conv("ab", "A", "B"), conv("bc", "B", "C"))

	rec := doRequest(t, env.handler, http.MethodGet, "/v1/graph", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp rpc.GraphResponse
	decodeJSON(t, rec, &resp)
	if len(resp.Vertices) != 3 || len(resp.Edges) != 2 || resp.Stats.Registrations != 2 {
		t.Fatalf("graph = %+v", resp)
	}
}

func TestHandleGetGraphML(t *testing.T) {
	env := newTestServer(t, "", conv("ab", "text/csv", "text/tsv"))

	rec := doRequest(t, env.handler, http.MethodGet, "/v1/graph/graphml", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/graphml+xml" {
		t.Fatalf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"<graphml", "text/csv", "text/tsv", "ab"} {
		if !strings.Contains(body, want) {
			t.Errorf("graphml missing %q:\n%s", want, body)
		}
	}
}

func TestHandleListPeers(t *testing.T) {
	env := newTestServer(t, "")

	rec := doRequest(t, env.handler, http.MethodGet, "/v1/peers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp rpc.PeersResponse
	decodeJSON(t, rec, &resp)
	if resp.Mirroring || resp.Peers == nil || len(resp.Peers) != 0 {
		t.Fatalf("peers without mirror = %+v", resp)
	}

	tr := peers.New()
	tr.Observe(events.RegistrationChanged{Origin: "node-b", Type: model.EventRegistered, Registration: conv("ab", "A", "B")})
	WithPeers(tr)(env.srv)

	rec = doRequest(t, env.handler, http.MethodGet, "/v1/peers", nil)
	decodeJSON(t, rec, &resp)
	if !resp.Mirroring || len(resp.Peers) != 1 || resp.Peers[0].Origin != "node-b" {
		t.Fatalf("peers = %+v", resp)
	}
	if got := resp.Peers[0].Registrations; len(got) != 1 || got[0] != "ab" {
		t.Errorf("registrations = %v", got)
	}
}

func TestHTTPHandler_Auth(t *testing.T) {
	env := newTestServer(t, "secret")

	rec := doRequest(t, env.handler, http.MethodGet, "/v1/registrations", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/registrations", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{inputError("x"), http.StatusBadRequest},
		{errUnknown, http.StatusInternalServerError},
	} {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

var errUnknown = &json.UnsupportedValueError{Str: "boom"}
