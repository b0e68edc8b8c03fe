package conversion

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/convgraph/internal/graph"
	"github.com/alfredjeanlab/convgraph/internal/model"
	"github.com/alfredjeanlab/convgraph/internal/registry"
)

func conv(id, in, out string) *model.Registration {
	return &model.Registration{ID: id, Kind: model.KindConverter, InFormat: in, OutFormat: out}
}

func validator(id, in, out string) *model.Registration {
	return &model.Registration{ID: id, Kind: model.KindValidator, InFormat: in, OutFormat: out}
}

// countingRegistry counts queries per filter so tests can check memoization.
type countingRegistry struct {
	*registry.Registry
	validatorQueries atomic.Int32
}

func (c *countingRegistry) Query(expr string) ([]*model.Registration, error) {
	if strings.Contains(expr, "type=validator") {
		c.validatorQueries.Add(1)
	}
	return c.Registry.Query(expr)
}

type fixture struct {
	reg     *countingRegistry
	graph   *graph.Store
	adapter *Adapter
	svc     *Service
}

// newFixture registers regs, then starts the adapter so the graph is loaded
// from the subscription snapshot before the fixture is returned.
func newFixture(t *testing.T, regs ...*model.Registration) *fixture {
	t.Helper()
	r := registry.New()
	t.Cleanup(func() { r.Close() })
	for _, reg := range regs {
		if _, err := r.Register(context.Background(), reg); err != nil {
			t.Fatalf("Register(%s): %v", reg.ID, err)
		}
	}

	f := &fixture{reg: &countingRegistry{Registry: r}, graph: graph.New()}
	f.adapter = NewAdapter(f.graph, nil)
	if err := f.adapter.Start(f.reg); err != nil {
		t.Fatalf("adapter start: %v", err)
	}
	t.Cleanup(f.adapter.Close)
	f.svc = NewService(f.graph, f.reg)
	return f
}

func chainStrings(chains []*model.Chain) string {
	parts := make([]string, len(chains))
	for i, c := range chains {
		parts[i] = c.String()
	}
	return strings.Join(parts, " | ")
}

// waitFor polls cond until it holds or the test times out.
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

func TestFindConverters_TwoHopThenDirect(t *testing.T) {
	f := newFixture(t, conv("ab", "A", "B"), conv("bc", "B", "C"))

	if got := chainStrings(f.svc.FindConverters("A", "C")); got != "ab -> bc" {
		t.Fatalf("chains = %q, want two-step chain", got)
	}

	if _, err := f.reg.Register(context.Background(), conv("ac", "A", "C")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "direct edge", func() bool { return f.graph.Edge("A", "C") != nil })

	if got := chainStrings(f.svc.FindConverters("A", "C")); got != "ac" {
		t.Errorf("chains = %q, want the direct converter", got)
	}
}

func TestFindConverters_EmptyAndUnknownFormats(t *testing.T) {
	f := newFixture(t, conv("ab", "A", "B"))
	for _, tc := range []struct{ in, out string }{
		{"", "B"},
		{"A", ""},
		{"unknown", "B"},
		{"A", "unknown"},
		{"A", "A"},
	} {
		if got := f.svc.FindConverters(tc.in, tc.out); len(got) != 0 {
			t.Errorf("FindConverters(%q, %q) = %q, want none", tc.in, tc.out, chainStrings(got))
		}
	}
}

func TestResolveWildcard(t *testing.T) {
	remote := conv("remote", "text/plain", "text/html")
	remote.Remote = true
	f := newFixture(t,
		conv("json-csv", "application/json", "text/csv"),
		conv("xml-tsv", "application/xml", "text/tsv"),
		conv("json-csv-2", "application/json", "text/csv"),
		conv("ext", "file-ext:txt", "text/plain"),
		remote,
	)

	for _, tc := range []struct {
		pattern string
		role    Role
		want    string
	}{
		{"text/*", RoleOut, "text/csv text/tsv"},
		{"application/*", RoleIn, "application/json application/xml"},
		{"*", RoleIn, "application/json application/xml"},
		{"text/csv", RoleOut, "text/csv"},
		{"nothing", RoleIn, "nothing"},
		{"image/*", RoleOut, ""},
		{"text/(*", RoleOut, ""},
		{`text/\*`, RoleOut, ""},
		{"te*/c*v", RoleOut, "text/csv"},
	} {
		got := strings.Join(f.svc.ResolveWildcard(tc.pattern, tc.role), " ")
		if got != tc.want {
			t.Errorf("ResolveWildcard(%q, %s) = %q, want %q", tc.pattern, tc.role, got, tc.want)
		}
	}
}

func TestFindConverters_PassThroughForMatchingInput(t *testing.T) {
	f := newFixture(t, conv("csv-tsv", "text/csv", "text/tsv"))

	chains := f.svc.FindConverters("text/csv", "text/*")
	if len(chains) != 2 {
		t.Fatalf("chains = %q, want pass-through and csv-tsv", chainStrings(chains))
	}
	if !chains[0].IsPassThrough() || chains[0].Terminal() != "text/csv" {
		t.Errorf("first chain = %s, want pass-through of text/csv", chains[0])
	}
	if chains[1].String() != "csv-tsv" {
		t.Errorf("second chain = %s, want csv-tsv", chains[1])
	}

	// A non-matching input gets no pass-through.
	if got := f.svc.FindConverters("image/png", "text/*"); len(got) != 0 {
		t.Errorf("chains = %q, want none", chainStrings(got))
	}
}

func TestMatchesPattern(t *testing.T) {
	for _, tc := range []struct {
		format, pattern string
		want            bool
	}{
		{"text/csv", "text/*", true},
		{"text/csv", "*", true},
		{"text/csv", "*/csv", true},
		{"text/csv", "te*sv", true},
		{"text/csv", "text/", false},
		{"xtext/csv", "text/*", false},
		{"a+b/x", "a+b/*", true},
		{"aab/x", "a+b/*", false},
		{"a.b", "a.*", true},
		{"axb", "a.*", false},
	} {
		if got := matchesPattern(tc.format, tc.pattern); got != tc.want {
			t.Errorf("matchesPattern(%q, %q) = %v, want %v", tc.format, tc.pattern, got, tc.want)
		}
	}
}

func TestFindConverters_ExtensionQualifiedTarget(t *testing.T) {
	f := newFixture(t,
		conv("a-file", "A", "file"),
		validator("csv-check", "file", "file-ext:csv"),
	)

	if got := chainStrings(f.svc.FindConverters("A", "file-ext:csv")); got != "a-file -> csv-check" {
		t.Errorf("chains = %q, want converter then validator", got)
	}
	if got := f.svc.FindConverters("A", "file-ext:tsv"); len(got) != 0 {
		t.Errorf("without a validator chains = %q, want none", chainStrings(got))
	}
}

func TestFindConverters_ExtensionQualifiedViaConcreteFileFormat(t *testing.T) {
	remoteVal := validator("remote-check", "file:text/csv", "file-ext:csv")
	remoteVal.Remote = true
	f := newFixture(t,
		conv("json-csvfile", "application/json", "file:text/csv"),
		conv("ext-out", "A", "file-ext:csv"),
		validator("csv-check", "file:text/csv", "file-ext:csv"),
		remoteVal,
	)

	if got := chainStrings(f.svc.FindConverters("application/json", "file-ext:csv")); got != "json-csvfile -> csv-check" {
		t.Errorf("chains = %q", got)
	}
	// Converters declaring an extension-qualified output never become edges.
	if got := f.svc.FindConverters("A", "file-ext:csv"); len(got) != 0 {
		t.Errorf("chains = %q, want none", chainStrings(got))
	}
	// Data already in a concrete file format only needs the validator.
	if got := chainStrings(f.svc.FindConverters("file:text/csv", "file-ext:csv")); got != "csv-check" {
		t.Errorf("chains = %q, want the validator alone", got)
	}
}

func TestExtend_QueriesEachTerminalOnceAndExtendsEveryChain(t *testing.T) {
	f := newFixture(t,
		conv("a-file", "src/a", "file"),
		conv("b-file", "src/b", "file"),
		validator("v1", "file", "file-ext:csv"),
		validator("v2", "file", "file-ext:csv"),
	)

	got := f.svc.FindConverters("src/*", "file-ext:csv")
	want := "a-file -> v1 | a-file -> v2 | b-file -> v1 | b-file -> v2"
	if chainStrings(got) != want {
		t.Errorf("chains = %q, want %q", chainStrings(got), want)
	}
	if n := f.reg.validatorQueries.Load(); n != 1 {
		t.Errorf("validator queries = %d, want 1", n)
	}
}

func TestExtend_FilterSyntaxInFormatIsLiteral(t *testing.T) {
	f := newFixture(t)
	chains := []*model.Chain{model.NewPassThrough("bad*(")}
	if got := f.svc.extend(chains, "file-ext:csv"); len(got) != 0 {
		t.Errorf("extend = %q, want none", chainStrings(got))
	}
}

func TestFindConverters_StarInTerminalFormatIsNotAWildcard(t *testing.T) {
	f := newFixture(t,
		conv("a-star", "A", "file:x*y"),
		validator("xay-check", "file:xAy", "file-ext:csv"),
	)
	if got := f.svc.FindConverters("A", "file-ext:csv"); len(got) != 0 {
		t.Fatalf("chains = %q, want none: file:x*y does not connect to file:xAy", chainStrings(got))
	}

	if _, err := f.reg.Register(context.Background(), validator("star-check", "file:x*y", "file-ext:csv")); err != nil {
		t.Fatal(err)
	}
	got := f.svc.FindConverters("A", "file-ext:csv")
	if chainStrings(got) != "a-star -> star-check" {
		t.Fatalf("chains = %q, want a-star -> star-check", chainStrings(got))
	}
	for _, c := range got {
		at := "A"
		for _, step := range c.Steps() {
			if step.InFormat != at {
				t.Fatalf("chain %s is not connected at %s", c, at)
			}
			at = step.OutFormat
		}
	}
}
