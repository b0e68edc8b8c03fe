package model

import (
	"os"
	"testing"
)

func TestKind_IsValid(t *testing.T) {
	for _, tc := range []struct {
		kind Kind
		want bool
	}{
		{KindConverter, true},
		{KindValidator, true},
		{Kind(""), false},
		{Kind("bogus"), false},
	} {
		if got := tc.kind.IsValid(); got != tc.want {
			t.Errorf("Kind(%q).IsValid() = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestRegistration_Property(t *testing.T) {
	r := &Registration{
		ID:         "cv-1",
		Kind:       KindConverter,
		InFormat:   "text/csv",
		OutFormat:  "text/tsv",
		Label:      "CSV to TSV",
		Properties: map[string]string{"Author": "ops"},
	}

	for _, tc := range []struct {
		key    string
		want   string
		wantOK bool
	}{
		{PropType, "converter", true},
		{PropInData, "text/csv", true},
		{"OUT_DATA", "text/tsv", true},
		{PropID, "cv-1", true},
		{PropLabel, "CSV to TSV", true},
		{PropRemote, "", false},
		{"author", "ops", true},
		{"missing", "", false},
	} {
		got, ok := r.Property(tc.key)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("Property(%q) = (%q, %v), want (%q, %v)", tc.key, got, ok, tc.want, tc.wantOK)
		}
	}

	r.Remote = true
	if v, ok := r.Property(PropRemote); !ok || v != "true" {
		t.Errorf("Property(remote) = (%q, %v), want (\"true\", true)", v, ok)
	}
}

func TestRegistration_CloneIsDeep(t *testing.T) {
	r := &Registration{ID: "a", Kind: KindConverter, Properties: map[string]string{"k": "v"}}
	c := r.Clone()
	c.Properties["k"] = "changed"
	c.InFormat = "x"
	if r.Properties["k"] != "v" || r.InFormat != "" {
		t.Fatalf("clone shares state with original: %+v", r)
	}
	var nilReg *Registration
	if nilReg.Clone() != nil {
		t.Fatal("Clone of nil should be nil")
	}
}

func TestValidateRegistration(t *testing.T) {
	for _, tc := range []struct {
		name    string
		reg     Registration
		wantErr string
	}{
		{"valid", Registration{ID: "a", Kind: KindConverter, InFormat: "x", OutFormat: "y"}, ""},
		{"empty formats allowed", Registration{Kind: KindValidator}, ""},
		{"bad kind", Registration{Kind: "bogus"}, "kind"},
		{"whitespace id", Registration{ID: "a b", Kind: KindConverter}, "id"},
		{"paren format", Registration{Kind: KindConverter, InFormat: "a(b"}, "in_format"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRegistration(&tc.reg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if ve.Errors[0].Field != tc.wantErr {
				t.Errorf("field = %q, want %q", ve.Errors[0].Field, tc.wantErr)
			}
		})
	}
}

func TestChain_KeyAndTerminal(t *testing.T) {
	a := &Registration{ID: "a", InFormat: "x", OutFormat: "y"}
	b := &Registration{ID: "b", InFormat: "y", OutFormat: "z"}

	c := NewChain(a, b)
	if c.Terminal() != "z" {
		t.Errorf("Terminal() = %q, want z", c.Terminal())
	}
	if !c.Equal(NewChain(a, b)) {
		t.Error("chains with the same steps should be equal")
	}
	if c.Equal(NewChain(b, a)) {
		t.Error("chains with different step order should differ")
	}

	p := NewPassThrough("x")
	if !p.IsPassThrough() || p.Terminal() != "x" {
		t.Errorf("pass-through = %v terminal %q", p.IsPassThrough(), p.Terminal())
	}
	if !p.Equal(NewPassThrough("other")) {
		t.Error("pass-through chains share the empty key")
	}

	ext := p.Append(b)
	if ext.IsPassThrough() || ext.Len() != 1 || ext.Terminal() != "z" {
		t.Errorf("appended pass-through = %s", ext)
	}
	if p.Len() != 0 {
		t.Error("Append must not mutate the receiver")
	}
}

func TestDedupChains(t *testing.T) {
	a := &Registration{ID: "a"}
	b := &Registration{ID: "b"}
	got := DedupChains([]*Chain{NewChain(a), nil, NewChain(b), NewChain(a), NewPassThrough("x"), NewPassThrough("y")})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: %v", len(got), got)
	}
	if got[0].Key() != "a" || got[1].Key() != "b" || !got[2].IsPassThrough() {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestData_IsFile(t *testing.T) {
	for _, tc := range []struct {
		payload any
		want    bool
	}{
		{File("/tmp/x.csv"), true},
		{(*os.File)(nil), true},
		{"in memory", false},
		{nil, false},
	} {
		d := &Data{Format: "x", Payload: tc.payload}
		if got := d.IsFile(); got != tc.want {
			t.Errorf("IsFile(%T) = %v, want %v", tc.payload, got, tc.want)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	if !IsExtensionQualified("file-ext:csv") || IsExtensionQualified("file:text/csv") {
		t.Error("IsExtensionQualified mismatch")
	}
	if !HasWildcard("text/*") || HasWildcard("text/csv") {
		t.Error("HasWildcard mismatch")
	}
}
