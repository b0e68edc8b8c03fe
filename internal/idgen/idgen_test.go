package idgen

import (
	"regexp"
	"strings"
	"testing"
)

func TestRegistration_Shape(t *testing.T) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(RegistrationPrefix) + `[a-zA-Z0-9]{10}$`)
	for i := 0; i < 100; i++ {
		id, err := Registration()
		if err != nil {
			t.Fatalf("Registration() error on iteration %d: %v", i, err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("Registration() = %q, does not match %s", id, pattern)
		}
	}
}

func TestOrigin_Prefix(t *testing.T) {
	id, err := Origin()
	if err != nil {
		t.Fatalf("Origin() error: %v", err)
	}
	if !strings.HasPrefix(id, OriginPrefix) {
		t.Errorf("Origin() = %q, want prefix %q", id, OriginPrefix)
	}
	if len(id) != len(OriginPrefix)+Length {
		t.Errorf("Origin() length = %d, want %d", len(id), len(OriginPrefix)+Length)
	}
}

func TestRegistration_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := Registration()
		if err != nil {
			t.Fatalf("Registration() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestWithPrefix(t *testing.T) {
	id, err := WithPrefix("test-")
	if err != nil {
		t.Fatalf("WithPrefix error: %v", err)
	}
	if !strings.HasPrefix(id, "test-") || len(id) != len("test-")+Length {
		t.Errorf("WithPrefix(\"test-\") = %q", id)
	}
}
