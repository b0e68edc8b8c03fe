package conversion

import (
	"fmt"

	"github.com/alfredjeanlab/convgraph/internal/model"
)

// TypesOf lists the type identifiers a payload can be read as, in order and
// without duplicates. Payloads implementing model.Typed contribute their
// descriptor closure: the type, its interfaces, then its supertypes. A
// concrete type with no declared supertype extends model.RootType.
// Payloads implementing model.FormatAliaser contribute their alternate
// formats. Anything else is known only by its Go type name and RootType.
func TypesOf(payload any) []string {
	var (
		out  []string
		seen = make(map[string]struct{})
	)
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	typed, isTyped := payload.(model.Typed)
	if isTyped {
		walkType(typed.TypeDescriptor(), add, make(map[*model.TypeDescriptor]bool))
	}
	aliaser, isAliaser := payload.(model.FormatAliaser)
	if isAliaser {
		for _, f := range aliaser.AlternateFormats() {
			add(f)
		}
	}
	if !isTyped && !isAliaser {
		add(fmt.Sprintf("%T", payload))
		add(model.RootType)
	}
	return out
}

func walkType(d *model.TypeDescriptor, add func(string), visited map[*model.TypeDescriptor]bool) {
	if d == nil || visited[d] {
		return
	}
	visited[d] = true

	add(d.Name)
	for _, iface := range d.Interfaces {
		walkType(iface, add, visited)
	}
	switch {
	case d.Super != nil:
		walkType(d.Super, add, visited)
	case !d.Interface:
		add(model.RootType)
	}
}
