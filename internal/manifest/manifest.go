// Package manifest loads converter and validator registrations from a TOML
// file:
//
//	[[converter]]
//	id  = "csv-tsv"
//	in  = "text/csv"
//	out = "text/tsv"
//
//	[[validator]]
//	in  = "file"
//	out = "file-ext:csv"
//	[validator.properties]
//	owner = "ops"
package manifest

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/convgraph/internal/model"
)

// Entry is one table in the manifest.
type Entry struct {
	ID         string            `toml:"id,omitempty"`
	In         string            `toml:"in"`
	Out        string            `toml:"out"`
	Remote     bool              `toml:"remote,omitempty"`
	Label      string            `toml:"label,omitempty"`
	Properties map[string]string `toml:"properties,omitempty"`
}

// File is the decoded manifest.
type File struct {
	Converters []Entry `toml:"converter"`
	Validators []Entry `toml:"validator"`
}

// Load reads the manifest at path.
func Load(path string) ([]*model.Registration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	regs, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return regs, nil
}

// Decode parses a manifest. Converters come first, then validators, each in
// file order. Unknown keys and entries missing in or out are errors.
func Decode(r io.Reader) ([]*model.Registration, error) {
	var f File
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("decoding manifest: unknown keys: %s", strings.Join(keys, ", "))
	}

	regs := make([]*model.Registration, 0, len(f.Converters)+len(f.Validators))
	for _, group := range []struct {
		kind    model.Kind
		entries []Entry
	}{
		{model.KindConverter, f.Converters},
		{model.KindValidator, f.Validators},
	} {
		for i, e := range group.entries {
			reg, err := e.registration(group.kind)
			if err != nil {
				return nil, fmt.Errorf("%s %d: %w", group.kind, i+1, err)
			}
			regs = append(regs, reg)
		}
	}
	return regs, nil
}

func (e Entry) registration(kind model.Kind) (*model.Registration, error) {
	if e.In == "" {
		return nil, fmt.Errorf("missing in")
	}
	if e.Out == "" {
		return nil, fmt.Errorf("missing out")
	}
	reg := &model.Registration{
		ID:         e.ID,
		Kind:       kind,
		InFormat:   e.In,
		OutFormat:  e.Out,
		Remote:     e.Remote,
		Label:      e.Label,
		Properties: e.Properties,
	}
	if err := model.ValidateRegistration(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Encode writes regs as a manifest.
func Encode(w io.Writer, regs []*model.Registration) error {
	var f File
	for _, r := range regs {
		e := Entry{
			ID:         r.ID,
			In:         r.InFormat,
			Out:        r.OutFormat,
			Remote:     r.Remote,
			Label:      r.Label,
			Properties: r.Properties,
		}
		if r.Kind == model.KindValidator {
			f.Validators = append(f.Validators, e)
		} else {
			f.Converters = append(f.Converters, e)
		}
	}
	return toml.NewEncoder(w).Encode(f)
}
