package conversion

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alfredjeanlab/convgraph/internal/filter"
	"github.com/alfredjeanlab/convgraph/internal/model"
)

// Role selects which side of a converter a format pattern describes.
type Role int

const (
	RoleIn Role = iota
	RoleOut
)

// String returns the string representation of the role.
func (r Role) String() string {
	if r == RoleOut {
		return "out"
	}
	return "in"
}

// ResolveWildcard expands pattern into the concrete formats that some local
// converter declares for role. A pattern without a wildcard is returned as
// is. Characters other than '*' match literally.
func (s *Service) ResolveWildcard(pattern string, role Role) []string {
	if !model.HasWildcard(pattern) {
		return []string{pattern}
	}

	// Only '*' keeps its filter meaning; everything else matches literally.
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = filter.Escape(p)
	}
	value := strings.Join(parts, "*")

	var expr string
	if role == RoleIn {
		// Extension-qualified inputs only take part through validators.
		expr = fmt.Sprintf("(&(type=%s)(%s=%s)(%s=*)(!(%s=%s*))(!(%s=*)))",
			model.KindConverter, model.PropInData, value, model.PropOutData,
			model.PropInData, model.FileExtPrefix, model.PropRemote)
	} else {
		expr = fmt.Sprintf("(&(type=%s)(%s=*)(%s=%s)(!(%s=*)))",
			model.KindConverter, model.PropInData, model.PropOutData, value, model.PropRemote)
	}

	regs, err := s.reg.Query(expr)
	if err != nil {
		s.logger.Warn("conversion: wildcard filter rejected", "pattern", pattern, "role", role, "err", err)
		return nil
	}

	formats := make([]string, 0, len(regs))
	for _, r := range regs {
		if role == RoleIn {
			formats = append(formats, r.InFormat)
		} else {
			formats = append(formats, r.OutFormat)
		}
	}
	slices.Sort(formats)
	return slices.Compact(formats)
}
