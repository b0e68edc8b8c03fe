package conversion

import (
	"regexp"
	"strings"

	"github.com/alfredjeanlab/convgraph/internal/model"
)

// FindConverters returns the distinct chains that turn inFormat into
// outFormat. Either side may be a wildcard pattern. Extension-qualified
// targets ("file-ext:csv") are reached by converting to a generic file format
// and appending a validator.
func (s *Service) FindConverters(inFormat, outFormat string) []*model.Chain {
	if inFormat == "" || outFormat == "" {
		return nil
	}

	if model.IsExtensionQualified(outFormat) {
		chains := s.findPlain(inFormat, model.FileWildcard)
		chains = append(chains, s.findPlain(inFormat, model.FileFormat)...)
		return s.extend(model.DedupChains(chains), outFormat)
	}
	return s.findPlain(inFormat, outFormat)
}

func (s *Service) findPlain(inFormat, outFormat string) []*model.Chain {
	ins := s.ResolveWildcard(inFormat, RoleIn)
	outs := s.ResolveWildcard(outFormat, RoleOut)

	var chains []*model.Chain
	if model.HasWildcard(outFormat) && matchesPattern(inFormat, outFormat) {
		chains = append(chains, model.NewPassThrough(inFormat))
	}
	for _, i := range ins {
		for _, o := range outs {
			if c := s.graph.ShortestChain(i, o); c != nil {
				chains = append(chains, c)
			}
		}
	}
	return model.DedupChains(chains)
}

// matchesPattern reports whether format matches pattern in full, where each
// '*' matches any run of characters and everything else is literal.
func matchesPattern(format, pattern string) bool {
	parts := strings.Split(pattern, model.Wildcard)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile("^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return false
	}
	return re.MatchString(format)
}
