package conversion

import (
	"fmt"

	"github.com/alfredjeanlab/convgraph/internal/filter"
	"github.com/alfredjeanlab/convgraph/internal/model"
)

// extend appends a validator from each chain's terminal format to trueOut.
// Each terminal format is looked up once per call. Chains whose terminal
// format has no validator are dropped.
func (s *Service) extend(chains []*model.Chain, trueOut string) []*model.Chain {
	validators := make(map[string][]*model.Registration)

	var out []*model.Chain
	for _, c := range chains {
		terminal := c.Terminal()
		vs, ok := validators[terminal]
		if !ok {
			vs = s.validatorsFor(terminal, trueOut)
			validators[terminal] = vs
		}
		for _, v := range vs {
			out = append(out, c.Append(v))
		}
	}
	return model.DedupChains(out)
}

// validatorsFor matches both formats literally; a '*' in a registered format
// is not a wildcard here.
func (s *Service) validatorsFor(inFormat, outFormat string) []*model.Registration {
	expr := fmt.Sprintf("(&(type=%s)(!(%s=*))(%s=%s)(%s=%s))",
		model.KindValidator, model.PropRemote,
		model.PropInData, filter.Escape(inFormat), model.PropOutData, filter.Escape(outFormat))
	regs, err := s.reg.Query(expr)
	if err != nil {
		s.logger.Warn("conversion: validator filter rejected", "in", inFormat, "out", outFormat, "err", err)
		return nil
	}
	return regs
}
