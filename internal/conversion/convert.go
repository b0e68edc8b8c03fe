package conversion

import (
	"context"
	"strings"

	"github.com/alfredjeanlab/convgraph/internal/model"
)

// FindConvertersForData returns the chains that can turn data into
// outFormat. Besides the declared format, an in-memory payload is also
// looked up under every type identifier it can be read as.
func (s *Service) FindConvertersForData(data *model.Data, outFormat string) []*model.Chain {
	if data == nil {
		if strings.EqualFold(outFormat, model.NullData) {
			return []*model.Chain{model.NewPassThrough(model.NullData)}
		}
		return nil
	}

	var chains []*model.Chain
	if data.Format != "" {
		chains = append(chains, s.FindConverters(data.Format, outFormat)...)
	}
	if data.Payload != nil && !data.IsFile() {
		for _, t := range TypesOf(data.Payload) {
			chains = append(chains, s.FindConverters(t, outFormat)...)
		}
	}
	return model.DedupChains(chains)
}

// Convert turns data into outFormat using the first chain found. Data
// already in outFormat is returned without a lookup. When no chain exists the
// input is returned unchanged and the error is nil; callers that need a hard
// failure must compare formats. A failing chain yields a *ConversionError.
func (s *Service) Convert(ctx context.Context, data *model.Data, outFormat string) (*model.Data, error) {
	if data == nil {
		return nil, nil
	}
	if data.Format == outFormat {
		return data, nil
	}

	chains := s.FindConvertersForData(data, outFormat)
	if len(chains) == 0 {
		s.logger.Debug("conversion: no chain, returning input", "from", data.Format, "to", outFormat)
		return data, nil
	}

	chain := chains[0]
	out, err := s.exec.Execute(ctx, chain, data)
	if err != nil {
		return nil, &ConversionError{From: data.Format, To: outFormat, Chain: chain, Err: err}
	}
	s.logger.Debug("conversion: converted", "from", data.Format, "to", outFormat, "chain", chain.String())
	return out, nil
}
