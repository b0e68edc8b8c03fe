package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/convgraph/internal/conversion"
	"github.com/alfredjeanlab/convgraph/internal/graph"
	"github.com/alfredjeanlab/convgraph/internal/manifest"
	"github.com/alfredjeanlab/convgraph/internal/model"
	"github.com/alfredjeanlab/convgraph/internal/registry"
	"github.com/alfredjeanlab/convgraph/internal/rpc"
)

var findCmd = &cobra.Command{
	Use:     "find <in-format> <out-format>",
	Short:   "Find converter chains between two formats",
	GroupID: "resolve",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestPath, _ := cmd.Flags().GetString("manifest")
		aliases, _ := cmd.Flags().GetStringArray("as")
		if len(aliases) > 0 && manifestPath == "" {
			return fmt.Errorf("--as requires --manifest")
		}

		var resp *rpc.FindConvertersResponse
		if manifestPath != "" {
			r, err := findLocal(cmd.Context(), manifestPath, args[0], args[1], aliases...)
			if err != nil {
				return err
			}
			resp = r
		} else {
			r, err := convClient.FindConverters(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("finding converters: %w", err)
			}
			resp = r
		}

		if jsonOutput {
			return printJSON(os.Stdout, resp)
		}
		printChains(os.Stdout, resp)
		return nil
	},
}

func init() {
	findCmd.Flags().String("manifest", "", "resolve against a local TOML manifest instead of a server")
	findCmd.Flags().StringArray("as", nil, "with --manifest, also resolve the input as this type or format (repeatable)")
}

// aliasedPayload stands in for data that can also be read under other
// format identifiers.
type aliasedPayload []string

func (p aliasedPayload) AlternateFormats() []string { return p }

// findLocal resolves in -> out against the registrations declared in a
// manifest, without a server. With aliases the input is resolved as data of
// format in whose payload can also be read as each alias.
func findLocal(ctx context.Context, path, in, out string, aliases ...string) (*rpc.FindConvertersResponse, error) {
	regs, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	svc, cleanup, err := localService(ctx, regs)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var chains []*model.Chain
	if len(aliases) > 0 {
		chains = svc.FindConvertersForData(&model.Data{Format: in, Payload: aliasedPayload(aliases)}, out)
	} else {
		chains = svc.FindConverters(in, out)
	}
	resp := &rpc.FindConvertersResponse{In: in, Out: out, Chains: make([]model.ChainView, 0, len(chains))}
	for _, c := range chains {
		resp.Chains = append(resp.Chains, c.View())
	}
	return resp, nil
}

// localService builds an in-process registry, graph and service holding
// regs. The adapter applies its snapshot synchronously, so the graph is
// complete when this returns.
func localService(ctx context.Context, regs []*model.Registration) (*conversion.Service, func(), error) {
	reg := registry.New()
	for _, r := range regs {
		if _, err := reg.Register(ctx, r); err != nil {
			reg.Close()
			return nil, nil, fmt.Errorf("registering %s: %w", r.ID, err)
		}
	}

	g := graph.New()
	adapter := conversion.NewAdapter(g, nil)
	if err := adapter.Start(reg); err != nil {
		reg.Close()
		return nil, nil, err
	}
	cleanup := func() {
		adapter.Close()
		reg.Close()
	}
	return conversion.NewService(g, reg), cleanup, nil
}
