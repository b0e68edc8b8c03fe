package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/convgraph/internal/model"
	"github.com/alfredjeanlab/convgraph/internal/rpc"
	"github.com/alfredjeanlab/convgraph/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printChains(w io.Writer, resp *rpc.FindConvertersResponse) {
	if len(resp.Chains) == 0 {
		fmt.Fprintf(w, "No converter chain from %s to %s\n", resp.In, resp.Out)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tHOPS\tFORMAT\tCHAIN")
	for i, c := range resp.Chains {
		chain := "(pass-through)"
		if !c.PassThrough {
			ids := make([]string, len(c.Steps))
			for j, s := range c.Steps {
				ids[j] = s.ID
			}
			chain = strings.Join(ids, " -> ")
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i+1, len(c.Steps), c.Format, chain)
	}
	tw.Flush()
	fmt.Fprintln(w, "\n"+ui.RenderMuted(fmt.Sprintf("%d chain(s) from %s to %s", len(resp.Chains), resp.In, resp.Out)))
}

func printRegistrationTable(w io.Writer, regs []*model.Registration, total int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tIN\tOUT\tREMOTE\tLABEL")
	for _, r := range regs {
		remote := ""
		if r.Remote {
			remote = "yes"
		}
		label := r.Label
		if len(label) > 40 {
			label = label[:37] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Kind, r.InFormat, r.OutFormat, remote, label)
	}
	tw.Flush()
	fmt.Fprintln(w, "\n"+ui.RenderMuted(fmt.Sprintf("%d registration(s)", total)))
}

func printRegistration(w io.Writer, r *model.Registration) {
	fmt.Fprintf(w, "ID:      %s\n", ui.RenderAccent(r.ID))
	fmt.Fprintf(w, "Kind:    %s\n", ui.RenderKind(string(r.Kind)))
	fmt.Fprintf(w, "In:      %s\n", r.InFormat)
	fmt.Fprintf(w, "Out:     %s\n", r.OutFormat)
	if r.Remote {
		fmt.Fprintf(w, "Remote:  yes\n")
	}
	if r.Label != "" {
		fmt.Fprintf(w, "Label:   %s\n", r.Label)
	}
	for _, k := range slices.Sorted(maps.Keys(r.Properties)) {
		fmt.Fprintf(w, "  %s = %s\n", k, r.Properties[k])
	}
}

func printGraph(w io.Writer, g *rpc.GraphResponse) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tTO\tCONVERTERS")
	for _, e := range g.Edges {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Source, e.Target, strings.Join(e.Registrations, ", "))
	}
	tw.Flush()
	fmt.Fprintln(w, "\n"+ui.RenderMuted(fmt.Sprintf("%d format(s), %d edge(s), %d converter(s)", g.Stats.Vertices, g.Stats.Edges, g.Stats.Registrations)))
}

func printPeers(w io.Writer, resp *rpc.PeersResponse) {
	if !resp.Mirroring {
		fmt.Fprintln(w, "Mirroring is disabled on this server")
		return
	}
	if len(resp.Peers) == 0 {
		fmt.Fprintln(w, "No peers seen yet")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORIGIN\tSTATE\tIDLE\tEVENTS\tREGISTRATIONS\tLAST")
	for _, p := range resp.Peers {
		state := "active"
		if p.Stale {
			state = "stale"
		}
		idle := (time.Duration(p.IdleSecs) * time.Second).String()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s %s\n", p.Origin, state, idle, p.EventCount, len(p.Registrations), p.LastEvent, p.LastID)
	}
	tw.Flush()
	fmt.Fprintln(w, "\n"+ui.RenderMuted(fmt.Sprintf("%d peer(s)", len(resp.Peers))))
}
