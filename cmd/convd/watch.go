package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/convgraph/internal/client"
	"github.com/alfredjeanlab/convgraph/internal/events"
	"github.com/alfredjeanlab/convgraph/internal/model"
	"github.com/alfredjeanlab/convgraph/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream registration lifecycle events",
	GroupID: "registry",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, _ := cmd.Flags().GetStringSlice("topic")

		hc, ok := convClient.(*client.HTTPClient)
		if !ok {
			return errors.New("watch requires --transport http")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return hc.StreamEvents(ctx, topics, func(topic string, ev events.RegistrationChanged) {
			printEvent(os.Stdout, ev)
		})
	},
}

func init() {
	watchCmd.Flags().StringSlice("topic", nil, "topic patterns to follow, e.g. convgraph.registration.* (default all)")
}

func printEvent(w io.Writer, ev events.RegistrationChanged) {
	if jsonOutput {
		data, _ := json.Marshal(ev)
		fmt.Fprintln(w, string(data))
		return
	}
	r := ev.Registration
	typ := ui.RenderAccent(ev.Type.String())
	if ev.Type == model.EventUnregistering {
		typ = ui.RenderError(ev.Type.String())
	}
	fmt.Fprintf(w, "%s %s %s %s -> %s %s\n", typ, r.ID, r.Kind, r.InFormat, r.OutFormat, ui.RenderMuted(ev.Origin))
}

