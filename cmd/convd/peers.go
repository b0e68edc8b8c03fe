package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var peersCmd = &cobra.Command{
	Use:     "peers",
	Short:   "List the remote registries the server mirrors",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := convClient.Peers(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing peers: %w", err)
		}
		if jsonOutput {
			return printJSON(os.Stdout, resp)
		}
		printPeers(os.Stdout, resp)
		return nil
	},
}
