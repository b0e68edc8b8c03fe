package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/convgraph/internal/manifest"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List registrations",
	GroupID: "registry",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		asTOML, _ := cmd.Flags().GetBool("toml")

		resp, err := convClient.ListRegistrations(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("listing registrations: %w", err)
		}

		switch {
		case jsonOutput:
			return printJSON(os.Stdout, resp)
		case asTOML:
			return manifest.Encode(os.Stdout, resp.Registrations)
		}
		printRegistrationTable(os.Stdout, resp.Registrations, resp.Total)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show a registration",
	GroupID: "registry",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := convClient.GetRegistration(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("getting registration: %w", err)
		}
		if jsonOutput {
			return printJSON(os.Stdout, reg)
		}
		printRegistration(os.Stdout, reg)
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("filter", "f", "", "filter expression, e.g. (&(type=converter)(in_data=text/*))")
	listCmd.Flags().Bool("toml", false, "print the registrations as a TOML manifest")
}
