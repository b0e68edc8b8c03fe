package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:     "graph",
	Short:   "Show the format graph",
	GroupID: "resolve",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		graphML, _ := cmd.Flags().GetBool("graphml")
		outPath, _ := cmd.Flags().GetString("output")

		if graphML {
			doc, err := convClient.GraphML(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching graphml: %w", err)
			}
			if outPath == "" {
				_, err = os.Stdout.Write(doc)
				return err
			}
			if err := os.WriteFile(outPath, doc, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", outPath)
			return nil
		}

		g, err := convClient.Graph(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching graph: %w", err)
		}
		if jsonOutput {
			return printJSON(os.Stdout, g)
		}
		printGraph(os.Stdout, g)
		return nil
	},
}

func init() {
	graphCmd.Flags().Bool("graphml", false, "print the graph as GraphML")
	graphCmd.Flags().StringP("output", "o", "", "write GraphML to this file instead of stdout")
}
