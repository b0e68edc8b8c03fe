package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/convgraph/internal/client"
	"github.com/alfredjeanlab/convgraph/internal/ui"
)

var (
	serverAddr string
	httpURL    string
	transport  string
	jsonOutput bool
	authToken  string

	convClient client.Client
)

func defaultHTTPURL() string {
	if s := os.Getenv("CONVGRAPH_HTTP_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

func defaultServer() string {
	if s := os.Getenv("CONVGRAPH_SERVER"); s != "" {
		return s
	}
	return "localhost:9090"
}

// newClient builds the client for the selected transport.
func newClient() (client.Client, error) {
	switch transport {
	case "http":
		return client.NewHTTPClient(httpURL, authToken), nil
	case "grpc":
		c, err := client.NewGRPCClient(serverAddr, authToken)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to server: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
	}
}

var rootCmd = &cobra.Command{
	Use:          "convd <command>",
	Short:        "Converter chain resolution service and client",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Setup(jsonOutput)
		c, err := newClient()
		if err != nil {
			return err
		}
		convClient = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if convClient != nil {
			convClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "http", "transport protocol (http or grpc)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("CONVGRAPH_AUTH_TOKEN"), "bearer token for the server")

	rootCmd.AddGroup(
		&cobra.Group{ID: "resolve", Title: "Resolution:"},
		&cobra.Group{ID: "registry", Title: "Registry:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Resolution
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(graphCmd)

	// Registry
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(modifyCmd)
	rootCmd.AddCommand(unregisterCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(peersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
