// Package config loads convd service settings from CONVGRAPH_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr  string // CONVGRAPH_HTTP_ADDR (default ":8080")
	GRPCAddr  string // CONVGRAPH_GRPC_ADDR (default ":9090")
	NATSURL   string // CONVGRAPH_NATS_URL (optional, empty = no events)
	AuthToken string // CONVGRAPH_AUTH_TOKEN (optional, empty = auth disabled)
	Manifest  string // CONVGRAPH_MANIFEST (optional TOML file seeded at startup)
	Mirror    bool   // CONVGRAPH_MIRROR (follow remote registries over NATS)

	// Mirror peer roster
	PeerStaleAfter time.Duration // CONVGRAPH_PEER_STALE_AFTER (default 15m)
	PeerPrune      bool          // CONVGRAPH_PEER_PRUNE (drop a stale peer's mirrored registrations)

	// Export settings
	ExportInterval   time.Duration // CONVGRAPH_EXPORT_INTERVAL (default 0 = disabled)
	ExportPath       string        // CONVGRAPH_EXPORT_PATH (default "~/convertGraph.xml")
	ExportS3Bucket   string        // CONVGRAPH_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Key      string        // CONVGRAPH_EXPORT_S3_KEY (default "convgraph/graph.graphml")
	ExportS3Region   string        // CONVGRAPH_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Endpoint string        // CONVGRAPH_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportGitRepo    string        // CONVGRAPH_EXPORT_GIT_REPO (local clone, enables git when set)
	ExportGitFile    string        // CONVGRAPH_EXPORT_GIT_FILE (default "convertGraph.xml")
	ExportGitBranch  string        // CONVGRAPH_EXPORT_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:         envOrDefault("CONVGRAPH_HTTP_ADDR", ":8080"),
		GRPCAddr:         envOrDefault("CONVGRAPH_GRPC_ADDR", ":9090"),
		NATSURL:          os.Getenv("CONVGRAPH_NATS_URL"),
		AuthToken:        os.Getenv("CONVGRAPH_AUTH_TOKEN"),
		Manifest:         os.Getenv("CONVGRAPH_MANIFEST"),
		ExportPath:       os.Getenv("CONVGRAPH_EXPORT_PATH"),
		ExportS3Bucket:   os.Getenv("CONVGRAPH_EXPORT_S3_BUCKET"),
		ExportS3Key:      envOrDefault("CONVGRAPH_EXPORT_S3_KEY", "convgraph/graph.graphml"),
		ExportS3Region:   envOrDefault("CONVGRAPH_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Endpoint: os.Getenv("CONVGRAPH_EXPORT_S3_ENDPOINT"),
		ExportGitRepo:    os.Getenv("CONVGRAPH_EXPORT_GIT_REPO"),
		ExportGitFile:    envOrDefault("CONVGRAPH_EXPORT_GIT_FILE", "convertGraph.xml"),
		ExportGitBranch:  envOrDefault("CONVGRAPH_EXPORT_GIT_BRANCH", "main"),
	}

	if v := os.Getenv("CONVGRAPH_MIRROR"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("CONVGRAPH_MIRROR: %w", err)
		}
		c.Mirror = b
	}
	if c.Mirror && c.NATSURL == "" {
		return nil, fmt.Errorf("CONVGRAPH_MIRROR requires CONVGRAPH_NATS_URL")
	}

	if v := os.Getenv("CONVGRAPH_PEER_PRUNE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("CONVGRAPH_PEER_PRUNE: %w", err)
		}
		c.PeerPrune = b
	}
	stale, err := time.ParseDuration(envOrDefault("CONVGRAPH_PEER_STALE_AFTER", "15m"))
	if err != nil {
		return nil, fmt.Errorf("CONVGRAPH_PEER_STALE_AFTER: %w", err)
	}
	if stale <= 0 {
		return nil, fmt.Errorf("CONVGRAPH_PEER_STALE_AFTER: must be positive")
	}
	c.PeerStaleAfter = stale

	intervalStr := envOrDefault("CONVGRAPH_EXPORT_INTERVAL", "0")
	d, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("CONVGRAPH_EXPORT_INTERVAL: %w", err)
	}
	if d < 0 {
		return nil, fmt.Errorf("CONVGRAPH_EXPORT_INTERVAL: must not be negative")
	}
	c.ExportInterval = d

	if c.ExportPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("CONVGRAPH_EXPORT_PATH: no default: %w", err)
		}
		c.ExportPath = filepath.Join(home, "convertGraph.xml")
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
