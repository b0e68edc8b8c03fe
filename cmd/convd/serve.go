package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/convgraph/internal/config"
	"github.com/alfredjeanlab/convgraph/internal/conversion"
	"github.com/alfredjeanlab/convgraph/internal/events"
	"github.com/alfredjeanlab/convgraph/internal/export"
	"github.com/alfredjeanlab/convgraph/internal/graph"
	"github.com/alfredjeanlab/convgraph/internal/manifest"
	"github.com/alfredjeanlab/convgraph/internal/peers"
	"github.com/alfredjeanlab/convgraph/internal/registry"
	"github.com/alfredjeanlab/convgraph/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the convd HTTP and gRPC server",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Override PersistentPreRunE so we don't create a client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

// newPublisher returns a NATS publisher when cfg names a server.
func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("events disabled (CONVGRAPH_NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("events enabled", "nats_url", cfg.NATSURL)
	return pub, nil
}

// seedManifest registers every entry of the manifest at path.
func seedManifest(ctx context.Context, reg *registry.Registry, path string) (int, error) {
	regs, err := manifest.Load(path)
	if err != nil {
		return 0, err
	}
	for _, r := range regs {
		if _, err := reg.Register(ctx, r); err != nil {
			return 0, fmt.Errorf("seeding %s: %w", r.String(), err)
		}
	}
	return len(regs), nil
}

// exportDestinations builds the graph export targets. The local file is
// always written; S3 and git are added when configured.
func exportDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []export.Destination {
	dests := []export.Destination{&export.FileDestination{Path: cfg.ExportPath}}
	logger.Info("export file destination enabled", "path", cfg.ExportPath)

	if cfg.ExportS3Bucket != "" {
		s3Dest, err := export.NewS3Destination(ctx, cfg.ExportS3Bucket, cfg.ExportS3Key, cfg.ExportS3Region, cfg.ExportS3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 export destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("export S3 destination enabled", "bucket", cfg.ExportS3Bucket, "key", cfg.ExportS3Key)
		}
	}
	if cfg.ExportGitRepo != "" {
		dests = append(dests, export.NewGitDestination(cfg.ExportGitRepo, cfg.ExportGitFile, cfg.ExportGitBranch))
		logger.Info("export git destination enabled", "repo", cfg.ExportGitRepo, "branch", cfg.ExportGitBranch)
	}
	return dests
}

// pruneStalePeer returns the reaper callback. With pruning enabled the
// registrations a quiet peer announced are dropped from the local registry.
func pruneStalePeer(ctx context.Context, cfg *config.Config, mirror *registry.Mirror, logger *slog.Logger) func(string, []string) {
	return func(origin string, ids []string) {
		if !cfg.PeerPrune || len(ids) == 0 {
			return
		}
		n, err := mirror.Forget(ctx, ids)
		if err != nil {
			logger.Error("pruning stale peer", "origin", origin, "err", err)
			return
		}
		logger.Info("pruned stale peer", "origin", origin, "registrations", n)
	}
}

// serve runs the service until ctx is cancelled, then shuts everything down
// in reverse order.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
	}()

	reg := registry.New(registry.WithPublisher(publisher), registry.WithLogger(logger))
	defer reg.Close()

	g := graph.New()
	adapter := conversion.NewAdapter(g, logger)
	if err := adapter.Start(reg); err != nil {
		return err
	}
	defer adapter.Close()
	svc := conversion.NewService(g, reg, conversion.WithLogger(logger))

	if cfg.Manifest != "" {
		n, err := seedManifest(ctx, reg, cfg.Manifest)
		if err != nil {
			return err
		}
		logger.Info("manifest loaded", "path", cfg.Manifest, "registrations", n)
	}

	var serverOpts []server.Option
	if cfg.Mirror {
		sub, err := events.NewNATSSubscriber(cfg.NATSURL)
		if err != nil {
			return err
		}
		tracker := peers.New()
		mirror := registry.NewMirror(reg, logger, registry.WithObserver(tracker))
		tracker.StartReaper(&peers.ReaperConfig{
			StaleAfter: cfg.PeerStaleAfter,
			OnStale:    pruneStalePeer(ctx, cfg, mirror, logger),
		})
		defer tracker.Stop()
		serverOpts = append(serverOpts, server.WithPeers(tracker))

		mirrorCtx, mirrorCancel := context.WithCancel(ctx)
		mirrorDone := make(chan struct{})
		go func() {
			defer close(mirrorDone)
			if err := mirror.StartSubscriber(mirrorCtx, sub); err != nil {
				logger.Error("mirror subscriber error", "err", err)
			}
			sub.Close()
		}()
		defer func() {
			mirrorCancel()
			<-mirrorDone
			logger.Info("mirror stopped")
		}()
		logger.Info("mirror started", "origin", reg.Origin())
	}

	srv := server.New(reg, svc, logger, serverOpts...)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Close()

	grpcServer := server.NewGRPCServer(srv, cfg.AuthToken)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "err", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.NewHTTPHandler(cfg.AuthToken),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "err", err)
		}
	}()

	var scheduler *export.Scheduler
	if cfg.ExportInterval > 0 {
		scheduler = export.NewScheduler(g, exportDestinations(ctx, cfg, logger), cfg.ExportInterval, logger)
		scheduler.Start()
		logger.Info("export scheduler started", "interval", cfg.ExportInterval)
	}

	logger.Info("convd server started",
		"grpc_addr", cfg.GRPCAddr,
		"http_addr", cfg.HTTPAddr,
		"origin", reg.Origin(),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	if scheduler != nil {
		scheduler.Stop()
		logger.Info("export scheduler stopped")
	}

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "err", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}
