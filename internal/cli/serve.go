package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/rulematch/internal/app"
	"github.com/Ramsey-B/rulematch/internal/server"
	"github.com/Ramsey-B/rulematch/pkg/startup"
	"github.com/Ramsey-B/rulematch/pkg/tracing"
	"github.com/Ramsey-B/rulematch/pkg/tracing/exporters"
)

func newServeCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt)
		},
	}
}

func serve(ctx context.Context, rt *runtime) error {
	cfg, logger := rt.cfg, rt.logger

	otlp := exporters.DefaultOTLPConfig()
	otlp.Endpoint = cfg.OTLPEndpoint
	otlp.Protocol = cfg.OTLPProtocol
	otlp.Insecure = cfg.OTLPInsecure
	otlp.Headers = exporters.ParseHeaders(cfg.OTLPHeaders)
	shutdownTracing, err := tracing.Setup(ctx, logger, tracing.ProviderConfig{
		ServiceName: cfg.AppName,
		Exporter:    cfg.TracingExporter,
		OTLP:        otlp,
	})
	if err != nil {
		return err
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}

	sup := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	var sources []string
	if a.Ruler != nil {
		sup.AddDependency(server.NewSourceCheck("ruler", a.Ruler))
		sources = append(sources, "ruler")
	}
	if a.Prometheus != nil {
		sup.AddDependency(server.NewSourceCheck("prometheus", a.Prometheus))
		sources = append(sources, "prometheus")
	}
	srv, err := server.New(a, sources...)
	if err != nil {
		return err
	}
	sup.AddDependency(srv)

	if err := sup.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case serveErr = <-srv.Errors():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := sup.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to stop dependencies")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to flush traces")
	}
	return serveErr
}
