package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/artprovider/internal/protocol"
	"github.com/roach88/artprovider/internal/provider"
	"github.com/roach88/artprovider/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions

	// IDGenerator allows overriding the request id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator protocol.IDGenerator

	// ready, when set, receives the server once it accepts connections.
	ready chan<- *protocol.SocketServer
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the provider on its unix socket",
		Long: `Start the artwork provider.

The provider opens its SQLite database (creating it if it doesn't exist),
prepares its cache directories and answers requests on the configured
unix socket until interrupted.

Example:
  artprovider serve --dir /var/lib/artprovider
  artprovider serve --config ./art.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}
	return cmd
}

// loadLogger is the daemon's load hook. With no producer in-process it
// only records that the host asked for more artwork.
type loadLogger struct {
	logger *slog.Logger
}

func (l loadLogger) OnLoadRequested(ctx context.Context, p *provider.Provider, initial bool) error {
	l.logger.Info("load requested", "initial", initial)
	return nil
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg := opts.Config
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log)

	pcfg := cfg.Provider()
	pcfg.Logger = logger
	logger.Info("opening provider", "authority", cfg.Authority, "db", cfg.Database)
	p, err := provider.New(pcfg, loadLogger{logger: logger})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open provider", err)
	}
	defer func() {
		if closeErr := p.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(cfg.Socket), 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create socket directory", err)
	}
	srv := protocol.NewServer(cfg.Socket, p, logger)
	if opts.IDGenerator != nil {
		srv.SetIDGenerator(opts.IDGenerator)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	changes := make(chan store.Change, 16)
	if err := p.Store().Register(changes); err != nil {
		return WrapExitError(ExitFailure, "failed to watch collection", err)
	}
	defer p.Store().Unregister(changes)
	go logChanges(ctx, logger, changes)

	go func() {
		select {
		case <-srv.Ready():
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s\n", cfg.Authority, cfg.Socket)
			if opts.ready != nil {
				opts.ready <- srv
			}
		case <-ctx.Done():
		}
	}()

	if err := srv.Serve(ctx); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	logger.Info("provider stopped gracefully")
	return nil
}

func logChanges(ctx context.Context, logger *slog.Logger, changes <-chan store.Change) {
	for {
		select {
		case c := <-changes:
			logger.Debug("collection changed", "uri", c.URI)
		case <-ctx.Done():
			return
		}
	}
}
