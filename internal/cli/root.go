package cli

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/artprovider/internal/config"
	"github.com/roach88/artprovider/internal/protocol"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	BaseDir    string
	Database   string
	Socket     string

	// Config is resolved from the file and flags before any subcommand runs.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the artprovider CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "artprovider",
		Short: "Artwork provider daemon and client",
		Long: `Runs an artwork provider and talks to it.

The provider keeps a collection of artwork rows, caches their images on
disk and answers a small control protocol on a unix socket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.resolveConfig()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default <dir>/config.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.BaseDir, "dir", "", "base directory for derived paths")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Socket, "socket", "", "path to the provider socket")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewCallCommand(opts))
	cmd.AddCommand(NewOpenCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

func (o *RootOptions) resolveConfig() error {
	base := o.BaseDir
	if base == "" {
		base = config.DefaultBaseDir()
	}

	path, optional := o.ConfigPath, false
	if path == "" {
		path, optional = filepath.Join(base, "config.yaml"), true
	}
	c, err := config.Load(path, base, optional)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	if o.Database != "" {
		c.Database = o.Database
	}
	if o.Socket != "" {
		c.Socket = o.Socket
	}
	if o.Verbose {
		c.Log.Level = "debug"
	}
	o.Config = c
	return nil
}

// formatter returns an output formatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// client returns a protocol client for the configured socket.
func (o *RootOptions) client() *protocol.Client {
	return protocol.NewClient(o.Config.Socket)
}
