package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/artprovider/internal/filecache"
)

// openResult is the result of open.
type openResult struct {
	Path string `json:"path"`
}

func (r openResult) String() string { return r.Path }

// OpenOptions holds flags for the open command.
type OpenOptions struct {
	*RootOptions
	Mode string
}

// NewOpenCommand creates the open command.
func NewOpenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "open <uri>",
		Short: "Make a row's image available and print its path",
		Long: `Ask the running provider for the image of one row.

The image is downloaded into the cache first if needed. Rows whose image
can no longer be fetched are marked invalid by the provider.

Example:
  artprovider open content://local/3
  artprovider open content://local/3 --mode w`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", string(filecache.ModeRead), "open mode (r|w|wt|wa|rw|rwt)")
	return cmd
}

func runOpen(opts *OpenOptions, uri string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	mode, err := filecache.ParseMode(opts.Mode)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --mode", err)
	}

	path, err := opts.client().Open(commandContext(cmd), uri, mode)
	if err != nil {
		return fail(formatter, "failed to open "+uri, err)
	}
	return formatter.Success(openResult{Path: path})
}
