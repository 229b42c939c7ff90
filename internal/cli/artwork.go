package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/artprovider/internal/artwork"
	"github.com/roach88/artprovider/internal/protocol"
)

// uriList is the result of add and set.
type uriList struct {
	URIs []string `json:"uris"`
}

func (l uriList) RenderText(w io.Writer) error {
	for _, uri := range l.URIs {
		if _, err := fmt.Fprintln(w, uri); err != nil {
			return err
		}
	}
	return nil
}

// artworkList is the result of list.
type artworkList struct {
	Artwork []artwork.Artwork `json:"artwork"`
}

func (l artworkList) RenderText(w io.Writer) error {
	if len(l.Artwork) == 0 {
		_, err := fmt.Fprintln(w, "no artwork")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOKEN\tTITLE\tBYLINE")
	for _, a := range l.Artwork {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", a.ID, a.Token, a.Title, a.Byline)
	}
	return tw.Flush()
}

// ProducerOptions holds flags shared by add and set.
type ProducerOptions struct {
	*RootOptions
	Clear bool
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProducerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <file>...",
		Short: "Add artwork from YAML or JSON files",
		Long: `Add artwork to the running provider.

Each file holds one artwork or a list of them, in YAML or JSON. Artwork
with a token that already exists updates that row instead. "-" reads
from stdin.

Example:
  artprovider add paintings.yaml
  artprovider add - < daily.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProduce(opts, args, false, cmd)
		},
	}
	return cmd
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProducerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set [file]...",
		Short: "Replace the collection with artwork from files",
		Long: `Replace the whole collection of the running provider.

Rows not named by the files are deleted together with their cached
images. Emptying the collection requires --clear.

Example:
  artprovider set featured.yaml
  artprovider set --clear`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !opts.Clear {
				return NewExitError(ExitCommandError, "set needs at least one file, or --clear")
			}
			return runProduce(opts, args, true, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "allow replacing the collection with nothing")
	return cmd
}

func runProduce(opts *ProducerOptions, files []string, replace bool, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	arts, err := readArtworkFiles(files, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read artwork", err)
	}
	if len(arts) == 0 && !replace {
		return NewExitError(ExitCommandError, "no artwork in the given files")
	}
	formatter.VerboseLog("Sending %d artwork to %s", len(arts), opts.Config.Socket)

	client := opts.client()
	var uris []string
	if replace {
		uris, err = client.SetArtwork(ctx, arts...)
	} else {
		uris, err = client.AddArtwork(ctx, arts...)
	}
	if err != nil {
		return fail(formatter, "failed to store artwork", err)
	}
	return formatter.Success(uriList{URIs: uris})
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Token   string
	OrderBy string
	Desc    bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list [uri]",
		Short: "List artwork rows",
		Long: `List the rows under a collection or row address.

Without an address the whole collection is listed, newest first.

Example:
  artprovider list
  artprovider list --order title
  artprovider list content://local/3 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			uri := ""
			if len(args) == 1 {
				uri = args[0]
			}
			return runList(opts, uri, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Token, "token", "", "only the row with this token")
	cmd.Flags().StringVar(&opts.OrderBy, "order", "", "column to sort by (default newest first)")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "sort descending")
	return cmd
}

func runList(opts *ListOptions, uri string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)
	client := opts.client()

	if uri == "" {
		var err error
		if uri, err = client.ContentURI(ctx); err != nil {
			return fail(formatter, "failed to resolve collection", err)
		}
	}

	var where []protocol.Condition
	if opts.Token != "" {
		where = append(where, protocol.Condition{Column: artwork.ColumnToken, Op: protocol.OpEquals, Value: opts.Token})
	}
	var order []protocol.OrderTerm
	if opts.OrderBy != "" {
		order = append(order, protocol.OrderTerm{Column: opts.OrderBy, Desc: opts.Desc})
	}

	arts, err := client.Query(ctx, uri, where, order...)
	if err != nil {
		return fail(formatter, "failed to list artwork", err)
	}
	return formatter.Success(artworkList{Artwork: arts})
}
