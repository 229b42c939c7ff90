package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/artprovider/internal/provider"
)

// infoResult is the result of info.
type infoResult struct {
	URI         string `json:"uri"`
	Version     int    `json:"version"`
	ArtworkInfo string `json:"artwork_info,omitempty"`
	Opened      bool   `json:"opened,omitempty"`
}

func (r infoResult) String() string {
	switch {
	case r.ArtworkInfo != "":
		return r.ArtworkInfo
	case r.Opened:
		return "opened"
	default:
		return "no artwork info"
	}
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <uri>",
		Short: "Show where more about an artwork can be found",
		Long: `Resolve the artwork info of one row.

Providers new enough to answer get_artwork_info return an address for
the caller to open. Older ones are asked to open it themselves.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInfo(opts *RootOptions, uri string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)
	client := opts.client()

	reply, err := client.Call(ctx, provider.MethodGetVersion, "", nil)
	if err != nil {
		return fail(formatter, "failed to read provider version", err)
	}
	result := infoResult{URI: uri, Version: provider.DefaultVersion}
	if reply != nil && reply.Version != 0 {
		result.Version = reply.Version
	}

	method := provider.MethodOpenArtworkInfo
	if provider.SupportsArtworkInfo(result.Version) {
		method = provider.MethodGetArtworkInfo
	}
	formatter.VerboseLog("Provider version %d, using %s", result.Version, method)

	reply, err = client.Call(ctx, method, uri, nil)
	if err != nil {
		return fail(formatter, "failed to resolve artwork info", err)
	}
	if reply != nil {
		result.ArtworkInfo = reply.ArtworkInfo
		result.Opened = reply.Success
	}
	return formatter.Success(result)
}
