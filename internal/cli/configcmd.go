package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/artprovider/internal/config"
)

// configView prints the resolved config as YAML in text mode.
type configView struct {
	config.Config
}

func (v configView) RenderText(w io.Writer) error {
	out, err := v.Config.Marshal()
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "config",
		Short:         "Print the resolved configuration",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.formatter(cmd).Success(configView{Config: rootOpts.Config})
		},
	}
}
