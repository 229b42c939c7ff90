package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/artprovider/internal/provider"
	"github.com/roach88/artprovider/internal/recency"
)

// replyView renders a control reply. Only the fields a method sets are
// printed.
type replyView struct {
	*provider.Reply
}

func (v replyView) MarshalJSON() ([]byte, error) {
	if v.Reply == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v.Reply)
}

func (v replyView) RenderText(w io.Writer) error {
	r := v.Reply
	if r == nil {
		_, err := fmt.Fprintln(w, "no reply")
		return err
	}
	var lines []string
	if r.Version != 0 {
		lines = append(lines, fmt.Sprintf("version: %d", r.Version))
	}
	if r.Description != "" {
		lines = append(lines, "description: "+r.Description)
	}
	for _, c := range r.Commands {
		lines = append(lines, fmt.Sprintf("command: %d %s", c.ID, c.Title))
	}
	for _, c := range r.LegacyCommands {
		lines = append(lines, "command: "+c)
	}
	if info := r.LoadInfo; info != nil {
		lines = append(lines,
			fmt.Sprintf("max_loaded_artwork_id: %d", info.MaxLoadedArtworkID),
			"last_loaded_time: "+info.LastLoadedTime.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			"recent_artwork_ids: "+recency.FormatRecentIDs(info.RecentArtworkIDs),
		)
	}
	if r.Success {
		lines = append(lines, "success: true")
	}
	if r.ArtworkInfo != "" {
		lines = append(lines, "artwork_info: "+r.ArtworkInfo)
	}
	if len(lines) == 0 {
		lines = append(lines, "ok")
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	APIVersion int
	Command    int
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <method> [arg]",
		Short: "Invoke a control protocol method",
		Long: `Invoke a control protocol method on the running provider.

Methods: get_version, request_load, mark_artwork_invalid,
mark_artwork_loaded, get_load_info, get_description, get_commands,
trigger_command, open_artwork_info, get_artwork_info. Methods that act on
a row take its address as arg.

Example:
  artprovider call get_load_info
  artprovider call mark_artwork_loaded content://local/3
  artprovider call trigger_command content://local/3 --command 1`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 2 {
				arg = args[1]
			}
			return runCall(opts, args[0], arg, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.APIVersion, "api-version", 0, "caller's protocol version (default: provider's default)")
	cmd.Flags().IntVar(&opts.Command, "command", 0, "command id for trigger_command")
	return cmd
}

func runCall(opts *CallOptions, method, arg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	var extras *provider.Extras
	if cmd.Flags().Changed("api-version") || cmd.Flags().Changed("command") {
		extras = &provider.Extras{Version: opts.APIVersion, Command: opts.Command}
	}

	reply, err := opts.client().Call(ctx, method, arg, extras)
	if err != nil {
		return fail(formatter, "call "+method+" failed", err)
	}
	return formatter.Success(replyView{Reply: reply})
}
