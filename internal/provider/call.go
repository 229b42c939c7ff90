package provider

import (
	"context"
	"fmt"

	"github.com/roach88/artprovider/internal/artwork"
	"github.com/roach88/artprovider/internal/recency"
)

// Control protocol methods.
const (
	MethodGetVersion         = "get_version"
	MethodRequestLoad        = "request_load"
	MethodMarkArtworkInvalid = "mark_artwork_invalid"
	MethodMarkArtworkLoaded  = "mark_artwork_loaded"
	MethodGetLoadInfo        = "get_load_info"
	MethodGetDescription     = "get_description"
	MethodGetCommands        = "get_commands"
	MethodTriggerCommand     = "trigger_command"
	MethodOpenArtworkInfo    = "open_artwork_info" // deprecated, see GetArtworkInfoMinVersion
	MethodGetArtworkInfo     = "get_artwork_info"
)

// Protocol versions.
const (
	// APIVersion is the version this engine reports.
	APIVersion = 340000
	// DefaultVersion is assumed for callers that do not send one.
	DefaultVersion = 310000
	// CommandActionsMinVersion is the first caller version that receives
	// structured commands. Older callers get "id:title" strings.
	CommandActionsMinVersion = 330000
	// GetArtworkInfoMinVersion is the first provider version that answers
	// get_artwork_info. Hosts fall back to open_artwork_info below it.
	GetArtworkInfoMinVersion = 320000
)

// SupportsArtworkInfo reports whether a provider at version answers
// get_artwork_info.
func SupportsArtworkInfo(version int) bool {
	return version >= GetArtworkInfoMinVersion
}

// Extras carries the optional arguments of a call.
type Extras struct {
	// Version is the caller's protocol version. Zero means DefaultVersion.
	Version int `json:"version,omitempty" cbor:"version,omitempty"`
	// Command is the command id for trigger_command.
	Command int `json:"command,omitempty" cbor:"command,omitempty"`
}

func (e *Extras) version() int {
	if e == nil || e.Version == 0 {
		return DefaultVersion
	}
	return e.Version
}

// Reply is the result of a call. Only the fields of the called method are
// set.
type Reply struct {
	Version        int                   `json:"version,omitempty" cbor:"version,omitempty"`
	Description    string                `json:"description,omitempty" cbor:"description,omitempty"`
	Commands       []artwork.UserCommand `json:"commands,omitempty" cbor:"commands,omitempty"`
	LegacyCommands []string              `json:"legacy_commands,omitempty" cbor:"legacy_commands,omitempty"`
	LoadInfo       *recency.LoadInfo     `json:"load_info,omitempty" cbor:"load_info,omitempty"`
	Success        bool                  `json:"success,omitempty" cbor:"success,omitempty"`
	ArtworkInfo    string                `json:"artwork_info,omitempty" cbor:"artwork_info,omitempty"`
}

// Call runs one control protocol method.
//
// arg is a row address for the per-artwork methods. An unknown method, or
// a row address that matches nothing, yields a nil reply and no error.
func (p *Provider) Call(ctx context.Context, method, arg string, extras *Extras) (*Reply, error) {
	p.logger.Debug("received call", "method", method, "arg", arg)

	switch method {
	case MethodGetVersion:
		return &Reply{Version: APIVersion}, nil

	case MethodRequestLoad:
		count, err := p.store.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}
		if err := p.hooks.OnLoadRequested(ctx, p, count == 0); err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}
		return nil, nil

	case MethodMarkArtworkInvalid:
		a, ok, err := p.row(ctx, arg)
		if err != nil || !ok {
			return nil, err
		}
		p.invalidate(ctx, a)
		return nil, nil

	case MethodMarkArtworkLoaded:
		return nil, p.markLoaded(ctx, arg)

	case MethodGetLoadInfo:
		info, err := p.recency.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}
		return &Reply{LoadInfo: &info}, nil

	case MethodGetDescription:
		return &Reply{Description: p.describe(ctx)}, nil

	case MethodGetCommands:
		a, ok, err := p.row(ctx, arg)
		if err != nil || !ok {
			return nil, err
		}
		return p.commands(ctx, a, extras.version()), nil

	case MethodTriggerCommand:
		if extras == nil {
			return nil, nil
		}
		a, ok, err := p.row(ctx, arg)
		if err != nil || !ok {
			return nil, err
		}
		if c, ok := p.hooks.(Commander); ok {
			if err := c.OnCommand(ctx, p, a, extras.Command); err != nil {
				return nil, fmt.Errorf("%s: %w", method, err)
			}
		}
		return nil, nil

	case MethodOpenArtworkInfo:
		a, ok, err := p.row(ctx, arg)
		if err != nil || !ok {
			return nil, err
		}
		return &Reply{Success: p.openArtworkInfo(ctx, a)}, nil

	case MethodGetArtworkInfo:
		a, ok, err := p.row(ctx, arg)
		if err != nil || !ok {
			return nil, err
		}
		info, _ := p.artworkInfo(ctx, a)
		return &Reply{ArtworkInfo: info}, nil

	default:
		p.logger.Debug("unknown method", "method", method)
		return nil, nil
	}
}

// markLoaded records that the row at uri was shown and evicts the files of
// rows pushed out of the recent window.
func (p *Provider) markLoaded(ctx context.Context, uri string) error {
	addr, err := p.resolve(uri)
	if err != nil {
		return fmt.Errorf("%s: %w", MethodMarkArtworkLoaded, err)
	}
	if !addr.IsRow() {
		return fmt.Errorf("%s: %w: %s", MethodMarkArtworkLoaded, artwork.ErrInvalidURI, uri)
	}
	count, err := p.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", MethodMarkArtworkLoaded, err)
	}
	evicted, err := p.recency.MarkLoaded(ctx, addr.ID, count)
	if err != nil {
		return fmt.Errorf("%s: %w", MethodMarkArtworkLoaded, err)
	}

	for _, id := range evicted {
		a, err := p.store.Get(ctx, id)
		if err != nil {
			// Already deleted rows took their files with them.
			p.cache.Forget(id)
			continue
		}
		if _, err := p.cache.Evict(ctx, a); err != nil {
			p.logger.Warn("failed to evict artwork file", "id", id, "error", err)
		}
	}
	return nil
}

func (p *Provider) describe(ctx context.Context) string {
	if d, ok := p.hooks.(Describer); ok {
		return d.Description(ctx)
	}
	return p.description
}

func (p *Provider) commands(ctx context.Context, a artwork.Artwork, version int) *Reply {
	var cmds []artwork.UserCommand
	if c, ok := p.hooks.(Commander); ok {
		cmds = c.Commands(ctx, a)
	}
	if version >= CommandActionsMinVersion {
		return &Reply{Version: APIVersion, Commands: cmds}
	}
	legacy := make([]string, 0, len(cmds))
	for _, c := range cmds {
		legacy = append(legacy, c.Serialize())
	}
	return &Reply{LegacyCommands: legacy}
}

func (p *Provider) artworkInfo(ctx context.Context, a artwork.Artwork) (string, bool) {
	if h, ok := p.hooks.(ArtworkInfoProvider); ok {
		return h.ArtworkInfo(ctx, a)
	}
	return a.WebURI, a.WebURI != ""
}

func (p *Provider) openArtworkInfo(ctx context.Context, a artwork.Artwork) bool {
	if h, ok := p.hooks.(ArtworkInfoOpener); ok {
		return h.OpenArtworkInfo(ctx, a)
	}
	if a.WebURI == "" || p.urlOpener == nil {
		return false
	}
	if err := p.urlOpener(ctx, a.WebURI); err != nil {
		p.logger.Info("failed to open artwork info", "id", a.ID, "uri", a.WebURI, "error", err)
		return false
	}
	return true
}
