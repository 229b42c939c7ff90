package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/artprovider/internal/codec"
	"github.com/roach88/artprovider/internal/filecache"
	"github.com/roach88/artprovider/internal/provider"
)

// NewServer returns a socket server exposing p at socketPath.
func NewServer(socketPath string, p *provider.Provider, logger *slog.Logger) *SocketServer {
	s := NewSocketServer(socketPath, logger)
	h := &handlers{p: p}

	s.Handle(ActionCall, h.call)
	s.Handle(ActionQuery, h.query)
	s.Handle(ActionInsert, h.insert)
	s.Handle(ActionUpdate, h.update)
	s.Handle(ActionDelete, h.delete)
	s.Handle(ActionAdd, h.add)
	s.Handle(ActionSet, h.set)
	s.Handle(ActionLastAdded, h.lastAdded)
	s.Handle(ActionContentURI, h.contentURI)
	s.Handle(ActionOpen, h.open)
	return s
}

type handlers struct {
	p *provider.Provider
}

func decode[T any](raw []byte) (T, error) {
	var req T
	if err := codec.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}

func (h *handlers) call(ctx context.Context, raw []byte) (any, error) {
	req, err := decode[callRequest](raw)
	if err != nil {
		return nil, err
	}
	if req.Method == "" {
		return nil, errors.New("missing required field: method")
	}
	reply, err := h.p.Call(ctx, req.Method, req.Arg, req.Extras)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, nil
	}
	return reply, nil
}

func (h *handlers) query(ctx context.Context, raw []byte) (any, error) {
	req, err := decode[selectRequest](raw)
	if err != nil {
		return nil, err
	}
	pred, err := Predicate(req.Where)
	if err != nil {
		return nil, err
	}
	rows, err := h.p.Query(ctx, req.URI, pred, Orders(req.Order)...)
	if err != nil {
		return nil, err
	}
	arts, err := rows.Collect()
	if err != nil {
		return nil, err
	}
	return queryResponse{Artwork: arts}, nil
}

func (h *handlers) insert(ctx context.Context, raw []byte) (any, error) {
	req, err := decode[insertRequest](raw)
	if err != nil {
		return nil, err
	}
	res, err := h.p.Insert(ctx, req.Artwork)
	if err != nil {
		return nil, err
	}
	return insertResponse(res), nil
}

func (h *handlers) update(ctx context.Context, raw []byte) (any, error) {
	req, err := decode[updateRequest](raw)
	if err != nil {
		return nil, err
	}
	pred, err := Predicate(req.Where)
	if err != nil {
		return nil, err
	}
	n, err := h.p.Update(ctx, req.URI, pred, req.Values)
	if err != nil {
		return nil, err
	}
	return countResponse{Count: n}, nil
}

func (h *handlers) delete(ctx context.Context, raw []byte) (any, error) {
	req, err := decode[selectRequest](raw)
	if err != nil {
		return nil, err
	}
	pred, err := Predicate(req.Where)
	if err != nil {
		return nil, err
	}
	n, err := h.p.Delete(ctx, req.URI, pred)
	if err != nil {
		return nil, err
	}
	return countResponse{Count: n}, nil
}

func (h *handlers) add(ctx context.Context, raw []byte) (any, error) {
	req, err := decode[artworkListRequest](raw)
	if err != nil {
		return nil, err
	}
	uris, err := h.p.AddArtwork(ctx, req.Artwork...)
	if err != nil {
		return nil, err
	}
	return urisResponse{URIs: uris}, nil
}

func (h *handlers) set(ctx context.Context, raw []byte) (any, error) {
	req, err := decode[artworkListRequest](raw)
	if err != nil {
		return nil, err
	}
	uris, err := h.p.SetArtwork(ctx, req.Artwork...)
	if err != nil {
		return nil, err
	}
	return urisResponse{URIs: uris}, nil
}

func (h *handlers) lastAdded(ctx context.Context, _ []byte) (any, error) {
	a, err := h.p.LastAddedArtwork(ctx)
	if err != nil {
		return nil, err
	}
	return lastAddedResponse{Artwork: a}, nil
}

func (h *handlers) contentURI(ctx context.Context, _ []byte) (any, error) {
	uri, err := h.p.ContentURI(ctx)
	if err != nil {
		return nil, err
	}
	return uriResponse{URI: uri}, nil
}

func (h *handlers) open(ctx context.Context, raw []byte) (any, error) {
	req, err := decode[openRequest](raw)
	if err != nil {
		return nil, err
	}
	mode := filecache.ModeRead
	if req.Mode != "" {
		if mode, err = filecache.ParseMode(req.Mode); err != nil {
			return nil, err
		}
	}
	f, err := h.p.OpenFile(ctx, req.URI, mode)
	if err != nil {
		return nil, err
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", path, err)
	}
	return openResponse{Path: path}, nil
}
