package protocol

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/roach88/artprovider/internal/artwork"
	"github.com/roach88/artprovider/internal/codec"
	"github.com/roach88/artprovider/internal/filecache"
	"github.com/roach88/artprovider/internal/provider"
)

// dialTimeout bounds the connect phase only.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for a response after
// writing the request. Covers the server's read and write timeouts plus
// handler time, which includes any fetch done by open.
const responseReadTimeout = 90 * time.Second

// maxResponseSize bounds a single CBOR response.
const maxResponseSize = 64 * 1024 * 1024

// ServiceError is returned when the server responds with ok=false.
type ServiceError struct {
	Action    string
	Message   string
	RequestID string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error on %q: %s", e.Action, e.Message)
}

// Client talks to a provider served by SocketServer. Each request opens a
// new connection.
type Client struct {
	socketPath string
}

var _ provider.Client = (*Client)(nil)

// NewClient creates a client for the socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Request sends action with the given fields and decodes the response
// data into result.
//
// The caller must not include an "action" key in fields. On ok=false the
// error is a *ServiceError; transport and encoding errors are returned as
// plain errors.
func (c *Client) Request(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action

	response, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}

	if !response.OK {
		return &ServiceError{
			Action:    action,
			Message:   response.Error,
			RequestID: response.RequestID,
		}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

// send connects, writes the request and reads the response.
func (c *Client) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Lets the server's read side see EOF cleanly.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}

// Call runs a control protocol method. A nil reply means the method is
// unknown or its row does not exist.
func (c *Client) Call(ctx context.Context, method, arg string, extras *provider.Extras) (*provider.Reply, error) {
	fields := map[string]any{"method": method}
	if arg != "" {
		fields["arg"] = arg
	}
	if extras != nil {
		fields["extras"] = extras
	}
	var reply *provider.Reply
	if err := c.Request(ctx, ActionCall, fields, &reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Query returns the rows under uri matching every condition.
func (c *Client) Query(ctx context.Context, uri string, where []Condition, order ...OrderTerm) ([]artwork.Artwork, error) {
	var resp queryResponse
	err := c.Request(ctx, ActionQuery, map[string]any{
		"uri":   uri,
		"where": where,
		"order": order,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Artwork == nil {
		resp.Artwork = []artwork.Artwork{}
	}
	return resp.Artwork, nil
}

// Insert adds one artwork.
func (c *Client) Insert(ctx context.Context, a artwork.Artwork) (InsertResponse, error) {
	var resp InsertResponse
	err := c.Request(ctx, ActionInsert, map[string]any{"artwork": a}, &resp)
	return resp, err
}

// Update applies v to the rows under uri matching every condition.
func (c *Client) Update(ctx context.Context, uri string, where []Condition, v artwork.Values) (int64, error) {
	var resp countResponse
	err := c.Request(ctx, ActionUpdate, map[string]any{
		"uri":    uri,
		"where":  where,
		"values": v,
	}, &resp)
	return resp.Count, err
}

// Delete removes the rows under uri matching every condition.
func (c *Client) Delete(ctx context.Context, uri string, where []Condition) (int64, error) {
	var resp countResponse
	err := c.Request(ctx, ActionDelete, map[string]any{
		"uri":   uri,
		"where": where,
	}, &resp)
	return resp.Count, err
}

// AddArtwork implements provider.Client.
func (c *Client) AddArtwork(ctx context.Context, arts ...artwork.Artwork) ([]string, error) {
	var resp urisResponse
	if err := c.Request(ctx, ActionAdd, map[string]any{"artwork": arts}, &resp); err != nil {
		return nil, err
	}
	return resp.URIs, nil
}

// SetArtwork implements provider.Client.
func (c *Client) SetArtwork(ctx context.Context, arts ...artwork.Artwork) ([]string, error) {
	var resp urisResponse
	if err := c.Request(ctx, ActionSet, map[string]any{"artwork": arts}, &resp); err != nil {
		return nil, err
	}
	return resp.URIs, nil
}

// LastAddedArtwork implements provider.Client.
func (c *Client) LastAddedArtwork(ctx context.Context) (*artwork.Artwork, error) {
	var resp lastAddedResponse
	if err := c.Request(ctx, ActionLastAdded, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Artwork, nil
}

// ContentURI implements provider.Client.
func (c *Client) ContentURI(ctx context.Context) (string, error) {
	var resp uriResponse
	if err := c.Request(ctx, ActionContentURI, nil, &resp); err != nil {
		return "", err
	}
	return resp.URI, nil
}

// Open asks the server to make the image of the row at uri available and
// returns its local path.
func (c *Client) Open(ctx context.Context, uri string, mode filecache.Mode) (string, error) {
	var resp openResponse
	err := c.Request(ctx, ActionOpen, map[string]any{"uri": uri, "mode": string(mode)}, &resp)
	return resp.Path, err
}
