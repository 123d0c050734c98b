package server

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a remote machine service over Connect.
type Client struct {
	run         *connect.Client[RunRequest, RunResponse]
	disassemble *connect.Client[DisassembleRequest, DisassembleResponse]
	start       *connect.Client[StartRequest, SessionResponse]
	feed        *connect.Client[FeedRequest, SessionResponse]
	close       *connect.Client[CloseRequest, CloseResponse]
}

// NewClient creates a Client for the server at baseURL
// (e.g. "http://localhost:4568").
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(cborCodec{})}, opts...)
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		run:         connect.NewClient[RunRequest, RunResponse](httpClient, baseURL+RunProcedure, opts...),
		disassemble: connect.NewClient[DisassembleRequest, DisassembleResponse](httpClient, baseURL+DisassembleProcedure, opts...),
		start:       connect.NewClient[StartRequest, SessionResponse](httpClient, baseURL+StartProcedure, opts...),
		feed:        connect.NewClient[FeedRequest, SessionResponse](httpClient, baseURL+FeedProcedure, opts...),
		close:       connect.NewClient[CloseRequest, CloseResponse](httpClient, baseURL+CloseProcedure, opts...),
	}
}

// Run runs a program remotely.
func (c *Client) Run(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	resp, err := c.run.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Disassemble lists a program remotely.
func (c *Client) Disassemble(ctx context.Context, req *DisassembleRequest) (*DisassembleResponse, error) {
	resp, err := c.disassemble.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Start starts a remote session.
func (c *Client) Start(ctx context.Context, req *StartRequest) (*SessionResponse, error) {
	resp, err := c.start.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Feed supplies inputs to a remote session.
func (c *Client) Feed(ctx context.Context, req *FeedRequest) (*SessionResponse, error) {
	resp, err := c.feed.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Close ends a remote session.
func (c *Client) Close(ctx context.Context, req *CloseRequest) error {
	_, err := c.close.CallUnary(ctx, connect.NewRequest(req))
	return err
}
