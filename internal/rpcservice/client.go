package rpcservice

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/nimbusgate/accessgraph/pkg/wire"
)

// Client is a thin wrapper the gateway router uses to reach one tenant
// backend's gRPC endpoint. One Client is kept alive per tenant and
// reused across requests (spec §4.9 forbids dialing per-request).
type Client struct {
	conn *grpc.ClientConn
}

// Dial opens a persistent connection to a backend listening at target
// (host:port), negotiating the raw codec in place of protobuf.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)))
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("rpcservice: dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// ExecuteCommand invokes the backend's ExecuteCommand RPC.
func (c *Client) ExecuteCommand(ctx context.Context, req *wire.CommandRequest) (*wire.CommandResponse, error) {
	resp := new(wire.CommandResponse)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/ExecuteCommand", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// HealthCheck invokes the backend's HealthCheck RPC.
func (c *Client) HealthCheck(ctx context.Context, req *wire.HealthRequest) (*wire.HealthResponse, error) {
	resp := new(wire.HealthResponse)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/HealthCheck", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
