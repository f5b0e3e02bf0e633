package ipc

import (
	"context"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to a running host.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	call := c.client.Go(ServiceName+"."+method, req, resp, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
		return call.Error
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartPython asks the host to start the worker for vaultPath.
func (c *Client) StartPython(ctx context.Context, vaultPath string) (*StartPythonResponse, error) {
	var resp StartPythonResponse
	if err := c.call(ctx, "StartPython", StartPythonRequest{VaultPath: vaultPath}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopPython asks the host to stop the worker.
func (c *Client) StopPython(ctx context.Context) (*StopPythonResponse, error) {
	var resp StopPythonResponse
	if err := c.call(ctx, "StopPython", StopPythonRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves host and worker status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(ctx, "Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CloseHost asks the host to stop the worker and exit.
func (c *Client) CloseHost(ctx context.Context) (*CloseResponse, error) {
	var resp CloseResponse
	if err := c.call(ctx, "Close", CloseRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
