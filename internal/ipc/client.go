package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
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
		return c.client.Close()
	}
	return nil
}

func call[T any](c *Client, method string, req any) (*T, error) {
	var resp T
	if err := c.client.Call(serviceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// AddFile stages a local video and enqueues it.
func (c *Client) AddFile(path string) (*AddFileResponse, error) {
	return call[AddFileResponse](c, "AddFile", AddFileRequest{SourcePath: path})
}

// JobStatus returns the record for a job name.
func (c *Client) JobStatus(name string) (*JobStatusResponse, error) {
	return call[JobStatusResponse](c, "JobStatus", JobStatusRequest{Name: name})
}

// List returns records filtered by status names.
func (c *Client) List(statuses []string) (*ListResponse, error) {
	return call[ListResponse](c, "List", ListRequest{Statuses: statuses})
}

// Retry starts a new attempt for a failed job.
func (c *Client) Retry(name string) (*RetryResponse, error) {
	return call[RetryResponse](c, "Retry", RetryRequest{Name: name})
}

// RequeueOrphans queues pending records left by a previous daemon run.
func (c *Client) RequeueOrphans() (*RequeueOrphansResponse, error) {
	return call[RequeueOrphansResponse](c, "RequeueOrphans", RequeueOrphansRequest{})
}

// Clear removes terminal records, optionally deleting retained sources.
func (c *Client) Clear(statuses []string, purgeSources bool) (*ClearResponse, error) {
	return call[ClearResponse](c, "Clear", ClearRequest{Statuses: statuses, PurgeSources: purgeSources})
}

// Remove deletes one finished record, optionally with its retained source.
func (c *Client) Remove(name string, purgeSource bool) (*RemoveResponse, error) {
	return call[RemoveResponse](c, "Remove", RemoveRequest{Name: name, PurgeSource: purgeSource})
}

// QueueHealth returns aggregate record counts.
func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	return call[QueueHealthResponse](c, "QueueHealth", QueueHealthRequest{})
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	return call[DatabaseHealthResponse](c, "DatabaseHealth", DatabaseHealthRequest{})
}

// TestNotification sends a test notification.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
