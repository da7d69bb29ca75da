// Package client is the matrixd client: single exchanges, the benchmark
// harness and admin endpoint queries.
package client

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/dreamware/matrixd/internal/partition"
	"github.com/dreamware/matrixd/internal/protocol"
)

// DefaultTimeout bounds one full exchange: dial, request, response.
const DefaultTimeout = 2 * time.Minute

// Client talks to one matrixd server. The zero Timeout means no limit
// beyond the context's own deadline. A Client is safe for concurrent use;
// every call opens its own connection.
type Client struct {
	Addr    string
	Timeout time.Duration
}

// New returns a Client for addr with DefaultTimeout.
func New(addr string) *Client {
	return &Client{Addr: addr, Timeout: DefaultTimeout}
}

// Calculate asks the server for the product of two fresh size×size
// matrices split with strategy. There is no retry.
//
// Parameters:
//   - ctx: Bounds the exchange together with c.Timeout
//   - strategy: Partitioning strategy the server uses for this request
//   - size: Matrix size N
//   - wantMatrix: Whether the product travels back
//
// Returns:
//   - The server's response. Any local failure (connect, send, receive)
//     is protocol.CodeTransport with no matrix; server failures come back
//     as their own negative codes.
//
// Example:
//
//	resp := client.New("localhost:8080").Calculate(ctx, partition.CyclicRow, 3, true)
//	if resp.Code.OK() {
//		fmt.Println(resp.Matrix)
//	}
func (c *Client) Calculate(ctx context.Context, strategy partition.Strategy, size int, wantMatrix bool) protocol.Response {
	resp, err := c.Do(ctx, protocol.Request{Size: size, Strategy: strategy, WantMatrix: wantMatrix})
	if err != nil {
		log.Printf("client[%s] calculate %s size=%d: %v", c.Addr, strategy, size, err)
		return protocol.Response{Code: protocol.CodeTransport}
	}
	return resp
}

// Do performs one exchange and reports local failures as errors wrapping
// protocol.ErrTransport (or protocol.ErrProtocol for a request that cannot
// be encoded).
func (c *Client) Do(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("dial %s: %v: %w", c.Addr, err, protocol.ErrTransport)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return protocol.Response{}, fmt.Errorf("set deadline: %v: %w", err, protocol.ErrTransport)
		}
	}
	stop := context.AfterFunc(ctx, func() {
		// unblock any pending read or write
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := protocol.WriteRequest(conn, req); err != nil {
		return protocol.Response{}, err
	}
	resp, err := protocol.ReadResponse(bufio.NewReaderSize(conn, 64<<10), req)
	if err != nil {
		return protocol.Response{}, err
	}
	return resp, nil
}
