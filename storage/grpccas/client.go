package grpccas

import (
	"context"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/agentchain/cidutil"
	"xdao.co/agentchain/storage"
)

var _ storage.CAS = (*Client)(nil)

// Client is a storage.CAS backed by a remote CAS service. Entry bytes coming
// back over the wire are re-hashed before they reach the entry store.
type Client struct {
	cc     *grpc.ClientConn
	client CASClient

	// Timeout bounds each call made through the context-free methods.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout, when set, makes Dial wait for a ready connection.
	Timeout time.Duration

	// MaxMsgBytes caps message size in both directions when set.
	MaxMsgBytes int
}

func (o DialOptions) grpcOptions() []grpc.DialOption {
	out := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if o.MaxMsgBytes > 0 {
		out = append(out, grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(o.MaxMsgBytes),
			grpc.MaxCallSendMsgSize(o.MaxMsgBytes),
		))
	}
	return out
}

// Dial connects to a CAS service at target.
func Dial(target string, opts DialOptions) (*Client, error) {
	cc, err := grpc.NewClient(target, opts.grpcOptions()...)
	if err != nil {
		return nil, fmt.Errorf("grpccas: dial %s: %w", target, err)
	}
	if opts.Timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		defer cancel()
		if err := awaitReady(ctx, cc); err != nil {
			_ = cc.Close()
			return nil, err
		}
	}
	return NewClient(cc), nil
}

func awaitReady(ctx context.Context, cc *grpc.ClientConn) error {
	cc.Connect()
	for {
		state := cc.GetState()
		if state == connectivity.Ready {
			return nil
		}
		if !cc.WaitForStateChange(ctx, state) {
			return fmt.Errorf("grpccas: %s not ready (%s): %w", cc.Target(), state, ctx.Err())
		}
	}
}

// NewClient wraps an established connection.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewCASClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Put(data []byte) (cid.Cid, error) {
	ctx, cancel := c.callContext()
	defer cancel()
	return c.PutContext(ctx, data)
}

func (c *Client) Get(id cid.Cid) ([]byte, error) {
	ctx, cancel := c.callContext()
	defer cancel()
	return c.GetContext(ctx, id)
}

// Has reports false for transport failures too; use HasContext to tell them
// apart from a missing object.
func (c *Client) Has(id cid.Cid) bool {
	ctx, cancel := c.callContext()
	defer cancel()
	ok, err := c.HasContext(ctx, id)
	return err == nil && ok
}

func (c *Client) PutContext(ctx context.Context, data []byte) (cid.Cid, error) {
	want, err := cidutil.CIDv0SHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	reply, err := c.client.Put(ctx, wrapperspb.Bytes(data))
	if err != nil {
		return cid.Undef, mapRPC(err)
	}
	got, err := cidutil.Decode(reply.GetValue())
	if err != nil {
		return cid.Undef, storage.ErrInvalidCID
	}
	if got != want {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return got, nil
}

func (c *Client) GetContext(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	reply, err := c.client.Get(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, mapRPC(err)
	}
	b := reply.GetValue()
	if err := verify(b, id); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Client) HasContext(ctx context.Context, id cid.Cid) (bool, error) {
	if !id.Defined() {
		return false, storage.ErrInvalidCID
	}
	reply, err := c.client.Has(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func verify(b []byte, want cid.Cid) error {
	got, err := cidutil.CIDv0SHA256CID(b)
	if err != nil {
		return err
	}
	if got != want {
		return storage.ErrCIDMismatch
	}
	return nil
}

func (c *Client) callContext() (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(context.Background(), c.Timeout)
	}
	return context.WithCancel(context.Background())
}
