package grpccas

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/storage"
	"xdao.co/agentchain/storage/casregistry"
	"xdao.co/agentchain/storage/memory"
	"xdao.co/agentchain/storage/testkit"
)

func serve(t *testing.T, backend storage.CAS) *Client {
	t.Helper()
	return serveWith(t, &Server{CAS: backend})
}

func serveWith(t *testing.T, impl CASServer) *Client {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterCASServer(srv, impl)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	client := NewClient(cc)
	client.Timeout = 2 * time.Second
	return client
}

func TestGRPCCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return serve(t, memory.New())
	})
}

func TestGRPCCAS_EntryStoreOverWire(t *testing.T) {
	backend := memory.New()
	store := storage.NewEntryStore(serve(t, backend))

	e := entry.New("testEntryType", `{"stuff":"non fail"}`)
	addr, err := store.Put(e)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if addr != "QmSxw5mUkFfc2W95GK2xaNYRp4a8ZXxY8o7mPMDJv9pvJg" {
		t.Fatalf("unexpected address %s", addr)
	}
	if backend.Len() != 1 {
		t.Fatalf("expected the server-side store to hold 1 object, got %d", backend.Len())
	}

	got, ok, err := store.Get(addr)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got != e {
		t.Fatalf("payload mismatch: %+v", got)
	}

	_, ok, err = store.Get("QmbC71ggSaEa1oVPTeNN7ZoB93DYhxowhKSF6Yia2Vjxxx")
	if err != nil || ok {
		t.Fatalf("missing entry over the wire: ok=%v err=%v", ok, err)
	}
}

func TestGRPCCAS_OpenWithConfigValidates(t *testing.T) {
	cases := []map[string]string{
		{},
		{ConfigTarget: "localhost:1", ConfigDialTimeout: "soon"},
		{ConfigTarget: "localhost:1", ConfigTimeout: "-"},
		{ConfigTarget: "localhost:1", ConfigMaxMsgBytes: "lots"},
	}
	for _, cfg := range cases {
		if _, _, err := casregistry.OpenWithConfig("grpc", casregistry.UsageCLI, cfg); err == nil {
			t.Fatalf("expected error for %v", cfg)
		}
	}
}

// forgingServer answers every call with content that does not match the
// requested address.
type forgingServer struct {
	UnimplementedCASServer
}

func (forgingServer) Put(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("QmbC71ggSaEa1oVPTeNN7ZoB93DYhxowhKSF6Yia2Vjxxx"), nil
}

func (forgingServer) Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return wrapperspb.Bytes([]byte(`{"value":"alex","entry_type":"%agent_id"}`)), nil
}

func (forgingServer) Has(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(true), nil
}

func TestGRPCCAS_ClientRehashesReplies(t *testing.T) {
	client := serveWith(t, forgingServer{})

	if _, err := client.Put([]byte("payload")); !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("Put: got %v want ErrCIDMismatch", err)
	}

	store := storage.NewEntryStore(client)
	if _, _, err := store.Get("QmSxw5mUkFfc2W95GK2xaNYRp4a8ZXxY8o7mPMDJv9pvJg"); !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("entry Get: got %v want ErrCIDMismatch", err)
	}
}

func TestGRPCCAS_HasContext(t *testing.T) {
	backend := memory.New()
	client := serve(t, backend)
	id, err := backend.Put([]byte("held"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err := client.HasContext(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("HasContext: ok=%v err=%v", ok, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.HasContext(ctx, id); err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
	if client.Has(cid.Undef) {
		t.Fatal("undefined cid reported present")
	}
}

func TestDial_WaitsForReadyWithinTimeout(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := lis.Addr().String()
	_ = lis.Close()

	start := time.Now()
	if _, err := Dial("passthrough:///"+addr, DialOptions{Timeout: 200 * time.Millisecond}); err == nil {
		t.Fatal("expected dial to a closed port to fail")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("dial ignored its timeout: %v", elapsed)
	}
}
