package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/catalog-service/internal/adapter/rpc"
	"github.com/rl1809/catalog-service/internal/core/domain"
)

const (
	methodCreate  = "/inventory.InventoryService/Create"
	methodFindAll = "/inventory.InventoryService/FindAll"
	methodFindOne = "/inventory.InventoryService/FindOne"
)

// ErrRemote is returned when the inventory service answers with a failure
// envelope instead of data.
var ErrRemote = errors.New("inventory service returned an error")

type findOneRequest struct {
	SKU string `json:"sku"`
}

type findAllRequest struct{}

// Client calls the inventory service over gRPC. It is safe for concurrent
// use; every call is bounded by the caller's context.
type Client struct {
	conn *grpc.ClientConn
}

// Dial prepares a connection to addr. The connection is established lazily.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rpc.Codec{})),
		grpc.WithChainUnaryInterceptor(rpc.UnaryClientTracing()),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial inventory %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) RequestCreate(ctx context.Context, record domain.InventoryRecord) (json.RawMessage, error) {
	return c.invoke(ctx, methodCreate, record)
}

func (c *Client) RequestFindAll(ctx context.Context) (json.RawMessage, error) {
	return c.invoke(ctx, methodFindAll, findAllRequest{})
}

func (c *Client) RequestFindOne(ctx context.Context, sku string) (json.RawMessage, error) {
	return c.invoke(ctx, methodFindOne, findOneRequest{SKU: sku})
}

func (c *Client) invoke(ctx context.Context, method string, req any) (json.RawMessage, error) {
	var reply json.RawMessage
	if err := c.conn.Invoke(ctx, method, req, &reply); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if err := remoteFailure(reply); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return reply, nil
}

// remoteFailure detects the {"success":false,"error":{...}} envelope.
func remoteFailure(reply json.RawMessage) error {
	trimmed := bytes.TrimSpace(reply)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var envelope struct {
		Success *bool `json:"success"`
		Error   *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil
	}
	if envelope.Success == nil || *envelope.Success {
		return nil
	}
	if envelope.Error != nil && envelope.Error.Message != "" {
		return fmt.Errorf("%w: %s: %s", ErrRemote, envelope.Error.Type, envelope.Error.Message)
	}
	return ErrRemote
}
