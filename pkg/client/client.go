// Package client implements store.Store against a remote table store server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding/gzip"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/jugaji/presto-dynamodb/pkg/attribute"
	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/grpc/service"
	"github.com/jugaji/presto-dynamodb/pkg/grpc/transport"
	"github.com/jugaji/presto-dynamodb/pkg/store"
)

// Compression options
const (
	CompressionNone = ""
	CompressionGzip = gzip.Name
)

// ClientOptions configures a table store client
type ClientOptions struct {
	// Connection options
	Endpoint       string        // Server address
	ConnectTimeout time.Duration // Timeout for connection attempts
	RequestTimeout time.Duration // Default timeout for unary requests

	// Security options
	TLSEnabled bool   // Enable TLS
	CertFile   string // Client certificate file
	KeyFile    string // Client key file
	CAFile     string // CA certificate file
	SkipVerify bool   // Skip server certificate verification

	// Retry options
	Retry RetryPolicy

	// Performance options
	Compression    string // Compressor name, empty for none
	MaxMessageSize int    // Maximum message size

	// Dialer overrides how connections are established
	Dialer func(ctx context.Context, addr string) (net.Conn, error)

	Logger log.Logger
}

// DefaultClientOptions returns sensible default client options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Endpoint:       "localhost:50051",
		ConnectTimeout: time.Second * 5,
		RequestTimeout: time.Second * 10,
		Retry: RetryPolicy{
			MaxRetries:     3,
			InitialBackoff: time.Millisecond * 100,
			MaxBackoff:     time.Second * 2,
			BackoffFactor:  1.5,
			Jitter:         0.2,
		},
		Compression:    CompressionNone,
		MaxMessageSize: 16 * 1024 * 1024, // 16MB
	}
}

// Client is a connection to a table store server
type Client struct {
	options ClientOptions
	logger  log.Logger

	mu   sync.RWMutex
	conn *grpc.ClientConn
}

var _ store.Store = (*Client)(nil)

// NewClient creates a new client with the given options
func NewClient(options ClientOptions) (*Client, error) {
	if options.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrInvalidOptions)
	}
	if options.Compression != CompressionNone && options.Compression != CompressionGzip {
		return nil, fmt.Errorf("%w: unsupported compression %q", ErrInvalidOptions, options.Compression)
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Client{
		options: options,
		logger:  logger.WithField("component", "client"),
	}, nil
}

// Connect establishes a connection to the server
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	dialOptions := []grpc.DialOption{
		grpc.WithKeepaliveParams(transport.ClientKeepalive()),
	}

	if c.options.TLSEnabled {
		tlsConfig, err := transport.LoadClientTLSConfig(transport.TLSConfig{
			CertFile:   c.options.CertFile,
			KeyFile:    c.options.KeyFile,
			CAFile:     c.options.CAFile,
			SkipVerify: c.options.SkipVerify,
		})
		if err != nil {
			return fmt.Errorf("failed to load client TLS config: %w", err)
		}
		dialOptions = append(dialOptions, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		dialOptions = append(dialOptions, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	var callOptions []grpc.CallOption
	if c.options.MaxMessageSize > 0 {
		callOptions = append(callOptions,
			grpc.MaxCallRecvMsgSize(c.options.MaxMessageSize),
			grpc.MaxCallSendMsgSize(c.options.MaxMessageSize),
		)
	}
	if c.options.Compression != CompressionNone {
		callOptions = append(callOptions, grpc.UseCompressor(c.options.Compression))
	}
	if len(callOptions) > 0 {
		dialOptions = append(dialOptions, grpc.WithDefaultCallOptions(callOptions...))
	}

	if c.options.Dialer != nil {
		dialOptions = append(dialOptions, grpc.WithContextDialer(c.options.Dialer))
	}

	conn, err := grpc.NewClient(c.options.Endpoint, dialOptions...)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.options.Endpoint, err)
	}
	conn.Connect()

	c.conn = conn
	c.logger.Debug("Connected to %s", c.options.Endpoint)
	return nil
}

// Close closes the connection to the server
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// IsConnected returns whether the client holds a connection
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

func (c *Client) connection() (*grpc.ClientConn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// invoke performs a unary call with the request timeout and retry policy
func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}

	err = RetryWithBackoff(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.options.RequestTimeout)
		defer cancel()
		return conn.Invoke(callCtx, method, req, resp)
	}, c.options.Retry)
	if err != nil {
		return fmt.Errorf("%s: %w", method, service.FromStatus(err))
	}
	return nil
}

// CreateTable registers a new table on the server
func (c *Client) CreateTable(ctx context.Context, desc store.TableDescriptor) error {
	data, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("failed to marshal table descriptor: %w", err)
	}
	return c.invoke(ctx, service.CreateTableMethod, wrapperspb.Bytes(data), new(emptypb.Empty))
}

// DescribeTable returns the descriptor of a table
func (c *Client) DescribeTable(ctx context.Context, name string) (store.TableDescriptor, error) {
	resp := new(wrapperspb.BytesValue)
	if err := c.invoke(ctx, service.DescribeTableMethod, service.TableRequest(name), resp); err != nil {
		return store.TableDescriptor{}, err
	}

	var desc store.TableDescriptor
	if err := json.Unmarshal(resp.GetValue(), &desc); err != nil {
		return store.TableDescriptor{}, fmt.Errorf("failed to unmarshal table descriptor: %w", err)
	}
	return desc, nil
}

// ListTables returns the table names in sorted order
func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	resp := new(structpb.Struct)
	if err := c.invoke(ctx, service.ListTablesMethod, new(emptypb.Empty), resp); err != nil {
		return nil, err
	}

	values := resp.GetFields()[service.FieldTables].GetListValue().GetValues()
	names := make([]string, 0, len(values))
	for _, v := range values {
		names = append(names, v.GetStringValue())
	}
	return names, nil
}

// PutItem inserts or replaces an item
func (c *Client) PutItem(ctx context.Context, table string, item attribute.Item) error {
	req, err := service.EncodePutItemRequest(table, item)
	if err != nil {
		return fmt.Errorf("failed to encode item: %w", err)
	}
	return c.invoke(ctx, service.PutItemMethod, req, new(emptypb.Empty))
}

// Scan streams the items of a table or of one of its segments
func (c *Client) Scan(ctx context.Context, table string, opts store.ScanOptions) (store.Scanner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	conn, err := c.connection()
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := conn.NewStream(streamCtx, &service.ScanStreamDesc, service.ScanMethod)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stream: %w", service.FromStatus(err))
	}

	if err := stream.SendMsg(service.EncodeScanRequest(table, opts)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to send scan request: %w", service.FromStatus(err))
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to close send side: %w", err)
	}

	scanner := &streamScanner{
		stream: stream,
		cancel: cancel,
	}

	// The server sends a header once the scan is open. Without it the
	// stream ended early and the first message carries the status.
	md, err := stream.Header()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to read scan header: %w", service.FromStatus(err))
	}
	if len(md.Get(service.ScanReadyHeader)) == 0 {
		if !scanner.Next() && scanner.Error() != nil {
			cancel()
			return nil, scanner.Error()
		}
		scanner.pending = !scanner.done
	}

	return scanner, nil
}
