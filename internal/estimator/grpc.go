package estimator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/models"
)

const (
	estimatorServiceName = "pitwall.estimator.v1.Estimator"
	estimateMethod       = "/" + estimatorServiceName + "/Estimate"
)

// EstimatorServer is implemented by model servers speaking the Estimate RPC.
// Request and response are google.protobuf.Struct with the same fields as the
// subprocess protocol.
type EstimatorServer interface {
	Estimate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func estimateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EstimatorServer).Estimate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: estimateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EstimatorServer).Estimate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// EstimatorServiceDesc describes the Estimate RPC for manual registration
var EstimatorServiceDesc = grpc.ServiceDesc{
	ServiceName: estimatorServiceName,
	HandlerType: (*EstimatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Estimate", Handler: estimateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pitwall/estimator/v1/estimator.proto",
}

// RegisterEstimatorServer registers a model server implementation
func RegisterEstimatorServer(s grpc.ServiceRegistrar, srv EstimatorServer) {
	s.RegisterService(&EstimatorServiceDesc, srv)
}

// GRPCEstimator calls a remote model over gRPC
type GRPCEstimator struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	logger  *logger.PredictionLogger
}

// NewGRPCEstimator creates a client for the model server at address. The connection is
// established lazily, so an unreachable server only makes individual calls absent.
func NewGRPCEstimator(address string, timeout time.Duration, log *logger.PredictionLogger, opts ...grpc.DialOption) (*GRPCEstimator, error) {
	if address == "" {
		return nil, errors.New("grpc estimator address is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithConnectParams(grpc.ConnectParams{
			Backoff: backoff.Config{
				BaseDelay:  1 * time.Second,
				Multiplier: 1.6,
				Jitter:     0.2,
				MaxDelay:   5 * time.Second,
			},
			MinConnectTimeout: timeout,
		}),
	}
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client: %w", err)
	}
	return &GRPCEstimator{conn: conn, timeout: timeout, logger: log}, nil
}

// Name implements Estimator
func (g *GRPCEstimator) Name() string { return "grpc" }

// Estimate implements Estimator
func (g *GRPCEstimator) Estimate(ctx context.Context, sessionKey int, snap models.Snapshot) (*models.Estimate, bool) {
	start := time.Now()
	est, err := g.call(ctx, sessionKey, snap)
	observe(g.logger, g.Name(), start, err)
	if err != nil {
		return nil, false
	}
	return est, true
}

func (g *GRPCEstimator) call(ctx context.Context, sessionKey int, snap models.Snapshot) (*models.Estimate, error) {
	req, err := toStruct(Request{SessionKey: sessionKey, Snapshot: snap})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp := new(structpb.Struct)
	if err := g.conn.Invoke(ctx, estimateMethod, req, resp); err != nil {
		if status.Code(err) == codes.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("estimate rpc failed: %w", err)
	}

	data, err := json.Marshal(resp.AsMap())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return DecodeResponse(data)
}

// Close releases the connection
func (g *GRPCEstimator) Close() error {
	return g.conn.Close()
}

// toStruct converts a JSON-encodable value into a protobuf Struct
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return structpb.NewStruct(m)
}
