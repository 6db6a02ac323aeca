// Package grpcx guards gRPC services with the pan-domain cookie and serves
// the standard health service.
package grpcx

import (
	"context"
	"errors"
	"net"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/guardian/panda-go/internal/logging"
	"github.com/guardian/panda-go/internal/panda"
)

// refreshMetadataKey is sent as a response header for cookies inside the
// grace period.
const refreshMetadataKey = "x-panda-refresh-by"

// Verifier checks the pan-domain cookie in a raw Cookie header.
type Verifier interface {
	Verify(ctx context.Context, cookieHeader string) (panda.Result, error)
}

type Server struct {
	address  string
	verifier Verifier
	logger   logging.Logger
	health   *health.Server
	register []func(grpc.ServiceRegistrar)
}

func NewServer(a string, v Verifier, l logging.Logger) *Server {
	return &Server{
		address:  a,
		verifier: v,
		logger:   l.With("module", "grpc_server"),
		health:   health.NewServer(),
	}
}

// Register queues a service registration for the next Run. Every method of a
// registered service requires a valid cookie.
func (s *Server) Register(fn func(grpc.ServiceRegistrar)) {
	s.register = append(s.register, fn)
}

func (s *Server) newGRPCServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.cookieInterceptor),
		grpc.ChainStreamInterceptor(s.cookieStreamInterceptor),
	)
	healthpb.RegisterHealthServer(srv, s.health)
	for _, fn := range s.register {
		fn(srv)
	}
	return srv
}

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on l until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := s.newGRPCServer()

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", l.Addr().String())

	if err := srv.Serve(l); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}

func formatMillis(ms int64) string {
	return strconv.FormatInt(ms, 10)
}
