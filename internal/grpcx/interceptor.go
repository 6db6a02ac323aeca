package grpcx

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/guardian/panda-go/internal/panda"
)

// CookieMetadataKey is the metadata key holding the raw Cookie header.
const CookieMetadataKey = "cookie"

const healthServicePrefix = "/grpc.health.v1.Health/"

type ctxKey string

const resultKey ctxKey = "pandaResult"

// UserFromContext returns the user admitted by the cookie interceptor.
func UserFromContext(ctx context.Context) (panda.User, bool) {
	r, ok := ctx.Value(resultKey).(panda.Result)
	if !ok {
		return panda.User{}, false
	}
	return panda.UserOf(r)
}

// cookieHeader joins every cookie metadata value into one header.
func cookieHeader(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	return strings.Join(md.Get(CookieMetadataKey), "; ")
}

// authorize verifies the cookie for method and returns the context to pass
// downstream.
func (s *Server) authorize(ctx context.Context, method string) (context.Context, error) {
	if strings.HasPrefix(method, healthServicePrefix) {
		return ctx, nil
	}

	requestID := uuid.NewString()

	result, err := s.verifier.Verify(ctx, cookieHeader(ctx))
	if err != nil {
		s.logger.Error(ctx, "access denied - public key unavailable",
			"error", err, "method", method, "request_id", requestID)
		return nil, status.Error(codes.Unavailable, "public key unavailable")
	}

	switch v := result.(type) {
	case panda.Authenticated, panda.Stale:
		if stale, ok := v.(panda.Stale); ok {
			md := metadata.Pairs(refreshMetadataKey, formatMillis(stale.MustRefreshByEpochTimeMillis))
			if err := grpc.SetHeader(ctx, md); err != nil {
				s.logger.Debug(ctx, "cannot set refresh header", "error", err, "method", method, "request_id", requestID)
			}
		}
		return context.WithValue(ctx, resultKey, result), nil
	case panda.Unauthorised:
		s.logger.Warn(ctx, "access denied", "outcome", panda.Outcome(v), "method", method, "request_id", requestID)
		return nil, status.Error(codes.PermissionDenied, string(v.Reason()))
	case panda.Unauthenticated:
		s.logger.Warn(ctx, "access denied", "outcome", panda.Outcome(v), "method", method, "request_id", requestID)
		return nil, status.Error(codes.Unauthenticated, string(v.Reason))
	default:
		return nil, status.Error(codes.Unauthenticated, string(panda.ReasonUnknown))
	}
}

func (s *Server) cookieInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	ctx, err := s.authorize(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func (s *Server) cookieStreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := s.authorize(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }
