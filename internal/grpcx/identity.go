package grpcx

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/guardian/panda-go/internal/panda"
)

const (
	IdentityServiceName = "panda.v1.Identity"
	WhoAmIMethod        = "/panda.v1.Identity/WhoAmI"
)

// IdentityServer is panda.v1.Identity. WhoAmI returns the user admitted by
// the cookie interceptor.
type IdentityServer interface {
	WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type identityService struct{}

func (identityService) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Internal, "user missing from context")
	}
	return userStruct(user)
}

func userStruct(u panda.User) (*structpb.Struct, error) {
	authedIn := make([]any, len(u.AuthenticatedIn))
	for i, s := range u.AuthenticatedIn {
		authedIn[i] = s
	}

	fields := map[string]any{
		"firstName":   u.FirstName,
		"lastName":    u.LastName,
		"email":       u.Email,
		"system":      u.AuthenticatingSystem,
		"authedIn":    authedIn,
		"expires":     float64(u.Expires),
		"expiresAt":   u.ExpiresAt().UTC().Format(time.RFC3339Nano),
		"multifactor": u.Multifactor,
	}
	if u.AvatarURL != "" {
		fields["avatarUrl"] = u.AvatarURL
	}

	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode user: %v", err)
	}
	return st, nil
}

// RegisterIdentityService registers panda.v1.Identity on r.
func RegisterIdentityService(r grpc.ServiceRegistrar) {
	r.RegisterService(&identityServiceDesc, identityService{})
}

func whoAmIHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServer).WhoAmI(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: WhoAmIMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IdentityServer).WhoAmI(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var identityServiceDesc = grpc.ServiceDesc{
	ServiceName: IdentityServiceName,
	HandlerType: (*IdentityServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "WhoAmI",
			Handler:    whoAmIHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "panda/v1/identity.proto",
}
