package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const identityKey ctxKey = "identity"

// publicMethods are reachable without a session token.
var publicMethods = map[string]bool{
	api.FullMethod(api.MethodLogin):         true,
	api.FullMethod(api.MethodCreateUser):    true,
	api.FullMethod(api.MethodResetPassword): true,
}

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AuthorizationHeaderName)
	if len(values) == 0 {
		return ""
	}
	token, found := strings.CutPrefix(values[0], common.BearerPrefix)
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

// authInterceptor turns the bearer token into a models.Identity for every
// non-public method. The identity's private key is wiped once the handler
// returns.
func (s *GRPCServer) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	token := bearerToken(ctx)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	id, err := s.users.ValidateSession(ctx, token)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	defer id.Wipe()

	return handler(context.WithValue(ctx, identityKey, id), req)
}

func identityFrom(ctx context.Context) (*models.Identity, error) {
	id, ok := ctx.Value(identityKey).(*models.Identity)
	if !ok || id == nil {
		return nil, status.Error(codes.Unauthenticated, "missing identity")
	}
	return id, nil
}
