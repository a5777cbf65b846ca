package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"google.golang.org/grpc"
)

// UserService is the account side of the API.
type UserService interface {
	CreateUser(ctx context.Context, username, password, confirm string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	ValidateSession(ctx context.Context, token string) (*models.Identity, error)
	Logout(ctx context.Context, id *models.Identity) error
	ChangePassword(ctx context.Context, id *models.Identity, current, password, confirm string) error
	ResetPassword(ctx context.Context, username, keyB64, password, confirm string) error
	RecoveryKey(ctx context.Context, id *models.Identity) (string, error)
}

type FileService interface {
	List(ctx context.Context, id *models.Identity) ([]models.FileMeta, error)
	Upload(ctx context.Context, id *models.Identity, filename, contentType string, data []byte) (*models.FileMeta, error)
	Retrieve(ctx context.Context, id *models.Identity, fileID string) (*models.Download, error)
	Delete(ctx context.Context, id *models.Identity, fileID string) error
}

type SharingService interface {
	Share(ctx context.Context, id *models.Identity, fileID, username string) error
	Unshare(ctx context.Context, id *models.Identity, fileID, username string) error
}

type GRPCServer struct {
	address        string
	users          UserService
	files          FileService
	sharing        SharingService
	maxMessageSize int
	logger         logging.Logger
}

// NewGRPCServer wires the services behind the FileVault gRPC service.
// maxMessageSize bounds inbound messages; 0 keeps the grpc default.
func NewGRPCServer(a string, l logging.Logger, us UserService, fs FileService, ss SharingService, maxMessageSize int) *GRPCServer {
	return &GRPCServer{
		address:        a,
		logger:         logging.ForModule(l, "grpc_server"),
		users:          us,
		files:          fs,
		sharing:        ss,
		maxMessageSize: maxMessageSize,
	}
}

// Register builds a grpc.Server with the auth interceptor and the FileVault
// service registered on it.
func (s *GRPCServer) Register(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.authInterceptor))
	if s.maxMessageSize > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(s.maxMessageSize), grpc.MaxSendMsgSize(s.maxMessageSize))
	}
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&serviceDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.Register()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
