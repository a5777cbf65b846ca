// Package client is a Go client for the filevault gRPC service. It keeps
// the session token returned by Login or CreateUser and attaches it to
// every later call.
package client

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

type FileVaultClient struct {
	endpointURL string
	conn        *grpc.ClientConn

	mu    sync.RWMutex
	token string
}

func NewFileVaultClient(endpointURL string) *FileVaultClient {
	return &FileVaultClient{endpointURL: endpointURL}
}

func (c *FileVaultClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if token := c.Token(); token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// Connect opens the connection. Extra dial options are appended to the
// defaults (plaintext transport, JSON codec, token interceptor).
func (c *FileVaultClient) Connect(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(c.endpointURL, opts...)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *FileVaultClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *FileVaultClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the session token, e.g. one restored from disk.
func (c *FileVaultClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *FileVaultClient) invoke(ctx context.Context, method string, req, resp any) error {
	return c.conn.Invoke(ctx, api.FullMethod(method), req, resp)
}

func (c *FileVaultClient) Login(ctx context.Context, username, password string) error {
	var resp api.TokenResponse
	if err := c.invoke(ctx, api.MethodLogin, &api.LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return err
	}
	c.SetToken(resp.Token)
	return nil
}

// CreateUser registers a new account and logs into it.
func (c *FileVaultClient) CreateUser(ctx context.Context, username, password, confirm string) error {
	req := &api.CreateUserRequest{Username: username, Password: password, ConfirmPassword: confirm}
	var resp api.TokenResponse
	if err := c.invoke(ctx, api.MethodCreateUser, req, &resp); err != nil {
		return err
	}
	c.SetToken(resp.Token)
	return nil
}

func (c *FileVaultClient) ResetPassword(ctx context.Context, username, privateKey, password, confirm string) error {
	req := &api.ResetPasswordRequest{Username: username, PrivateKey: privateKey, Password: password, ConfirmPassword: confirm}
	return c.invoke(ctx, api.MethodResetPassword, req, &api.Empty{})
}

func (c *FileVaultClient) ChangePassword(ctx context.Context, current, password, confirm string) error {
	req := &api.ChangePasswordRequest{CurrentPassword: current, Password: password, ConfirmPassword: confirm}
	return c.invoke(ctx, api.MethodChangePassword, req, &api.Empty{})
}

func (c *FileVaultClient) RecoveryKey(ctx context.Context) (string, error) {
	var resp api.RecoveryKeyResponse
	if err := c.invoke(ctx, api.MethodRecoveryKey, &api.Empty{}, &resp); err != nil {
		return "", err
	}
	return resp.PrivateKey, nil
}

// Logout ends the session on the server and forgets the token.
func (c *FileVaultClient) Logout(ctx context.Context) error {
	if err := c.invoke(ctx, api.MethodLogout, &api.Empty{}, &api.Empty{}); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *FileVaultClient) ListFiles(ctx context.Context) ([]api.File, error) {
	var resp api.ListFilesResponse
	if err := c.invoke(ctx, api.MethodListFiles, &api.Empty{}, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

func (c *FileVaultClient) UploadFile(ctx context.Context, filename, contentType string, data []byte) (*api.File, error) {
	req := &api.UploadFileRequest{Filename: filename, ContentType: contentType, Data: data}
	var resp api.UploadFileResponse
	if err := c.invoke(ctx, api.MethodUploadFile, req, &resp); err != nil {
		return nil, err
	}
	return &resp.File, nil
}

func (c *FileVaultClient) RetrieveFile(ctx context.Context, fileID string) (*api.RetrieveFileResponse, error) {
	var resp api.RetrieveFileResponse
	if err := c.invoke(ctx, api.MethodRetrieveFile, &api.FileRequest{FileID: fileID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *FileVaultClient) DeleteFile(ctx context.Context, fileID string) error {
	return c.invoke(ctx, api.MethodDeleteFile, &api.FileRequest{FileID: fileID}, &api.Empty{})
}

func (c *FileVaultClient) ShareFile(ctx context.Context, fileID, username string) error {
	return c.invoke(ctx, api.MethodShareFile, &api.ShareRequest{FileID: fileID, Username: username}, &api.Empty{})
}

func (c *FileVaultClient) UnshareFile(ctx context.Context, fileID, username string) error {
	return c.invoke(ctx, api.MethodUnshareFile, &api.ShareRequest{FileID: fileID, Username: username}, &api.Empty{})
}
