package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const msgInternal = "internal error"

// toStatus maps service errors onto gRPC codes. Only the caller-safe
// message of a common.Error crosses the wire; anything else is logged
// and reported as an internal error.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, common.ErrorIntegrity):
		s.logger.Error(ctx, "integrity failure", "error", err)
		code = codes.Internal
	case errors.Is(err, common.ErrorValidation):
		code = codes.InvalidArgument
	case errors.Is(err, common.ErrorUnauthorized):
		code = codes.Unauthenticated
	case errors.Is(err, common.ErrorNotFound):
		code = codes.NotFound
	case errors.Is(err, common.ErrorConflict):
		code = codes.AlreadyExists
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, msgInternal)
	}
	return status.Error(code, common.PublicMessage(err, msgInternal))
}

func toAPIFile(f *models.FileMeta) api.File {
	return api.File{
		ID:          f.ID,
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        f.Size,
		CreatedAt:   f.CreatedAt,
		Owner:       api.Owner{ID: f.Owner.ID, Username: f.Owner.Username, IsSelf: f.Owner.IsSelf},
		SharedWith:  f.SharedWith,
	}
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.TokenResponse, error) {
	token, err := s.users.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.TokenResponse{Token: token}, nil
}

func (s *GRPCServer) CreateUser(ctx context.Context, req *api.CreateUserRequest) (*api.TokenResponse, error) {
	token, err := s.users.CreateUser(ctx, req.Username, req.Password, req.ConfirmPassword)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	s.logger.Info(ctx, "Registered", "username", req.Username)
	return &api.TokenResponse{Token: token}, nil
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *api.ResetPasswordRequest) (*api.Empty, error) {
	if err := s.users.ResetPassword(ctx, req.Username, req.PrivateKey, req.Password, req.ConfirmPassword); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *api.ChangePasswordRequest) (*api.Empty, error) {
	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.users.ChangePassword(ctx, id, req.CurrentPassword, req.Password, req.ConfirmPassword); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) RecoveryKey(ctx context.Context, _ *api.Empty) (*api.RecoveryKeyResponse, error) {
	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}
	key, err := s.users.RecoveryKey(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.RecoveryKeyResponse{PrivateKey: key}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *api.Empty) (*api.Empty, error) {
	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.users.Logout(ctx, id); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) ListFiles(ctx context.Context, _ *api.Empty) (*api.ListFilesResponse, error) {
	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.files.List(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp := &api.ListFilesResponse{Files: make([]api.File, 0, len(list))}
	for i := range list {
		resp.Files = append(resp.Files, toAPIFile(&list[i]))
	}
	return resp, nil
}

func (s *GRPCServer) UploadFile(ctx context.Context, req *api.UploadFileRequest) (*api.UploadFileResponse, error) {
	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := s.files.Upload(ctx, id, req.Filename, req.ContentType, req.Data)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.UploadFileResponse{File: toAPIFile(meta)}, nil
}

func (s *GRPCServer) RetrieveFile(ctx context.Context, req *api.FileRequest) (*api.RetrieveFileResponse, error) {
	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}
	dl, err := s.files.Retrieve(ctx, id, req.FileID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.RetrieveFileResponse{Filename: dl.Filename, ContentType: dl.ContentType, Data: dl.Data}, nil
}

func (s *GRPCServer) DeleteFile(ctx context.Context, req *api.FileRequest) (*api.Empty, error) {
	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.files.Delete(ctx, id, req.FileID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) ShareFile(ctx context.Context, req *api.ShareRequest) (*api.Empty, error) {
	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.sharing.Share(ctx, id, req.FileID, req.Username); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) UnshareFile(ctx context.Context, req *api.ShareRequest) (*api.Empty, error) {
	id, err := identityFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.sharing.Unshare(ctx, id, req.FileID, req.Username); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}
