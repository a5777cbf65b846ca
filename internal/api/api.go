// Package api holds the wire contract of the filevault.v1.FileVault gRPC
// service: method names and the request and response messages. Messages
// travel as JSON through the codec registered in codec.go.
package api

import "time"

const ServiceName = "filevault.v1.FileVault"

const (
	MethodLogin          = "Login"
	MethodCreateUser     = "CreateUser"
	MethodResetPassword  = "ResetPassword"
	MethodChangePassword = "ChangePassword"
	MethodRecoveryKey    = "RecoveryKey"
	MethodLogout         = "Logout"
	MethodListFiles      = "ListFiles"
	MethodUploadFile     = "UploadFile"
	MethodRetrieveFile   = "RetrieveFile"
	MethodDeleteFile     = "DeleteFile"
	MethodShareFile      = "ShareFile"
	MethodUnshareFile    = "UnshareFile"
)

// FullMethod returns the "/service/method" path gRPC uses for name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

type Empty struct{}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// TokenResponse carries the bearer token issued by Login and CreateUser.
type TokenResponse struct {
	Token string `json:"token"`
}

// ResetPasswordRequest proves account ownership with the base64 private
// key returned earlier by RecoveryKey.
type ResetPasswordRequest struct {
	Username        string `json:"username"`
	PrivateKey      string `json:"private_key"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type RecoveryKeyResponse struct {
	PrivateKey string `json:"private_key"`
}

type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsSelf   bool   `json:"is_self"`
}

type File struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	Owner       Owner     `json:"owner"`
	SharedWith  []string  `json:"shared_with"`
}

type ListFilesResponse struct {
	Files []File `json:"files"`
}

type UploadFileRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

type UploadFileResponse struct {
	File File `json:"file"`
}

// FileRequest names a file by id for RetrieveFile and DeleteFile.
type FileRequest struct {
	FileID string `json:"file_id"`
}

type RetrieveFileResponse struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// ShareRequest is used by both ShareFile and UnshareFile.
type ShareRequest struct {
	FileID   string `json:"file_id"`
	Username string `json:"username"`
}
